package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grievance-api/internal/models"
)

// AssignmentRepository persists officer-to-grievance routing links.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create inserts the current assignment of a grievance.
func (r *AssignmentRepository) Create(ctx context.Context, q sqlx.ExtContext, assignment *models.Assignment) error {
	const query = `
INSERT INTO grievance_assignments (id, grievance_id, officer_id, assigned_by, assigned_at)
VALUES (:id, :grievance_id, :officer_id, :assigned_by, :assigned_at)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// FindByGrievance returns sql.ErrNoRows when the grievance is unassigned.
func (r *AssignmentRepository) FindByGrievance(ctx context.Context, grievanceID string) (*models.Assignment, error) {
	const query = `SELECT id, grievance_id, officer_id, assigned_by, assigned_at FROM grievance_assignments WHERE grievance_id = $1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, grievanceID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &assignment, nil
}

// LockByID reads an assignment row with FOR UPDATE inside q.
func (r *AssignmentRepository) LockByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Assignment, error) {
	const query = `SELECT id, grievance_id, officer_id, assigned_by, assigned_at FROM grievance_assignments WHERE id = $1 FOR UPDATE`
	var assignment models.Assignment
	if err := sqlx.GetContext(ctx, q, &assignment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock assignment: %w", err)
	}
	return &assignment, nil
}

// ListOpenByOfficer returns the officer's assignments whose grievances are still
// Pending or InProgress, oldest first.
func (r *AssignmentRepository) ListOpenByOfficer(ctx context.Context, officerID string) ([]models.OpenAssignment, error) {
	const query = `
SELECT ga.id AS assignment_id, g.id AS grievance_id, g.title, g.user_id AS owner_id, g.category_id
FROM grievance_assignments ga
JOIN grievances g ON g.id = ga.grievance_id
WHERE ga.officer_id = $1
	AND g.status IN ('Pending', 'InProgress')
ORDER BY ga.assigned_at ASC, ga.id ASC`
	var items []models.OpenAssignment
	if err := r.db.SelectContext(ctx, &items, query, officerID); err != nil {
		return nil, fmt.Errorf("list open assignments: %w", err)
	}
	return items, nil
}

// Reassign points an existing assignment row at a new officer and marks it as
// system-assigned.
func (r *AssignmentRepository) Reassign(ctx context.Context, q sqlx.ExecerContext, id, officerID string, at time.Time) error {
	const query = `UPDATE grievance_assignments SET officer_id = $1, assigned_by = NULL, assigned_at = $2 WHERE id = $3`
	res, err := q.ExecContext(ctx, query, officerID, at, id)
	if err != nil {
		return fmt.Errorf("reassign assignment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
