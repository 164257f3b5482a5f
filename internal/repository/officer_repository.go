package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/grievance-api/internal/models"
)

// OfficerRepository is the officer directory.
type OfficerRepository struct {
	db *sqlx.DB
}

// NewOfficerRepository constructs an OfficerRepository.
func NewOfficerRepository(db *sqlx.DB) *OfficerRepository {
	return &OfficerRepository{db: db}
}

const officerSelect = `
SELECT o.id, o.user_id, u.username, o.department, o.designation, o.is_active, o.created_at
FROM officers o
JOIN users u ON u.id = o.user_id`

// FindByID returns sql.ErrNoRows when the officer does not exist.
func (r *OfficerRepository) FindByID(ctx context.Context, id string) (*models.Officer, error) {
	return r.findOne(ctx, r.db, officerSelect+` WHERE o.id = $1`, id, "find officer")
}

// FindByUserID resolves the officer profile of an account.
func (r *OfficerRepository) FindByUserID(ctx context.Context, userID string) (*models.Officer, error) {
	return r.findOne(ctx, r.db, officerSelect+` WHERE o.user_id = $1`, userID, "find officer by user")
}

// LockByID reads the officer row with FOR UPDATE inside q.
func (r *OfficerRepository) LockByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Officer, error) {
	return r.findOne(ctx, q, officerSelect+` WHERE o.id = $1 FOR UPDATE OF o`, id, "lock officer")
}

func (r *OfficerRepository) findOne(ctx context.Context, q sqlx.QueryerContext, query, arg, op string) (*models.Officer, error) {
	var officer models.Officer
	if err := sqlx.GetContext(ctx, q, &officer, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &officer, nil
}

// List returns every officer in enumeration order.
func (r *OfficerRepository) List(ctx context.Context) ([]models.Officer, error) {
	var officers []models.Officer
	if err := r.db.SelectContext(ctx, &officers, officerSelect+` ORDER BY o.created_at ASC, o.id ASC`); err != nil {
		return nil, fmt.Errorf("list officers: %w", err)
	}
	return officers, nil
}

// SetActive persists the active flag.
func (r *OfficerRepository) SetActive(ctx context.Context, q sqlx.ExecerContext, id string, active bool) error {
	const query = `UPDATE officers SET is_active = $1 WHERE id = $2`
	if _, err := q.ExecContext(ctx, query, active, id); err != nil {
		return fmt.Errorf("set officer active: %w", err)
	}
	return nil
}

// CandidatesForUpdate locks the active officers serving categoryID, skipping
// excludeID when set, and returns them in enumeration order (created_at, id) with
// their open workload. Workload is counted in a second statement so it observes
// assignments committed by writers that held the locks before us.
func (r *OfficerRepository) CandidatesForUpdate(ctx context.Context, q sqlx.ExtContext, categoryID, excludeID string) ([]models.OfficerCandidate, error) {
	query := strings.Builder{}
	query.WriteString(`
SELECT o.id AS officer_id, o.user_id, u.username, o.created_at
FROM officers o
JOIN users u ON u.id = o.user_id
JOIN officer_categories oc ON oc.officer_id = o.id
WHERE o.is_active = TRUE
	AND oc.category_id = $1`)
	args := []interface{}{categoryID}
	if excludeID != "" {
		args = append(args, excludeID)
		fmt.Fprintf(&query, "\n\tAND o.id <> $%d", len(args))
	}
	query.WriteString("\nORDER BY o.created_at ASC, o.id ASC\nFOR UPDATE OF o")

	var candidates []models.OfficerCandidate
	if err := sqlx.SelectContext(ctx, q, &candidates, query.String(), args...); err != nil {
		return nil, fmt.Errorf("lock officer candidates: %w", err)
	}
	if len(candidates) == 0 {
		return candidates, nil
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.OfficerID
	}
	workloads, err := r.workloads(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		candidates[i].Workload = workloads[candidates[i].OfficerID]
	}
	return candidates, nil
}

// Workload counts assignments on Pending or InProgress grievances.
func (r *OfficerRepository) Workload(ctx context.Context, officerID string) (int, error) {
	workloads, err := r.workloads(ctx, r.db, []string{officerID})
	if err != nil {
		return 0, err
	}
	return workloads[officerID], nil
}

func (r *OfficerRepository) workloads(ctx context.Context, q sqlx.QueryerContext, officerIDs []string) (map[string]int, error) {
	const query = `
SELECT ga.officer_id, COUNT(*) AS workload
FROM grievance_assignments ga
JOIN grievances g ON g.id = ga.grievance_id
WHERE ga.officer_id = ANY($1)
	AND g.status IN ('Pending', 'InProgress')
GROUP BY ga.officer_id`

	var rows []struct {
		OfficerID string `db:"officer_id"`
		Workload  int    `db:"workload"`
	}
	if err := sqlx.SelectContext(ctx, q, &rows, query, pq.Array(officerIDs)); err != nil {
		return nil, fmt.Errorf("count officer workload: %w", err)
	}
	result := make(map[string]int, len(rows))
	for _, row := range rows {
		result[row.OfficerID] = row.Workload
	}
	return result, nil
}
