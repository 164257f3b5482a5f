package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grievance-api/internal/models"
)

// GrievanceRepository persists grievances.
type GrievanceRepository struct {
	db *sqlx.DB
}

// NewGrievanceRepository constructs a GrievanceRepository.
func NewGrievanceRepository(db *sqlx.DB) *GrievanceRepository {
	return &GrievanceRepository{db: db}
}

const grievanceColumns = `id, user_id, category_id, title, description, priority, status, officer_remark, due_date, escalation_level, last_escalated_at, created_at, updated_at`

var grievanceDetailColumns = []string{
	"g.id", "g.user_id", "g.category_id", "g.title", "g.description", "g.priority", "g.status",
	"g.officer_remark", "g.due_date", "g.escalation_level", "g.last_escalated_at", "g.created_at", "g.updated_at",
	"u.username AS owner_username", "c.name AS category_name", "ou.username AS officer_username",
}

// Create inserts a new grievance. due_date is written here and nowhere else.
func (r *GrievanceRepository) Create(ctx context.Context, q sqlx.ExtContext, g *models.Grievance) error {
	const query = `
INSERT INTO grievances (id, user_id, category_id, title, description, priority, status, officer_remark, due_date, escalation_level, last_escalated_at, created_at, updated_at)
VALUES (:id, :user_id, :category_id, :title, :description, :priority, :status, :officer_remark, :due_date, :escalation_level, :last_escalated_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, g); err != nil {
		return fmt.Errorf("create grievance: %w", err)
	}
	return nil
}

// FindByID returns sql.ErrNoRows when the grievance does not exist.
func (r *GrievanceRepository) FindByID(ctx context.Context, id string) (*models.Grievance, error) {
	const query = `SELECT ` + grievanceColumns + ` FROM grievances WHERE id = $1`
	var g models.Grievance
	if err := r.db.GetContext(ctx, &g, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find grievance: %w", err)
	}
	return &g, nil
}

// LockByID reads the grievance row with FOR UPDATE inside q.
func (r *GrievanceRepository) LockByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Grievance, error) {
	const query = `SELECT ` + grievanceColumns + ` FROM grievances WHERE id = $1 FOR UPDATE`
	var g models.Grievance
	if err := sqlx.GetContext(ctx, q, &g, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock grievance: %w", err)
	}
	return &g, nil
}

// Update writes the officer-editable fields.
func (r *GrievanceRepository) Update(ctx context.Context, q sqlx.ExtContext, g *models.Grievance) error {
	const query = `
UPDATE grievances
SET status = :status, priority = :priority, officer_remark = :officer_remark, updated_at = :updated_at
WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, q, query, g); err != nil {
		return fmt.Errorf("update grievance: %w", err)
	}
	return nil
}

// AdvanceEscalation moves the grievance from level `from` to `to`. It reports false
// when another writer already changed the level.
func (r *GrievanceRepository) AdvanceEscalation(ctx context.Context, q sqlx.ExecerContext, id string, from, to int, at time.Time) (bool, error) {
	const query = `
UPDATE grievances
SET escalation_level = $1, last_escalated_at = $2
WHERE id = $3 AND escalation_level = $4`
	res, err := q.ExecContext(ctx, query, to, at, id, from)
	if err != nil {
		return false, fmt.Errorf("advance escalation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("advance escalation rows: %w", err)
	}
	return n == 1, nil
}

// ListDetails returns grievances with owner, category and officer names.
func (r *GrievanceRepository) ListDetails(ctx context.Context, filter models.GrievanceFilter) ([]models.GrievanceDetail, error) {
	builder := applyGrievanceFilter(grievanceDetailBase().Columns(grievanceDetailColumns...), filter).
		OrderBy("g.created_at DESC", "g.id ASC")
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		builder = builder.Offset(filter.Offset)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build grievance list: %w", err)
	}
	var items []models.GrievanceDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list grievances: %w", err)
	}
	return items, nil
}

// Count returns the number of grievances matching filter.
func (r *GrievanceRepository) Count(ctx context.Context, filter models.GrievanceFilter) (int, error) {
	query, args, err := applyGrievanceFilter(grievanceDetailBase().Columns("COUNT(*)"), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build grievance count: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count grievances: %w", err)
	}
	return total, nil
}

// ListOverdue returns open grievances whose due date is before now, oldest due first.
func (r *GrievanceRepository) ListOverdue(ctx context.Context, now time.Time) ([]models.GrievanceDetail, error) {
	builder := applyGrievanceFilter(grievanceDetailBase().Columns(grievanceDetailColumns...), models.GrievanceFilter{Overdue: true, Now: now}).
		Where(squirrel.Lt{"g.escalation_level": models.EscalationLevel2}).
		OrderBy("g.due_date ASC", "g.id ASC")

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build overdue query: %w", err)
	}
	var items []models.GrievanceDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list overdue grievances: %w", err)
	}
	return items, nil
}

func grievanceDetailBase() squirrel.SelectBuilder {
	return psql.Select().
		From("grievances g").
		Join("users u ON u.id = g.user_id").
		LeftJoin("categories c ON c.id = g.category_id").
		LeftJoin("grievance_assignments ga ON ga.grievance_id = g.id").
		LeftJoin("officers o ON o.id = ga.officer_id").
		LeftJoin("users ou ON ou.id = o.user_id")
}

func applyGrievanceFilter(builder squirrel.SelectBuilder, filter models.GrievanceFilter) squirrel.SelectBuilder {
	if filter.ID != "" {
		builder = builder.Where(squirrel.Eq{"g.id": filter.ID})
	}
	if filter.UserID != "" {
		builder = builder.Where(squirrel.Eq{"g.user_id": filter.UserID})
	}
	if filter.OfficerID != "" {
		builder = builder.Where(squirrel.Eq{"ga.officer_id": filter.OfficerID})
	}
	if filter.Status != "" {
		builder = builder.Where(squirrel.Eq{"g.status": string(filter.Status)})
	}
	if filter.CategoryID != "" {
		builder = builder.Where(squirrel.Eq{"g.category_id": filter.CategoryID})
	}
	if filter.Overdue {
		builder = builder.
			Where(squirrel.Eq{"g.status": openStatusValues()}).
			Where(squirrel.Lt{"g.due_date": filter.Now})
	}
	return builder
}

func openStatusValues() []string {
	values := make([]string, len(models.OpenStatuses))
	for i, s := range models.OpenStatuses {
		values[i] = string(s)
	}
	return values
}
