package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grievance-api/internal/models"
)

// DashboardRepository runs the aggregate queries behind the dashboards.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs a DashboardRepository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Counts aggregates grievances by status. An empty officerID counts everything.
func (r *DashboardRepository) Counts(ctx context.Context, officerID string, now time.Time) (models.GrievanceCounts, error) {
	builder := psql.Select(
		"COUNT(*) AS total",
		"COUNT(*) FILTER (WHERE g.status = 'Pending') AS pending",
		"COUNT(*) FILTER (WHERE g.status = 'InProgress') AS in_progress",
		"COUNT(*) FILTER (WHERE g.status = 'Resolved') AS resolved",
	).
		Column(squirrel.Expr("COUNT(*) FILTER (WHERE g.status IN ('Pending', 'InProgress') AND g.due_date < ?) AS overdue", now)).
		From("grievances g")
	if officerID != "" {
		builder = builder.
			Join("grievance_assignments ga ON ga.grievance_id = g.id").
			Where(squirrel.Eq{"ga.officer_id": officerID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return models.GrievanceCounts{}, fmt.Errorf("build counts query: %w", err)
	}
	var counts models.GrievanceCounts
	if err := r.db.GetContext(ctx, &counts, query, args...); err != nil {
		return models.GrievanceCounts{}, fmt.Errorf("count grievances by status: %w", err)
	}
	return counts, nil
}

// CategoryStats returns totals per category, including empty categories.
func (r *DashboardRepository) CategoryStats(ctx context.Context) ([]models.CategoryStat, error) {
	const query = `
SELECT c.id AS category_id, c.name,
	COUNT(g.id) AS total,
	COUNT(g.id) FILTER (WHERE g.status = 'Resolved') AS resolved
FROM categories c
LEFT JOIN grievances g ON g.category_id = c.id
GROUP BY c.id, c.name
ORDER BY c.name ASC`
	var stats []models.CategoryStat
	if err := r.db.SelectContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}
	return stats, nil
}

// MonthCounts returns grievances filed and resolved since monthStart.
func (r *DashboardRepository) MonthCounts(ctx context.Context, monthStart time.Time) (filed, resolved int, err error) {
	const query = `
SELECT
	COUNT(*) FILTER (WHERE created_at >= $1) AS filed,
	COUNT(*) FILTER (WHERE status = 'Resolved' AND updated_at >= $1) AS resolved
FROM grievances`
	var row struct {
		Filed    int `db:"filed"`
		Resolved int `db:"resolved"`
	}
	if err := r.db.GetContext(ctx, &row, query, monthStart); err != nil {
		return 0, 0, fmt.Errorf("month counts: %w", err)
	}
	return row.Filed, row.Resolved, nil
}

// AvgResolutionHours averages created-to-resolved time for an officer's resolved grievances.
func (r *DashboardRepository) AvgResolutionHours(ctx context.Context, officerID string) (float64, error) {
	const query = `
SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (g.updated_at - g.created_at))) / 3600, 0)
FROM grievances g
JOIN grievance_assignments ga ON ga.grievance_id = g.id
WHERE ga.officer_id = $1 AND g.status = 'Resolved'`
	var hours float64
	if err := r.db.GetContext(ctx, &hours, query, officerID); err != nil {
		return 0, fmt.Errorf("average resolution time: %w", err)
	}
	return hours, nil
}
