package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grievance-api/internal/models"
)

// StatusHistoryRepository appends and reads status transitions.
type StatusHistoryRepository struct {
	db *sqlx.DB
}

// NewStatusHistoryRepository constructs a StatusHistoryRepository.
func NewStatusHistoryRepository(db *sqlx.DB) *StatusHistoryRepository {
	return &StatusHistoryRepository{db: db}
}

// Create appends a history row inside q.
func (r *StatusHistoryRepository) Create(ctx context.Context, q sqlx.ExtContext, entry *models.StatusHistory) error {
	const query = `
INSERT INTO status_history (id, grievance_id, old_status, new_status, changed_by, changed_at)
VALUES (:id, :grievance_id, :old_status, :new_status, :changed_by, :changed_at)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, entry); err != nil {
		return fmt.Errorf("create status history: %w", err)
	}
	return nil
}

// ListByGrievance returns the history newest first.
func (r *StatusHistoryRepository) ListByGrievance(ctx context.Context, grievanceID string) ([]models.StatusHistory, error) {
	const query = `
SELECT id, grievance_id, old_status, new_status, changed_by, changed_at
FROM status_history
WHERE grievance_id = $1
ORDER BY changed_at DESC, id DESC`
	var entries []models.StatusHistory
	if err := r.db.SelectContext(ctx, &entries, query, grievanceID); err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	return entries, nil
}
