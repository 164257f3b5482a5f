package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grievance-api/internal/models"
)

// FeedbackRepository stores citizen ratings.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs a FeedbackRepository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create inserts feedback.
func (r *FeedbackRepository) Create(ctx context.Context, f *models.Feedback) error {
	const query = `
INSERT INTO feedback (id, grievance_id, user_id, rating, comment, created_at)
VALUES (:id, :grievance_id, :user_id, :rating, :comment, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, f); err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}

// ExistsForGrievance reports whether feedback was already left.
func (r *FeedbackRepository) ExistsForGrievance(ctx context.Context, grievanceID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM feedback WHERE grievance_id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, grievanceID); err != nil {
		return false, fmt.Errorf("check feedback: %w", err)
	}
	return exists, nil
}
