package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grievance-api/internal/models"
)

// UserRepository reads the local mirror of accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, full_name, role, is_staff, is_superuser, created_at`

// FindByID returns sql.ErrNoRows when the user is unknown.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// ListSuperusers returns the escalation admins.
func (r *UserRepository) ListSuperusers(ctx context.Context) ([]models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE is_superuser = TRUE ORDER BY created_at ASC`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list superusers: %w", err)
	}
	return users, nil
}

// Upsert mirrors an account pushed from the account service.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	const query = `
INSERT INTO users (id, username, email, full_name, role, is_staff, is_superuser, created_at)
VALUES (:id, :username, :email, :full_name, :role, :is_staff, :is_superuser, :created_at)
ON CONFLICT (id) DO UPDATE SET
	username = EXCLUDED.username,
	email = EXCLUDED.email,
	full_name = EXCLUDED.full_name,
	role = EXCLUDED.role,
	is_staff = EXCLUDED.is_staff,
	is_superuser = EXCLUDED.is_superuser`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
