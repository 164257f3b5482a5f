package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-api/internal/models"
)

var userRowColumns = []string{"id", "username", "email", "full_name", "role", "is_staff", "is_superuser", "created_at"}

func TestUserRepositoryFindByID(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewUserRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, email, full_name, role, is_staff, is_superuser, created_at FROM users WHERE id = $1")).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u-1", "rina", "rina@example.com", "Rina", string(models.RoleCitizen), false, false, now))

	user, err := repo.FindByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "rina@example.com", user.Email)
	assert.Equal(t, models.RoleCitizen, user.Role)
}

func TestUserRepositoryFindByIDMissing(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users WHERE id").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUserRepositoryListSuperusers(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewUserRepository(db)

	now := time.Now()
	mock.ExpectQuery(`WHERE is_superuser = TRUE ORDER BY created_at ASC`).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u-9", "root", "root@example.com", "Root", string(models.RoleAdmin), true, true, now))

	users, err := repo.ListSuperusers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, users[0].IsSuperuser)
}

func TestUserRepositoryUpsert(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`(?s)INSERT INTO users .*ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("u-1", "rina", "rina@example.com", "Rina", models.RoleCitizen, false, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), &models.User{
		ID:        "u-1",
		Username:  "rina",
		Email:     "rina@example.com",
		FullName:  "Rina",
		Role:      models.RoleCitizen,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
}
