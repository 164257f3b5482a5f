package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfficerRepositoryCandidatesForUpdate(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewOfficerRepository(db)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)FROM officers o.*oc\.category_id = \$1.*o\.id <> \$2.*ORDER BY o\.created_at ASC, o\.id ASC.*FOR UPDATE OF o`).
		WithArgs("cat-water", "officer-a").
		WillReturnRows(sqlmock.NewRows([]string{"officer_id", "user_id", "username", "created_at"}).
			AddRow("officer-b", "user-b", "bravo", created).
			AddRow("officer-c", "user-c", "charlie", created.Add(time.Hour)))
	mock.ExpectQuery(`(?s)FROM grievance_assignments ga.*ANY\(\$1\).*'Pending', 'InProgress'`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"officer_id", "workload"}).AddRow("officer-b", 3))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	candidates, err := repo.CandidatesForUpdate(context.Background(), tx, "cat-water", "officer-a")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.Len(t, candidates, 2)
	assert.Equal(t, "officer-b", candidates[0].OfficerID)
	assert.Equal(t, 3, candidates[0].Workload)
	assert.Equal(t, "officer-c", candidates[1].OfficerID)
	assert.Equal(t, 0, candidates[1].Workload)
}

func TestOfficerRepositoryCandidatesWithoutExclusion(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewOfficerRepository(db)

	mock.ExpectQuery(`(?s)oc\.category_id = \$1\s+ORDER BY`).
		WithArgs("cat-roads").
		WillReturnRows(sqlmock.NewRows([]string{"officer_id", "user_id", "username", "created_at"}))

	candidates, err := repo.CandidatesForUpdate(context.Background(), db, "cat-roads", "")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestOfficerRepositoryFindByIDNotFound(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewOfficerRepository(db)

	mock.ExpectQuery(`WHERE o\.id = \$1`).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	officer, err := repo.FindByID(context.Background(), "missing")
	assert.Nil(t, officer)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
