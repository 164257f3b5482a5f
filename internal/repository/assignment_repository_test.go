package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-api/internal/models"
)

func TestAssignmentRepositoryCreate(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewAssignmentRepository(db)
	at := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO grievance_assignments`).
		WithArgs("asg-1", "g-1", "officer-1", nil, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), db, &models.Assignment{ID: "asg-1", GrievanceID: "g-1", OfficerID: "officer-1", AssignedAt: at})
	require.NoError(t, err)
}

func TestAssignmentRepositoryReassignClearsAssignedBy(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewAssignmentRepository(db)
	at := time.Now().UTC()

	mock.ExpectExec(`UPDATE grievance_assignments SET officer_id = \$1, assigned_by = NULL, assigned_at = \$2 WHERE id = \$3`).
		WithArgs("officer-b", at, "asg-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Reassign(context.Background(), db, "asg-1", "officer-b", at))
}

func TestAssignmentRepositoryReassignMissingRow(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(`UPDATE grievance_assignments`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Reassign(context.Background(), db, "asg-x", "officer-b", time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAssignmentRepositoryListOpenByOfficer(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(`(?s)WHERE ga\.officer_id = \$1.*g\.status IN \('Pending', 'InProgress'\)`).
		WithArgs("officer-a").
		WillReturnRows(sqlmock.NewRows([]string{"assignment_id", "grievance_id", "title", "owner_id", "category_id"}).
			AddRow("asg-1", "g-1", "Leak", "user-1", "cat-water").
			AddRow("asg-2", "g-2", "Orphan", "user-2", nil))

	items, err := repo.ListOpenByOfficer(context.Background(), "officer-a")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NotNil(t, items[0].CategoryID)
	assert.Equal(t, "cat-water", *items[0].CategoryID)
	assert.Nil(t, items[1].CategoryID)
}
