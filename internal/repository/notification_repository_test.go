package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationRepositoryListLatest(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewNotificationRepository(db)

	mock.ExpectQuery(`(?s)WHERE user_id = \$1\s+ORDER BY created_at DESC, id DESC\s+LIMIT \$2`).
		WithArgs("user-1", 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "grievance_id", "title", "message", "is_read", "created_at"}).
			AddRow("n-1", "user-1", "g-1", "Status Updated", "Grievance 'Leak' is now Resolved.", false, time.Now()))

	items, err := repo.ListByUser(context.Background(), "user-1", 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Status Updated", items[0].Title)
}

func TestNotificationRepositoryMarkRead(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewNotificationRepository(db)

	mock.ExpectExec(`UPDATE notifications SET is_read = TRUE WHERE id = \$1 AND user_id = \$2`).
		WithArgs("n-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE notifications`).
		WithArgs("n-1", "intruder").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkRead(context.Background(), "n-1", "user-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkRead(context.Background(), "n-1", "intruder")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNotificationRepositoryCountUnread(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewNotificationRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications WHERE user_id = \$1 AND is_read = FALSE`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountUnread(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
