package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinTxCommits(t *testing.T) {
	db, mock := newRepoMock(t)
	mgr := NewTxManager(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE officers SET is_active").WithArgs(false, "officer-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := mgr.WithinTx(context.Background(), func(tx *sqlx.Tx) error {
		return NewOfficerRepository(db).SetActive(context.Background(), tx, "officer-1", false)
	})
	require.NoError(t, err)
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	db, mock := newRepoMock(t)
	mgr := NewTxManager(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := mgr.WithinTx(context.Background(), func(tx *sqlx.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestWithinTxRollsBackOnPanic(t *testing.T) {
	db, mock := newRepoMock(t)
	mgr := NewTxManager(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = mgr.WithinTx(context.Background(), func(tx *sqlx.Tx) error { panic("kaboom") })
	})
}
