package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Client{DB: db}, mock
}

func TestInTxCommits(t *testing.T) {
	c, mock := newMockClient(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM related_posts").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := c.InTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec("DELETE FROM related_posts")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxRollsBackOnError(t *testing.T) {
	c, mock := newMockClient(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("copy failed")
	err := c.InTx(context.Background(), func(*sql.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxReportsRollbackFailure(t *testing.T) {
	c, mock := newMockClient(t)
	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errors.New("connection lost"))

	boom := errors.New("copy failed")
	err := c.InTx(context.Background(), func(*sql.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "connection lost")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxBeginFailure(t *testing.T) {
	c, mock := newMockClient(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	called := false
	err := c.InTx(context.Background(), func(*sql.Tx) error {
		called = true
		return nil
	})
	require.ErrorContains(t, err, "beginning transaction")
	assert.False(t, called)
}

func TestInTxCommitFailure(t *testing.T) {
	c, mock := newMockClient(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	err := c.InTx(context.Background(), func(*sql.Tx) error { return nil })
	require.ErrorContains(t, err, "committing transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}
