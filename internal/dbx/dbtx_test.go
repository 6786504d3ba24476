package dbx

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (sqlmock.Sqlmock, func(fn func(ctx context.Context, tx DBTX) error) error) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return mock, func(fn func(ctx context.Context, tx DBTX) error) error {
		return WithTx(context.Background(), db, nil, fn)
	}
}

func TestWithTx_Commit(t *testing.T) {
	mock, run := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO credentials`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := run(func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO credentials (username) VALUES ($1)`, "alice")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnError(t *testing.T) {
	mock, run := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := run(func(context.Context, DBTX) error { return boom })
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackFailureJoined(t *testing.T) {
	mock, run := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errors.New("conn reset"))

	boom := errors.New("boom")
	err := run(func(context.Context, DBTX) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "rollback tx: conn reset")
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	mock, run := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "kaput", func() {
		_ = run(func(context.Context, DBTX) error { panic("kaput") })
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_BeginError(t *testing.T) {
	mock, run := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	called := false
	err := run(func(context.Context, DBTX) error {
		called = true
		return nil
	})
	require.ErrorContains(t, err, "begin tx: too many connections")
	assert.False(t, called)
}

func TestWithTx_CommitError(t *testing.T) {
	mock, run := newMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	err := run(func(context.Context, DBTX) error { return nil })
	require.ErrorContains(t, err, "commit tx: serialization failure")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgErrorClassification(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "credentials_username_key"}
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "vaults_user_id_fkey"}

	assert.True(t, IsUniqueViolation(dup))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert credential: %w", dup)))
	assert.False(t, IsUniqueViolation(fk))
	assert.False(t, IsUniqueViolation(errors.New("23505")))
	assert.False(t, IsUniqueViolation(nil))

	assert.True(t, IsForeignKeyViolation(fmt.Errorf("put vault: %w", fk)))
	assert.False(t, IsForeignKeyViolation(dup))
}
