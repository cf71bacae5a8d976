package orm

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/velite"
	"github.com/syssam/velite/dialect/sqlite"
)

var errAbort = errors.New("abort")

func mockConn(t *testing.T) (*Conn, sqlmock.Sqlmock) {
	t.Helper()
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	eng, err := sqlite.OpenDB(ctx, db)
	require.NoError(t, err)
	c, err := NewConn(ctx, eng, WithBusyTimeout(0))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mock
}

func TestRunInTransaction(t *testing.T) {
	ctx := context.Background()
	c := openFile(t)
	mustCreate[Flag](t, c)
	_, err := c.Insert(ctx, &Flag{Name: "kept"})
	require.NoError(t, err)

	err = c.RunInTransaction(ctx, func(tx *Conn) error {
		assert.NotSame(t, c, tx)
		assert.True(t, tx.IsInTransaction())
		for range 2 {
			if _, err := tx.Insert(ctx, &Flag{Name: "lost"}); err != nil {
				return err
			}
		}
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)
	assert.Equal(t, 1, countRows(t, c, "Flag"))
	assert.False(t, c.IsInTransaction())

	err = c.RunInTransaction(ctx, func(tx *Conn) error {
		_, err := tx.Insert(ctx, &Flag{Name: "added"})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, countRows(t, c, "Flag"))

	assert.Panics(t, func() {
		_ = c.RunInTransaction(ctx, func(tx *Conn) error {
			_, _ = tx.Insert(ctx, &Flag{Name: "panicked"})
			panic("boom")
		})
	})
	assert.Equal(t, 2, countRows(t, c, "Flag"))
}

func TestRunInTransactionMemory(t *testing.T) {
	ctx := context.Background()
	c := openMem(t)
	mustCreate[Flag](t, c)

	err := c.RunInTransaction(ctx, func(tx *Conn) error {
		assert.Same(t, c, tx)
		_, err := tx.Insert(ctx, &Flag{Name: "lost"})
		require.NoError(t, err)
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)
	assert.Zero(t, countRows(t, c, "Flag"))
	assert.False(t, c.IsInTransaction())
}

func TestRunInTransactionNested(t *testing.T) {
	ctx := context.Background()
	c := openFile(t)
	mustCreate[Flag](t, c)

	require.NoError(t, c.BeginTransaction(ctx))
	_, err := c.Insert(ctx, &Flag{Name: "outer"})
	require.NoError(t, err)

	err = c.RunInTransaction(ctx, func(tx *Conn) error {
		assert.Same(t, c, tx)
		_, err := tx.Insert(ctx, &Flag{Name: "inner"})
		require.NoError(t, err)
		return c.RunInTransaction(ctx, func(*Conn) error { return errAbort })
	})
	assert.ErrorIs(t, err, errAbort)
	assert.True(t, c.IsInTransaction())

	err = c.RunInTransaction(ctx, func(tx *Conn) error {
		_, err := tx.Insert(ctx, &Flag{Name: "second"})
		return err
	})
	require.NoError(t, err)
	require.NoError(t, c.Commit(ctx))
	assert.False(t, c.IsInTransaction())

	names, err := ExecuteSimpleQuery[string](ctx, c, `select "Name" from "Flag" order by "id"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "second"}, names)
}

func TestRunInTransactionNestedRestores(t *testing.T) {
	ctx := context.Background()
	c := openFile(t)
	mustCreate[Flag](t, c)
	for range 5 {
		_, err := c.Insert(ctx, &Flag{Name: "f"})
		require.NoError(t, err)
	}

	err := c.RunInTransaction(ctx, func(tx *Conn) error {
		if _, err := tx.Delete(ctx, &Flag{ID: 1}); err != nil {
			return err
		}
		return tx.RunInTransaction(ctx, func(inner *Conn) error {
			assert.Same(t, tx, inner)
			if _, err := inner.Delete(ctx, &Flag{ID: 2}); err != nil {
				return err
			}
			assert.Equal(t, 3, countRows(t, inner, "Flag"))
			return errAbort
		})
	})
	assert.ErrorIs(t, err, errAbort)
	assert.False(t, c.IsInTransaction())
	assert.Equal(t, 5, countRows(t, c, "Flag"))
	_, err = Get[Flag](ctx, c, 1)
	assert.NoError(t, err)
}

func TestSavePoints(t *testing.T) {
	ctx := context.Background()
	c := openMem(t)
	mustCreate[Flag](t, c)
	for range 10 {
		_, err := c.Insert(ctx, &Flag{Name: "f"})
		require.NoError(t, err)
	}

	sp1, err := c.SavePoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sp1.Depth())
	_, err = c.Delete(ctx, &Flag{ID: 1})
	require.NoError(t, err)

	sp2, err := c.SavePoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sp2.Depth())
	assert.Regexp(t, `^S\d+D2$`, sp2.Name())
	_, err = c.Delete(ctx, &Flag{ID: 2})
	require.NoError(t, err)
	assert.Equal(t, 8, countRows(t, c, "Flag"))

	require.NoError(t, c.RollbackTo(ctx, sp2))
	assert.Equal(t, 9, countRows(t, c, "Flag"))

	require.NoError(t, c.Release(ctx, sp1))
	assert.False(t, c.IsInTransaction())
	assert.Equal(t, 9, countRows(t, c, "Flag"))

	_, err = Get[Flag](ctx, c, 1)
	assert.True(t, velite.IsNotFound(err))
	_, err = Get[Flag](ctx, c, 2)
	assert.NoError(t, err)
}

func TestRollbackToKeepsDepth(t *testing.T) {
	ctx := context.Background()
	c := openMem(t)

	sp, err := c.SavePoint(ctx)
	require.NoError(t, err)
	require.NoError(t, c.RollbackTo(ctx, sp))
	assert.True(t, c.IsInTransaction())
	assert.Equal(t, int32(1), c.depth.Load())

	require.NoError(t, c.Release(ctx, sp))
	assert.False(t, c.IsInTransaction())

	assert.True(t, velite.IsArgumentError(c.Release(ctx, sp)))
	assert.True(t, velite.IsArgumentError(c.RollbackTo(ctx, SavePoint{})))
}

func TestBeginTransaction(t *testing.T) {
	ctx := context.Background()
	c := openMem(t)
	mustCreate[Flag](t, c)

	require.NoError(t, c.BeginTransaction(ctx))
	err := c.BeginTransaction(ctx)
	assert.True(t, velite.IsInvalidOperation(err))
	assert.ErrorIs(t, err, velite.ErrTxStarted)
	assert.True(t, c.IsInTransaction())

	_, err = c.Insert(ctx, &Flag{Name: "gone"})
	require.NoError(t, err)
	require.NoError(t, c.Rollback(ctx))
	assert.Zero(t, countRows(t, c, "Flag"))

	require.NoError(t, c.Rollback(ctx))
	require.NoError(t, c.Commit(ctx))

	_, err = c.Execute(ctx, "begin")
	require.NoError(t, err)
	assert.False(t, c.Engine().GetAutocommit())
	err = c.BeginTransaction(ctx)
	assert.ErrorIs(t, err, velite.ErrTxStarted)
	assert.True(t, c.Engine().GetAutocommit())
	assert.False(t, c.IsInTransaction())
	require.NoError(t, c.BeginTransaction(ctx))
	require.NoError(t, c.Commit(ctx))
}

func TestTransactionSQL(t *testing.T) {
	ctx := context.Background()
	c, mock := mockConn(t)

	mock.ExpectExec(`^begin transaction$`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^savepoint S\d+D2$`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^rollback to S\d+D2$`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^release S\d+D2$`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^commit$`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, c.BeginTransaction(ctx))
	sp, err := c.SavePoint(ctx)
	require.NoError(t, err)
	require.NoError(t, c.RollbackTo(ctx, sp))
	assert.Equal(t, int32(2), c.depth.Load())
	require.NoError(t, c.Release(ctx, sp))
	assert.Equal(t, int32(1), c.depth.Load())
	require.NoError(t, c.Commit(ctx))
	assert.False(t, c.IsInTransaction())

	// Without a transaction Rollback does not reach the engine.
	require.NoError(t, c.Rollback(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("BeginNested", func(t *testing.T) {
		c, mock := mockConn(t)
		mock.ExpectExec(`^begin$`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`^rollback$`).WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := c.Engine().Exec(ctx, "begin")
		require.NoError(t, err)
		assert.False(t, c.Engine().GetAutocommit())
		err = c.BeginTransaction(ctx)
		assert.True(t, velite.IsInvalidOperation(err))
		assert.ErrorIs(t, err, velite.ErrTxStarted)
		assert.False(t, c.IsInTransaction())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("BeginBusy", func(t *testing.T) {
		c, mock := mockConn(t)
		mock.ExpectExec(`^begin transaction$`).WillReturnError(errors.New("database is locked"))
		mock.ExpectExec(`^rollback$`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := c.BeginTransaction(ctx)
		assert.True(t, velite.IsBusy(err))
		assert.False(t, c.IsInTransaction())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("BeginOther", func(t *testing.T) {
		c, mock := mockConn(t)
		mock.ExpectExec(`^begin transaction$`).WillReturnError(errors.New("near \"begin\": syntax error"))

		err := c.BeginTransaction(ctx)
		assert.True(t, velite.IsEngineError(err))
		assert.False(t, c.IsInTransaction())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SavePoint", func(t *testing.T) {
		c, mock := mockConn(t)
		mock.ExpectExec(`^savepoint S\d+D1$`).WillReturnError(errors.New("disk I/O error"))
		mock.ExpectExec(`^rollback$`).WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := c.SavePoint(ctx)
		code, ok := velite.CodeOf(err)
		require.True(t, ok)
		assert.Equal(t, velite.CodeIOErr, code.Primary())
		assert.False(t, c.IsInTransaction())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Commit", func(t *testing.T) {
		c, mock := mockConn(t)
		mock.ExpectExec(`^begin transaction$`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`^commit$`).WillReturnError(errors.New("database or disk is full"))
		mock.ExpectExec(`^rollback$`).WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, c.BeginTransaction(ctx))
		err := c.Commit(ctx)
		code, ok := velite.CodeOf(err)
		require.True(t, ok)
		assert.Equal(t, velite.CodeFull, code.Primary())
		assert.False(t, c.IsInTransaction())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CommitAndRollback", func(t *testing.T) {
		c, mock := mockConn(t)
		mock.ExpectExec(`^begin transaction$`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`^commit$`).WillReturnError(errors.New("disk I/O error"))
		mock.ExpectExec(`^rollback$`).WillReturnError(errors.New("disk I/O error"))

		require.NoError(t, c.BeginTransaction(ctx))
		err := c.Commit(ctx)
		require.Error(t, err)
		code, ok := velite.CodeOf(err)
		require.True(t, ok)
		assert.Equal(t, velite.CodeIOErr, code.Primary())
		var ee *velite.EngineError
		require.ErrorAs(t, err, &ee)
		assert.Equal(t, "commit", ee.SQL)
		assert.NotContains(t, err.Error(), "rollback")
		assert.False(t, c.IsInTransaction())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RunInTransaction", func(t *testing.T) {
		c, mock := mockConn(t)
		mock.ExpectExec(`^savepoint S\d+D1$`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`^rollback to S\d+D1$`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`^release S\d+D1$`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := c.RunInTransaction(ctx, func(tx *Conn) error {
			assert.Same(t, c, tx)
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)
		assert.False(t, c.IsInTransaction())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
