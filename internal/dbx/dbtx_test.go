package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`)
	require.NoError(t, err)
	return db
}

func rows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&n))
	return n
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		db := openDB(t)
		err := WithTx(ctx, db, func(ctx context.Context, tx DBTX) error {
			_, err := tx.ExecContext(ctx, `INSERT INTO kv VALUES ('a', '1')`)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, 1, rows(t, db))
	})

	t.Run("rollback on error", func(t *testing.T) {
		db := openDB(t)
		boom := errors.New("boom")
		err := WithTx(ctx, db, func(ctx context.Context, tx DBTX) error {
			_, err := tx.ExecContext(ctx, `INSERT INTO kv VALUES ('a', '1')`)
			require.NoError(t, err)
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 0, rows(t, db))
	})

	t.Run("rollback on panic", func(t *testing.T) {
		db := openDB(t)
		assert.Panics(t, func() {
			_ = WithTx(ctx, db, func(ctx context.Context, tx DBTX) error {
				_, _ = tx.ExecContext(ctx, `INSERT INTO kv VALUES ('a', '1')`)
				panic("kaput")
			})
		})
		assert.Equal(t, 0, rows(t, db))
	})

	t.Run("begin fails on closed db", func(t *testing.T) {
		db := openDB(t)
		require.NoError(t, db.Close())
		err := WithTx(ctx, db, func(ctx context.Context, tx DBTX) error { return nil })
		require.Error(t, err)
	})
}

func TestTableExists(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	ok, err := TableExists(ctx, db, "kv")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = TableExists(ctx, db, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
