package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/emberline/curator/errors"
)

func TestOpen(t *testing.T) {
	t.Run("applies pragmas", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "catalog.db")

		db, err := Open(dbPath, nil)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		var journalMode string
		err = db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
		require.NoError(t, err)
		assert.Equal(t, "wal", journalMode)

		var foreignKeys int
		err = db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys)
		require.NoError(t, err)
		assert.Equal(t, 1, foreignKeys)

		var busyTimeout int
		err = db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout)
		require.NoError(t, err)
		assert.Equal(t, SQLiteBusyTimeoutMS, busyTimeout)
	})

	t.Run("creates database file if missing", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "new.db")

		_, err := os.Stat(dbPath)
		assert.True(t, os.IsNotExist(err))

		db, err := Open(dbPath, nil)
		require.NoError(t, err)
		defer db.Close()

		_, err = os.Stat(dbPath)
		assert.NoError(t, err)
	})

	t.Run("returns error for unwritable path", func(t *testing.T) {
		db, err := Open("/nonexistent/dir/catalog.db", nil)
		if err == nil && db != nil {
			err = db.Ping()
			db.Close()
		}
		assert.Error(t, err)
	})

	t.Run("accepts a logger", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "catalog.db")
		db, err := Open(dbPath, zaptest.NewLogger(t).Sugar())
		require.NoError(t, err)
		db.Close()
	})
}

func TestIsDatabaseClosed(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	db, err := Open(dbPath, nil)
	require.NoError(t, err)
	db.Close()

	_, err = db.Exec("PRAGMA journal_mode")
	require.Error(t, err)
	assert.True(t, IsDatabaseClosed(err))

	assert.True(t, IsDatabaseClosed(errors.Wrap(ErrDatabaseClosed, "during shutdown")))
	assert.False(t, IsDatabaseClosed(nil))
	assert.False(t, IsDatabaseClosed(errors.New("something else")))
}
