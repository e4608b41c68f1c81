package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberline/curator/errors"
	qatest "github.com/emberline/curator/internal/testing"
)

func TestRunStore(t *testing.T) {
	t.Run("begin inserts a running entry", func(t *testing.T) {
		store := NewRunStore(qatest.CreateTestDB(t))

		run, err := store.Begin("extract", "delta")
		require.NoError(t, err)
		require.NotEmpty(t, run.ID)
		assert.Equal(t, RunStatusRunning, run.Status)
		assert.False(t, run.StartedAt.IsZero())

		got, err := store.Get(run.ID)
		require.NoError(t, err)
		assert.Equal(t, "extract", got.Engine)
		assert.Equal(t, "delta", got.Mode)
		assert.Equal(t, RunStatusRunning, got.Status)
		assert.True(t, got.FinishedAt.IsZero(), "unfinished run has no finished_at")
	})

	t.Run("finish records stats and success", func(t *testing.T) {
		store := NewRunStore(qatest.CreateTestDB(t))

		run, err := store.Begin("migrate", "copy")
		require.NoError(t, err)

		stats := map[string]int{"processed": 12, "skipped": 3}
		require.NoError(t, store.Finish(run, stats, nil))

		got, err := store.Get(run.ID)
		require.NoError(t, err)
		assert.Equal(t, RunStatusSucceeded, got.Status)
		assert.False(t, got.FinishedAt.IsZero())
		assert.Empty(t, got.Error)

		var decoded map[string]int
		require.NoError(t, json.Unmarshal(got.Stats, &decoded))
		assert.Equal(t, stats, decoded)
	})

	t.Run("finish records failure text", func(t *testing.T) {
		store := NewRunStore(qatest.CreateTestDB(t))

		run, err := store.Begin("score", "")
		require.NoError(t, err)

		require.NoError(t, store.Finish(run, nil, errors.New("overlay write failed")))

		got, err := store.Get(run.ID)
		require.NoError(t, err)
		assert.Equal(t, RunStatusFailed, got.Status)
		assert.Equal(t, "overlay write failed", got.Error)
		assert.Nil(t, got.Stats)
	})

	t.Run("finish of unknown run errors", func(t *testing.T) {
		store := NewRunStore(qatest.CreateTestDB(t))

		err := store.Finish(&Run{ID: "no-such-run"}, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "run not found")
	})

	t.Run("list filters by engine newest first", func(t *testing.T) {
		store := NewRunStore(qatest.CreateTestDB(t))

		first, err := store.Begin("extract", "full")
		require.NoError(t, err)
		_, err = store.Begin("validate", "")
		require.NoError(t, err)
		second, err := store.Begin("extract", "delta")
		require.NoError(t, err)

		runs, err := store.List("extract", 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, second.ID, runs[0].ID)
		assert.Equal(t, first.ID, runs[1].ID)

		all, err := store.List("", 10)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		limited, err := store.List("", 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})
}
