package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberline/curator/dump"
	qatest "github.com/emberline/curator/internal/testing"
)

func dumpInfo(dir, source, status, date string) *dump.Info {
	return &dump.Info{
		Dir: dir,
		Meta: &dump.Metadata{
			SourceName:       source,
			ExtractionDate:   date,
			ExtractionType:   dump.TypeFull,
			ExtractionStatus: status,
			RecordCount:      42,
			Checksum:         "sha256:9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		},
	}
}

func TestDumpStore(t *testing.T) {
	t.Run("register and list", func(t *testing.T) {
		store := NewDumpStore(qatest.CreateTestDB(t))

		info := dumpInfo("/dumps/raw/arxiv_2024-01-02_030405", "arxiv", dump.StatusComplete, "2024-01-02T03:04:05Z")
		require.NoError(t, store.Register(info))

		rows, err := store.List("arxiv", 10)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, info.Dir, rows[0].Path)
		assert.Equal(t, "arxiv", rows[0].Source)
		assert.Equal(t, 42, rows[0].RecordCount)
		assert.Equal(t, dump.StatusComplete, rows[0].Status)
		assert.NotEmpty(t, rows[0].ShortID)
		assert.False(t, rows[0].RegisteredAt.IsZero())
	})

	t.Run("re-register refreshes the row", func(t *testing.T) {
		store := NewDumpStore(qatest.CreateTestDB(t))

		info := dumpInfo("/dumps/raw/arxiv_2024-01-02_030405", "arxiv", dump.StatusPartial, "2024-01-02T03:04:05Z")
		require.NoError(t, store.Register(info))

		info.Meta.ExtractionStatus = dump.StatusComplete
		info.Meta.RecordCount = 99
		require.NoError(t, store.Register(info))

		rows, err := store.List("arxiv", 10)
		require.NoError(t, err)
		require.Len(t, rows, 1, "same path must not duplicate")
		assert.Equal(t, dump.StatusComplete, rows[0].Status)
		assert.Equal(t, 99, rows[0].RecordCount)
	})

	t.Run("register requires metadata", func(t *testing.T) {
		store := NewDumpStore(qatest.CreateTestDB(t))
		require.Error(t, store.Register(&dump.Info{Dir: "/dumps/raw/bare"}))
	})

	t.Run("latest complete skips partials and other sources", func(t *testing.T) {
		store := NewDumpStore(qatest.CreateTestDB(t))

		require.NoError(t, store.Register(dumpInfo("/d/arxiv_old", "arxiv", dump.StatusComplete, "2024-01-01T00:00:00Z")))
		require.NoError(t, store.Register(dumpInfo("/d/arxiv_new", "arxiv", dump.StatusComplete, "2024-03-01T00:00:00Z")))
		require.NoError(t, store.Register(dumpInfo("/d/arxiv_partial", "arxiv", dump.StatusPartial, "2024-06-01T00:00:00Z")))
		require.NoError(t, store.Register(dumpInfo("/d/distill", "distill", dump.StatusComplete, "2024-09-01T00:00:00Z")))

		latest, err := store.LatestComplete("arxiv")
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, "/d/arxiv_new", latest.Path)

		none, err := store.LatestComplete("lesswrong")
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("sync registers dumps found on disk", func(t *testing.T) {
		store := NewDumpStore(qatest.CreateTestDB(t))
		root := t.TempDir()

		qatest.SeedDump(t, root, "arxiv", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
		qatest.SeedDump(t, root, "distill", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))

		n, err := store.Sync(root)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		rows, err := store.List("", 10)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})
}
