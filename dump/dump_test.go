package dump

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/record"
)

func testRecord(id string) *record.Record {
	return &record.Record{
		ID:            id,
		Source:        "arxiv",
		Title:         "Test Paper " + id,
		Text:          "Some research text for " + id,
		URL:           "https://arxiv.org/abs/" + id,
		DatePublished: "2023-04-01",
	}
}

func TestWriterRoundTrip(t *testing.T) {
	root := t.TempDir()

	w, err := NewWriter(root, "alignment_research")
	require.NoError(t, err)

	require.NoError(t, w.WriteRecord(testRecord("2301.0001")))
	require.NoError(t, w.WriteRecord(testRecord("2301.0002")))
	assert.Equal(t, 2, w.Count())

	require.NoError(t, w.Finalize(&Metadata{
		ExtractionMethod: "api",
		ExtractionType:   TypeFull,
	}))

	meta, err := ReadMetadata(w.Dir())
	require.NoError(t, err)
	assert.Equal(t, 2, meta.RecordCount)
	assert.Equal(t, StatusComplete, meta.ExtractionStatus)
	assert.Equal(t, "alignment_research", meta.SourceName)
	assert.Equal(t, "jsonl", meta.DataFormat)
	assert.True(t, len(meta.Checksum) > len(ChecksumPrefix))
	assert.NotEmpty(t, meta.ShortID())

	r, err := Open(w.Dir())
	require.NoError(t, err)
	defer r.Close()

	var ids []string
	for {
		line, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		rec, err := record.Decode(line)
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []string{"2301.0001", "2301.0002"}, ids)
}

func TestWriterRejectsWritesAfterFinalize(t *testing.T) {
	root := t.TempDir()

	w, err := NewWriter(root, "arxiv")
	require.NoError(t, err)
	require.NoError(t, w.Finalize(nil))

	err = w.WriteRecord(testRecord("x"))
	assert.Error(t, err)
}

func TestLatestSkipsNonComplete(t *testing.T) {
	root := t.TempDir()

	writeDump := func(source, date, status string) string {
		w, err := NewWriter(root, source)
		require.NoError(t, err)
		require.NoError(t, w.WriteRecord(testRecord("r-"+date)))
		require.NoError(t, w.Finalize(&Metadata{
			ExtractionDate:   date,
			ExtractionStatus: status,
		}))
		return w.Dir()
	}

	writeDump("alignment_research", "2024-01-01T00:00:00Z", StatusComplete)
	want := writeDump("alignment_research", "2024-02-01T00:00:00Z", StatusComplete)
	writeDump("alignment_research", "2024-03-01T00:00:00Z", StatusPartial)
	writeDump("funding", "2024-04-01T00:00:00Z", StatusComplete)

	t.Run("newest complete dump for source wins", func(t *testing.T) {
		info, err := Latest(root, "alignment_research")
		require.NoError(t, err)
		assert.Equal(t, want, info.Dir)
	})

	t.Run("any source when unrestricted", func(t *testing.T) {
		info, err := Latest(root, "")
		require.NoError(t, err)
		assert.Equal(t, "funding", info.Meta.SourceName)
	})

	t.Run("not found when nothing complete", func(t *testing.T) {
		_, err := Latest(t.TempDir(), "")
		require.Error(t, err)
		assert.True(t, errors.IsNotFoundError(err))
	})
}

func TestListIgnoresUnfinalizedDirs(t *testing.T) {
	root := t.TempDir()

	w, err := NewWriter(root, "arxiv")
	require.NoError(t, err)
	require.NoError(t, w.WriteRecord(testRecord("a")))
	// never finalized: no metadata sidecar yet

	require.NoError(t, os.MkdirAll(filepath.Join(root, "stray"), 0o755))

	dumps, err := List(root)
	require.NoError(t, err)
	assert.Empty(t, dumps)

	require.NoError(t, w.Finalize(nil))
	dumps, err = List(root)
	require.NoError(t, err)
	assert.Len(t, dumps, 1)
}

func TestArchive(t *testing.T) {
	root := t.TempDir()
	archiveRoot := filepath.Join(t.TempDir(), "archive")

	w, err := NewWriter(root, "arxiv")
	require.NoError(t, err)
	require.NoError(t, w.WriteRecord(testRecord("a")))
	require.NoError(t, w.Finalize(nil))

	moved, err := Archive(w.Dir(), archiveRoot)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(archiveRoot, filepath.Base(w.Dir())), moved)

	_, err = os.Stat(w.Dir())
	assert.True(t, os.IsNotExist(err))

	meta, err := ReadMetadata(moved)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.RecordCount)
}

func TestDiscardRemovesDirectory(t *testing.T) {
	root := t.TempDir()

	w, err := NewWriter(root, "arxiv")
	require.NoError(t, err)
	require.NoError(t, w.WriteRecord(testRecord("a")))
	require.NoError(t, w.Discard())

	_, err = os.Stat(w.Dir())
	assert.True(t, os.IsNotExist(err))
}

func TestMetadataExtractionTime(t *testing.T) {
	meta := &Metadata{ExtractionDate: "2024-06-15T10:30:00Z"}
	ts, err := meta.ExtractionTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC), ts)

	meta.ExtractionDate = "yesterday"
	_, err = meta.ExtractionTime()
	assert.Error(t, err)
}
