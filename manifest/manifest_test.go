package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	qatest "github.com/emberline/curator/internal/testing"
	"github.com/emberline/curator/safeio"
)

func TestGenerate(t *testing.T) {
	t.Run("inventories every data file with verifiable checksums", func(t *testing.T) {
		root := t.TempDir()
		dumpDir := qatest.SeedDump(t, root, "alignment_research", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
		loose := filepath.Join(root, "notes.txt")
		require.NoError(t, os.WriteFile(loose, []byte("read me\n"), 0o644))

		m, err := Generate(root, Options{Version: "1.2.0", Logger: zaptest.NewLogger(t).Sugar()})
		require.NoError(t, err)

		assert.Equal(t, "1.2.0", m.Version)
		assert.WithinDuration(t, time.Now().UTC(), m.GeneratedAt, 5*time.Second)
		assert.Equal(t, 3, m.Summary.TotalFiles) // data.jsonl, _metadata.json, notes.txt

		var total int64
		for _, entry := range m.Files {
			want, cerr := safeio.Checksum(filepath.Join(root, filepath.FromSlash(entry.Path)))
			require.NoError(t, cerr)
			assert.Equal(t, want, entry.SHA256, entry.Path)
			assert.False(t, entry.ModifiedAt.IsZero(), entry.Path)
			total += entry.Bytes
		}
		assert.Equal(t, total, m.Summary.TotalBytes)

		dataEntry := findEntry(t, m, filepath.Base(dumpDir)+"/data.jsonl")
		assert.Equal(t, 2, dataEntry.RecordCount)
		assert.Equal(t, 2, m.Summary.TotalRecords)
	})

	t.Run("entries are sorted by path", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "b.jsonl"), []byte(`{"id":"b"}`+"\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(root, "a.jsonl"), []byte(`{"id":"a"}`+"\n"), 0o644))

		m, err := Generate(root, Options{})
		require.NoError(t, err)
		require.Len(t, m.Files, 2)
		assert.Equal(t, "a.jsonl", m.Files[0].Path)
		assert.Equal(t, "b.jsonl", m.Files[1].Path)
	})

	t.Run("skips hidden files and a previous manifest", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "data.jsonl"), []byte(`{"id":"a"}`+"\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), []byte("x"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("{}"), 0o644))

		m, err := Generate(root, Options{})
		require.NoError(t, err)
		require.Len(t, m.Files, 1)
		assert.Equal(t, "data.jsonl", m.Files[0].Path)
	})

	t.Run("empty zone yields an empty manifest", func(t *testing.T) {
		m, err := Generate(t.TempDir(), Options{})
		require.NoError(t, err)
		assert.Empty(t, m.Files)
		assert.Equal(t, 0, m.Summary.TotalFiles)
		assert.Equal(t, "0.0.0", m.Version)
	})

	t.Run("missing zone is an error", func(t *testing.T) {
		_, err := Generate(filepath.Join(t.TempDir(), "nope"), Options{})
		require.Error(t, err)
	})
}

func TestWriteAndRead(t *testing.T) {
	t.Run("round-trips through disk", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "data.jsonl"), []byte(`{"id":"a"}`+"\n"), 0o644))

		m, err := Generate(root, Options{Version: "2.0.0"})
		require.NoError(t, err)

		path := filepath.Join(root, FileName)
		require.NoError(t, m.Write(path))

		got, err := Read(path)
		require.NoError(t, err)
		assert.Equal(t, m.Version, got.Version)
		assert.Equal(t, m.Summary, got.Summary)
		require.Len(t, got.Files, 1)
		assert.Equal(t, m.Files[0].SHA256, got.Files[0].SHA256)
	})

	t.Run("regeneration after writing is stable", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "data.jsonl"), []byte(`{"id":"a"}`+"\n"), 0o644))

		first, err := Generate(root, Options{})
		require.NoError(t, err)
		require.NoError(t, first.Write(filepath.Join(root, FileName)))

		second, err := Generate(root, Options{})
		require.NoError(t, err)
		assert.Equal(t, first.Summary, second.Summary)
		require.Len(t, second.Files, 1)
		assert.Equal(t, first.Files[0].SHA256, second.Files[0].SHA256)
	})

	t.Run("missing manifest is not found", func(t *testing.T) {
		_, err := Read(filepath.Join(t.TempDir(), FileName))
		require.Error(t, err)
	})
}

func TestCountLines(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"trailing newline", "{\"a\":1}\n{\"b\":2}\n", 2},
		{"no trailing newline", "{\"a\":1}\n{\"b\":2}", 2},
		{"blank lines ignored", "{\"a\":1}\n\n{\"b\":2}\n\n", 2},
		{"empty file", "", 0},
	}

	for _, tt := range tests {
		path := filepath.Join(dir, tt.name+".jsonl")
		if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		got, err := countLines(path)
		if err != nil {
			t.Fatalf("countLines(%s): %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("countLines(%s) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func findEntry(t *testing.T, m *Manifest, path string) FileEntry {
	t.Helper()
	for _, e := range m.Files {
		if e.Path == path {
			return e
		}
	}
	t.Fatalf("no manifest entry for %s", path)
	return FileEntry{}
}
