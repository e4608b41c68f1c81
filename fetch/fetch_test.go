package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/safeio"
)

func TestSnapshotName(t *testing.T) {
	tests := []struct {
		detected string
		want     string
	}{
		{"https://example.com/data/snapshot.jsonl?checksum=sha256:abc", "snapshot.jsonl"},
		{"https://example.com/data/snapshot.jsonl", "snapshot.jsonl"},
		{"git::https://example.com/org/records.git", "records"},
		{"file:///tmp/data.jsonl", "data.jsonl"},
		{"https://example.com/archive.tar.gz", "archive.tar.gz"},
		{"https://example.com/", "example.com"},
		{"", "snapshot"},
	}

	for _, tt := range tests {
		if got := snapshotName(tt.detected); got != tt.want {
			t.Errorf("snapshotName(%q) = %q, want %q", tt.detected, got, tt.want)
		}
	}
}

func TestIsRemote(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"https://example.com/snapshot.jsonl", true},
		{"github.com/org/records", true},
		{"/absolute/local/path", false},
		{"./relative/path", false},
	}

	for _, tt := range tests {
		if got := IsRemote(tt.input); got != tt.want {
			t.Errorf("IsRemote(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestFetchLocal(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t).Sugar()

	t.Run("passes an existing file through untouched", func(t *testing.T) {
		dir := t.TempDir()
		snap := filepath.Join(dir, "snapshot.jsonl")
		require.NoError(t, os.WriteFile(snap, []byte(`{"id":"a"}`+"\n"), 0o644))

		got, err := Fetch(ctx, snap, t.TempDir(), logger)
		require.NoError(t, err)
		assert.Equal(t, snap, got)
	})

	t.Run("passes an existing directory through untouched", func(t *testing.T) {
		dir := t.TempDir()
		got, err := Fetch(ctx, dir, t.TempDir(), logger)
		require.NoError(t, err)
		assert.Equal(t, dir, got)
	})

	t.Run("missing local path is not found", func(t *testing.T) {
		_, err := Fetch(ctx, filepath.Join(t.TempDir(), "nope.jsonl"), t.TempDir(), logger)
		require.Error(t, err)
		assert.True(t, errors.IsNotFoundError(err))
	})
}

func TestFetchRemote(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t).Sugar()
	content := `{"id":"a","title":"one"}` + "\n" + `{"id":"b","title":"two"}` + "\n"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/snap.jsonl" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, content)
	}))
	defer server.Close()

	t.Run("downloads into the cache directory", func(t *testing.T) {
		cache := filepath.Join(t.TempDir(), "cache")

		got, err := Fetch(ctx, server.URL+"/snap.jsonl", cache, logger)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(cache, "snap.jsonl"), got)

		data, err := os.ReadFile(got)
		require.NoError(t, err)
		assert.Equal(t, content, string(data))
	})

	t.Run("verifies a checksum query", func(t *testing.T) {
		cache := filepath.Join(t.TempDir(), "cache")
		src := server.URL + "/snap.jsonl?checksum=sha256:" + safeio.ChecksumString(content)

		got, err := Fetch(ctx, src, cache, logger)
		require.NoError(t, err)
		assert.True(t, safeio.FileExists(got))
	})

	t.Run("rejects a checksum mismatch", func(t *testing.T) {
		cache := filepath.Join(t.TempDir(), "cache")
		src := server.URL + "/snap.jsonl?checksum=sha256:" + safeio.ChecksumString("different content")

		got, err := Fetch(ctx, src, cache, logger)
		require.Error(t, err)
		assert.Empty(t, got)
		assert.False(t, safeio.FileExists(filepath.Join(cache, "snap.jsonl")))
	})
}
