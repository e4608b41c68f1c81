package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/safeio"
	"github.com/emberline/curator/state"
)

func newTestMigrator(t *testing.T, opts Options) *Migrator {
	t.Helper()
	if opts.State == nil {
		opts.State = state.NewMemStore()
	}
	opts.Logger = zaptest.NewLogger(t).Sugar()
	m, err := New(opts)
	require.NoError(t, err)
	return m
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestNew(t *testing.T) {
	t.Run("requires a state store", func(t *testing.T) {
		_, err := New(Options{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
	})

	t.Run("rejects unknown modes", func(t *testing.T) {
		_, err := New(Options{State: state.NewMemStore(), Mode: "teleport"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
	})

	t.Run("defaults to copy mode", func(t *testing.T) {
		m, err := New(Options{State: state.NewMemStore()})
		require.NoError(t, err)
		assert.Equal(t, ModeCopy, m.mode)
	})
}

func TestMigratorRun(t *testing.T) {
	ctx := context.Background()

	t.Run("copies matched files and preserves relative paths", func(t *testing.T) {
		srcDir := t.TempDir()
		dstDir := filepath.Join(t.TempDir(), "validated")
		writeFile(t, srcDir, "a.jsonl", `{"id":"a"}`+"\n")
		writeFile(t, srcDir, filepath.Join("sub", "b.jsonl"), `{"id":"b"}`+"\n")
		writeFile(t, srcDir, "notes.txt", "not a record file\n")

		store := state.NewMemStore()
		m := newTestMigrator(t, Options{State: store})

		result, err := m.Run(ctx, srcDir, dstDir, "*.jsonl")
		require.NoError(t, err)
		assert.Equal(t, 2, result.Processed)
		assert.Equal(t, 0, result.Skipped)
		assert.Equal(t, 0, result.Failed)

		assert.Equal(t, `{"id":"a"}`+"\n", readFile(t, filepath.Join(dstDir, "a.jsonl")))
		assert.Equal(t, `{"id":"b"}`+"\n", readFile(t, filepath.Join(dstDir, "sub", "b.jsonl")))
		assert.False(t, safeio.FileExists(filepath.Join(dstDir, "notes.txt")))

		// Copy mode leaves sources in place.
		assert.True(t, safeio.FileExists(filepath.Join(srcDir, "a.jsonl")))

		require.Equal(t, 2, store.Len())
		entry, ok := store.Get(filepath.Join(srcDir, "a.jsonl"))
		require.True(t, ok)
		assert.Equal(t, safeio.ChecksumString(`{"id":"a"}`+"\n"), entry.Checksum)
		assert.Equal(t, filepath.Join(dstDir, "a.jsonl"), entry.DestPath)
		assert.False(t, entry.ProcessedAt.IsZero())
	})

	t.Run("skips files whose checksum is already recorded", func(t *testing.T) {
		srcDir := t.TempDir()
		dstDir := filepath.Join(t.TempDir(), "validated")
		writeFile(t, srcDir, "a.jsonl", `{"id":"a"}`+"\n")
		writeFile(t, srcDir, "b.jsonl", `{"id":"b"}`+"\n")

		store := state.NewMemStore()
		m := newTestMigrator(t, Options{State: store})

		first, err := m.Run(ctx, srcDir, dstDir, "*.jsonl")
		require.NoError(t, err)
		require.Equal(t, 2, first.Processed)

		second, err := m.Run(ctx, srcDir, dstDir, "*.jsonl")
		require.NoError(t, err)
		assert.Equal(t, 0, second.Processed)
		assert.Equal(t, 2, second.Skipped)
		assert.Equal(t, 0, second.Failed)
	})

	t.Run("reprocesses a file whose content changed", func(t *testing.T) {
		srcDir := t.TempDir()
		dstDir := filepath.Join(t.TempDir(), "validated")
		writeFile(t, srcDir, "a.jsonl", `{"id":"a"}`+"\n")
		writeFile(t, srcDir, "b.jsonl", `{"id":"b"}`+"\n")

		m := newTestMigrator(t, Options{State: state.NewMemStore()})
		_, err := m.Run(ctx, srcDir, dstDir, "*.jsonl")
		require.NoError(t, err)

		writeFile(t, srcDir, "a.jsonl", `{"id":"a","rev":2}`+"\n")

		result, err := m.Run(ctx, srcDir, dstDir, "*.jsonl")
		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, 1, result.Skipped)
		assert.Equal(t, `{"id":"a","rev":2}`+"\n", readFile(t, filepath.Join(dstDir, "a.jsonl")))
	})

	t.Run("move mode removes the source only after a verified copy", func(t *testing.T) {
		srcDir := t.TempDir()
		dstDir := filepath.Join(t.TempDir(), "archive")
		src := writeFile(t, srcDir, "a.jsonl", `{"id":"a"}`+"\n")

		store := state.NewMemStore()
		m := newTestMigrator(t, Options{State: store, Mode: ModeMove})

		result, err := m.Run(ctx, srcDir, dstDir, "*.jsonl")
		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)

		assert.False(t, safeio.FileExists(src))
		assert.Equal(t, `{"id":"a"}`+"\n", readFile(t, filepath.Join(dstDir, "a.jsonl")))

		_, ok := store.Get(src)
		assert.True(t, ok)
	})

	t.Run("validation failures are recorded and the batch continues", func(t *testing.T) {
		srcDir := t.TempDir()
		dstDir := filepath.Join(t.TempDir(), "validated")
		writeFile(t, srcDir, "good.jsonl", `{"id":"good"}`+"\n")
		bad := writeFile(t, srcDir, "bad.jsonl", "not json at all\n")

		store := state.NewMemStore()
		m := newTestMigrator(t, Options{
			State: store,
			Validate: func(path string) error {
				if strings.Contains(filepath.Base(path), "bad") {
					return errors.New("record is not valid JSON")
				}
				return nil
			},
		})

		result, err := m.Run(ctx, srcDir, dstDir, "*.jsonl")
		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, 1, result.Failed)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, bad, result.Errors[0].Path)
		assert.Equal(t, "validate", result.Errors[0].Stage)

		assert.False(t, safeio.FileExists(filepath.Join(dstDir, "bad.jsonl")))
		assert.True(t, safeio.FileExists(filepath.Join(dstDir, "good.jsonl")))
		_, ok := store.Get(bad)
		assert.False(t, ok)
	})

	t.Run("failed destination revalidation restores the backup", func(t *testing.T) {
		srcDir := t.TempDir()
		tmp := t.TempDir()
		dstDir := filepath.Join(tmp, "validated")
		backupDir := filepath.Join(tmp, "backups")
		writeFile(t, srcDir, "a.jsonl", "new content\n")
		writeFile(t, dstDir, "a.jsonl", "old content\n")

		store := state.NewMemStore()
		m := newTestMigrator(t, Options{
			State:     store,
			BackupDir: backupDir,
			Validate: func(path string) error {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				if strings.HasPrefix(path, dstDir) && string(data) == "new content\n" {
					return errors.New("destination rejected")
				}
				return nil
			},
		})

		result, err := m.Run(ctx, srcDir, dstDir, "*.jsonl")
		require.NoError(t, err)
		assert.Equal(t, 0, result.Processed)
		assert.Equal(t, 1, result.Failed)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "revalidate", result.Errors[0].Stage)

		// The bad copy must not survive in the destination zone.
		assert.Equal(t, "old content\n", readFile(t, filepath.Join(dstDir, "a.jsonl")))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("backs up an existing destination before overwriting", func(t *testing.T) {
		srcDir := t.TempDir()
		tmp := t.TempDir()
		dstDir := filepath.Join(tmp, "validated")
		backupDir := filepath.Join(tmp, "backups")
		writeFile(t, srcDir, "a.jsonl", "new content\n")
		writeFile(t, dstDir, "a.jsonl", "old content\n")

		m := newTestMigrator(t, Options{State: state.NewMemStore(), BackupDir: backupDir})

		result, err := m.Run(ctx, srcDir, dstDir, "*.jsonl")
		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, "new content\n", readFile(t, filepath.Join(dstDir, "a.jsonl")))

		entries, err := os.ReadDir(backupDir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "old content\n", readFile(t, filepath.Join(backupDir, entries[0].Name())))
	})

	t.Run("dry run reports without writing anything", func(t *testing.T) {
		srcDir := t.TempDir()
		dstDir := filepath.Join(t.TempDir(), "validated")
		writeFile(t, srcDir, "a.jsonl", `{"id":"a"}`+"\n")
		writeFile(t, srcDir, "b.jsonl", `{"id":"b"}`+"\n")

		store := state.NewMemStore()
		m := newTestMigrator(t, Options{State: store, DryRun: true})

		result, err := m.Run(ctx, srcDir, dstDir, "*.jsonl")
		require.NoError(t, err)
		assert.Equal(t, 2, result.Processed)
		assert.Equal(t, 0, store.Len())
		assert.False(t, safeio.DirExists(dstDir))
	})

	t.Run("limit caps newly processed files", func(t *testing.T) {
		srcDir := t.TempDir()
		dstDir := filepath.Join(t.TempDir(), "validated")
		writeFile(t, srcDir, "a.jsonl", `{"id":"a"}`+"\n")
		writeFile(t, srcDir, "b.jsonl", `{"id":"b"}`+"\n")
		writeFile(t, srcDir, "c.jsonl", `{"id":"c"}`+"\n")

		store := state.NewMemStore()
		m := newTestMigrator(t, Options{State: store, Limit: 2})

		result, err := m.Run(ctx, srcDir, dstDir, "*.jsonl")
		require.NoError(t, err)
		assert.Equal(t, 2, result.Processed)
		assert.Equal(t, 2, store.Len())

		// A later unlimited run picks up the remainder.
		rest := newTestMigrator(t, Options{State: store})
		result, err = rest.Run(ctx, srcDir, dstDir, "*.jsonl")
		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, 2, result.Skipped)
	})

	t.Run("returns an error for a missing source directory", func(t *testing.T) {
		m := newTestMigrator(t, Options{State: state.NewMemStore()})
		_, err := m.Run(ctx, filepath.Join(t.TempDir(), "nope"), t.TempDir(), "*.jsonl")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "source directory")
	})

	t.Run("rejects a malformed pattern", func(t *testing.T) {
		m := newTestMigrator(t, Options{State: state.NewMemStore()})
		_, err := m.Run(ctx, t.TempDir(), t.TempDir(), "[")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
	})

	t.Run("empty pattern matches every file", func(t *testing.T) {
		srcDir := t.TempDir()
		dstDir := filepath.Join(t.TempDir(), "validated")
		writeFile(t, srcDir, "a.jsonl", `{"id":"a"}`+"\n")
		writeFile(t, srcDir, "notes.txt", "anything\n")

		m := newTestMigrator(t, Options{State: state.NewMemStore()})
		result, err := m.Run(ctx, srcDir, dstDir, "")
		require.NoError(t, err)
		assert.Equal(t, 2, result.Processed)
	})

	t.Run("cancelled context stops between files", func(t *testing.T) {
		srcDir := t.TempDir()
		writeFile(t, srcDir, "a.jsonl", `{"id":"a"}`+"\n")

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		store := state.NewMemStore()
		m := newTestMigrator(t, Options{State: store})
		_, err := m.Run(cancelled, srcDir, filepath.Join(t.TempDir(), "validated"), "*.jsonl")
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Equal(t, 0, store.Len())
	})
}
