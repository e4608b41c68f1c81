// Package migrate moves batches of files between pipeline zones exactly
// once per distinct content. Idempotency comes from the processing
// ledger: a source path whose checksum is already recorded is skipped,
// a changed checksum counts as new input. Every transfer is validated
// on both sides, written atomically, and checksum-verified after the
// write.
package migrate

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/safeio"
	"github.com/emberline/curator/state"
	"github.com/emberline/curator/sym"
)

// Operation modes.
const (
	ModeCopy = "copy"
	ModeMove = "move"
)

// ValidatePredicate checks one file's content. The CLI wires the
// validation engine here; tests inject stubs. A nil predicate skips
// content validation (structural file checks still apply).
type ValidatePredicate func(path string) error

// Options configures a Migrator.
type Options struct {
	State     state.Store
	Validate  ValidatePredicate
	Mode      string // ModeCopy (default) or ModeMove
	BackupDir string // where overwritten destinations are preserved
	DryRun    bool
	Limit     int // cap on newly processed files; 0 = unlimited
	Logger    *zap.SugaredLogger
}

// FileError is one per-file failure in a batch.
type FileError struct {
	Path  string `json:"path"`
	Stage string `json:"stage"` // checksum, validate, backup, copy, revalidate, verify, state
	Error string `json:"error"`
}

// Result summarizes a migration run. Failed counts files that need
// operator attention; the CLI exits nonzero iff Failed > 0.
type Result struct {
	Processed int         `json:"processed"`
	Skipped   int         `json:"skipped"`
	Failed    int         `json:"failed"`
	Errors    []FileError `json:"errors,omitempty"`
}

// Migrator executes zone-to-zone batch migrations.
type Migrator struct {
	state     state.Store
	validate  ValidatePredicate
	mode      string
	backupDir string
	dryRun    bool
	limit     int
	log       *zap.SugaredLogger
}

// New creates a migrator. The ledger is required; everything else has
// workable defaults.
func New(opts Options) (*Migrator, error) {
	if opts.State == nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, "migration requires a processing-state store")
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeCopy
	}
	if mode != ModeCopy && mode != ModeMove {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "unknown migration mode %q", mode)
	}
	log := opts.Logger
	if log == nil {
		log = zap.S()
	}
	return &Migrator{
		state:     opts.State,
		validate:  opts.Validate,
		mode:      mode,
		backupDir: opts.BackupDir,
		dryRun:    opts.DryRun,
		limit:     opts.Limit,
		log:       log,
	}, nil
}

// Run migrates every file under sourceDir whose base name matches
// pattern into destDir, preserving relative paths. Per-file failures
// are recorded in the result and never abort the batch; the returned
// error is reserved for conditions that make the whole run meaningless
// (unreadable source, malformed pattern, insufficient disk space,
// unwritable ledger).
func (m *Migrator) Run(ctx context.Context, sourceDir, destDir, pattern string) (*Result, error) {
	result := &Result{}

	if pattern == "" {
		pattern = "*"
	}
	if _, err := filepath.Match(pattern, "probe"); err != nil {
		return result, errors.Wrapf(errors.ErrInvalidConfig, "malformed pattern %q", pattern)
	}
	if !safeio.DirExists(sourceDir) {
		return result, errors.Newf("source directory does not exist: %s", sourceDir)
	}

	files, totalBytes, err := matchFiles(sourceDir, pattern)
	if err != nil {
		return result, err
	}

	m.log.Infow("Starting migration",
		"sym", sym.Migrate,
		"source_dir", sourceDir,
		"dest_dir", destDir,
		"pattern", pattern,
		"matched", len(files),
		"mode", m.mode,
		"dry_run", m.dryRun,
	)

	if len(files) == 0 {
		return result, nil
	}

	// Preflight before any write so a doomed run leaves the ledger and
	// the destination untouched.
	if !m.dryRun {
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return result, errors.Wrapf(err, "failed to create destination %s", destDir)
		}
		if err := safeio.CheckDiskSpace(destDir, uint64(totalBytes)); err != nil {
			return result, err
		}
	}

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if m.limit > 0 && result.Processed >= m.limit {
			m.log.Infow("Reached limit, stopping",
				"sym", sym.Migrate,
				"limit", m.limit,
			)
			break
		}

		src := filepath.Join(sourceDir, rel)
		dst := filepath.Join(destDir, rel)

		oc, ferr := m.processFile(src, dst)
		switch oc {
		case outcomeProcessed:
			result.Processed++
		case outcomeSkipped:
			result.Skipped++
		case outcomeFailed:
			result.Failed++
			result.Errors = append(result.Errors, *ferr)
		case outcomeAborted:
			// Ledger write failures poison idempotency for everything
			// after them; stop the run.
			result.Failed++
			result.Errors = append(result.Errors, *ferr)
			return result, errors.Newf("cannot write processing state: %s", ferr.Error)
		}
	}

	m.log.Infow("Migration complete",
		"sym", sym.Migrate,
		"processed", result.Processed,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeSkipped
	outcomeFailed
	outcomeAborted
)

func (m *Migrator) processFile(src, dst string) (outcome, *FileError) {
	fail := func(stage string, err error) (outcome, *FileError) {
		m.log.Errorw("Migration failed for file",
			"sym", sym.Migrate,
			"file", src,
			"stage", stage,
			"error", err,
		)
		return outcomeFailed, &FileError{Path: src, Stage: stage, Error: err.Error()}
	}

	checksum, err := safeio.Checksum(src)
	if err != nil {
		return fail("checksum", err)
	}

	if entry, ok := m.state.Get(src); ok && entry.Checksum == checksum {
		m.log.Debugw("File already processed, skipping",
			"sym", sym.Migrate,
			"file", src,
			"checksum", checksum,
		)
		return outcomeSkipped, nil
	}

	if err := safeio.ValidateSourceFile(src); err != nil {
		return fail("validate", err)
	}
	if m.validate != nil {
		if err := m.validate(src); err != nil {
			return fail("validate", err)
		}
	}

	if m.dryRun {
		m.log.Infow("Would migrate file",
			"sym", sym.Migrate,
			"source", src,
			"dest", dst,
			"checksum", checksum,
			"dry_run", true,
		)
		return outcomeProcessed, nil
	}

	var backupPath string
	if safeio.FileExists(dst) && m.backupDir != "" {
		backupPath, err = safeio.BackupFile(dst, m.backupDir)
		if err != nil {
			return fail("backup", err)
		}
		m.log.Infow("Backup created",
			"sym", sym.Migrate,
			"dest", dst,
			"backup", backupPath,
		)
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return fail("copy", err)
	}

	written, destChecksum, err := safeio.CopyFileAtomic(src, dst)
	if err != nil {
		return fail("copy", err)
	}

	if m.validate != nil {
		if err := m.validate(dst); err != nil {
			m.rollback(dst, backupPath)
			return fail("revalidate", err)
		}
	}

	if destChecksum != checksum {
		// Corruption between read and write. Never record this in the
		// ledger; the operator retries after investigating.
		m.rollback(dst, backupPath)
		return fail("verify", errors.Wrapf(errors.ErrChecksumMismatch,
			"source %s destination %s", checksum, destChecksum))
	}

	if m.mode == ModeMove {
		if err := os.Remove(src); err != nil {
			return fail("move", errors.Wrap(err, "copy verified but source removal failed"))
		}
	}

	entry := state.Entry{
		Checksum:    checksum,
		ProcessedAt: time.Now().UTC(),
		DestPath:    dst,
		Metadata: map[string]interface{}{
			"size_bytes": written,
			"mode":       m.mode,
		},
	}
	if err := m.state.Put(src, entry); err != nil {
		return outcomeAborted, &FileError{Path: src, Stage: "state", Error: err.Error()}
	}

	m.log.Infow("Migration successful",
		"sym", sym.Migrate,
		"source", src,
		"dest", dst,
		"source_checksum", checksum,
		"dest_checksum", destChecksum,
		"size_bytes", written,
		"source_modified", srcInfo.ModTime().UTC(),
		"processed_at", entry.ProcessedAt,
		"mode", m.mode,
	)
	return outcomeProcessed, nil
}

// rollback restores dst from its backup, or removes dst when no backup
// exists, so a failed migration never leaves bad content in the
// destination zone.
func (m *Migrator) rollback(dst, backupPath string) {
	if backupPath != "" {
		if _, _, err := safeio.CopyFileAtomic(backupPath, dst); err != nil {
			m.log.Errorw("Failed to restore backup",
				"sym", sym.Migrate,
				"dest", dst,
				"backup", backupPath,
				"error", err,
			)
		} else {
			m.log.Infow("Restored from backup",
				"sym", sym.Migrate,
				"dest", dst,
				"backup", backupPath,
			)
		}
		return
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		m.log.Errorw("Failed to remove invalid destination",
			"sym", sym.Migrate,
			"dest", dst,
			"error", err,
		)
	}
}

// matchFiles walks sourceDir collecting regular files whose base name
// matches pattern. Paths come back relative to sourceDir, sorted, with
// the total byte size for the disk-space preflight.
func matchFiles(sourceDir, pattern string) ([]string, int64, error) {
	var files []string
	var total int64

	err := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		matched, err := filepath.Match(pattern, d.Name())
		if err != nil || !matched {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		total += info.Size()
		return nil
	})
	if err != nil {
		return nil, 0, errors.Wrapf(err, "failed to scan %s", sourceDir)
	}

	sort.Strings(files)
	return files, total, nil
}
