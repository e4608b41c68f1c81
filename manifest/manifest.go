// Package manifest describes the validated zone for downstream
// consumers. The manifest inventories every data file with its size,
// checksum, and record count, so a consumer can verify what it fetched
// without trusting the transport. Regeneration is idempotent.
package manifest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/safeio"
	"github.com/emberline/curator/sym"
)

// FileName is the manifest's location inside the zone it describes.
// Scans skip it so regeneration never inventories itself.
const FileName = "manifest.json"

// FileEntry describes one data file.
type FileEntry struct {
	Path        string    `json:"path"` // relative to the scanned root
	Bytes       int64     `json:"bytes"`
	SHA256      string    `json:"sha256"`
	RecordCount int       `json:"record_count"` // lines for .jsonl files, 0 otherwise
	ModifiedAt  time.Time `json:"modified_at"`
}

// Summary totals the collection.
type Summary struct {
	TotalFiles   int   `json:"total_files"`
	TotalBytes   int64 `json:"total_bytes"`
	TotalRecords int   `json:"total_records"`
}

// Manifest is the serveable description of a zone.
type Manifest struct {
	Version     string      `json:"version"`
	GeneratedAt time.Time   `json:"generated_at"`
	Summary     Summary     `json:"summary"`
	Files       []FileEntry `json:"files"`
}

// Options configures manifest generation.
type Options struct {
	Version string // collection version stamped into the manifest
	Logger  *zap.SugaredLogger
}

// Generate scans root and builds a manifest of every regular file in
// it. Hidden files and a previously written manifest are skipped.
// Entries come back sorted by path.
func Generate(root string, opts Options) (*Manifest, error) {
	log := opts.Logger
	if log == nil {
		log = zap.S()
	}
	version := opts.Version
	if version == "" {
		version = "0.0.0"
	}

	if !safeio.DirExists(root) {
		return nil, errors.Newf("zone directory does not exist: %s", root)
	}

	m := &Manifest{
		Version:     version,
		GeneratedAt: time.Now().UTC(),
		Files:       []FileEntry{},
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || name == FileName {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		sum, err := safeio.Checksum(path)
		if err != nil {
			return err
		}

		entry := FileEntry{
			Path:       filepath.ToSlash(rel),
			Bytes:      info.Size(),
			SHA256:     sum,
			ModifiedAt: info.ModTime().UTC(),
		}
		if strings.HasSuffix(name, ".jsonl") {
			count, err := countLines(path)
			if err != nil {
				return err
			}
			entry.RecordCount = count
		}

		m.Files = append(m.Files, entry)
		m.Summary.TotalFiles++
		m.Summary.TotalBytes += entry.Bytes
		m.Summary.TotalRecords += entry.RecordCount
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scan %s", root)
	}

	log.Infow("Manifest generated",
		"sym", sym.Manifest,
		"root", root,
		"files", m.Summary.TotalFiles,
		"bytes", m.Summary.TotalBytes,
		"records", m.Summary.TotalRecords,
	)
	return m, nil
}

// Write serializes the manifest to path atomically.
func (m *Manifest) Write(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal manifest")
	}
	if err := safeio.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return nil
}

// Read loads a manifest previously written by Write.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrNotFound, "manifest %s", path)
		}
		return nil, errors.Wrapf(err, "failed to read manifest %s", path)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "manifest %s is corrupt", path)
	}
	return &m, nil
}

// countLines counts non-empty lines, tolerating a missing trailing
// newline on the last record.
func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	count := 0
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			count++
		}
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return 0, errors.Wrapf(err, "failed to read %s", path)
		}
	}
}
