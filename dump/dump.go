// Package dump manages immutable, timestamped dump directories: the unit
// of extraction delivery and of migration. A dump is a directory named
// <source>_<timestamp> holding a data.jsonl record stream and a
// _metadata.json sidecar. Dumps are created once, finalized with a
// terminal status, and never mutated afterwards; archiving moves the
// whole directory, it never deletes records.
package dump

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/safeio"
)

const (
	// DataFileName is the record stream inside a dump directory.
	DataFileName = "data.jsonl"
	// MetadataFileName is the metadata sidecar inside a dump directory.
	MetadataFileName = "_metadata.json"

	// dirTimestampLayout names dump directories down to the second.
	dirTimestampLayout = "2006-01-02_150405"

	// ChecksumPrefix marks dump checksums as sha256 hex digests.
	ChecksumPrefix = "sha256:"
)

// Extraction status values. Only StatusComplete dumps participate in
// delta-watermark selection.
const (
	StatusComplete = "complete"
	StatusPartial  = "partial"
	StatusFailed   = "failed"
	StatusPending  = "pending"
)

// Extraction type values.
const (
	TypeFull  = "full"
	TypeDelta = "delta"
)

// Filters records which extraction filters produced a dump, so a delta
// run can be audited against the filters of its predecessor.
type Filters struct {
	DateRange     string   `json:"date_range"`
	Sources       []string `json:"sources"`
	Keywords      []string `json:"keywords"`
	MinTextLength int      `json:"min_text_length"`
}

// RateLimitInfo records how the upstream rate tier was exercised.
type RateLimitInfo struct {
	Authenticated      bool    `json:"authenticated"`
	RequestsMade       int     `json:"requests_made"`
	TimeElapsedSeconds float64 `json:"time_elapsed_seconds"`
}

// Metadata is the _metadata.json sidecar of a dump. ExtractionDate,
// ExtractionType, RecordCount, Checksum, and ExtractionStatus are always
// present; the remaining fields depend on how the dump was produced.
type Metadata struct {
	ExtractionDate     string   `json:"extraction_date"`
	SourceName         string   `json:"source_name"`
	SourceURL          string   `json:"source_url,omitempty"`
	ExtractionMethod   string   `json:"extraction_method"`
	ExtractorVersion   string   `json:"extractor_version,omitempty"`
	DataFormat         string   `json:"data_format"`
	RecordCount        int      `json:"record_count"`
	ExtractionType     string   `json:"extraction_type"`
	LastExtractionDate string   `json:"last_extraction_date,omitempty"`
	FiltersApplied     *Filters `json:"filters_applied,omitempty"`
	ExtractionStatus   string   `json:"extraction_status"`
	Checksum           string   `json:"checksum,omitempty"`

	RateLimitInfo *RateLimitInfo `json:"rate_limit_info,omitempty"`
	Statistics    any            `json:"extraction_statistics,omitempty"`
	License       string         `json:"license,omitempty"`
	Attribution   string         `json:"attribution,omitempty"`
	Citation      string         `json:"citation,omitempty"`
}

// Terminal reports whether the dump reached a final status. A dump whose
// metadata is missing or still pending must be treated as in-flight.
func (m *Metadata) Terminal() bool {
	switch m.ExtractionStatus {
	case StatusComplete, StatusPartial, StatusFailed:
		return true
	}
	return false
}

// ExtractionTime parses the extraction_date field.
func (m *Metadata) ExtractionTime() (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, m.ExtractionDate)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid extraction_date %q", m.ExtractionDate)
	}
	return ts, nil
}

// Info pairs a dump directory with its parsed metadata.
type Info struct {
	Dir  string
	Meta *Metadata
}

// ShortID returns a compact base58 handle derived from the first eight
// bytes of the dump checksum, for operator-facing listings.
func (m *Metadata) ShortID() string {
	raw, err := hex.DecodeString(strings.TrimPrefix(m.Checksum, ChecksumPrefix))
	if err != nil || len(raw) < 8 {
		return ""
	}
	return base58.Encode(raw[:8])
}

// DataPath returns the record stream path inside dir.
func DataPath(dir string) string {
	return filepath.Join(dir, DataFileName)
}

// MetadataPath returns the metadata sidecar path inside dir.
func MetadataPath(dir string) string {
	return filepath.Join(dir, MetadataFileName)
}

// ReadMetadata loads and parses a dump's metadata sidecar.
func ReadMetadata(dir string) (*Metadata, error) {
	data, err := os.ReadFile(MetadataPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapNotFound(err, "dump has no metadata")
		}
		return nil, errors.Wrapf(err, "failed to read dump metadata in %s", dir)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrapf(err, "corrupt dump metadata in %s", dir)
	}
	return &meta, nil
}

// WriteMetadata atomically replaces a dump's metadata sidecar. Used by
// the writer at finalize time and by archive tooling that flips status.
func WriteMetadata(dir string, meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal dump metadata")
	}
	data = append(data, '\n')
	if err := safeio.WriteFileAtomic(MetadataPath(dir), data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write dump metadata in %s", dir)
	}
	return nil
}

// List returns every dump directory directly under root that carries a
// metadata sidecar, sorted oldest first by extraction date. Directories
// without metadata (in-flight or foreign) are skipped, not errors.
func List(root string) ([]*Info, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read dump root %s", root)
	}

	var dumps []*Info
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		meta, err := ReadMetadata(dir)
		if err != nil {
			if errors.IsNotFoundError(err) {
				continue
			}
			return nil, err
		}
		dumps = append(dumps, &Info{Dir: dir, Meta: meta})
	}

	sort.Slice(dumps, func(i, j int) bool {
		if dumps[i].Meta.ExtractionDate != dumps[j].Meta.ExtractionDate {
			return dumps[i].Meta.ExtractionDate < dumps[j].Meta.ExtractionDate
		}
		return dumps[i].Dir < dumps[j].Dir
	})
	return dumps, nil
}

// Latest returns the newest dump under root with status complete,
// optionally restricted to one source name. Partial and failed dumps
// never win: they must not advance the delta watermark.
func Latest(root, source string) (*Info, error) {
	dumps, err := List(root)
	if err != nil {
		return nil, err
	}
	for i := len(dumps) - 1; i >= 0; i-- {
		meta := dumps[i].Meta
		if meta.ExtractionStatus != StatusComplete {
			continue
		}
		if source != "" && meta.SourceName != source {
			continue
		}
		return dumps[i], nil
	}
	return nil, errors.NewNotFoundError("no complete dump found in %s", root)
}

// Archive moves a finalized dump directory under archiveRoot. The dump
// keeps its name; nothing inside it is rewritten.
func Archive(dir, archiveRoot string) (string, error) {
	meta, err := ReadMetadata(dir)
	if err != nil {
		return "", err
	}
	if !meta.Terminal() {
		return "", errors.Wrapf(errors.ErrDumpIncomplete, "refusing to archive %s", dir)
	}
	if err := os.MkdirAll(archiveRoot, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create archive root %s", archiveRoot)
	}
	dest := filepath.Join(archiveRoot, filepath.Base(dir))
	if err := os.Rename(dir, dest); err != nil {
		return "", errors.Wrapf(err, "failed to archive dump %s", dir)
	}
	return dest, nil
}
