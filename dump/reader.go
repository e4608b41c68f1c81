package dump

import (
	"bufio"
	"io"
	"os"

	"github.com/emberline/curator/errors"
)

// maxRecordBytes bounds a single JSONL line. Research records carry full
// document text, so the default scanner limit of 64KiB is far too small.
const maxRecordBytes = 16 * 1024 * 1024

// Reader streams records out of a dump directory one line at a time.
type Reader struct {
	dir     string
	meta    *Metadata
	file    *os.File
	scanner *bufio.Scanner
	line    int
}

// Open opens a dump directory for reading. Metadata must be present;
// an unfinalized dump is not readable.
func Open(dir string) (*Reader, error) {
	meta, err := ReadMetadata(dir)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(DataPath(dir))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open dump data in %s", dir)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxRecordBytes)

	return &Reader{
		dir:     dir,
		meta:    meta,
		file:    file,
		scanner: scanner,
	}, nil
}

// OpenFile opens a bare JSONL file outside any dump directory, for
// validating or scoring loose record collections. Meta returns nil.
func OpenFile(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open record file %s", path)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxRecordBytes)

	return &Reader{
		dir:     path,
		file:    file,
		scanner: scanner,
	}, nil
}

// Meta returns the dump metadata, or nil when reading a bare file.
func (r *Reader) Meta() *Metadata { return r.meta }

// Line returns the 1-based line number of the record last returned by
// Next, for error reporting.
func (r *Reader) Line() int { return r.line }

// Next returns the next non-blank JSONL line, or io.EOF at end of
// stream. The returned slice is a copy and remains valid across calls.
func (r *Reader) Next() ([]byte, error) {
	for r.scanner.Scan() {
		r.line++
		raw := r.scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		line := make([]byte, len(raw))
		copy(line, raw)
		return line, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read dump data in %s", r.dir)
	}
	return nil, io.EOF
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	if err := r.file.Close(); err != nil {
		return errors.Wrapf(err, "failed to close dump reader for %s", r.dir)
	}
	return nil
}
