package extract

import (
	"context"
	"fmt"

	"github.com/emberline/curator/dump"
	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/record"
)

// Source streams upstream records one at a time. Next returns io.EOF
// when the stream is exhausted and *RecordError for lines that exist
// but cannot be decoded; callers skip those and keep consuming. Sources
// are not restartable.
type Source interface {
	Next(ctx context.Context) (*record.Record, error)
	Close() error
}

// RecordError marks a single malformed upstream record. The stream
// remains usable after one is returned.
type RecordError struct {
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record at line %d: %v", e.Line, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// IsRecordError reports whether err is a skippable per-record failure.
func IsRecordError(err error) bool {
	var re *RecordError
	return errors.As(err, &re)
}

// FileSource streams records from a local JSONL snapshot, typically
// the output of the fetch command.
type FileSource struct {
	reader *dump.Reader
	line   int
}

// NewFileSource opens a JSONL file for streaming.
func NewFileSource(path string) (*FileSource, error) {
	r, err := dump.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{reader: r}, nil
}

// Next returns the next decodable record.
func (s *FileSource) Next(ctx context.Context) (*record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := s.reader.Next()
	if err != nil {
		return nil, err // io.EOF or a read failure
	}
	s.line++

	rec, err := record.Decode(raw)
	if err != nil {
		return nil, &RecordError{Line: s.line, Err: err}
	}
	return rec, nil
}

// Close releases the underlying file.
func (s *FileSource) Close() error {
	return s.reader.Close()
}

var _ Source = (*FileSource)(nil)
