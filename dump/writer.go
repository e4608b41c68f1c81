package dump

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/record"
	"github.com/emberline/curator/safeio"
)

// Writer streams records into a fresh dump directory. Records are
// appended one JSONL line at a time so memory stays bounded regardless
// of dump size. The dump only becomes visible to readers once Finalize
// writes the metadata sidecar with a terminal status; until then List
// and Latest ignore the directory.
type Writer struct {
	dir    string
	source string
	file   *os.File
	buf    *bufio.Writer
	count  int
	closed bool
}

// NewWriter creates the dump directory <root>/<source>_<timestamp> and
// opens its data stream. The directory name is collision-checked so two
// extractions started within the same second never share a dump.
func NewWriter(root, source string) (*Writer, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create dump root %s", root)
	}

	stamp := time.Now().UTC().Format(dirTimestampLayout)
	dir := filepath.Join(root, fmt.Sprintf("%s_%s", source, stamp))
	for n := 2; ; n++ {
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return nil, errors.Wrapf(err, "failed to create dump directory %s", dir)
		}
		dir = filepath.Join(root, fmt.Sprintf("%s_%s_%d", source, stamp, n))
	}

	file, err := os.OpenFile(DataPath(dir), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create dump data file in %s", dir)
	}

	return &Writer{
		dir:    dir,
		source: source,
		file:   file,
		buf:    bufio.NewWriterSize(file, 64*1024),
	}, nil
}

// Dir returns the dump directory being written.
func (w *Writer) Dir() string { return w.dir }

// Count returns the number of records written so far.
func (w *Writer) Count() int { return w.count }

// WriteRecord appends one record to the data stream.
func (w *Writer) WriteRecord(rec *record.Record) error {
	line, err := rec.Encode()
	if err != nil {
		return err
	}
	return w.WriteRaw(line)
}

// WriteValue marshals any JSON value as one line of the data stream.
// Transformation outputs (timeline events) go through this path.
func (w *Writer) WriteValue(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "failed to encode dump line")
	}
	return w.WriteRaw(line)
}

// WriteRaw appends one pre-encoded JSONL line.
func (w *Writer) WriteRaw(line []byte) error {
	if w.closed {
		return errors.New("dump writer is closed")
	}
	if _, err := w.buf.Write(line); err != nil {
		return errors.Wrapf(err, "failed to write record to %s", w.dir)
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return errors.Wrapf(err, "failed to write record to %s", w.dir)
	}
	w.count++
	return nil
}

// Finalize flushes and fsyncs the data stream, stamps the metadata with
// the record count and data checksum, and atomically writes the
// metadata sidecar. The passed metadata supplies the extraction fields;
// missing bookkeeping fields are filled in here. Callers that hit
// errors mid-extraction finalize with StatusPartial so the dump is
// preserved for inspection but excluded from watermark selection.
func (w *Writer) Finalize(meta *Metadata) error {
	if w.closed {
		return errors.New("dump writer is closed")
	}
	w.closed = true

	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return errors.Wrapf(err, "failed to flush dump data in %s", w.dir)
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return errors.Wrapf(err, "failed to sync dump data in %s", w.dir)
	}
	if err := w.file.Close(); err != nil {
		return errors.Wrapf(err, "failed to close dump data in %s", w.dir)
	}

	sum, err := safeio.Checksum(DataPath(w.dir))
	if err != nil {
		return err
	}

	if meta == nil {
		meta = &Metadata{}
	}
	if meta.SourceName == "" {
		meta.SourceName = w.source
	}
	if meta.ExtractionDate == "" {
		meta.ExtractionDate = time.Now().UTC().Format(time.RFC3339)
	}
	if meta.ExtractionType == "" {
		meta.ExtractionType = TypeFull
	}
	if meta.ExtractionStatus == "" {
		meta.ExtractionStatus = StatusComplete
	}
	if meta.DataFormat == "" {
		meta.DataFormat = "jsonl"
	}
	meta.RecordCount = w.count
	meta.Checksum = ChecksumPrefix + sum

	return WriteMetadata(w.dir, meta)
}

// Discard abandons an unfinalized dump and removes its directory.
// Used when a run fails before producing anything worth keeping.
func (w *Writer) Discard() error {
	if !w.closed {
		w.closed = true
		w.file.Close()
	}
	if err := os.RemoveAll(w.dir); err != nil {
		return errors.Wrapf(err, "failed to discard dump %s", w.dir)
	}
	return nil
}
