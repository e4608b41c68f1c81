package catalog

import (
	"database/sql"
	"time"

	"github.com/emberline/curator/dump"
	"github.com/emberline/curator/errors"
)

// DumpRow is one registered dump directory. Columns mirror the fields
// of the metadata sidecar that listings and watermark lookups need.
type DumpRow struct {
	Path           string    `json:"path"`
	Source         string    `json:"source"`
	ShortID        string    `json:"short_id,omitempty"`
	ExtractionType string    `json:"extraction_type"`
	ExtractionDate time.Time `json:"extraction_date"`
	RecordCount    int       `json:"record_count"`
	Checksum       string    `json:"checksum,omitempty"`
	Status         string    `json:"status"`
	RegisteredAt   time.Time `json:"registered_at"`
}

// DumpStore handles persistence of the dump registry.
type DumpStore struct {
	db *sql.DB
}

// NewDumpStore creates a new dump registry backed by db.
func NewDumpStore(db *sql.DB) *DumpStore {
	return &DumpStore{db: db}
}

// Register upserts a dump directory into the registry. Re-registering
// the same path refreshes its row, so a re-finalized or repaired dump
// overwrites the stale entry.
func (s *DumpStore) Register(info *dump.Info) error {
	if info == nil || info.Meta == nil {
		return errors.New("cannot register dump without metadata")
	}

	extractedAt, err := info.Meta.ExtractionTime()
	if err != nil {
		return errors.Wrapf(err, "cannot register dump %s", info.Dir)
	}

	query := `
		INSERT INTO dumps (
			path, source, short_id, extraction_type,
			extraction_date, record_count, checksum, status, registered_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			source = excluded.source,
			short_id = excluded.short_id,
			extraction_type = excluded.extraction_type,
			extraction_date = excluded.extraction_date,
			record_count = excluded.record_count,
			checksum = excluded.checksum,
			status = excluded.status,
			registered_at = excluded.registered_at
	`

	_, err = s.db.Exec(query,
		info.Dir,
		info.Meta.SourceName,
		info.Meta.ShortID(),
		info.Meta.ExtractionType,
		extractedAt,
		info.Meta.RecordCount,
		info.Meta.Checksum,
		info.Meta.ExtractionStatus,
		time.Now().UTC(),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to register dump %s", info.Dir)
	}

	return nil
}

// Sync walks the dump root and registers every readable dump
// directory. Returns how many rows were written.
func (s *DumpStore) Sync(root string) (int, error) {
	infos, err := dump.List(root)
	if err != nil {
		return 0, err
	}

	registered := 0
	for _, info := range infos {
		if err := s.Register(info); err != nil {
			return registered, err
		}
		registered++
	}

	return registered, nil
}

// List returns registered dumps newest first, optionally filtered by
// source. An empty source matches all.
func (s *DumpStore) List(source string, limit int) ([]*DumpRow, error) {
	var query string
	var args []interface{}

	baseQuery := `
		SELECT path, source, short_id, extraction_type,
		       extraction_date, record_count, checksum, status, registered_at
		FROM dumps
	`
	if source != "" {
		query = baseQuery + ` WHERE source = ? ORDER BY extraction_date DESC LIMIT ?`
		args = []interface{}{source, limit}
	} else {
		query = baseQuery + ` ORDER BY extraction_date DESC LIMIT ?`
		args = []interface{}{limit}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list dumps")
	}
	defer rows.Close()

	var dumps []*DumpRow
	for rows.Next() {
		row, err := scanDump(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan dump")
		}
		dumps = append(dumps, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating dumps")
	}

	return dumps, nil
}

// LatestComplete returns the newest complete dump registered for a
// source, or nil when the source has no complete dumps yet.
func (s *DumpStore) LatestComplete(source string) (*DumpRow, error) {
	query := `
		SELECT path, source, short_id, extraction_type,
		       extraction_date, record_count, checksum, status, registered_at
		FROM dumps
		WHERE source = ? AND status = ?
		ORDER BY extraction_date DESC
		LIMIT 1
	`

	row, err := scanDump(s.db.QueryRow(query, source, dump.StatusComplete))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find latest complete dump")
	}

	return row, nil
}

func scanDump(row scanner) (*DumpRow, error) {
	var d DumpRow
	err := row.Scan(
		&d.Path,
		&d.Source,
		&d.ShortID,
		&d.ExtractionType,
		&d.ExtractionDate,
		&d.RecordCount,
		&d.Checksum,
		&d.Status,
		&d.RegisteredAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
