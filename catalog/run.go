// Package catalog persists pipeline bookkeeping in SQLite: a ledger of
// engine runs and a registry of dump directories. The dump metadata
// sidecars stay authoritative; the catalog exists so listings and
// audits don't have to walk the filesystem.
package catalog

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/emberline/curator/errors"
)

// Run statuses as stored in the runs table.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// Run is one engine invocation: a migration sweep, an extraction, a
// validation pass, a scoring or transform run.
type Run struct {
	ID         string          `json:"run_id"`
	Engine     string          `json:"engine"`
	Mode       string          `json:"mode,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at,omitzero"`
	Status     string          `json:"status"`
	Stats      json.RawMessage `json:"stats,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// RunStore handles persistence of engine runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new run ledger backed by db.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Begin inserts a new running entry and returns it. Engine names the
// pipeline stage; mode carries stage-specific detail such as
// "full"/"delta" for extraction or "copy"/"move" for migration.
func (s *RunStore) Begin(engine, mode string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Engine:    engine,
		Mode:      mode,
		StartedAt: time.Now().UTC(),
		Status:    RunStatusRunning,
	}

	query := `
		INSERT INTO runs (run_id, engine, mode, started_at, status)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query, run.ID, run.Engine, run.Mode, run.StartedAt, run.Status)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin run")
	}

	return run, nil
}

// Finish records the outcome of a run. Stats is marshaled to JSON and
// may be nil; a non-nil runErr marks the run failed and stores the
// error text.
func (s *RunStore) Finish(run *Run, stats interface{}, runErr error) error {
	run.FinishedAt = time.Now().UTC()
	run.Status = RunStatusSucceeded
	if runErr != nil {
		run.Status = RunStatusFailed
		run.Error = runErr.Error()
	}

	if stats != nil {
		encoded, err := json.Marshal(stats)
		if err != nil {
			return errors.Wrap(err, "failed to marshal run stats")
		}
		run.Stats = encoded
	}

	query := `
		UPDATE runs
		SET finished_at = ?,
		    status = ?,
		    stats = ?,
		    error = ?
		WHERE run_id = ?
	`

	statsJSON := sql.NullString{String: string(run.Stats), Valid: len(run.Stats) > 0}
	errText := sql.NullString{String: run.Error, Valid: run.Error != ""}

	result, err := s.db.Exec(query, run.FinishedAt, run.Status, statsJSON, errText, run.ID)
	if err != nil {
		return errors.Wrap(err, "failed to finish run")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Newf("run not found: %s", run.ID)
	}

	return nil
}

// Get retrieves a run by ID.
func (s *RunStore) Get(id string) (*Run, error) {
	query := `
		SELECT run_id, engine, mode, started_at, finished_at, status, stats, error
		FROM runs
		WHERE run_id = ?
	`

	run, err := scanRun(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Newf("run not found: %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get run")
	}

	return run, nil
}

// List returns the most recent runs, newest first, optionally filtered
// by engine. An empty engine matches all stages.
func (s *RunStore) List(engine string, limit int) ([]*Run, error) {
	var query string
	var args []interface{}

	baseQuery := `
		SELECT run_id, engine, mode, started_at, finished_at, status, stats, error
		FROM runs
	`
	if engine != "" {
		query = baseQuery + ` WHERE engine = ? ORDER BY started_at DESC LIMIT ?`
		args = []interface{}{engine, limit}
	} else {
		query = baseQuery + ` ORDER BY started_at DESC LIMIT ?`
		args = []interface{}{limit}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan run")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating runs")
	}

	return runs, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var finishedAt sql.NullTime
	var stats, errText sql.NullString

	err := row.Scan(
		&run.ID,
		&run.Engine,
		&run.Mode,
		&run.StartedAt,
		&finishedAt,
		&run.Status,
		&stats,
		&errText,
	)
	if err != nil {
		return nil, err
	}

	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	if stats.Valid {
		run.Stats = json.RawMessage(stats.String)
	}
	if errText.Valid {
		run.Error = errText.String
	}

	return &run, nil
}
