// Package extract streams records from the upstream bulk source into a
// timestamped dump directory, applying content filters and attaching
// provenance. Delta mode extracts only records published after the
// newest complete prior dump.
package extract

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/emberline/curator/dump"
	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/record"
	"github.com/emberline/curator/sym"
)

// Stats is the extraction run summary, embedded in dump metadata and
// the catalog ledger.
type Stats struct {
	RecordsFetched    int            `json:"records_fetched"`
	RecordsFiltered   int            `json:"records_filtered"`
	RecordsWritten    int            `json:"records_written"`
	ErrorsEncountered int            `json:"errors_encountered"`
	StartTime         string         `json:"start_time"`
	EndTime           string         `json:"end_time"`
	DurationSeconds   float64        `json:"duration_seconds"`
	Rejects           map[string]int `json:"rejects,omitempty"`
	Watermark         string         `json:"watermark,omitempty"`
	Dump              string         `json:"dump,omitempty"`
}

// Options configures one extraction run.
type Options struct {
	Root       string // raw zone root; dump directory is created here
	SourceName string // dump directory prefix
	SourceURL  string // recorded in dump metadata
	Mode       string // dump.TypeFull or dump.TypeDelta
	Since      string // optional watermark override for backfill
	Limit      int    // stop after N written records; 0 = unlimited
	DryRun     bool
	Verbosity  int

	Filter Filter

	// Provenance is the template stamped onto every record;
	// IngestionDate and Transformations are filled per record.
	Provenance record.Provenance
}

// Extractor drives a Source through the filter into a dump directory.
type Extractor struct {
	src     Source
	opts    Options
	emitter ProgressEmitter
	log     *zap.SugaredLogger
}

// New creates an extractor. A nil emitter discards progress; a nil
// logger falls back to the global.
func New(src Source, opts Options, emitter ProgressEmitter, log *zap.SugaredLogger) *Extractor {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if log == nil {
		log = zap.S()
	}
	if opts.Mode == "" {
		opts.Mode = dump.TypeFull
	}
	if opts.Provenance.ExtractionMethod == "" {
		opts.Provenance.ExtractionMethod = "api"
	}
	return &Extractor{src: src, opts: opts, emitter: emitter, log: log}
}

// progressInterval scales reporting frequency with verbosity.
func progressInterval(verbosity int) int {
	switch {
	case verbosity >= 3:
		return 1
	case verbosity == 2:
		return 10
	case verbosity == 1:
		return 25
	default:
		return 100
	}
}

// watermark returns the extraction date of the newest complete dump
// for this source, or "" when none exists.
func (e *Extractor) watermark() (string, error) {
	latest, err := dump.Latest(e.opts.Root, e.opts.SourceName)
	if errors.IsNotFoundError(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return latest.Meta.ExtractionDate, nil
}

// Run executes the extraction. The returned stats are valid even when
// err is non-nil; cancellation finalizes the dump as partial so it is
// preserved for inspection but never advances the delta watermark.
func (e *Extractor) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{Rejects: map[string]int{}}
	start := time.Now().UTC()
	stats.StartTime = start.Format(time.RFC3339)

	mode := e.opts.Mode
	filter := e.opts.Filter

	if mode == dump.TypeDelta {
		wm, err := e.watermark()
		if err != nil {
			return stats, err
		}
		if wm == "" {
			e.log.Warnw("No complete prior dump, degrading to full extraction",
				"sym", sym.Extract,
				"source", e.opts.SourceName,
			)
			e.emitter.EmitInfo("no prior complete dump found, running full extraction")
			mode = dump.TypeFull
		} else {
			if e.opts.Since != "" && e.opts.Since < wm {
				e.log.Infow("Watermark overridden for backfill",
					"sym", sym.Extract,
					"watermark", wm,
					"since", e.opts.Since,
				)
				wm = e.opts.Since
			}
			filter.Watermark = wm
			stats.Watermark = wm
			e.emitter.EmitStage("watermark", "extracting records published after "+wm)
		}
	}

	var writer *dump.Writer
	if !e.opts.DryRun {
		w, err := dump.NewWriter(e.opts.Root, e.opts.SourceName)
		if err != nil {
			return stats, err
		}
		writer = w
		stats.Dump = w.Dir()
	}

	e.log.Infow("Starting extraction",
		"sym", sym.Extract,
		"source", e.opts.SourceName,
		"mode", mode,
		"limit", e.opts.Limit,
		"dry_run", e.opts.DryRun,
	)

	runErr := e.stream(ctx, writer, &filter, stats)

	stats.EndTime = time.Now().UTC().Format(time.RFC3339)
	stats.DurationSeconds = time.Since(start).Seconds()

	if writer != nil {
		status := dump.StatusComplete
		if runErr != nil {
			status = dump.StatusPartial
		}
		meta := e.metadata(mode, status, stats)
		if ferr := writer.Finalize(meta); ferr != nil {
			if runErr == nil {
				runErr = ferr
			} else {
				e.log.Errorw("Failed to finalize dump after run error",
					"sym", sym.Dump,
					"dump", writer.Dir(),
					"error", ferr,
				)
			}
		}
	}

	if runErr != nil {
		e.emitter.EmitError("extract", runErr)
		return stats, runErr
	}

	e.emitter.EmitComplete(map[string]interface{}{
		"records_fetched":    stats.RecordsFetched,
		"records_filtered":   stats.RecordsFiltered,
		"records_written":    stats.RecordsWritten,
		"errors_encountered": stats.ErrorsEncountered,
		"duration_seconds":   stats.DurationSeconds,
	})
	e.log.Infow("Extraction complete",
		"sym", sym.Extract,
		"fetched", stats.RecordsFetched,
		"filtered", stats.RecordsFiltered,
		"written", stats.RecordsWritten,
		"errors", stats.ErrorsEncountered,
		"duration_seconds", stats.DurationSeconds,
	)
	return stats, nil
}

// stream consumes the source until EOF, limit, or cancellation.
func (e *Extractor) stream(ctx context.Context, writer *dump.Writer, filter *Filter, stats *Stats) error {
	interval := progressInterval(e.opts.Verbosity)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := e.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if IsRecordError(err) {
			stats.ErrorsEncountered++
			e.log.Warnw("Skipping malformed record",
				"sym", sym.Extract,
				"error", err,
			)
			continue
		}
		if err != nil {
			return err
		}

		stats.RecordsFetched++

		if reject := filter.Check(rec); reject != RejectNone {
			stats.RecordsFiltered++
			stats.Rejects[reject.String()]++
			continue
		}

		if rec.ID == "" {
			stats.ErrorsEncountered++
			e.log.Warnw("Skipping record without id",
				"sym", sym.Extract,
				"title", rec.Title,
			)
			continue
		}

		e.stamp(rec)

		if writer != nil {
			if err := writer.WriteRecord(rec); err != nil {
				return err
			}
		}
		stats.RecordsWritten++

		if stats.RecordsWritten%interval == 0 {
			e.emitter.EmitProgress(stats.RecordsWritten, map[string]interface{}{
				"type":     "records",
				"fetched":  stats.RecordsFetched,
				"filtered": stats.RecordsFiltered,
			})
			if e.opts.Verbosity > 0 {
				e.log.Infow("Progress update",
					"sym", sym.Extract,
					"fetched", stats.RecordsFetched,
					"written", stats.RecordsWritten,
					"filtered", stats.RecordsFiltered,
				)
			}
		}

		if e.opts.Limit > 0 && stats.RecordsWritten >= e.opts.Limit {
			e.log.Infow("Reached limit, stopping",
				"sym", sym.Extract,
				"limit", e.opts.Limit,
			)
			return nil
		}
	}
}

// stamp attaches the provenance block.
func (e *Extractor) stamp(rec *record.Record) {
	prov := e.opts.Provenance
	prov.IngestionDate = time.Now().UTC().Format(time.RFC3339)
	prov.Transformations = []string{"schema_standardization", "provenance_addition"}
	rec.Provenance = &prov
}

// metadata assembles the dump sidecar for this run.
func (e *Extractor) metadata(mode, status string, stats *Stats) *dump.Metadata {
	meta := &dump.Metadata{
		ExtractionDate:   stats.StartTime,
		SourceName:       e.opts.SourceName,
		SourceURL:        e.opts.SourceURL,
		ExtractionMethod: e.opts.Provenance.ExtractionMethod,
		ExtractorVersion: "1.0.0",
		DataFormat:       "jsonl",
		ExtractionType:   mode,
		ExtractionStatus: status,
		FiltersApplied: &dump.Filters{
			DateRange:     e.opts.Filter.MinDate + " to present",
			Sources:       e.opts.Filter.Sources,
			Keywords:      e.opts.Filter.Keywords,
			MinTextLength: e.opts.Filter.MinTextLength,
		},
		License:     e.opts.Provenance.License,
		Attribution: e.opts.Provenance.Attribution,
		Citation:    e.opts.Provenance.Citation,
		Statistics:  stats,
	}
	if mode == dump.TypeDelta {
		meta.LastExtractionDate = stats.Watermark
	}
	if hs, ok := e.src.(*HTTPSource); ok {
		meta.RateLimitInfo = &dump.RateLimitInfo{
			Authenticated:      hs.Authenticated(),
			RequestsMade:       hs.RequestsMade(),
			TimeElapsedSeconds: stats.DurationSeconds,
		}
	}
	return meta
}
