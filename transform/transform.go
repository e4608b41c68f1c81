// Package transform joins the quality overlay against a record store
// at read time, filters to the requested tiers, and emits the
// publishable timeline-event set. Source records and overlay are both
// read-only inputs; output is always a fresh dump directory.
package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/emberline/curator/dump"
	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/record"
	"github.com/emberline/curator/safeio"
	"github.com/emberline/curator/score"
)

// eventsSource names transform output dumps.
const eventsSource = "timeline_events"

// Options configure one transformation run.
type Options struct {
	// MinTier keeps records whose tier meets or beats this bar in the
	// overlay's tier ordering. Default "A".
	MinTier string
	// IncludeUnscored also keeps records with no overlay entry.
	// Unscored means unscored, never tier-D.
	IncludeUnscored bool
	// Limit caps emitted events; zero means no cap.
	Limit int
	// DryRun counts and classifies without writing anything.
	DryRun bool
}

// ScoredRecord pairs a record with its overlay entry. Entry is nil for
// unscored records.
type ScoredRecord struct {
	Record *record.Record
	Entry  *score.Entry
}

// Join looks a record up in the overlay. Outer join semantics: a
// missing entry yields a ScoredRecord with a nil Entry.
func Join(rec *record.Record, overlay *score.Overlay) ScoredRecord {
	return ScoredRecord{Record: rec, Entry: overlay.Entry(rec.ID)}
}

// Result summarizes a transformation run.
type Result struct {
	TotalRecords  int            `json:"total_records"`
	Selected      int            `json:"selected"`
	EventsCreated int            `json:"events_created"`
	Unscored      int            `json:"unscored"`
	FilteredOut   int            `json:"filtered_out"`
	Errors        int            `json:"errors"`
	ByCategory    map[string]int `json:"by_category"`
	ByRarity      map[string]int `json:"by_rarity"`
	ByYear        map[int]int    `json:"by_year"`
	OutputDir     string         `json:"output_dir,omitempty"`
}

// Transformer filters and converts one record stream against one
// overlay.
type Transformer struct {
	overlay *score.Overlay
	opts    Options
	allowed map[string]bool
	log     *zap.SugaredLogger
}

// New builds a Transformer. The tier bar is resolved against the
// overlay's embedded scoring config, so an overlay generated with
// custom tiers filters by its own ordering.
func New(overlay *score.Overlay, opts Options, log *zap.SugaredLogger) (*Transformer, error) {
	if opts.MinTier == "" {
		opts.MinTier = "A"
	}
	cfg := overlay.Meta.ScoringConfig
	if cfg == nil {
		cfg = score.DefaultConfig()
	}

	allowed := make(map[string]bool, len(cfg.Tiers))
	found := false
	for _, tier := range cfg.Tiers {
		allowed[tier.Name] = true
		if tier.Name == opts.MinTier {
			found = true
			break
		}
	}
	if !found {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "tier %q not defined by overlay", opts.MinTier)
	}

	return &Transformer{overlay: overlay, opts: opts, allowed: allowed, log: log}, nil
}

// selects applies the tier filter to one joined record.
func (t *Transformer) selects(sr ScoredRecord) bool {
	if sr.Entry == nil {
		return t.opts.IncludeUnscored
	}
	return t.allowed[sr.Entry.QualityTier]
}

// Run streams records from a dump directory (or bare JSONL file when
// sourceDir points at a file), emits selected records as timeline
// events into a new dump under outputRoot, and writes per-year JSON
// slices next to the event stream.
func (t *Transformer) Run(ctx context.Context, sourceDir, outputRoot string) (*Result, error) {
	reader, err := openSource(sourceDir)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	result := &Result{
		ByCategory: make(map[string]int),
		ByRarity:   make(map[string]int),
		ByYear:     make(map[int]int),
	}

	var writer *dump.Writer
	if !t.opts.DryRun {
		writer, err = dump.NewWriter(outputRoot, eventsSource)
		if err != nil {
			return nil, err
		}
	}

	var events []*Event
	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "transformation interrupted")
		}
		if t.opts.Limit > 0 && result.EventsCreated >= t.opts.Limit {
			break
		}

		line, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		result.TotalRecords++

		rec, err := record.Decode(line)
		if err != nil {
			result.Errors++
			if t.log != nil {
				t.log.Warnw("Skipping malformed record", "line", reader.Line(), "error", err)
			}
			continue
		}

		sr := Join(rec, t.overlay)
		if sr.Entry == nil {
			result.Unscored++
		}
		if !t.selects(sr) {
			result.FilteredOut++
			continue
		}
		result.Selected++

		event := BuildEvent(rec)
		result.EventsCreated++
		result.ByCategory[event.Category]++
		result.ByRarity[event.Rarity]++
		result.ByYear[event.Year]++

		if writer != nil {
			if err := writer.WriteValue(event); err != nil {
				return nil, err
			}
			events = append(events, event)
		}
	}

	if writer == nil {
		return result, nil
	}

	if err := writeByYear(writer.Dir(), events); err != nil {
		return nil, err
	}
	err = writer.Finalize(&dump.Metadata{
		SourceName:       eventsSource,
		SourceURL:        sourceDir,
		ExtractionMethod: "manual",
		ExtractionType:   dump.TypeFull,
		Statistics:       result,
	})
	if err != nil {
		return nil, err
	}
	result.OutputDir = writer.Dir()
	return result, nil
}

func openSource(path string) (*dump.Reader, error) {
	if safeio.DirExists(path) {
		return dump.Open(path)
	}
	return dump.OpenFile(path)
}

// writeByYear slices the event list into by_year/<year>.json files for
// consumers that fetch a single year at a time.
func writeByYear(dir string, events []*Event) error {
	byYear := make(map[int][]*Event)
	for _, event := range events {
		byYear[event.Year] = append(byYear[event.Year], event)
	}

	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)

	for _, year := range years {
		data, err := json.MarshalIndent(byYear[year], "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal year events")
		}
		data = append(data, '\n')
		path := filepath.Join(dir, "by_year", fmt.Sprintf("%d.json", year))
		if err := safeio.WriteFileAtomic(path, data, 0o644); err != nil {
			return errors.Wrapf(err, "failed to write %s", path)
		}
	}
	return nil
}
