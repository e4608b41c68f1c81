// Package score assigns deterministic quality tiers to records without
// ever touching the record store. Scores live in an overlay file keyed
// by source_id; consumers join overlay and records at read time, so a
// re-run can only ever replace the overlay, never corrupt a dump.
package score

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/emberline/curator/dump"
	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/record"
	"github.com/emberline/curator/safeio"
)

// overlayVersion stamps the overlay format.
const overlayVersion = "1.0"

// titlePreviewRunes is how much of the title is copied into the
// overlay for operator-facing listings.
const titlePreviewRunes = 80

// Reserved top-level keys in the overlay file. Record IDs never start
// with an underscore, so these cannot collide.
const (
	metadataKey = "_metadata"
	tiersKey    = "_tiers"
)

// Entry is the scoring result for one record.
type Entry struct {
	SourceID     string  `json:"source_id"`
	QualityScore float64 `json:"quality_score"`
	QualityTier  string  `json:"quality_tier"`
	Signals      Signals `json:"signals"`
	TitlePreview string  `json:"title_preview"`
}

// TierSummary is the reverse index for one tier.
type TierSummary struct {
	Count int      `json:"count"`
	IDs   []string `json:"ids"`
}

// Meta records how and when an overlay was generated. The embedded
// config makes every overlay self-describing.
type Meta struct {
	Version       string  `json:"version"`
	Created       string  `json:"created"`
	SourceFile    string  `json:"source_file"`
	SourceDump    string  `json:"source_dump,omitempty"`
	TotalRecords  int     `json:"total_records"`
	RecordsFailed int     `json:"records_failed,omitempty"`
	ScoringConfig *Config `json:"scoring_config"`
}

// Overlay is a full scoring result: per-record entries keyed by
// source_id, a tier reverse index, and generation metadata.
type Overlay struct {
	Meta    Meta
	Records map[string]*Entry
	Tiers   map[string]*TierSummary
}

// Entry returns the overlay entry for a source_id, or nil when the
// record was never scored. Absence means unscored, not tier-D.
func (o *Overlay) Entry(sourceID string) *Entry {
	return o.Records[sourceID]
}

// ScoreRecord scores one record. Pure by construction: identical
// record and config always produce an identical entry.
func ScoreRecord(rec *record.Record, cfg *Config) *Entry {
	signals := DetectSignals(rec)
	points := signals.Score(cfg)
	return &Entry{
		SourceID:     rec.ID,
		QualityScore: points,
		QualityTier:  cfg.AssignTier(points),
		Signals:      signals,
		TitlePreview: truncateRunes(rec.Title, titlePreviewRunes),
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Scorer streams record collections into overlays.
type Scorer struct {
	cfg *Config
	log *zap.SugaredLogger
}

// NewScorer builds a Scorer. A nil config uses the defaults.
func NewScorer(cfg *Config, log *zap.SugaredLogger) *Scorer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Scorer{cfg: cfg, log: log}
}

// ScoreDump scores every record of a dump directory.
func (s *Scorer) ScoreDump(ctx context.Context, dir string) (*Overlay, error) {
	reader, err := dump.Open(dir)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	overlay, err := s.scoreStream(ctx, reader)
	if err != nil {
		return nil, err
	}
	overlay.Meta.SourceFile = dump.DataPath(dir)
	if meta := reader.Meta(); meta != nil {
		overlay.Meta.SourceDump = meta.ShortID()
	}
	return overlay, nil
}

// ScoreFile scores a bare JSONL file.
func (s *Scorer) ScoreFile(ctx context.Context, path string) (*Overlay, error) {
	reader, err := dump.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	overlay, err := s.scoreStream(ctx, reader)
	if err != nil {
		return nil, err
	}
	overlay.Meta.SourceFile = path
	return overlay, nil
}

func (s *Scorer) scoreStream(ctx context.Context, reader *dump.Reader) (*Overlay, error) {
	overlay := &Overlay{
		Meta: Meta{
			Version:       overlayVersion,
			Created:       time.Now().UTC().Format(time.RFC3339),
			ScoringConfig: s.cfg,
		},
		Records: make(map[string]*Entry),
		Tiers:   make(map[string]*TierSummary),
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "scoring interrupted")
		}
		line, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		rec, err := record.Decode(line)
		if err != nil || rec.ID == "" {
			overlay.Meta.RecordsFailed++
			if s.log != nil {
				s.log.Warnw("Skipping unscorable record", "line", reader.Line(), "error", err)
			}
			continue
		}
		overlay.Records[rec.ID] = ScoreRecord(rec, s.cfg)
	}

	overlay.Meta.TotalRecords = len(overlay.Records)
	overlay.rebuildTiers()
	return overlay, nil
}

// rebuildTiers regenerates the reverse index from the entries, with
// sorted ID lists so serialization is order-independent.
func (o *Overlay) rebuildTiers() {
	o.Tiers = make(map[string]*TierSummary)
	for id, entry := range o.Records {
		summary := o.Tiers[entry.QualityTier]
		if summary == nil {
			summary = &TierSummary{}
			o.Tiers[entry.QualityTier] = summary
		}
		summary.Count++
		summary.IDs = append(summary.IDs, id)
	}
	for _, summary := range o.Tiers {
		sort.Strings(summary.IDs)
	}
}

// MarshalJSON flattens the overlay into a single object keyed by
// source_id with reserved _metadata and _tiers blocks. Keys marshal in
// sorted order, so identical inputs yield byte-identical files.
func (o *Overlay) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(o.Records)+2)
	flat[metadataKey] = o.Meta
	flat[tiersKey] = o.Tiers
	for id, entry := range o.Records {
		flat[id] = entry
	}
	return json.Marshal(flat)
}

// UnmarshalJSON rebuilds an overlay from its flattened form.
func (o *Overlay) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	o.Records = make(map[string]*Entry)
	o.Tiers = make(map[string]*TierSummary)
	for key, raw := range flat {
		switch key {
		case metadataKey:
			if err := json.Unmarshal(raw, &o.Meta); err != nil {
				return err
			}
		case tiersKey:
			if err := json.Unmarshal(raw, &o.Tiers); err != nil {
				return err
			}
		default:
			if strings.HasPrefix(key, "_") {
				continue
			}
			var entry Entry
			if err := json.Unmarshal(raw, &entry); err != nil {
				return err
			}
			o.Records[key] = &entry
		}
	}
	return nil
}

// WriteOverlay atomically writes the overlay file. Overlays sit next
// to the record store, never inside a dump directory.
func WriteOverlay(path string, overlay *Overlay) error {
	data, err := json.MarshalIndent(overlay, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal overlay")
	}
	data = append(data, '\n')
	if err := safeio.WriteFileAtomic(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write overlay %s", path)
	}
	return nil
}

// LoadOverlay reads an overlay file back.
func LoadOverlay(path string) (*Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapNotFound(err, "overlay not found")
		}
		return nil, errors.Wrapf(err, "failed to read overlay %s", path)
	}
	var overlay Overlay
	if err := json.Unmarshal(data, &overlay); err != nil {
		return nil, errors.Wrapf(err, "corrupt overlay %s", path)
	}
	return &overlay, nil
}
