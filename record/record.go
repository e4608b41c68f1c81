// Package record defines the curated research record that flows through
// extraction, validation, scoring, and transformation. A record is one JSON
// object on a JSONL line; the core fields are required by the schema, the
// optional fields are carried through verbatim when the upstream source
// provides them.
package record

import (
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"github.com/emberline/curator/errors"
)

// Record is a single research item in the standardized curation schema.
type Record struct {
	ID            string `json:"id"`
	Source        string `json:"source"`
	Title         string `json:"title"`
	Text          string `json:"text"`
	URL           string `json:"url"`
	DatePublished string `json:"date_published"`

	// Optional fields preserved from the upstream dataset when present.
	Authors         []string    `json:"authors,omitempty"`
	Abstract        string      `json:"abstract,omitempty"`
	DOI             string      `json:"doi,omitempty"`
	PrimaryCategory string      `json:"primary_category,omitempty"`
	Categories      []string    `json:"categories,omitempty"`
	Tags            []string    `json:"tags,omitempty"`
	SourceType      string      `json:"source_type,omitempty"`
	ConvertedWith   string      `json:"converted_with,omitempty"`
	AlignmentText   string      `json:"alignment_text,omitempty"`
	ConfidenceScore json.Number `json:"confidence_score,omitempty"`
	JournalRef      string      `json:"journal_ref,omitempty"`
	AuthorComment   string      `json:"author_comment,omitempty"`
	CitationLevel   json.Number `json:"citation_level,omitempty"`

	Provenance *Provenance `json:"_provenance,omitempty"`
}

// Provenance documents where a record came from and what was done to it
// during ingestion. It is attached once at extraction time and never
// modified afterwards.
type Provenance struct {
	SourceSystem     string   `json:"source_system"`
	IngestionDate    string   `json:"ingestion_date"`
	License          string   `json:"license"`
	Attribution      string   `json:"attribution"`
	Citation         string   `json:"citation"`
	ExtractionMethod string   `json:"extraction_method"`
	Transformations  []string `json:"transformations"`
}

// publishedLayouts are the accepted forms of date_published, most specific
// first. Upstream sources mix full timestamps and bare dates.
var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Decode parses one JSONL line into a Record.
func Decode(line []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, errors.Wrap(err, "failed to decode record")
	}
	return &rec, nil
}

// Encode marshals the record as a single JSON object suitable for one
// JSONL line (no trailing newline).
func (r *Record) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode record %s", r.ID)
	}
	return data, nil
}

// PublishedTime parses date_published. An empty or unparseable date
// returns an error; callers decide whether that is a filter miss or a
// validation failure.
func (r *Record) PublishedTime() (time.Time, error) {
	raw := strings.TrimSpace(r.DatePublished)
	if raw == "" {
		return time.Time{}, errors.New("record has no date_published")
	}
	for _, layout := range publishedLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, errors.Newf("unparseable date_published %q", raw)
}

// PublishedYear returns the four-digit year prefix of date_published, or
// "" when the date is missing or malformed. Scoring keys off the year
// string rather than a parsed time so partial dates still count.
func (r *Record) PublishedYear() string {
	if len(r.DatePublished) < 4 {
		return ""
	}
	year := r.DatePublished[:4]
	for _, ch := range year {
		if !unicode.IsDigit(ch) {
			return ""
		}
	}
	return year
}

// SearchText returns the lowercased text+title blob used for keyword
// matching during extraction filtering.
func (r *Record) SearchText() string {
	return strings.ToLower(r.Text + " " + r.Title)
}
