package testing

import (
	"testing"
	"time"

	"github.com/emberline/curator/dump"
	"github.com/emberline/curator/record"
)

// TestRecord returns a minimal valid record with the given id, suitable
// for feeding writers and validators.
func TestRecord(id string) *record.Record {
	return &record.Record{
		ID:            id,
		Source:        "arxiv",
		Title:         "Test record " + id,
		Text:          "Body text for record " + id,
		URL:           "https://example.org/" + id,
		DatePublished: "2022-06-01",
	}
}

// SeedDump writes a finalized dump directory under root for source and
// returns its path. Records default to two synthetic entries when none
// are given; extractionDate stamps the metadata watermark.
func SeedDump(t *testing.T, root, source string, extractionDate time.Time, records ...*record.Record) string {
	t.Helper()

	if len(records) == 0 {
		records = []*record.Record{
			TestRecord(source + "-001"),
			TestRecord(source + "-002"),
		}
	}

	w, err := dump.NewWriter(root, source)
	if err != nil {
		t.Fatalf("Failed to open dump writer: %v", err)
	}
	for _, rec := range records {
		if err := w.WriteRecord(rec); err != nil {
			t.Fatalf("Failed to write record: %v", err)
		}
	}

	meta := &dump.Metadata{ExtractionDate: extractionDate.UTC().Format(time.RFC3339)}
	if err := w.Finalize(meta); err != nil {
		t.Fatalf("Failed to finalize dump: %v", err)
	}

	return w.Dir()
}
