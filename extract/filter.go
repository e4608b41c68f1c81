package extract

import (
	"strings"

	"github.com/emberline/curator/record"
)

// Reject classifies why a record was dropped by the filter. RejectNone
// means the record passed.
type Reject int

const (
	RejectNone Reject = iota
	RejectNoDate
	RejectBeforeWatermark
	RejectBeforeMinDate
	RejectSource
	RejectKeywords
	RejectTooShort
)

// String returns the counter key used in stats and logs.
func (r Reject) String() string {
	switch r {
	case RejectNone:
		return "none"
	case RejectNoDate:
		return "no_date"
	case RejectBeforeWatermark:
		return "before_watermark"
	case RejectBeforeMinDate:
		return "before_min_date"
	case RejectSource:
		return "source_not_allowed"
	case RejectKeywords:
		return "no_keyword_match"
	case RejectTooShort:
		return "text_too_short"
	}
	return "unknown"
}

// Filter holds the conjunctive acceptance criteria for extracted
// records. All date comparisons are lexicographic over ISO-8601
// strings, which orders correctly and tolerates the mixed
// date/timestamp formats the upstream emits.
type Filter struct {
	// MinDate excludes records published before it (YYYY-MM-DD).
	MinDate string

	// Watermark excludes records at or before the previous complete
	// extraction. Empty means no delta cutoff.
	Watermark string

	// Sources is the allowlist; empty admits every source.
	Sources []string

	// Keywords require at least one case-insensitive match in title or
	// body. Empty disables the check.
	Keywords []string

	// MinTextLength excludes records with shorter bodies.
	MinTextLength int
}

// Check returns RejectNone when rec passes every criterion, otherwise
// the first reason that failed. Order matches the acceptance pipeline:
// date presence, watermark, min date, source, keywords, length.
func (f *Filter) Check(rec *record.Record) Reject {
	if rec.DatePublished == "" {
		return RejectNoDate
	}

	if f.Watermark != "" && rec.DatePublished <= f.Watermark {
		return RejectBeforeWatermark
	}

	if f.MinDate != "" && rec.DatePublished < f.MinDate {
		return RejectBeforeMinDate
	}

	if len(f.Sources) > 0 {
		allowed := false
		for _, s := range f.Sources {
			if rec.Source == s {
				allowed = true
				break
			}
		}
		if !allowed {
			return RejectSource
		}
	}

	if len(f.Keywords) > 0 {
		combined := rec.SearchText()
		matched := false
		for _, kw := range f.Keywords {
			if strings.Contains(combined, strings.ToLower(kw)) {
				matched = true
				break
			}
		}
		if !matched {
			return RejectKeywords
		}
	}

	if f.MinTextLength > 0 && len(rec.Text) < f.MinTextLength {
		return RejectTooShort
	}

	return RejectNone
}
