package extract

import (
	"strings"
	"testing"

	"github.com/emberline/curator/record"
)

func TestFilterCheck(t *testing.T) {
	filter := &Filter{
		MinDate:       "2020-01-01",
		Watermark:     "2023-06-01T00:00:00Z",
		Sources:       []string{"arxiv", "lesswrong"},
		Keywords:      []string{"alignment", "safety"},
		MinTextLength: 100,
	}

	longBody := strings.Repeat("interpretability research body text ", 10)

	tests := []struct {
		name string
		rec  record.Record
		want Reject
	}{
		{
			name: "passes all criteria",
			rec: record.Record{
				Source:        "arxiv",
				Title:         "Scalable alignment methods",
				Text:          longBody,
				DatePublished: "2023-08-15",
			},
			want: RejectNone,
		},
		{
			name: "missing date",
			rec: record.Record{
				Source: "arxiv",
				Title:  "Alignment",
				Text:   longBody,
			},
			want: RejectNoDate,
		},
		{
			name: "at watermark",
			rec: record.Record{
				Source:        "arxiv",
				Title:         "Alignment",
				Text:          longBody,
				DatePublished: "2023-06-01T00:00:00Z",
			},
			want: RejectBeforeWatermark,
		},
		{
			name: "date-only form of the watermark day",
			rec: record.Record{
				Source:        "arxiv",
				Title:         "Alignment",
				Text:          longBody,
				DatePublished: "2023-06-01",
			},
			want: RejectBeforeWatermark,
		},
		{
			name: "before min date",
			rec: record.Record{
				Source:        "arxiv",
				Title:         "Alignment",
				Text:          longBody,
				DatePublished: "2019-05-01",
			},
			want: RejectBeforeWatermark, // watermark fires first
		},
		{
			name: "source not in allowlist",
			rec: record.Record{
				Source:        "reddit",
				Title:         "Alignment",
				Text:          longBody,
				DatePublished: "2023-08-15",
			},
			want: RejectSource,
		},
		{
			name: "no keyword match",
			rec: record.Record{
				Source:        "arxiv",
				Title:         "Weather prediction models",
				Text:          strings.Repeat("meteorology ", 20),
				DatePublished: "2023-08-15",
			},
			want: RejectKeywords,
		},
		{
			name: "keyword match in title only",
			rec: record.Record{
				Source:        "arxiv",
				Title:         "AI Safety via debate",
				Text:          strings.Repeat("methods section ", 20),
				DatePublished: "2023-08-15",
			},
			want: RejectNone,
		},
		{
			name: "keyword match is case-insensitive",
			rec: record.Record{
				Source:        "arxiv",
				Title:         "ALIGNMENT overview",
				Text:          strings.Repeat("survey text ", 20),
				DatePublished: "2023-08-15",
			},
			want: RejectNone,
		},
		{
			name: "text too short",
			rec: record.Record{
				Source:        "arxiv",
				Title:         "Alignment note",
				Text:          "short",
				DatePublished: "2023-08-15",
			},
			want: RejectTooShort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filter.Check(&tt.rec)
			if got != tt.want {
				t.Errorf("Check() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFilterMinDateWithoutWatermark(t *testing.T) {
	filter := &Filter{MinDate: "2020-01-01"}

	rec := record.Record{DatePublished: "2019-12-31", Text: "x"}
	if got := filter.Check(&rec); got != RejectBeforeMinDate {
		t.Errorf("Check() = %s, want %s", got, RejectBeforeMinDate)
	}

	rec.DatePublished = "2020-01-01"
	if got := filter.Check(&rec); got != RejectNone {
		t.Errorf("Check() = %s, want %s", got, RejectNone)
	}
}

func TestFilterZeroValueAdmitsDatedRecords(t *testing.T) {
	filter := &Filter{}

	rec := record.Record{Source: "anything", DatePublished: "1999-01-01"}
	if got := filter.Check(&rec); got != RejectNone {
		t.Errorf("Check() = %s, want %s", got, RejectNone)
	}

	rec.DatePublished = ""
	if got := filter.Check(&rec); got != RejectNoDate {
		t.Errorf("Check() = %s, want %s", got, RejectNoDate)
	}
}

func TestRejectString(t *testing.T) {
	for reject, want := range map[Reject]string{
		RejectNone:            "none",
		RejectNoDate:          "no_date",
		RejectBeforeWatermark: "before_watermark",
		RejectBeforeMinDate:   "before_min_date",
		RejectSource:          "source_not_allowed",
		RejectKeywords:        "no_keyword_match",
		RejectTooShort:        "text_too_short",
	} {
		if got := reject.String(); got != want {
			t.Errorf("Reject(%d).String() = %q, want %q", reject, got, want)
		}
	}
}
