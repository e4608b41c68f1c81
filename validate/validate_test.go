package validate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberline/curator/dump"
	"github.com/emberline/curator/record"
	"github.com/emberline/curator/safeio"
)

func alignmentValidator(t *testing.T) *Validator {
	t.Helper()
	rules, err := BuiltinRuleSet("alignment_research")
	require.NoError(t, err)
	v, err := New(rules)
	require.NoError(t, err)
	return v
}

func validLine(id string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"source":"arxiv","title":"Paper %s","text":"body text","url":"https://arxiv.org/abs/%s","date_published":"2022-06-01"}`,
		id, id, id))
}

func TestBuiltinRuleSets(t *testing.T) {
	t.Run("alignment research", func(t *testing.T) {
		rules, err := BuiltinRuleSet("alignment_research")
		require.NoError(t, err)
		assert.Equal(t, "id", rules.IDField)
		assert.Contains(t, rules.Required, "date_published")
		assert.Equal(t, "ascii", rules.Charset)
	})

	t.Run("funding", func(t *testing.T) {
		rules, err := BuiltinRuleSet("funding")
		require.NoError(t, err)
		assert.Equal(t, "grant_id", rules.IDField)
		assert.True(t, rules.Fields["amount"].Numeric)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := BuiltinRuleSet("nope")
		assert.Error(t, err)
	})
}

func TestValidateRecord(t *testing.T) {
	v := alignmentValidator(t)

	t.Run("valid record has no issues", func(t *testing.T) {
		issues := v.ValidateRecord(validLine("2206.02841"), 1, map[string]int{})
		assert.Empty(t, issues)
	})

	t.Run("invalid JSON is a schema error", func(t *testing.T) {
		issues := v.ValidateRecord([]byte(`{broken`), 3, map[string]int{})
		require.Len(t, issues, 1)
		assert.Equal(t, CategorySchema, issues[0].Category)
		assert.Equal(t, 3, issues[0].Line)
	})

	t.Run("missing required field", func(t *testing.T) {
		line := []byte(`{"id":"x","source":"arxiv","title":"t","text":"b","url":"https://example.org"}`)
		issues := v.ValidateRecord(line, 1, map[string]int{})
		require.Len(t, issues, 1)
		assert.Equal(t, CategoryMissingField, issues[0].Category)
		assert.Equal(t, "date_published", issues[0].Field)
	})

	t.Run("duplicate id reports first line", func(t *testing.T) {
		seen := map[string]int{}
		require.Empty(t, v.ValidateRecord(validLine("dup"), 1, seen))
		issues := v.ValidateRecord(validLine("dup"), 9, seen)
		require.Len(t, issues, 1)
		assert.Equal(t, CategoryDuplicateID, issues[0].Category)
		assert.Contains(t, issues[0].Message, "line 1")
	})

	t.Run("source outside allowed set", func(t *testing.T) {
		line := []byte(`{"id":"x","source":"reddit","title":"t","text":"b","url":"https://example.org","date_published":"2022-06-01"}`)
		issues := v.ValidateRecord(line, 1, map[string]int{})
		require.Len(t, issues, 1)
		assert.Equal(t, CategorySchema, issues[0].Category)
		assert.Equal(t, "source", issues[0].Field)
	})

	t.Run("url without scheme", func(t *testing.T) {
		line := []byte(`{"id":"x","source":"arxiv","title":"t","text":"b","url":"ftp://example.org","date_published":"2022-06-01"}`)
		issues := v.ValidateRecord(line, 1, map[string]int{})
		require.Len(t, issues, 1)
		assert.Equal(t, "url", issues[0].Field)
	})

	t.Run("full timestamp accepted by bare date format", func(t *testing.T) {
		line := []byte(`{"id":"x","source":"arxiv","title":"t","text":"b","url":"https://example.org","date_published":"2022-06-01T08:30:00Z"}`)
		assert.Empty(t, v.ValidateRecord(line, 1, map[string]int{}))
	})

	t.Run("malformed date rejected", func(t *testing.T) {
		line := []byte(`{"id":"x","source":"arxiv","title":"t","text":"b","url":"https://example.org","date_published":"June 2022"}`)
		issues := v.ValidateRecord(line, 1, map[string]int{})
		require.Len(t, issues, 1)
		assert.Equal(t, "date_published", issues[0].Field)
	})

	t.Run("smart punctuation is an encoding error with suggestion", func(t *testing.T) {
		line := []byte(`{"id":"x","source":"arxiv","title":"it’s fine","text":"b","url":"https://example.org","date_published":"2022-06-01"}`)
		issues := v.ValidateRecord(line, 1, map[string]int{})
		require.Len(t, issues, 1)
		assert.Equal(t, CategoryEncoding, issues[0].Category)
		assert.Equal(t, "title", issues[0].Field)
		assert.Equal(t, `"'"`, issues[0].Suggestion)
	})
}

func TestValidateFundingRecords(t *testing.T) {
	rules, err := BuiltinRuleSet("funding")
	require.NoError(t, err)
	v, err := New(rules)
	require.NoError(t, err)

	tests := []struct {
		name    string
		line    string
		invalid bool
	}{
		{"plain numeric amount", `{"grant_id":"g1","amount":50000,"date":"2023-01-15","source":"openphil"}`, false},
		{"currency string amount", `{"grant_id":"g2","amount":"$1,250.00","date":"2023/01/15","source":"openphil"}`, false},
		{"us date format", `{"grant_id":"g3","amount":10,"date":"01/15/2023","source":"openphil"}`, false},
		{"non-numeric amount", `{"grant_id":"g4","amount":"ten","date":"2023-01-15","source":"openphil"}`, true},
		{"unparseable date", `{"grant_id":"g5","amount":10,"date":"Jan 15","source":"openphil"}`, true},
	}
	for _, tt := range tests {
		issues := v.ValidateRecord([]byte(tt.line), 1, map[string]int{})
		if tt.invalid != (len(issues) > 0) {
			t.Errorf("%s: issues = %v, want invalid=%v", tt.name, issues, tt.invalid)
		}
	}
}

func TestValidateDumpNonDestructive(t *testing.T) {
	root := t.TempDir()
	w, err := dump.NewWriter(root, "alignment_research")
	require.NoError(t, err)

	require.NoError(t, w.WriteRecord(&record.Record{
		ID: "a", Source: "arxiv", Title: "ok", Text: "body",
		URL: "https://arxiv.org/abs/a", DatePublished: "2022-01-01",
	}))
	require.NoError(t, w.WriteRaw([]byte(`{"id":"b","source":"reddit","title":"bad","text":"body","url":"https://x.org","date_published":"2022-01-01"}`)))
	require.NoError(t, w.Finalize(&dump.Metadata{
		SourceURL:        "https://example.org",
		ExtractionMethod: "api",
	}))

	before, err := safeio.Checksum(dump.DataPath(w.Dir()))
	require.NoError(t, err)

	v := alignmentValidator(t)
	report, err := v.ValidateDump(w.Dir())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Valid)
	assert.Equal(t, 1, report.Invalid)
	assert.Equal(t, 1, report.ErrorsByType.Schema)
	assert.False(t, report.Pass())
	assert.True(t, report.Metadata.Pass())

	after, err := safeio.Checksum(dump.DataPath(w.Dir()))
	require.NoError(t, err)
	assert.Equal(t, before, after, "validation must never alter dump bytes")
}

func TestValidateMetadata(t *testing.T) {
	t.Run("complete metadata passes", func(t *testing.T) {
		meta := &dump.Metadata{
			ExtractionDate:   "2024-01-01T00:00:00Z",
			SourceName:       "alignment_research",
			SourceURL:        "https://example.org",
			ExtractionMethod: "api",
			DataFormat:       "jsonl",
			ExtractionStatus: "complete",
			RecordCount:      2,
		}
		report := ValidateMetadata(meta, 2)
		assert.True(t, report.Pass())
		assert.Empty(t, report.Warnings)
	})

	t.Run("count mismatch is a warning only", func(t *testing.T) {
		meta := &dump.Metadata{
			ExtractionDate:   "2024-01-01T00:00:00Z",
			SourceName:       "s",
			SourceURL:        "https://example.org",
			ExtractionMethod: "api",
			DataFormat:       "jsonl",
			ExtractionStatus: "complete",
			RecordCount:      5,
		}
		report := ValidateMetadata(meta, 3)
		assert.True(t, report.Pass())
		require.Len(t, report.Warnings, 1)
		assert.Contains(t, report.Warnings[0], "claims 5")
	})

	t.Run("unknown method and missing fields fail", func(t *testing.T) {
		meta := &dump.Metadata{ExtractionMethod: "telepathy"}
		report := ValidateMetadata(meta, 0)
		assert.False(t, report.Pass())
		assert.NotEmpty(t, report.Issues)
	})

	t.Run("nil metadata fails", func(t *testing.T) {
		report := ValidateMetadata(nil, 0)
		assert.False(t, report.Pass())
	})
}

func TestReplaceNonASCII(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"it’s “fine”", `it's "fine"`},
		{"a—b", "a--b"},
		{"wait…", "wait..."},
		{"keep ascii", "keep ascii"},
		{"drop \U0001F600 emoji", "drop  emoji"},
	}
	for _, tt := range tests {
		if got := ReplaceNonASCII(tt.in); got != tt.want {
			t.Errorf("ReplaceNonASCII(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
