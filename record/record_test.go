package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	line := []byte(`{"id":"2206.02841","source":"arxiv","title":"A Dataset","text":"body","url":"https://arxiv.org/abs/2206.02841","date_published":"2022-06-01T00:00:00Z","authors":["Kirchner"],"citation_level":1}`)

	rec, err := Decode(line)
	require.NoError(t, err)
	assert.Equal(t, "2206.02841", rec.ID)
	assert.Equal(t, "arxiv", rec.Source)
	assert.Equal(t, []string{"Kirchner"}, rec.Authors)
	assert.Equal(t, "1", rec.CitationLevel.String())

	_, err = Decode([]byte(`{not json`))
	assert.Error(t, err)
}

func TestEncodeOmitsEmptyOptionals(t *testing.T) {
	rec := &Record{ID: "x", Source: "arxiv", Title: "t", Text: "b", URL: "u", DatePublished: "2021-01-01"}
	data, err := rec.Encode()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "authors")
	assert.NotContains(t, string(data), "_provenance")
}

func TestPublishedTime(t *testing.T) {
	tests := []struct {
		date    string
		wantErr bool
	}{
		{"2022-06-01T00:00:00Z", false},
		{"2022-06-01T12:30:00", false},
		{"2022-06-01 12:30:00", false},
		{"2022-06-01", false},
		{"", true},
		{"June 2022", true},
	}
	for _, tt := range tests {
		rec := &Record{DatePublished: tt.date}
		_, err := rec.PublishedTime()
		if tt.wantErr != (err != nil) {
			t.Errorf("PublishedTime(%q) error = %v, wantErr %v", tt.date, err, tt.wantErr)
		}
	}
}

func TestPublishedYear(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"2019-12-01", "2019"},
		{"2022-06-01T00:00:00Z", "2022"},
		{"20x2-06-01", ""},
		{"n/a", ""},
		{"", ""},
	}
	for _, tt := range tests {
		rec := &Record{DatePublished: tt.date}
		if got := rec.PublishedYear(); got != tt.want {
			t.Errorf("PublishedYear(%q) = %q, want %q", tt.date, got, tt.want)
		}
	}
}

func TestSearchText(t *testing.T) {
	rec := &Record{Title: "AI Alignment", Text: "Mesa-Optimization"}
	assert.Equal(t, "mesa-optimization ai alignment", rec.SearchText())
}
