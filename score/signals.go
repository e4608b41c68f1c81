package score

import (
	"math"
	"regexp"
	"unicode/utf8"

	"github.com/emberline/curator/record"
)

// newsletterPatterns flag aggregation posts by title. Matched
// case-insensitively against the whole title.
var newsletterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\[AN #\d+\]`),
	regexp.MustCompile(`(?i)alignment newsletter`),
	regexp.MustCompile(`(?i)newsletter`),
	regexp.MustCompile(`(?i)linkpost`),
	regexp.MustCompile(`(?i)link post`),
	regexp.MustCompile(`(?i)\[linkpost\]`),
	regexp.MustCompile(`(?i)links for \w+`),
	regexp.MustCompile(`(?i)weekly.*digest`),
	regexp.MustCompile(`(?i)monthly.*roundup`),
	regexp.MustCompile(`(?i)weekly.*review`),
	regexp.MustCompile(`(?i)monthly.*review`),
	regexp.MustCompile(`(?i)^links:`),
}

// strongNewsletterPatterns are additionally checked against the opening
// of the body text; only unambiguous markers qualify so a paper that
// merely mentions newsletters is not misflagged.
var strongNewsletterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\[AN #\d+\]`),
	regexp.MustCompile(`(?i)alignment newsletter`),
}

// textPrefixRunes is how much of the body participates in newsletter
// detection.
const textPrefixRunes = 500

// Length thresholds for the text-length signals.
const (
	textLength5K  = 5000
	textLength10K = 10000
)

// yearCutoff is the last year counting as pre-2020 for the vintage
// signal. The comparison is lexicographic over the four-digit year.
const yearCutoff = "2019"

// IsNewsletter reports whether a record looks like a newsletter or
// link-aggregation post rather than original research.
func IsNewsletter(title, text string) bool {
	for _, re := range newsletterPatterns {
		if re.MatchString(title) {
			return true
		}
	}
	prefix := text
	if utf8.RuneCountInString(prefix) > textPrefixRunes {
		runes := []rune(prefix)
		prefix = string(runes[:textPrefixRunes])
	}
	for _, re := range strongNewsletterPatterns {
		if re.MatchString(prefix) {
			return true
		}
	}
	return false
}

// Signals are the raw facts a score was computed from, kept alongside
// the score so tier assignments can be audited without re-reading the
// record.
type Signals struct {
	Source       string `json:"source"`
	HasAuthors   bool   `json:"has_authors"`
	IsNewsletter bool   `json:"is_newsletter"`
	TextLength   int    `json:"text_length"`
	Year         string `json:"year"`
	HasTags      bool   `json:"has_tags"`
}

// DetectSignals evaluates every signal detector over one record. Pure:
// no state, no randomness, no record mutation.
func DetectSignals(rec *record.Record) Signals {
	return Signals{
		Source:       rec.Source,
		HasAuthors:   len(rec.Authors) > 0,
		IsNewsletter: IsNewsletter(rec.Title, rec.Text),
		TextLength:   utf8.RuneCountInString(rec.Text),
		Year:         rec.PublishedYear(),
		HasTags:      len(rec.Tags) > 0,
	}
}

// Score sums the configured weights over detected signals. The
// summation order is fixed so floating-point results are bit-identical
// across runs.
func (s Signals) Score(cfg *Config) float64 {
	var score float64
	switch s.Source {
	case "arxiv":
		score += cfg.weight(SignalSourceArxiv)
	case "distill":
		score += cfg.weight(SignalSourceDistill)
	}
	if s.HasAuthors {
		score += cfg.weight(SignalHasAuthors)
	}
	if !s.IsNewsletter {
		score += cfg.weight(SignalNotNewsletter)
	}
	if s.TextLength > textLength5K {
		score += cfg.weight(SignalTextLength5K)
	}
	if s.TextLength > textLength10K {
		score += cfg.weight(SignalTextLength10K)
	}
	if s.Year != "" && s.Year <= yearCutoff {
		score += cfg.weight(SignalYearPre2020)
	}
	if s.HasTags {
		score += cfg.weight(SignalHasTags)
	}
	return roundScore(score)
}

// roundScore keeps scores at one decimal place.
func roundScore(score float64) float64 {
	return math.Round(score*10) / 10
}
