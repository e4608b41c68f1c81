package transform

import (
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"

	"github.com/emberline/curator/record"
	"github.com/emberline/curator/validate"
)

// Event is one timeline entry in the publishable record set. Field
// names are part of the serveable contract with downstream consumers.
type Event struct {
	ID                       string   `json:"id"`
	Title                    string   `json:"title"`
	Year                     int      `json:"year"`
	Category                 string   `json:"category"`
	Description              string   `json:"description"`
	Impacts                  []Impact `json:"impacts"`
	Sources                  []string `json:"sources"`
	Tags                     []string `json:"tags"`
	Rarity                   string   `json:"rarity"`
	PdoomImpact              *float64 `json:"pdoom_impact"`
	SafetyResearcherReaction string   `json:"safety_researcher_reaction"`
	MediaReaction            string   `json:"media_reaction"`
	SourceID                 string   `json:"source_id"`
}

// Impact is a single game-variable adjustment attached to an event.
type Impact struct {
	Variable  string  `json:"variable"`
	Change    int     `json:"change"`
	Condition *string `json:"condition"`
}

// Event categories.
const (
	CategoryTechnicalResearch = "technical_research_breakthrough"
	CategoryPolicyDevelopment = "policy_development"
	CategoryCapabilityAdvance = "capability_advance"
	CategoryPublicAwareness   = "public_awareness"
)

// Rarity levels.
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityLegendary = "legendary"
)

const (
	maxEventIDLen     = 100
	maxTitleRunes     = 200
	maxDescRunes      = 1000
	minDescRunes      = 20
	maxTags           = 10
	defaultYear       = 2020
	rareArxivTextLen  = 20000
	rareForumTextLen  = 10000
	categoryScanRunes = 500
)

var (
	eventIDInvalid  = regexp.MustCompile(`[^a-z0-9_]`)
	eventIDCollapse = regexp.MustCompile(`_+`)
)

// EventID derives a snake_case identifier from a record's source and
// the first sixteen characters of its ID.
func EventID(source, recordID string) string {
	if source == "" {
		source = "unknown"
	}
	id := recordID
	if len(id) > 16 {
		id = id[:16]
	}
	eventID := strings.ToLower(source + "_" + id)
	eventID = eventIDInvalid.ReplaceAllString(eventID, "_")
	eventID = eventIDCollapse.ReplaceAllString(eventID, "_")
	eventID = strings.Trim(eventID, "_")
	if len(eventID) > maxEventIDLen {
		eventID = eventID[:maxEventIDLen]
	}
	return eventID
}

// BuildEvent converts one research record into a timeline event. Pure
// and deterministic: reaction choices hash the record ID rather than
// drawing from shared random state.
func BuildEvent(rec *record.Record) *Event {
	var sources []string
	if rec.URL != "" {
		sources = []string{rec.URL}
	}

	tags := rec.Tags
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}

	return &Event{
		ID:                       EventID(rec.Source, rec.ID),
		Title:                    asciiTruncate(rec.Title, maxTitleRunes),
		Year:                     eventYear(rec),
		Category:                 categorize(rec),
		Description:              describe(rec),
		Impacts:                  impacts(rec),
		Sources:                  sources,
		Tags:                     tags,
		Rarity:                   rarity(rec),
		PdoomImpact:              nil,
		SafetyResearcherReaction: pick(rec.ID, safetyReactions),
		MediaReaction:            pick(rec.ID+"|media", mediaReactions(rec.Source)),
		SourceID:                 rec.ID,
	}
}

func eventYear(rec *record.Record) int {
	if year := rec.PublishedYear(); year != "" {
		if n, err := strconv.Atoi(year); err == nil {
			return n
		}
	}
	return defaultYear
}

func categorize(rec *record.Record) string {
	title := strings.ToLower(rec.Title)
	text := strings.ToLower(truncateRunes(rec.Text, categoryScanRunes))

	switch rec.Source {
	case "arxiv", "distill":
		return CategoryTechnicalResearch
	}
	if strings.Contains(text, "governance") || strings.Contains(title, "policy") || strings.Contains(text, "regulation") {
		return CategoryPolicyDevelopment
	}
	if strings.Contains(title, "gpt") || strings.Contains(title, "claude") || strings.Contains(title, "language model") {
		return CategoryCapabilityAdvance
	}
	switch rec.Source {
	case "lesswrong", "alignmentforum", "eaforum":
		return CategoryPublicAwareness
	}
	return CategoryTechnicalResearch
}

func rarity(rec *record.Record) string {
	textLen := len(rec.Text)
	switch {
	case rec.Source == "distill":
		return RarityLegendary
	case rec.Source == "arxiv" && textLen > rareArxivTextLen:
		return RarityRare
	case rec.Source == "arxiv":
		return RarityCommon
	case textLen > rareForumTextLen:
		return RarityRare
	}
	return RarityCommon
}

func impacts(rec *record.Record) []Impact {
	academic := rec.Source == "arxiv" || rec.Source == "distill"

	research := 10
	if academic {
		research = 15
	}
	out := []Impact{{Variable: "research", Change: research}}

	if academic {
		out = append(out, Impact{Variable: "papers", Change: 10})
	}
	switch rec.Source {
	case "arxiv":
		out = append(out, Impact{Variable: "vibey_doom", Change: 3})
	case "distill":
		out = append(out, Impact{Variable: "vibey_doom", Change: 5})
	}
	return out
}

// describe builds the event description from the abstract, falling
// back to the first paragraph of the body. Published descriptions stay
// within the ASCII charset.
func describe(rec *record.Record) string {
	desc := rec.Abstract
	if desc == "" {
		if para, _, found := strings.Cut(rec.Text, "\n\n"); found {
			desc = para
		} else {
			desc = truncateRunes(rec.Text, categoryScanRunes)
		}
	}
	desc = strings.TrimSpace(validate.ReplaceNonASCII(desc))

	if runes := []rune(desc); len(runes) > maxDescRunes {
		desc = string(runes[:maxDescRunes-3]) + "..."
	}
	if len([]rune(desc)) < minDescRunes {
		desc = "Research publication: " + asciiTruncate(rec.Title, maxTitleRunes)
	}
	return desc
}

var safetyReactions = []string{
	"Important contribution to the field",
	"Advances our understanding of AI safety",
	"Valuable research for alignment",
	"Significant technical contribution",
	"Notable work on AI safety",
}

func mediaReactions(source string) []string {
	switch source {
	case "arxiv":
		return []string{
			"Published in academic venue",
			"Academic research release",
			"Peer-reviewed publication",
		}
	case "distill":
		return []string{
			"Featured in Distill",
			"Interactive research publication",
			"Visual machine learning research",
		}
	}
	return []string{
		"Shared in AI safety community",
		"Published online",
		"Community discussion",
	}
}

// pick selects deterministically from choices by hashing the key.
func pick(key string, choices []string) string {
	h := fnv.New32a()
	h.Write([]byte(key))
	return choices[h.Sum32()%uint32(len(choices))]
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func asciiTruncate(s string, n int) string {
	return validate.ReplaceNonASCII(truncateRunes(s, n))
}
