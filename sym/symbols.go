// Package sym defines canonical symbols for curator pipeline stages and
// system markers. These symbols are stable across CLI output, logs, and
// documentation.
package sym

// Pipeline stage symbols — one per engine, in pipeline order.
const (
	Fetch    = "⌬" // snapshot retrieval from the bulk source
	Extract  = "⨳" // extraction/delta detection into a dump
	Migrate  = "⟶" // zone-to-zone migration
	Validate = "⊨" // structural validation of records
	Score    = "✦" // quality scoring and tiering
	Xform    = "⋈" // tier filter / overlay join transform
)

// System infrastructure symbols.
const (
	DB       = "⊔" // catalog/storage layer
	State    = "≡" // configuration and processing state
	Dump     = "▤" // dump directories and metadata
	Watch    = "꩜" // inbox watcher
	Manifest = "▣" // publishing manifest
	Release  = "✿" // version/release management
)

// entry binds a glyph to its command name and description.
type entry struct {
	glyph       string
	command     string
	description string
}

// registry is the canonical mapping between glyphs and stage metadata.
// Order matches pipeline order, infrastructure last.
var registry = []entry{
	{Fetch, "fetch", "Retrieve a bulk-source snapshot"},
	{Extract, "extract", "Pull new records into a dump"},
	{Migrate, "migrate", "Move files between zones exactly once"},
	{Validate, "validate", "Certify records against a rule set"},
	{Score, "score", "Assign deterministic quality tiers"},
	{Xform, "transform", "Join overlays and filter by tier"},
	{DB, "", "Catalog/storage layer"},
	{State, "config", "Configuration and processing state"},
	{Dump, "", "Dump directories and metadata"},
	{Watch, "", "Inbox watcher"},
	{Manifest, "", "Publishing manifest"},
	{Release, "", "Version/release management"},
}

// Lookup tables built from the registry at init time.
var (
	glyphToCommand map[string]string
	commandToGlyph map[string]string
)

func init() {
	glyphToCommand = make(map[string]string, len(registry))
	commandToGlyph = make(map[string]string, len(registry))
	for _, e := range registry {
		glyphToCommand[e.glyph] = e.command
		if e.command != "" {
			commandToGlyph[e.command] = e.glyph
		}
	}
}

// Command returns the CLI command name for a glyph, empty for
// infrastructure symbols with no command.
func Command(glyph string) string {
	return glyphToCommand[glyph]
}

// FromCommand returns the glyph for a CLI command name, empty if unknown.
func FromCommand(command string) string {
	return commandToGlyph[command]
}

// StageOrder defines the canonical pipeline ordering for summaries and docs.
var StageOrder = []string{Fetch, Extract, Migrate, Validate, Score, Xform}

// Descriptions provides human-readable explanations keyed by glyph.
var Descriptions = func() map[string]string {
	m := make(map[string]string, len(registry))
	for _, e := range registry {
		m[e.glyph] = e.description
	}
	return m
}()
