package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Default upstream source. The curated corpus is extracted from the
// StampyAI alignment-research-dataset published on Hugging Face.
const (
	DefaultSource  = "alignment_research"
	DefaultDataset = "StampyAI/alignment-research-dataset"
	DefaultBaseURL = "https://huggingface.co/datasets/StampyAI/alignment-research-dataset/resolve/main"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Zone defaults
	v.SetDefault("zones.raw", "data/raw")
	v.SetDefault("zones.validated", "data/validated")
	v.SetDefault("zones.archive", "data/archive")

	// State ledger defaults
	v.SetDefault("state.path", "data/processing_state.json")

	// Catalog defaults
	v.SetDefault("database.path", "curator.db")

	// Extraction defaults
	v.SetDefault("extraction.source", DefaultSource)
	v.SetDefault("extraction.dataset", DefaultDataset)
	v.SetDefault("extraction.base_url", DefaultBaseURL)
	v.SetDefault("extraction.requests_per_minute", 60)     // authenticated tier
	v.SetDefault("extraction.anon_requests_per_minute", 10) // polite anonymous tier
	v.SetDefault("extraction.timeout_seconds", 300)
	v.SetDefault("extraction.min_date", "2020-01-01")
	v.SetDefault("extraction.sources", []string{
		"arxiv", "alignmentforum", "lesswrong", "eaforum",
		"distill", "deepmind", "openai", "anthropic", "miri",
		"gwern", "agi_safety_fundamentals",
	})
	v.SetDefault("extraction.keywords", []string{
		"alignment", "safety", "interpretability", "robustness",
		"capabilities", "x-risk", "existential",
	})
	v.SetDefault("extraction.min_text_length", 100)
	v.SetDefault("extraction.license", "MIT")
	v.SetDefault("extraction.attribution", "StampyAI / AI Safety Info")
	v.SetDefault("extraction.citation", "Kirchner et al. 2022, arXiv:2206.02841")

	// Validation defaults: embedded rule set, charset checking off
	v.SetDefault("validation.rules_path", "")
	v.SetDefault("validation.charset", "")

	// Scoring defaults: built-in weights
	v.SetDefault("scoring.config_path", "")

	// Migration defaults
	v.SetDefault("migration.pattern", "*.jsonl")
	v.SetDefault("migration.backup_dir", "data/backups")

	// Watch defaults
	v.SetDefault("watch.debounce_ms", 500)
	v.SetDefault("watch.max_runs_per_minute", 6)

	// Log defaults
	v.SetDefault("log.theme", "everforest")
	v.SetDefault("log.json", false)
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	// Bearer token for the upstream source. HF_TOKEN is the source's
	// native variable; CURATOR_SOURCE_TOKEN wins when both are set.
	v.BindEnv("extraction.token", "CURATOR_SOURCE_TOKEN", "HF_TOKEN")

	// Database path
	v.BindEnv("database.path", "CURATOR_DATABASE_PATH")

	// State ledger path
	v.BindEnv("state.path", "CURATOR_STATE_PATH")
}

// GetDatabasePath returns the configured catalog path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "curator.db" // Fallback default
	}
	return c.Database.Path
}

// GetStatePath returns the configured processing-state ledger path
func (c *Config) GetStatePath() string {
	if c.State.Path == "" {
		return "data/processing_state.json"
	}
	return c.State.Path
}

// GetLogTheme returns the log theme (default: everforest)
func (c *Config) GetLogTheme() string {
	if c.Log.Theme == "" {
		return "everforest"
	}
	return c.Log.Theme
}

// EffectiveRequestsPerMinute returns the rate-limit tier: authenticated
// when a token is configured, anonymous otherwise.
func (e *ExtractionConfig) EffectiveRequestsPerMinute() int {
	if e.Token != "" {
		if e.RequestsPerMinute > 0 {
			return e.RequestsPerMinute
		}
		return 60
	}
	if e.AnonRequestsPerMinute > 0 {
		return e.AnonRequestsPerMinute
	}
	return 10
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Zones: {Raw: %s, Validated: %s}, Database: %s, Extraction: {Source: %s}}",
		c.Zones.Raw, c.Zones.Validated, c.Database.Path, c.Extraction.Source)
}
