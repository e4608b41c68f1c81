package config

// Config represents the core curator configuration
type Config struct {
	Zones      ZonesConfig      `mapstructure:"zones"`
	State      StateConfig      `mapstructure:"state"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Validation ValidationConfig `mapstructure:"validation"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Migration  MigrationConfig  `mapstructure:"migration"`
	Watch      WatchConfig      `mapstructure:"watch"`
	Log        LogConfig        `mapstructure:"log"`
}

// ZonesConfig names the pipeline zones records move through. Zones are
// plain directories; the migration engine is the only thing that moves
// files between them.
type ZonesConfig struct {
	Raw       string `mapstructure:"raw"`       // landing zone for fresh dumps
	Validated string `mapstructure:"validated"` // zone for schema-certified dumps
	Archive   string `mapstructure:"archive"`   // superseded dumps (moved, never deleted)
}

// StateConfig locates the processing-state ledger
type StateConfig struct {
	Path string `mapstructure:"path"`
}

// DatabaseConfig configures the SQLite catalog
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ExtractionConfig configures the bulk-source extraction engine
type ExtractionConfig struct {
	Source  string `mapstructure:"source"`   // source system name used in dump directories
	Dataset string `mapstructure:"dataset"`  // upstream dataset identifier
	BaseURL string `mapstructure:"base_url"` // upstream file endpoint
	Token   string `mapstructure:"token"`    // bearer token; raises rate limits when set

	RequestsPerMinute     int `mapstructure:"requests_per_minute"`      // authenticated tier
	AnonRequestsPerMinute int `mapstructure:"anon_requests_per_minute"` // anonymous tier
	TimeoutSeconds        int `mapstructure:"timeout_seconds"`          // per-request timeout

	// Content filters, all conjunctive
	MinDate       string   `mapstructure:"min_date"` // YYYY-MM-DD
	Sources       []string `mapstructure:"sources"`  // source allowlist (empty = all)
	Keywords      []string `mapstructure:"keywords"` // any-of match in title or text
	MinTextLength int      `mapstructure:"min_text_length"`

	// Provenance attached to every extracted record
	License     string `mapstructure:"license"`
	Attribution string `mapstructure:"attribution"`
	Citation    string `mapstructure:"citation"`
}

// ValidationConfig configures the validation engine
type ValidationConfig struct {
	RulesPath string `mapstructure:"rules_path"` // YAML rule set; empty = embedded defaults
	Charset   string `mapstructure:"charset"`    // "ascii" enables charset checking, empty disables
}

// ScoringConfig configures the quality scoring engine
type ScoringConfig struct {
	ConfigPath string `mapstructure:"config_path"` // TOML weights file; empty = built-in weights
}

// MigrationConfig configures the migration engine
type MigrationConfig struct {
	Pattern   string `mapstructure:"pattern"`    // default file-matching glob
	BackupDir string `mapstructure:"backup_dir"` // where overwritten destinations are backed up
}

// WatchConfig configures migrate --watch
type WatchConfig struct {
	DebounceMs       int    `mapstructure:"debounce_ms"`         // quiet period after a burst of events
	MaxRunsPerMinute int    `mapstructure:"max_runs_per_minute"` // rate cap on triggered runs
	PostRunHook      string `mapstructure:"post_run_hook"`       // shell command run after each triggered migration
}

// LogConfig configures logging output
type LogConfig struct {
	Theme string `mapstructure:"theme"` // Color theme: gruvbox, everforest
	JSON  bool   `mapstructure:"json"`  // JSON output instead of console encoder
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)
