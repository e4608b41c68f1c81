package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	// Create isolated viper instance without loading user/system config
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	if err != nil {
		t.Fatalf("LoadWithViper() failed: %v", err)
	}

	if cfg.Zones.Raw != "data/raw" {
		t.Errorf("expected default raw zone 'data/raw', got %q", cfg.Zones.Raw)
	}

	if cfg.Database.Path != "curator.db" {
		t.Errorf("expected default database path 'curator.db', got %q", cfg.Database.Path)
	}

	if cfg.Extraction.Source != DefaultSource {
		t.Errorf("expected default source %q, got %q", DefaultSource, cfg.Extraction.Source)
	}

	if cfg.Migration.Pattern != "*.jsonl" {
		t.Errorf("expected default migration pattern '*.jsonl', got %q", cfg.Migration.Pattern)
	}
}

func TestValidate_ZeroValues(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "zero min text length is valid (disabled)",
			config: Config{
				Extraction: ExtractionConfig{MinTextLength: 0},
			},
			wantErr: false,
		},
		{
			name: "negative min text length is invalid",
			config: Config{
				Extraction: ExtractionConfig{MinTextLength: -1},
			},
			wantErr: true,
		},
		{
			name: "negative rate limit is invalid",
			config: Config{
				Extraction: ExtractionConfig{RequestsPerMinute: -1},
			},
			wantErr: true,
		},
		{
			name: "well-formed min date is valid",
			config: Config{
				Extraction: ExtractionConfig{MinDate: "2020-01-01"},
			},
			wantErr: false,
		},
		{
			name: "malformed min date is invalid",
			config: Config{
				Extraction: ExtractionConfig{MinDate: "01/01/2020"},
			},
			wantErr: true,
		},
		{
			name: "empty min date is valid (disabled)",
			config: Config{
				Extraction: ExtractionConfig{MinDate: ""},
			},
			wantErr: false,
		},
		{
			name: "ascii charset is valid",
			config: Config{
				Validation: ValidationConfig{Charset: "ascii"},
			},
			wantErr: false,
		},
		{
			name: "unknown charset is invalid",
			config: Config{
				Validation: ValidationConfig{Charset: "utf8"},
			},
			wantErr: true,
		},
		{
			name: "negative debounce is invalid",
			config: Config{
				Watch: WatchConfig{DebounceMs: -1},
			},
			wantErr: true,
		},
		{
			name: "unknown log theme is invalid",
			config: Config{
				Log: LogConfig{Theme: "dracula"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	// Verify critical defaults are set
	tests := []struct {
		key      string
		expected interface{}
	}{
		{"zones.raw", "data/raw"},
		{"zones.validated", "data/validated"},
		{"zones.archive", "data/archive"},
		{"state.path", "data/processing_state.json"},
		{"database.path", "curator.db"},
		{"extraction.source", DefaultSource},
		{"extraction.requests_per_minute", 60},
		{"extraction.anon_requests_per_minute", 10},
		{"extraction.min_text_length", 100},
		{"migration.pattern", "*.jsonl"},
		{"watch.debounce_ms", 500},
		{"log.theme", "everforest"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := v.Get(tt.key)
			if got != tt.expected {
				t.Errorf("default %s = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestFindProjectConfig(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("finds curator.toml in a parent directory", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "test1", "subdir")
		os.MkdirAll(subDir, DefaultDirPermissions)

		os.WriteFile(filepath.Join(tmpDir, "test1", "curator.toml"), []byte(""), DefaultFilePermissions)

		oldWd, _ := os.Getwd()
		defer os.Chdir(oldWd)
		os.Chdir(subDir)

		result := findProjectConfig()
		if result == "" {
			t.Error("expected to find config file")
		}
		if !filepath.IsAbs(result) {
			t.Error("expected absolute path")
		}
		if filepath.Base(result) != "curator.toml" {
			t.Errorf("expected curator.toml, got %s", filepath.Base(result))
		}
	})

	t.Run("no config found", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "test2", "subdir")
		os.MkdirAll(subDir, DefaultDirPermissions)

		oldWd, _ := os.Getwd()
		defer os.Chdir(oldWd)
		os.Chdir(subDir)

		result := findProjectConfig()
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})
}

func TestGetDatabasePath_Fallback(t *testing.T) {
	cfg := &Config{}
	if path := cfg.GetDatabasePath(); path != "curator.db" {
		t.Errorf("expected fallback path 'curator.db', got %q", path)
	}

	cfg.Database.Path = "/var/lib/curator/catalog.db"
	if path := cfg.GetDatabasePath(); path != "/var/lib/curator/catalog.db" {
		t.Errorf("expected configured path, got %q", path)
	}
}

func TestGetStatePath_Fallback(t *testing.T) {
	cfg := &Config{}
	if path := cfg.GetStatePath(); path != "data/processing_state.json" {
		t.Errorf("expected fallback state path, got %q", path)
	}
}

func TestEffectiveRequestsPerMinute(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ExtractionConfig
		expected int
	}{
		{
			name:     "token uses authenticated tier",
			cfg:      ExtractionConfig{Token: "hf_xxx", RequestsPerMinute: 30},
			expected: 30,
		},
		{
			name:     "token with unset limit falls back to 60",
			cfg:      ExtractionConfig{Token: "hf_xxx"},
			expected: 60,
		},
		{
			name:     "no token uses anonymous tier",
			cfg:      ExtractionConfig{AnonRequestsPerMinute: 5},
			expected: 5,
		},
		{
			name:     "no token and unset limit falls back to 10",
			cfg:      ExtractionConfig{},
			expected: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.EffectiveRequestsPerMinute()
			if got != tt.expected {
				t.Errorf("EffectiveRequestsPerMinute() = %d, want %d", got, tt.expected)
			}
		})
	}
}
