package config

import (
	"time"

	"github.com/emberline/curator/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Zone paths are optional - empty values fall back to defaults

	// Extraction filters: 0 = disabled, negative = invalid
	if c.Extraction.MinTextLength < 0 {
		return errors.Newf("extraction.min_text_length must be >= 0, got %d", c.Extraction.MinTextLength)
	}
	if c.Extraction.RequestsPerMinute < 0 {
		return errors.Newf("extraction.requests_per_minute must be >= 0, got %d", c.Extraction.RequestsPerMinute)
	}
	if c.Extraction.AnonRequestsPerMinute < 0 {
		return errors.Newf("extraction.anon_requests_per_minute must be >= 0, got %d", c.Extraction.AnonRequestsPerMinute)
	}
	if c.Extraction.TimeoutSeconds < 0 {
		return errors.Newf("extraction.timeout_seconds must be >= 0, got %d", c.Extraction.TimeoutSeconds)
	}

	// min_date must be a calendar date when set
	if c.Extraction.MinDate != "" {
		if _, err := time.Parse("2006-01-02", c.Extraction.MinDate); err != nil {
			return errors.Newf("extraction.min_date must be YYYY-MM-DD, got %q", c.Extraction.MinDate)
		}
	}

	// Charset restriction: only ascii is implemented
	if c.Validation.Charset != "" && c.Validation.Charset != "ascii" {
		return errors.Newf("validation.charset must be \"ascii\" or empty, got %q", c.Validation.Charset)
	}

	// Watch limits: 0 = disabled, negative = invalid
	if c.Watch.DebounceMs < 0 {
		return errors.Newf("watch.debounce_ms must be >= 0, got %d", c.Watch.DebounceMs)
	}
	if c.Watch.MaxRunsPerMinute < 0 {
		return errors.Newf("watch.max_runs_per_minute must be >= 0, got %d", c.Watch.MaxRunsPerMinute)
	}

	// Log theme must be one we ship
	if c.Log.Theme != "" && c.Log.Theme != "gruvbox" && c.Log.Theme != "everforest" {
		return errors.Newf("log.theme must be gruvbox or everforest, got %q", c.Log.Theme)
	}

	return nil
}
