package score

import (
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/emberline/curator/errors"
)

// Signal names recognized by the scorer. Weights for unknown names are
// rejected at load time so a typo in a config file cannot silently
// drop a signal.
const (
	SignalSourceArxiv   = "source_arxiv"
	SignalSourceDistill = "source_distill"
	SignalHasAuthors    = "has_authors"
	SignalNotNewsletter = "not_newsletter"
	SignalTextLength5K  = "text_length_5k"
	SignalTextLength10K = "text_length_10k"
	SignalYearPre2020   = "year_pre_2020"
	SignalHasTags       = "has_tags"
)

var knownSignals = map[string]struct{}{
	SignalSourceArxiv:   {},
	SignalSourceDistill: {},
	SignalHasAuthors:    {},
	SignalNotNewsletter: {},
	SignalTextLength5K:  {},
	SignalTextLength10K: {},
	SignalYearPre2020:   {},
	SignalHasTags:       {},
}

// Tier is one classification threshold. Tiers are evaluated from the
// highest min_score down; a record meeting no threshold falls into the
// lowest defined tier.
type Tier struct {
	Name     string  `toml:"name" json:"name"`
	MinScore float64 `toml:"min_score" json:"min_score"`
}

// Config holds the signal weights and tier thresholds for one scoring
// run. The full config is embedded in every overlay so a score can
// always be traced back to the rules that produced it.
type Config struct {
	Signals map[string]float64 `toml:"signals" json:"signals"`
	Tiers   []Tier             `toml:"tiers" json:"tiers"`
}

// DefaultConfig returns the standard research-quality weights.
func DefaultConfig() *Config {
	return &Config{
		Signals: map[string]float64{
			SignalSourceArxiv:   3,
			SignalSourceDistill: 3,
			SignalHasAuthors:    1,
			SignalNotNewsletter: 2,
			SignalTextLength5K:  1,
			SignalTextLength10K: 1,
			SignalYearPre2020:   1,
			SignalHasTags:       0.5,
		},
		Tiers: []Tier{
			{Name: "A", MinScore: 7.0},
			{Name: "B", MinScore: 4.0},
			{Name: "C", MinScore: 2.0},
			{Name: "D", MinScore: 0.0},
		},
	}
}

// LoadConfig reads a scoring config from a TOML file. An empty path
// returns the defaults. Malformed configs are fatal before any record
// is scored.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "cannot load scoring config %s: %v", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrapf(err, "scoring config %s", path)
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Signals) == 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "no signal weights defined")
	}
	for name := range c.Signals {
		if _, ok := knownSignals[name]; !ok {
			return errors.Wrapf(errors.ErrInvalidConfig, "unknown signal %q", name)
		}
	}
	if len(c.Tiers) == 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "no tiers defined")
	}
	for _, tier := range c.Tiers {
		if tier.Name == "" {
			return errors.Wrap(errors.ErrInvalidConfig, "tier with empty name")
		}
	}
	return nil
}

// normalize orders tiers from highest threshold to lowest so tier
// assignment is independent of config file order.
func (c *Config) normalize() {
	sort.SliceStable(c.Tiers, func(i, j int) bool {
		return c.Tiers[i].MinScore > c.Tiers[j].MinScore
	})
}

// weight returns the point value for a signal, zero when unset.
func (c *Config) weight(name string) float64 {
	return c.Signals[name]
}

// AssignTier returns the highest tier whose threshold the score meets,
// or the lowest defined tier when none match.
func (c *Config) AssignTier(score float64) string {
	for _, tier := range c.Tiers {
		if score >= tier.MinScore {
			return tier.Name
		}
	}
	return c.Tiers[len(c.Tiers)-1].Name
}
