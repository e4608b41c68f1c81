package validate

import (
	"embed"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/emberline/curator/errors"
)

//go:embed rules/*.yaml
var builtinRules embed.FS

// RuleSet is a declarative record schema: which fields must exist, what
// shape each field takes, and optionally which character set text is
// restricted to. Rule sets load from YAML so schema changes never
// require code changes.
type RuleSet struct {
	Name     string                `yaml:"name" json:"name"`
	IDField  string                `yaml:"id_field,omitempty" json:"id_field,omitempty"`
	Required []string              `yaml:"required" json:"required"`
	Fields   map[string]*FieldRule `yaml:"fields,omitempty" json:"fields,omitempty"`
	Charset  string                `yaml:"charset,omitempty" json:"charset,omitempty"`
}

// FieldRule constrains a single record field. Zero-valued constraints
// are not checked.
type FieldRule struct {
	Type        string   `yaml:"type,omitempty" json:"type,omitempty"`
	Enum        []string `yaml:"enum,omitempty" json:"enum,omitempty"`
	Pattern     string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	MinLength   int      `yaml:"min_length,omitempty" json:"min_length,omitempty"`
	MaxLength   int      `yaml:"max_length,omitempty" json:"max_length,omitempty"`
	DateFormats []string `yaml:"date_formats,omitempty" json:"date_formats,omitempty"`
	URLPrefixes []string `yaml:"url_prefixes,omitempty" json:"url_prefixes,omitempty"`
	Numeric     bool     `yaml:"numeric,omitempty" json:"numeric,omitempty"`
}

// LoadRuleSet reads a rule set from a YAML file. A malformed rule set
// is a configuration error and fatal before any record is touched.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "cannot read validation rules %s: %v", path, err)
	}
	return parseRuleSet(data, path)
}

// BuiltinRuleSet returns one of the rule sets shipped with the binary:
// "alignment_research" for the research record schema and "funding"
// for grant rows.
func BuiltinRuleSet(name string) (*RuleSet, error) {
	data, err := builtinRules.ReadFile("rules/" + name + ".yaml")
	if err != nil {
		return nil, errors.NewNotFoundError("no builtin rule set %q", name)
	}
	return parseRuleSet(data, name)
}

func parseRuleSet(data []byte, origin string) (*RuleSet, error) {
	var rules RuleSet
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "malformed validation rules %s: %v", origin, err)
	}
	if rules.IDField == "" {
		rules.IDField = "id"
	}
	return &rules, nil
}

// compiledField is a FieldRule with its pattern compiled once up front.
type compiledField struct {
	rule    *FieldRule
	pattern *regexp.Regexp
	enum    map[string]struct{}
}

func compileFields(rules *RuleSet) (map[string]*compiledField, error) {
	compiled := make(map[string]*compiledField, len(rules.Fields))
	for name, rule := range rules.Fields {
		cf := &compiledField{rule: rule}
		if rule.Pattern != "" {
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrInvalidConfig, "bad pattern for field %q: %v", name, err)
			}
			cf.pattern = re
		}
		if len(rule.Enum) > 0 {
			cf.enum = make(map[string]struct{}, len(rule.Enum))
			for _, v := range rule.Enum {
				cf.enum[v] = struct{}{}
			}
		}
		compiled[name] = cf
	}
	return compiled, nil
}
