// Package validate checks record streams against declarative rule sets
// and reports schema, duplicate-ID, missing-field, and encoding errors
// without ever modifying its input. Verdicts are advisory: the caller
// decides whether a failing report blocks promotion to the next zone.
package validate

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/emberline/curator/dump"
)

// Dump metadata constraints, checked alongside the record stream.
var (
	validExtractionMethods  = []string{"web_scrape", "manual", "api"}
	validExtractionStatuses = []string{dump.StatusComplete, dump.StatusPartial, dump.StatusFailed, dump.StatusPending}
)

// maxCharsetIssuesPerRecord bounds encoding findings for one record so
// a single foreign-language document cannot flood the report.
const maxCharsetIssuesPerRecord = 100

// Validator applies a compiled rule set to records one at a time.
// Construction fails fast on malformed rules; per-record failures are
// reported, never raised.
type Validator struct {
	rules    *RuleSet
	compiled map[string]*compiledField
	fields   []string
}

// New compiles a rule set into a Validator.
func New(rules *RuleSet) (*Validator, error) {
	compiled, err := compileFields(rules)
	if err != nil {
		return nil, err
	}
	fields := make([]string, 0, len(compiled))
	for name := range compiled {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return &Validator{rules: rules, compiled: compiled, fields: fields}, nil
}

// Rules returns the rule set this validator was built from.
func (v *Validator) Rules() *RuleSet { return v.rules }

// ValidateDump streams every record of a dump directory through the
// rule set and checks the metadata sidecar against the actual record
// count. The dump is opened read-only and its bytes are never altered.
func (v *Validator) ValidateDump(dir string) (*Report, error) {
	reader, err := dump.Open(dir)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	report, err := v.validateStream(reader)
	if err != nil {
		return nil, err
	}
	report.Metadata = ValidateMetadata(reader.Meta(), report.Total)
	return report, nil
}

// ValidateFile validates a bare JSONL file with no metadata sidecar.
func (v *Validator) ValidateFile(path string) (*Report, error) {
	reader, err := dump.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return v.validateStream(reader)
}

func (v *Validator) validateStream(reader *dump.Reader) (*Report, error) {
	report := &Report{}
	seen := make(map[string]int)
	for {
		line, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		report.record(v.ValidateRecord(line, reader.Line(), seen))
	}
	return report, nil
}

// ValidateRecord checks one raw JSONL line. seen maps already-observed
// IDs to the line that introduced them and is updated here; pass the
// same map for every record of a stream so duplicates are caught.
func (v *Validator) ValidateRecord(raw []byte, line int, seen map[string]int) []Issue {
	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil {
		return []Issue{{
			Line:     line,
			Category: CategorySchema,
			Message:  fmt.Sprintf("invalid JSON: %v", err),
		}}
	}

	var issues []Issue
	sourceID, _ := rec[v.rules.IDField].(string)

	for _, field := range v.rules.Required {
		if present(rec[field]) {
			continue
		}
		issues = append(issues, Issue{
			Line:     line,
			SourceID: sourceID,
			Field:    field,
			Category: CategoryMissingField,
			Message:  "required field missing or empty",
		})
	}

	if sourceID != "" {
		if first, dup := seen[sourceID]; dup {
			issues = append(issues, Issue{
				Line:     line,
				SourceID: sourceID,
				Field:    v.rules.IDField,
				Category: CategoryDuplicateID,
				Message:  fmt.Sprintf("duplicate %s, first seen at line %d", v.rules.IDField, first),
			})
		} else {
			seen[sourceID] = line
		}
	}

	for _, name := range v.fields {
		cf := v.compiled[name]
		value, ok := rec[name]
		if !ok || value == nil {
			continue
		}
		for _, msg := range checkField(cf, value) {
			issues = append(issues, Issue{
				Line:     line,
				SourceID: sourceID,
				Field:    name,
				Category: CategorySchema,
				Message:  msg,
			})
		}
	}

	if v.rules.Charset == "ascii" {
		count := 0
		walkStrings("", rec, func(path, s string) {
			if count >= maxCharsetIssuesPerRecord {
				return
			}
			for _, issue := range asciiIssues(path, s) {
				if count >= maxCharsetIssuesPerRecord {
					break
				}
				issue.Line = line
				issue.SourceID = sourceID
				issues = append(issues, issue)
				count++
			}
		})
	}

	return issues
}

// present implements the required-field test: missing keys, nulls,
// empty strings, and empty arrays fail; numbers and booleans always
// count as present.
func present(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(val) != ""
	case []any:
		return len(val) > 0
	}
	return true
}

func checkField(cf *compiledField, value any) []string {
	var msgs []string
	rule := cf.rule

	if rule.Type != "" {
		if msg := checkType(rule.Type, value); msg != "" {
			// Wrong type makes the remaining checks meaningless.
			return []string{msg}
		}
	}

	str, isString := value.(string)

	if cf.enum != nil && isString {
		if _, ok := cf.enum[str]; !ok {
			msgs = append(msgs, fmt.Sprintf("value %q not in allowed set", str))
		}
	}
	if cf.pattern != nil && isString && !cf.pattern.MatchString(str) {
		msgs = append(msgs, fmt.Sprintf("value %q does not match pattern %s", str, rule.Pattern))
	}
	if isString {
		runes := utf8.RuneCountInString(str)
		if rule.MinLength > 0 && runes < rule.MinLength {
			msgs = append(msgs, fmt.Sprintf("length %d below minimum %d", runes, rule.MinLength))
		}
		if rule.MaxLength > 0 && runes > rule.MaxLength {
			msgs = append(msgs, fmt.Sprintf("length %d above maximum %d", runes, rule.MaxLength))
		}
	}
	if len(rule.DateFormats) > 0 && isString {
		if !dateMatches(str, rule.DateFormats) {
			msgs = append(msgs, fmt.Sprintf("date %q matches none of the accepted formats", str))
		}
	}
	if len(rule.URLPrefixes) > 0 && isString {
		if !hasAnyPrefix(str, rule.URLPrefixes) {
			msgs = append(msgs, fmt.Sprintf("url %q does not start with an accepted scheme", str))
		}
	}
	if rule.Numeric {
		if msg := checkNumeric(value); msg != "" {
			msgs = append(msgs, msg)
		}
	}

	return msgs
}

func checkType(want string, value any) string {
	ok := false
	switch want {
	case "string":
		_, ok = value.(string)
	case "number":
		_, ok = value.(float64)
	case "integer":
		f, isNum := value.(float64)
		ok = isNum && f == math.Trunc(f)
	case "boolean":
		_, ok = value.(bool)
	case "array":
		_, ok = value.([]any)
	case "object":
		_, ok = value.(map[string]any)
	}
	if !ok {
		return fmt.Sprintf("expected %s, got %T", want, value)
	}
	return ""
}

// dateMatches tries each layout against the full value, then against
// its first ten characters so bare-date layouts accept full timestamps.
func dateMatches(value string, layouts []string) bool {
	for _, layout := range layouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	if len(value) > 10 {
		prefix := value[:10]
		for _, layout := range layouts {
			if _, err := time.Parse(layout, prefix); err == nil {
				return true
			}
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// checkNumeric accepts JSON numbers and strings that parse as numbers
// after currency normalization ("$1,250.00" passes).
func checkNumeric(value any) string {
	switch val := value.(type) {
	case float64:
		return ""
	case string:
		cleaned := strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(val), "$"), ",", "")
		if _, err := strconv.ParseFloat(cleaned, 64); err != nil {
			return fmt.Sprintf("value %q is not numeric", val)
		}
		return ""
	}
	return fmt.Sprintf("expected numeric value, got %T", value)
}

// ValidateMetadata checks a dump metadata sidecar: required fields,
// method and status enums, and the record-count claim. A count
// mismatch is a warning, not a blocker, since truncated dumps are
// already excluded from watermark selection by their status.
func ValidateMetadata(meta *dump.Metadata, actualRecords int) *MetadataReport {
	report := &MetadataReport{}
	if meta == nil {
		report.Issues = append(report.Issues, "metadata sidecar missing")
		return report
	}

	required := map[string]string{
		"extraction_date":   meta.ExtractionDate,
		"source_name":       meta.SourceName,
		"source_url":        meta.SourceURL,
		"extraction_method": meta.ExtractionMethod,
		"data_format":       meta.DataFormat,
		"extraction_status": meta.ExtractionStatus,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			report.Issues = append(report.Issues, fmt.Sprintf("required metadata field %s missing or empty", field))
		}
	}

	if meta.ExtractionDate != "" {
		if _, err := meta.ExtractionTime(); err != nil {
			report.Issues = append(report.Issues, fmt.Sprintf("extraction_date %q is not ISO-8601", meta.ExtractionDate))
		}
	}
	if meta.ExtractionMethod != "" && !contains(validExtractionMethods, meta.ExtractionMethod) {
		report.Issues = append(report.Issues, fmt.Sprintf("unknown extraction_method %q", meta.ExtractionMethod))
	}
	if meta.ExtractionStatus != "" && !contains(validExtractionStatuses, meta.ExtractionStatus) {
		report.Issues = append(report.Issues, fmt.Sprintf("unknown extraction_status %q", meta.ExtractionStatus))
	}
	if meta.RecordCount != actualRecords {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("metadata claims %d records, data file has %d", meta.RecordCount, actualRecords))
	}

	sortIssues(report)
	return report
}

// sortIssues keeps metadata findings in a stable order regardless of
// map iteration.
func sortIssues(report *MetadataReport) {
	sort.Strings(report.Issues)
	sort.Strings(report.Warnings)
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
