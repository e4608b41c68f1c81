package validate

import (
	"fmt"
	"sort"
	"strconv"
)

// Replacements for the non-ASCII characters that show up constantly in
// pasted prose. Anything else is reported without a suggestion.
var asciiReplacements = map[rune]string{
	'‘': "'",   // left single quote
	'’': "'",   // right single quote
	'“': `"`,   // left double quote
	'”': `"`,   // right double quote
	'–': "-",   // en dash
	'—': "--",  // em dash
	'…': "...", // ellipsis
	' ': " ",   // non-breaking space
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F600 && r <= 0x1F64F: // emoticons
		return true
	case r >= 0x1F300 && r <= 0x1F5FF: // symbols and pictographs
		return true
	case r >= 0x1F680 && r <= 0x1F6FF: // transport and map
		return true
	case r >= 0x2600 && r <= 0x26FF: // miscellaneous symbols
		return true
	}
	return false
}

// asciiIssues scans one string value and reports every non-ASCII rune
// as an encoding issue with a concrete fix where one exists. fieldPath
// is the dotted location of the value inside the record.
func asciiIssues(fieldPath, value string) []Issue {
	var issues []Issue
	for offset, r := range value {
		if r < 128 {
			continue
		}

		var kind, suggestion string
		switch {
		case isEmoji(r):
			kind = "emoji"
			suggestion = "remove"
		default:
			if repl, ok := asciiReplacements[r]; ok {
				kind = "smart punctuation"
				suggestion = strconv.Quote(repl)
			} else {
				kind = "non-ascii character"
			}
		}

		issues = append(issues, Issue{
			Field:      fieldPath,
			Category:   CategoryEncoding,
			Message:    fmt.Sprintf("%s U+%04X at offset %d", kind, r, offset),
			Suggestion: suggestion,
		})
	}
	return issues
}

// walkStrings visits every string value in a decoded JSON tree, calling
// fn with a dotted path like "metadata.title" or "authors[2]".
func walkStrings(path string, v any, fn func(path, s string)) {
	switch val := v.(type) {
	case string:
		fn(path, val)
	case map[string]any:
		keys := make([]string, 0, len(val))
		for key := range val {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			childPath := key
			if path != "" {
				childPath = path + "." + key
			}
			walkStrings(childPath, val[key], fn)
		}
	case []any:
		for i, child := range val {
			walkStrings(fmt.Sprintf("%s[%d]", path, i), child, fn)
		}
	}
}

// ReplaceNonASCII rewrites value using the known replacements and drops
// every remaining non-ASCII rune. The transformation engine uses this
// to keep published descriptions within the ASCII charset.
func ReplaceNonASCII(value string) string {
	out := make([]byte, 0, len(value))
	for _, r := range value {
		if r < 128 {
			out = append(out, byte(r))
			continue
		}
		if repl, ok := asciiReplacements[r]; ok {
			out = append(out, repl...)
		}
	}
	return string(out)
}
