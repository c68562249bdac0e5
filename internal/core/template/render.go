// Package template renders deployment templates against a commit context.
// This is part of the Functional Core - all functions are pure with no I/O.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// placeholderRegex matches ${{ path }} placeholders.
// Groups:
//   - Group 1: dotted lookup path, surrounding whitespace trimmed
var placeholderRegex = regexp.MustCompile(`\$\{\{\s*([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_]+)*)\s*\}\}`)

// String replaces ${{ path }} placeholders in value with the values found in
// data. Unknown paths render as the empty string.
//
// Examples:
//
//	String("pr-${{ pr }}", map[string]any{"pr": 12})
//	// Returns: "pr-12"
//
//	String("${{ commit.author }}", map[string]any{"commit": map[string]any{"author": "ann"}})
//	// Returns: "ann"
func String(value string, data map[string]any) string {
	return placeholderRegex.ReplaceAllStringFunc(value, func(match string) string {
		submatch := placeholderRegex.FindStringSubmatch(match)
		v, ok := lookup(data, submatch[1])
		if !ok {
			return ""
		}
		return format(v)
	})
}

// Value renders an arbitrary template value. Strings are rendered with
// String, except that a string consisting of exactly one placeholder is
// replaced by the raw looked-up value. Maps and slices are rendered
// recursively; all other values are returned unchanged.
func Value(value any, data map[string]any) any {
	switch v := value.(type) {
	case string:
		if m := placeholderRegex.FindStringSubmatchIndex(v); m != nil && m[0] == 0 && m[1] == len(v) {
			raw, ok := lookup(data, v[m[2]:m[3]])
			if !ok {
				return ""
			}
			return raw
		}
		return String(v, data)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = Value(item, data)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Value(item, data)
		}
		return out
	default:
		return value
	}
}

// lookup resolves a dotted path through nested maps.
func lookup(data map[string]any, path string) (any, bool) {
	var current any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	if current == nil {
		return nil, false
	}
	return current, true
}

// format converts a looked-up value to its string form. Structured values
// are encoded as JSON.
func format(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
