// Package report defines the loosely-structured input document type shared by
// the feature builder, coordinate extractor and identity resolver. Submitted
// reports arrive as free-form JSON; Document wraps the decoded form with
// tolerant, type-coercing accessors so extraction cascades never panic on
// malformed input.
package report

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Document is a decoded report body. A nil Document is valid and empty.
type Document map[string]any

// FromJSON decodes raw JSON bytes into a Document. Invalid JSON yields an
// empty document rather than an error; extraction treats it as absent input.
func FromJSON(raw []byte) Document {
	if len(raw) == 0 {
		return Document{}
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}
	}
	return doc
}

// Get returns the raw value for key, nil when absent.
func (d Document) Get(key string) any {
	if d == nil {
		return nil
	}
	return d[key]
}

// Has reports whether key is present with a non-nil value.
func (d Document) Has(key string) bool {
	return d.Get(key) != nil
}

// String returns the first non-empty string value among the given keys.
// Non-string scalars are stringified; missing keys yield "".
func (d Document) String(keys ...string) string {
	for _, key := range keys {
		if s := asString(d.Get(key)); s != "" {
			return s
		}
	}
	return ""
}

// Float returns the value for the first of the given keys that coerces to a
// number. Returns 0 and false when none does.
func (d Document) Float(keys ...string) (float64, bool) {
	for _, key := range keys {
		if f, ok := asFloat(d.Get(key)); ok {
			return f, true
		}
	}
	return 0, false
}

// FloatOr returns the coerced value for the first matching key, or the
// fallback when no key coerces to a number.
func (d Document) FloatOr(fallback float64, keys ...string) float64 {
	if f, ok := d.Float(keys...); ok {
		return f
	}
	return fallback
}

// Child returns the nested document under key, or nil when the value is not
// an object.
func (d Document) Child(key string) Document {
	switch v := d.Get(key).(type) {
	case map[string]any:
		return Document(v)
	case Document:
		return v
	default:
		return nil
	}
}

// List returns the slice value under key, or nil when the value is not a list.
func (d Document) List(key string) []any {
	if v, ok := d.Get(key).([]any); ok {
		return v
	}
	return nil
}

// Strings returns the list under key coerced to strings. A single string
// value is split on commas, matching how field workers submit symptom lists.
func (d Document) Strings(key string) []string {
	switch v := d.Get(key).(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	case string:
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// asString coerces scalar values to a trimmed string.
func asString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

// asFloat coerces numeric-looking values to float64.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
