// Package coerce normalizes the loosely typed scalars the external reading
// platforms emit. The same field can arrive as a number in one endpoint, a
// numeric string in another, and occasionally as a small object wrapping the
// number. Every numeric read in the extractors goes through these helpers so
// downstream logic never branches on wire types.
package coerce

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// keys tried, in order, when a scalar arrives wrapped in an object.
var wrapperKeys = []string{"value", "count", "rating", "votes"}

// Int converts v to an int, returning def for anything unparseable.
// It never panics.
func Int(v any, def int) int {
	switch t := v.(type) {
	case nil:
		return def
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
		if f, err := t.Float64(); err == nil {
			return int(f)
		}
		return def
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return def
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
		return def
	case map[string]any:
		for _, k := range wrapperKeys {
			if inner, ok := t[k]; ok {
				return Int(inner, def)
			}
		}
		return def
	default:
		return def
	}
}

// Float converts v to a float64, returning def for anything unparseable.
func Float(v any, def float64) float64 {
	switch t := v.(type) {
	case nil:
		return def
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return def
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return def
		}
		// some endpoints use a comma decimal separator
		s = strings.ReplaceAll(s, ",", ".")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return def
	case map[string]any:
		for _, k := range wrapperKeys {
			if inner, ok := t[k]; ok {
				return Float(inner, def)
			}
		}
		return def
	default:
		return def
	}
}

// Str converts v to a trimmed string, returning def when v is absent or not
// text-like. Numbers are formatted rather than dropped because platform IDs
// show up both quoted and unquoted.
func Str(v any, def string) string {
	switch t := v.(type) {
	case nil:
		return def
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return def
		}
		return s
	case float64:
		// IDs arrive as JSON numbers; avoid the 1.23457e+06 rendering
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		return def
	}
}

var (
	htmlTagRe   = regexp.MustCompile(`<[^>]*>`)
	bbCodeRe    = regexp.MustCompile(`\[/?[a-zA-Z][^\]]*\]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// StripMarkup removes HTML tags and [tag]...[/tag] micro-markup from text and
// collapses whitespace runs to single spaces. Plain text passes through
// unchanged apart from whitespace normalization.
func StripMarkup(s string) string {
	if s == "" {
		return ""
	}
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = bbCodeRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CollapseWhitespace normalizes whitespace without touching markup.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
