// ABOUTME: Best-effort parsing of timestamps, dates, ints and floats from untyped input.
// ABOUTME: Numeric helpers never fail; time helpers return *FormatError when no layout matches.
package coerce

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatError reports a value that matched none of the known layouts.
type FormatError struct {
	Kind  string
	Input string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unable to parse %s: %q", e.Kind, e.Input)
}

// Timestamp layouts in the order the export has used them over the years.
// The slash form appears in heart-rate JSON, the ISO forms everywhere else.
var timestampLayouts = []string{
	"01/02/06 15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/06",
	"01/02/2006",
}

// Timestamp parses an instant, trying each known layout in order. A
// date-only input parses to midnight. Leading/trailing whitespace is
// ignored.
func Timestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &FormatError{Kind: "timestamp", Input: raw}
}

// Date parses a calendar date, trying each known layout in order.
func Date(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &FormatError{Kind: "date", Input: raw}
}

// DateOnly truncates a CSV cell that may carry a trailing time component
// ("2024-01-15T08:30:00" or "2024-01-15 08:30:00") and parses the date part.
func DateOnly(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexAny(raw, "T "); i >= 0 {
		raw = raw[:i]
	}
	return Date(raw)
}

// Int converts a numeric or numeric-string value to an int, truncating
// fractional input. Returns nil for empty, missing, or non-numeric input.
func Int(v any) *int {
	f := Float(v)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

// IntOr is Int with a caller-supplied fallback instead of nil.
func IntOr(v any, def int) int {
	if n := Int(v); n != nil {
		return *n
	}
	return def
}

// Float converts a numeric or numeric-string value to a float64. Returns
// nil for empty, missing, or non-numeric input.
func Float(v any) *float64 {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		return &x
	case float32:
		f := float64(x)
		return &f
	case int:
		f := float64(x)
		return &f
	case int64:
		f := float64(x)
		return &f
	case bool:
		f := 0.0
		if x {
			f = 1.0
		}
		return &f
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// FloatOr is Float with a caller-supplied fallback instead of nil.
func FloatOr(v any, def float64) float64 {
	if f := Float(v); f != nil {
		return *f
	}
	return def
}
