// Package parser converts scraped text values into typed values.
//
// Every function is total: unparsable or placeholder input yields the
// "absent" result ((zero, false), or a nil slice/map) and never panics.
package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	intToken   = regexp.MustCompile(`[\d,]+`)
	floatToken = regexp.MustCompile(`[\d.]+`)
	spaceRun   = regexp.MustCompile(`[ \t]+`)
)

// text returns the trimmed string form of v, or false for nil, non-strings and placeholders.
func text(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "n/a") {
		return "", false
	}
	return s, true
}

// Int extracts an integer. Numbers pass through; strings yield their first
// digit run with thousands separators removed ("1,234 votes" → 1234).
func Int(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || n < math.MinInt || n >= math.MaxInt {
			return 0, false
		}
		return int(n), true
	}

	s, ok := text(v)
	if !ok {
		return 0, false
	}

	token := strings.ReplaceAll(intToken.FindString(s), ",", "")
	if token == "" {
		return 0, false
	}

	i, err := strconv.Atoi(token)
	if err != nil {
		return 0, false
	}
	return i, true
}

// Float extracts a float. Numbers pass through; strings yield their first run of digits and dots.
func Float(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}

	s, ok := text(v)
	if !ok {
		return 0, false
	}

	f, err := strconv.ParseFloat(floatToken.FindString(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// String returns the trimmed value, absent for placeholders.
func String(v any) (string, bool) {
	return text(v)
}

// StringList splits on newlines and drops blank segments. It returns nil for
// absent input and an empty, non-nil slice when the input holds only blanks.
func StringList(v any) []string {
	if items, ok := v.([]any); ok {
		return listOf(items)
	}

	s, ok := text(v)
	if !ok {
		return nil
	}

	out := []string{}
	for _, part := range strings.Split(s, "\n") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func listOf(items []any) []string {
	out := []string{}
	for _, item := range items {
		if s, ok := text(item); ok {
			out = append(out, s)
		}
	}
	return out
}

// Strings returns the string elements of a JSON array value. Non-arrays yield nil.
func Strings(v any) []string {
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// FieldName normalises a scraped label into a payload key: dots are
// dropped, spaces become underscores and the result is lower-cased.
func FieldName(s string) string {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ToLower(s)
}

// Round3 rounds f to three decimals.
func Round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

// CollapseSpace trims s and collapses runs of spaces and tabs into one space.
// Newlines are kept since list fields are newline separated.
func CollapseSpace(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r", ""), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
