// Package dateparse parses the loosely formatted dates found in chatbot
// logs and in command-line filters.
package dateparse

import (
	"fmt"
	"strings"
	"time"
)

// logLayouts is tried in order for log timestamps. Month-first comes
// first because the chatbot export writes M/D/YYYY.
var logLayouts = []string{
	"1/2/2006",
	"2006-1-2",
	"2-1-2006",
	"1/2/2006 15:04:05",
	"2006-1-2 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// strictLayouts is tried in order for user-supplied filter dates.
var strictLayouts = []string{
	"2006-1-2",
	"1/2/2006",
	"2-1-2006",
}

// InvalidFormatError reports a filter date that matched no known layout.
type InvalidFormatError struct {
	Value string
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("Invalid date format: %s. Use YYYY-MM-DD", e.Value)
}

// Parse returns the first successful parse of s against the log
// timestamp layouts. Empty or unrecognised input yields ok=false.
func Parse(s string) (time.Time, bool) {
	return first(logLayouts, strings.TrimSpace(s))
}

// ParseStrict parses a filter date. Empty input yields the zero time and
// no error; anything unrecognised yields *InvalidFormatError.
func ParseStrict(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, ok := first(strictLayouts, s)
	if !ok {
		return time.Time{}, &InvalidFormatError{Value: s}
	}
	return t, nil
}

func first(layouts []string, s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
