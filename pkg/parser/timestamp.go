package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// LayoutUnix selects integer seconds since the epoch instead of a Go
// time layout.
const LayoutUnix = "unix"

// TimestampExtractor extracts and parses timestamps from log lines.
type TimestampExtractor struct {
	pattern *regexp.Regexp
	layout  string
}

// NewTimestampExtractor creates a new timestamp extractor.
func NewTimestampExtractor(pattern *regexp.Regexp, layout string) *TimestampExtractor {
	return &TimestampExtractor{
		pattern: pattern,
		layout:  layout,
	}
}

// Extract attempts to extract and parse a timestamp from a log line.
// Returns zero time and error if the pattern doesn't match or parsing fails.
func (e *TimestampExtractor) Extract(line string) (time.Time, error) {
	ts, _, err := e.Split(line)
	return ts, err
}

// Split extracts the timestamp and returns the remainder of the line,
// with leading blanks trimmed.
func (e *TimestampExtractor) Split(line string) (time.Time, string, error) {
	loc := e.pattern.FindStringSubmatchIndex(line)
	if len(loc) < 4 || loc[2] < 0 {
		return time.Time{}, "", fmt.Errorf("timestamp pattern did not match")
	}

	// Use the first capture group as the timestamp string
	tsStr := line[loc[2]:loc[3]]
	rest := strings.TrimLeft(line[loc[1]:], " \t")

	if e.layout == LayoutUnix {
		sec, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return time.Time{}, "", fmt.Errorf("parsing timestamp %q: %w", tsStr, err)
		}
		return time.Unix(sec, 0), rest, nil
	}

	ts, err := time.Parse(e.layout, tsStr)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("parsing timestamp %q: %w", tsStr, err)
	}

	return ts, rest, nil
}

// Pattern returns the compiled timestamp pattern.
func (e *TimestampExtractor) Pattern() *regexp.Regexp {
	return e.pattern
}

// Layout returns the timestamp layout.
func (e *TimestampExtractor) Layout() string {
	return e.layout
}
