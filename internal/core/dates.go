package core

// dates.go normalizes the date strings found in task exports.
//
// Two shapes are recognized, in order:
//  1. Unambiguous timestamps (RFC 3339 and close relatives, plain ISO dates)
//  2. M/D/Y with 1-2 digit month and day and a 2-4 digit year
//
// Anything else is unparseable. Unparseable dates are logged and treated as
// absent; they never fail a row.

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried before the M/D/Y pattern. Layouts without a zone
// are interpreted in the parser's location.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

var mdyPattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4})$`)

// DateParser converts export date strings to instants.
type DateParser struct {
	loc    *time.Location
	logger *slog.Logger
}

// NewDateParser creates a parser that resolves zone-less dates in loc.
// A nil loc means time.Local; a nil logger means slog.Default().
func NewDateParser(loc *time.Location, logger *slog.Logger) *DateParser {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DateParser{loc: loc, logger: logger}
}

// Parse returns the instant s denotes, or false if s is in no recognized format.
func (p *DateParser) Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, p.loc); err == nil {
			return t, true
		}
	}

	m := mdyPattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	switch {
	case year < 50:
		year += 2000
	case year < 100:
		year += 1900
	}

	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, p.loc)
	// time.Date normalizes 2/30 into March; reject instead.
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// ParseField parses the raw value of a date field. Blank values are absent
// without comment; unparseable values are absent and logged as a warning.
func (p *DateParser) ParseField(field Field, raw string) *time.Time {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	t, ok := p.Parse(raw)
	if !ok {
		p.logger.Warn("unparseable date", "field", string(field), "value", raw)
		return nil
	}
	return &t
}
