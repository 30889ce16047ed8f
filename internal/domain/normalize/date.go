package normalize

import (
	"fmt"
	"strings"
	"time"
)

// DefaultDateFormats are the source date layouts recognized across drivers,
// tried in order. US month-first layouts come before day-first so that
// ambiguous values like 03/04/2026 parse as March 4.
var DefaultDateFormats = []string{
	"2006-01-02",
	"1/2/2006",
	"1/2/06",
	"02/01/2006",
	"2006/01/02",
	"1-2-2006",
}

// ParseDate parses a raw date string against the given layouts, first match
// wins. A nil or empty layout list falls back to DefaultDateFormats.
// Returns ErrUnparseableDate when no layout matches.
func ParseDate(raw string, layouts []string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrUnparseableDate)
	}
	if len(layouts) == 0 {
		layouts = DefaultDateFormats
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableDate, raw)
}

// ParseDateRange parses a "M/D/YY - M/D/YY" style range as found in the
// weekly order workbook headers. The separator may be a hyphen or en dash.
// Two-digit years are treated as 20xx.
func ParseDateRange(raw string) (start, end time.Time, err error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: empty value", ErrUnparseableDate)
	}
	s = strings.ReplaceAll(s, "–", "-")

	parts := splitRange(s)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q is not a date range", ErrUnparseableDate, raw)
	}

	layouts := []string{"1/2/2006", "1/2/06"}
	start, err = ParseDate(parts[0], layouts)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = ParseDate(parts[1], layouts)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: range %q ends before it starts", ErrUnparseableDate, raw)
	}
	return start, end, nil
}

// splitRange splits on the first hyphen that sits between two date-looking
// halves. Date tokens themselves may contain hyphens (1-2-2006), so the
// split looks for a hyphen surrounded by whitespace first.
func splitRange(s string) []string {
	if i := strings.Index(s, " - "); i >= 0 {
		return []string{strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+3:])}
	}
	parts := strings.SplitN(s, "-", 2)
	if len(parts) == 2 {
		return []string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])}
	}
	return []string{s}
}
