package csvdrop

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Transforms are pure string cleanups applied before a value lands in a
// raw field. They never parse quantities or resolve entities; that is
// pipeline work.

var (
	poPattern       = regexp.MustCompile(`(?i)\bPO\s*#?\s*(\S+)`)
	poJunkPattern   = regexp.MustCompile(`^[\s\-#]+$`)
	customerPattern = regexp.MustCompile(`(?i)^(.+?)\s*-\s*PO`)
	currencyJunk    = regexp.MustCompile(`[$,\s]`)
)

var transforms = map[string]func(string) string{
	"uppercase":        strings.ToUpper,
	"lowercase":        strings.ToLower,
	"titlecase":        titlecase,
	"strip":            strings.TrimSpace,
	"extract_po":       extractPO,
	"extract_customer": extractCustomer,
	"clean_currency":   cleanCurrency,
}

func titlecase(s string) string {
	prevLetter := false
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			if prevLetter {
				prevLetter = true
				return unicode.ToLower(r)
			}
			prevLetter = true
			return unicode.ToUpper(r)
		}
		prevLetter = false
		return r
	}, s)
}

// extractPO pulls the PO number out of strings like "Crown - PO # 779322".
// No PO means empty, never the untouched input.
func extractPO(s string) string {
	m := poPattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	po := strings.TrimSpace(m[1])
	if po == "" || poJunkPattern.MatchString(po) {
		return ""
	}
	return po
}

// extractCustomer strips a trailing "- PO ..." suffix from a customer cell
func extractCustomer(s string) string {
	if m := customerPattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

// cleanCurrency reduces "$1,234.56" to "1234.56"
func cleanCurrency(s string) string {
	return currencyJunk.ReplaceAllString(s, "")
}

// dateLayouts are the formats a mapping without an explicit format may
// carry. Dates are re-emitted as 2006-01-02 so downstream parsing sees
// one shape per source.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"01/02/06",
	"2006/01/02",
	"01-02-2006",
}

// reshapeValue applies the rule's declared type. Strings pass through;
// dates are normalized to ISO; currency is stripped of formatting. An
// unreadable value comes back with ok false so the row can warn.
func reshapeValue(value string, rule ColumnRule) (string, bool) {
	switch rule.Type {
	case "", "string":
		return value, true
	case "currency":
		return cleanCurrency(value), true
	case "date":
		layouts := dateLayouts
		if rule.Format != "" {
			layouts = []string{rule.Format}
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, value); err == nil {
				return t.Format("2006-01-02"), true
			}
		}
		return "", false
	}
	return value, true
}
