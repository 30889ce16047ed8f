package normalize

import (
	"regexp"
	"strings"
)

// PO extraction applies an ordered rule list to free text and returns the
// first match, canonicalized. No match is not an error; purchase order
// references are optional on most sources.
var poPatterns = []*regexp.Regexp{
	// "PO-552", "PO # 779322", "PO#785153", "po: 44-A"
	regexp.MustCompile(`(?i)\bPO\s*[-#:]*\s*([A-Za-z0-9][A-Za-z0-9-]*)`),
	// bare alphanumeric references with a letter prefix, e.g. "MAMN-54127"
	regexp.MustCompile(`\b([A-Z]{2,}-[A-Za-z0-9]+)\b`),
}

var digitsOnly = regexp.MustCompile(`^[0-9]+$`)

// ExtractPONumber returns the canonical purchase order reference found in
// the text, or "" when none is present. Bare numeric references gain the
// "PO-" prefix so "PO # 779322" and "PO-779322" normalize identically;
// prefixed references ("MAMN-54127") are kept verbatim.
func ExtractPONumber(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}
	for _, re := range poPatterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		ref := strings.Trim(m[1], "-#: ")
		if ref == "" {
			continue
		}
		if digitsOnly.MatchString(ref) {
			return "PO-" + ref
		}
		return ref
	}
	return ""
}

var customerPORe = regexp.MustCompile(`(?i)^(.+?)\s*-\s*PO\s*#?\s*(.*)$`)

// ExtractCustomerPO splits a weekly-order customer label of the form
// "Crown - PO # 779322" into the customer name and the raw PO hint.
// Labels without a "- PO" marker come back whole with an empty hint:
// "Met #165 Crown Hill" is a customer name, not a PO carrier.
func ExtractCustomerPO(label string) (customer, poHint string) {
	s := strings.TrimSpace(label)
	if s == "" {
		return "", ""
	}
	m := customerPORe.FindStringSubmatch(s)
	if m == nil {
		return s, ""
	}
	customer = strings.TrimSpace(m[1])
	poHint = strings.TrimSpace(m[2])
	return customer, poHint
}
