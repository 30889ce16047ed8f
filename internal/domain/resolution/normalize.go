package resolution

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// corporateSuffixes are legal-form tokens dropped from the end of a name
// before matching, so "Mamouns Falafel Inc" and "Mamoun's Falafel" land on
// the same normalized form.
var corporateSuffixes = map[string]struct{}{
	"inc":          {},
	"incorporated": {},
	"llc":          {},
	"co":           {},
	"company":      {},
	"corp":         {},
	"corporation":  {},
	"ltd":          {},
	"limited":      {},
}

// apostrophes are removed outright rather than turned into spaces, so
// "Mamoun's" normalizes to "mamouns" instead of "mamoun s".
var apostrophes = map[rune]struct{}{
	'\'':     {},
	'’': {}, // right single quotation mark
	'ʼ': {}, // modifier letter apostrophe
	'`':      {},
}

// Normalize reduces an observed name to its canonical matching form:
// case-folded, diacritics stripped, apostrophes removed, remaining
// punctuation collapsed to single spaces, trailing corporate suffixes
// dropped. The result is what exact alias lookup and similarity scoring
// operate on. An empty result means the input carried no matchable text.
func Normalize(raw string) string {
	folded := cases.Fold().String(strings.TrimSpace(raw))

	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripper, folded)
	if err != nil {
		stripped = folded
	}

	cleaned := strings.Map(func(r rune) rune {
		if _, drop := apostrophes[r]; drop {
			return -1
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, stripped)

	tokens := strings.Fields(cleaned)
	for len(tokens) > 1 {
		if _, drop := corporateSuffixes[tokens[len(tokens)-1]]; !drop {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}

	return strings.Join(tokens, " ")
}
