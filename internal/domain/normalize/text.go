package normalize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var currencyReplacer = strings.NewReplacer("$", "", ",", "", " ", "", " ", "")

// CleanCurrency parses a currency amount with optional dollar sign,
// thousands separators, and surrounding whitespace: "$1,234.56" -> 1234.56.
// Parenthesized amounts are treated as negative per accounting convention.
func CleanCurrency(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", ErrUnparseableAmount)
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = currencyReplacer.Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnparseableAmount, raw)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseBool maps yes/no style tokens to booleans.
// Recognized: yes/y/true/1 and no/n/false/0, case-insensitive.
func ParseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y", "true", "1":
		return true, nil
	case "no", "n", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnparseableBool, raw)
	}
}
