package normalize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mezze/backend/internal/domain/shared/valueobject"
)

// unitAliases maps observed unit tokens to canonical unit codes. The table
// is fixed: resolving a new spelling means adding it here, not guessing.
var unitAliases = map[string]string{
	"ea":     valueobject.UnitCodeEach,
	"each":   valueobject.UnitCodeEach,
	"pc":     valueobject.UnitCodeEach,
	"pcs":    valueobject.UnitCodeEach,
	"piece":  valueobject.UnitCodeEach,
	"pieces": valueobject.UnitCodeEach,
	"unit":   valueobject.UnitCodeEach,
	"units":  valueobject.UnitCodeEach,
	"cs":     valueobject.UnitCodeCase,
	"case":   valueobject.UnitCodeCase,
	"cases":  valueobject.UnitCodeCase,
	"box":    valueobject.UnitCodeCase,
	"boxes":  valueobject.UnitCodeCase,
	"lb":     valueobject.UnitCodeLB,
	"lbs":    valueobject.UnitCodeLB,
	"pound":  valueobject.UnitCodeLB,
	"pounds": valueobject.UnitCodeLB,
	"kg":     valueobject.UnitCodeKG,
	"kilo":   valueobject.UnitCodeKG,
	"kilos":  valueobject.UnitCodeKG,
	"doz":    valueobject.UnitCodeDozen,
	"dozen":  valueobject.UnitCodeDozen,
}

// CanonicalUnit maps a raw unit token through the alias table.
// Returns ErrUnknownUnit for tokens outside the table.
func CanonicalUnit(token string) (string, error) {
	t := strings.ToLower(strings.TrimSpace(token))
	t = strings.TrimSuffix(t, ".")
	if t == "" {
		return "", fmt.Errorf("%w: empty unit token", ErrUnknownUnit)
	}
	if code, ok := unitAliases[t]; ok {
		return code, nil
	}
	// Already-canonical codes pass through
	upper := strings.ToUpper(t)
	switch upper {
	case valueobject.UnitCodeEach, valueobject.UnitCodeCase, valueobject.UnitCodeLB,
		valueobject.UnitCodeKG, valueobject.UnitCodeDozen:
		return upper, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUnit, token)
}

// ParseQuantity splits a raw quantity string into a numeric value and a
// canonical unit code. Accepted shapes: "12 ea", "3 cases", "12", "12#"
// (trailing count marker stripped). When no unit token is present the
// defaultUnit is used. Returns ErrUnparseableQuantity for a bad number and
// ErrUnknownUnit for an unmapped unit token.
func ParseQuantity(raw string, defaultUnit string) (valueobject.Quantity, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return valueobject.Quantity{}, fmt.Errorf("%w: empty value", ErrUnparseableQuantity)
	}

	fields := strings.Fields(s)
	numTok := strings.TrimSuffix(fields[0], "#")
	numTok = strings.ReplaceAll(numTok, ",", "")

	value, err := decimal.NewFromString(numTok)
	if err != nil {
		return valueobject.Quantity{}, fmt.Errorf("%w: %q", ErrUnparseableQuantity, raw)
	}
	if value.IsNegative() {
		return valueobject.Quantity{}, fmt.Errorf("%w: negative value %q", ErrUnparseableQuantity, raw)
	}

	unit := defaultUnit
	if len(fields) > 1 {
		unit, err = CanonicalUnit(strings.Join(fields[1:], " "))
		if err != nil {
			return valueobject.Quantity{}, err
		}
	} else if unit == "" {
		unit = valueobject.UnitCodeEach
	}

	return valueobject.NewQuantity(value, unit)
}
