package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit is a value object representing a unit of measure.
// It is immutable - all operations return new Unit instances.
// A Unit has a code (identifier), name (display), and conversion rate to
// the owning product's base unit.
type Unit struct {
	code           string
	name           string
	conversionRate decimal.Decimal
}

// Canonical unit codes. EACH is the base unit for countable goods; a
// product's CASE rate says how many EACH one CASE holds.
const (
	UnitCodeEach  = "EACH"
	UnitCodeCase  = "CASE"
	UnitCodeLB    = "LB"
	UnitCodeKG    = "KG"
	UnitCodeDozen = "DOZEN"
)

// NewUnit creates a new Unit with the specified code, name, and conversion rate.
// Returns error if:
//   - code is empty or longer than 20 chars
//   - name is empty or longer than 50 chars
//   - conversionRate is zero or negative
func NewUnit(code, name string, conversionRate decimal.Decimal) (Unit, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	name = strings.TrimSpace(name)

	if code == "" {
		return Unit{}, errors.New("unit code cannot be empty")
	}
	if len(code) > 20 {
		return Unit{}, errors.New("unit code cannot exceed 20 characters")
	}
	if name == "" {
		return Unit{}, errors.New("unit name cannot be empty")
	}
	if len(name) > 50 {
		return Unit{}, errors.New("unit name cannot exceed 50 characters")
	}
	if conversionRate.LessThanOrEqual(decimal.Zero) {
		return Unit{}, errors.New("unit conversion rate must be positive")
	}

	return Unit{
		code:           code,
		name:           name,
		conversionRate: conversionRate,
	}, nil
}

// NewBaseUnit creates a new Unit with conversion rate of 1 (base unit)
func NewBaseUnit(code, name string) (Unit, error) {
	return NewUnit(code, name, decimal.NewFromInt(1))
}

// MustNewUnit creates a Unit and panics on error.
// Use only when the inputs are known valid.
func MustNewUnit(code, name string, conversionRate decimal.Decimal) Unit {
	u, err := NewUnit(code, name, conversionRate)
	if err != nil {
		panic(err)
	}
	return u
}

// Code returns the unit code (normalized to uppercase)
func (u Unit) Code() string {
	return u.code
}

// Name returns the unit name
func (u Unit) Name() string {
	return u.name
}

// ConversionRate returns the conversion rate to base unit.
// 1 of this unit = ConversionRate base units.
func (u Unit) ConversionRate() decimal.Decimal {
	return u.conversionRate
}

// IsBaseUnit returns true if this is a base unit (conversion rate = 1)
func (u Unit) IsBaseUnit() bool {
	return u.conversionRate.Equal(decimal.NewFromInt(1))
}

// IsZero returns true if this is a zero-value Unit
func (u Unit) IsZero() bool {
	return u.code == "" && u.name == "" && u.conversionRate.IsZero()
}

// ConvertToBase converts a quantity from this unit to base units
func (u Unit) ConvertToBase(quantity decimal.Decimal) decimal.Decimal {
	return quantity.Mul(u.conversionRate).Round(4)
}

// ConvertFromBase converts a quantity from base units to this unit
func (u Unit) ConvertFromBase(baseQuantity decimal.Decimal) decimal.Decimal {
	if u.conversionRate.IsZero() {
		return decimal.Zero
	}
	return baseQuantity.Div(u.conversionRate).Round(4)
}

// ConvertTo converts a quantity from this unit to another unit,
// going through the base unit as intermediary.
func (u Unit) ConvertTo(quantity decimal.Decimal, target Unit) (decimal.Decimal, error) {
	if target.conversionRate.IsZero() {
		return decimal.Zero, errors.New("target unit conversion rate cannot be zero")
	}
	base := quantity.Mul(u.conversionRate)
	return base.Div(target.conversionRate).Round(4), nil
}

// Equals returns true if both units have the same code and conversion rate
func (u Unit) Equals(other Unit) bool {
	return u.code == other.code && u.conversionRate.Equal(other.conversionRate)
}

// String returns the unit code
func (u Unit) String() string {
	return u.code
}

// MarshalJSON implements json.Marshaler
func (u Unit) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code           string `json:"code"`
		Name           string `json:"name"`
		ConversionRate string `json:"conversion_rate"`
	}{
		Code:           u.code,
		Name:           u.name,
		ConversionRate: u.conversionRate.String(),
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (u *Unit) UnmarshalJSON(data []byte) error {
	var v struct {
		Code           string `json:"code"`
		Name           string `json:"name"`
		ConversionRate string `json:"conversion_rate"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	rate, err := decimal.NewFromString(v.ConversionRate)
	if err != nil {
		return fmt.Errorf("invalid conversion rate: %w", err)
	}
	parsed, err := NewUnit(v.Code, v.Name, rate)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// Value implements driver.Valuer; stores the unit code only
func (u Unit) Value() (driver.Value, error) {
	return u.code, nil
}

// Scan implements sql.Scanner; restores the code, leaving name and rate
// to be rehydrated from the owning product's unit list.
func (u *Unit) Scan(value any) error {
	if value == nil {
		*u = Unit{}
		return nil
	}
	var code string
	switch v := value.(type) {
	case string:
		code = v
	case []byte:
		code = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Unit", value)
	}
	u.code = strings.TrimSpace(strings.ToUpper(code))
	u.name = u.code
	u.conversionRate = decimal.NewFromInt(1)
	return nil
}
