package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mezze/backend/internal/domain/shared"
)

// ProductUnit is an alternate ordering unit for a product with its
// conversion into the product's base unit, e.g. 1 CASE = 12 EACH.
// Order line quantities must arrive in the base unit or in one of these.
type ProductUnit struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_product_unit_code,priority:1"`
	UnitCode       string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_product_unit_code,priority:2"`
	UnitName       string          `gorm:"type:varchar(50);not null"`
	ConversionRate decimal.Decimal `gorm:"type:decimal(18,6);not null"` // multiplier into the base unit
	SortOrder      int             `gorm:"not null;default:0"`
	CreatedAt      time.Time       `gorm:"not null;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"not null;autoUpdateTime"`
}

// TableName returns the table name for GORM
func (ProductUnit) TableName() string {
	return "product_units"
}

// NewProductUnit creates a new product unit
func NewProductUnit(productID uuid.UUID, unitCode, unitName string, conversionRate decimal.Decimal) (*ProductUnit, error) {
	if err := validateUnitCode(unitCode); err != nil {
		return nil, err
	}
	if err := validateUnitName(unitName); err != nil {
		return nil, err
	}
	if err := validateConversionRate(conversionRate); err != nil {
		return nil, err
	}

	return &ProductUnit{
		ID:             uuid.New(),
		ProductID:      productID,
		UnitCode:       strings.ToUpper(unitCode),
		UnitName:       unitName,
		ConversionRate: conversionRate,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}, nil
}

// Update updates the unit name and conversion rate
func (pu *ProductUnit) Update(unitName string, conversionRate decimal.Decimal) error {
	if err := validateUnitName(unitName); err != nil {
		return err
	}
	if err := validateConversionRate(conversionRate); err != nil {
		return err
	}

	pu.UnitName = unitName
	pu.ConversionRate = conversionRate
	pu.UpdatedAt = time.Now()

	return nil
}

// ConvertToBase converts a quantity in this unit into the base unit.
// Formula: baseQuantity = quantity * conversionRate
func (pu *ProductUnit) ConvertToBase(quantity decimal.Decimal) decimal.Decimal {
	return quantity.Mul(pu.ConversionRate).Round(4)
}

// ConvertFromBase converts a base-unit quantity into this unit
func (pu *ProductUnit) ConvertFromBase(baseQuantity decimal.Decimal) decimal.Decimal {
	if pu.ConversionRate.IsZero() {
		return decimal.Zero
	}
	return baseQuantity.Div(pu.ConversionRate).Round(4)
}

func validateUnitCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_UNIT_CODE", "Unit code cannot be empty")
	}
	if len(code) > 20 {
		return shared.NewDomainError("INVALID_UNIT_CODE", "Unit code cannot exceed 20 characters")
	}
	return nil
}

func validateUnitName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_UNIT_NAME", "Unit name cannot be empty")
	}
	if len(name) > 50 {
		return shared.NewDomainError("INVALID_UNIT_NAME", "Unit name cannot exceed 50 characters")
	}
	return nil
}

func validateConversionRate(rate decimal.Decimal) error {
	if rate.IsNegative() {
		return shared.NewDomainError("INVALID_CONVERSION_RATE", "Conversion rate cannot be negative")
	}
	if rate.IsZero() {
		return shared.NewDomainError("INVALID_CONVERSION_RATE", "Conversion rate cannot be zero")
	}
	return nil
}
