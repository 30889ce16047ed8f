package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mezze/backend/internal/domain/shared"
	"github.com/mezze/backend/internal/domain/shared/valueobject"
)

// OrderLine is one product line on an order. Quantity is kept in the unit
// the source reported plus its conversion into the product's base unit, so
// aggregates always sum in one unit. Lines are immutable once the order is
// committed.
type OrderLine struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	ProductID      uuid.UUID
	ProductSKU     string
	ProductName    string
	Quantity       decimal.Decimal // quantity in the ordered unit
	Unit           string
	ConversionRate decimal.Decimal // multiplier into the base unit
	BaseQuantity   decimal.Decimal
	BaseUnit       string
	UnitPrice      decimal.Decimal
	Amount         decimal.Decimal // Quantity * UnitPrice
	Remark         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewOrderLine creates an order line. Quantity must be positive and the
// conversion rate into the base unit must be known.
func NewOrderLine(orderID, productID uuid.UUID, productSKU, productName, unit, baseUnit string, quantity, conversionRate decimal.Decimal, unitPrice valueobject.Money) (*OrderLine, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if productSKU == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_SKU", "Product SKU cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unit == "" {
		return nil, shared.NewDomainError("INVALID_UNIT", "Unit cannot be empty")
	}
	if baseUnit == "" {
		return nil, shared.NewDomainError("INVALID_BASE_UNIT", "Base unit cannot be empty")
	}
	if conversionRate.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_CONVERSION_RATE", "Conversion rate must be positive")
	}
	if unitPrice.Amount().IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	now := time.Now()
	return &OrderLine{
		ID:             uuid.New(),
		OrderID:        orderID,
		ProductID:      productID,
		ProductSKU:     productSKU,
		ProductName:    productName,
		Quantity:       quantity,
		Unit:           unit,
		ConversionRate: conversionRate,
		BaseQuantity:   quantity.Mul(conversionRate).Round(4),
		BaseUnit:       baseUnit,
		UnitPrice:      unitPrice.Amount(),
		Amount:         quantity.Mul(unitPrice.Amount()),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// GetQuantityVO returns the quantity as a value object in the ordered unit
func (l *OrderLine) GetQuantityVO() (valueobject.Quantity, error) {
	return valueobject.NewQuantity(l.Quantity, l.Unit)
}

// GetAmountMoney returns the extended price as Money
func (l *OrderLine) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(l.Amount)
}

// GetUnitPriceMoney returns the unit price as Money
func (l *OrderLine) GetUnitPriceMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(l.UnitPrice)
}
