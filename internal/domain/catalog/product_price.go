package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/mezze/backend/internal/domain/shared"
	"github.com/mezze/backend/internal/domain/shared/valueobject"
)

// ProductPrice is one period of a product's price history. Periods are
// half-open [EffectiveFrom, EffectiveTo); a nil EffectiveTo marks the
// current price. The history is append-only and periods never overlap:
// appending a new price closes the open one at the new effective date.
type ProductPrice struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey"`
	ProductID     uuid.UUID         `gorm:"type:uuid;not null;index"`
	UnitCode      string            `gorm:"type:varchar(20);not null"` // unit the price applies to
	Price         valueobject.Money `gorm:"type:decimal(18,4);not null"`
	EffectiveFrom time.Time         `gorm:"not null;index"`
	EffectiveTo   *time.Time        `gorm:"index"`
	CreatedAt     time.Time         `gorm:"not null;autoCreateTime"`
}

// TableName returns the table name for GORM
func (ProductPrice) TableName() string {
	return "product_prices"
}

// NewProductPrice creates a price period starting at effectiveFrom
func NewProductPrice(productID uuid.UUID, unitCode string, price valueobject.Money, effectiveFrom time.Time) (*ProductPrice, error) {
	if err := validateUnitCode(unitCode); err != nil {
		return nil, err
	}
	if price.Amount().IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if effectiveFrom.IsZero() {
		return nil, shared.NewDomainError("INVALID_EFFECTIVE_DATE", "Effective date cannot be zero")
	}

	return &ProductPrice{
		ID:            uuid.New(),
		ProductID:     productID,
		UnitCode:      unitCode,
		Price:         price,
		EffectiveFrom: effectiveFrom.UTC(),
		CreatedAt:     time.Now(),
	}, nil
}

// CloseAt ends this price period at the given instant
func (pp *ProductPrice) CloseAt(t time.Time) error {
	if !t.After(pp.EffectiveFrom) {
		return shared.NewDomainError("INVALID_EFFECTIVE_DATE", "Close date must be after the effective date")
	}
	u := t.UTC()
	pp.EffectiveTo = &u
	return nil
}

// IsOpen returns true if this is the current price period
func (pp *ProductPrice) IsOpen() bool {
	return pp.EffectiveTo == nil
}

// Covers returns true if the period contains the given instant
func (pp *ProductPrice) Covers(t time.Time) bool {
	if t.Before(pp.EffectiveFrom) {
		return false
	}
	return pp.EffectiveTo == nil || t.Before(*pp.EffectiveTo)
}
