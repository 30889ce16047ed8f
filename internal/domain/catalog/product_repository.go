package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mezze/backend/internal/domain/shared"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByCode finds a product by its display code
	FindByCode(ctx context.Context, code string) (*Product, error)

	// FindBySKU finds a product by its SKU
	FindBySKU(ctx context.Context, sku string) (*Product, error)

	// FindByIDs finds multiple products by their IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// FindAll finds all products matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)

	// FindActive finds all active products
	FindActive(ctx context.Context, filter shared.Filter) ([]Product, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error

	// Count counts products matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsBySKU checks if a product with the given SKU exists
	ExistsBySKU(ctx context.Context, sku string) (bool, error)

	// NextCode mints the next display code from the store sequence (PRD-0001)
	NextCode(ctx context.Context) (string, error)
}

// ProductUnitRepository defines the interface for product unit persistence
type ProductUnitRepository interface {
	// FindByProduct finds all alternate units for a product
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]ProductUnit, error)

	// FindByProductAndCode finds one unit by product and unit code
	FindByProductAndCode(ctx context.Context, productID uuid.UUID, unitCode string) (*ProductUnit, error)

	// Save creates or updates a product unit
	Save(ctx context.Context, unit *ProductUnit) error

	// Delete removes a product unit
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProductPriceRepository defines the interface for price history persistence.
// The history is append-only with non-overlapping periods.
type ProductPriceRepository interface {
	// FindByProduct returns the full history ordered by effective date
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]ProductPrice, error)

	// FindEffectiveAt returns the price period covering the given instant
	FindEffectiveAt(ctx context.Context, productID uuid.UUID, unitCode string, at time.Time) (*ProductPrice, error)

	// Append closes the open period at the new price's effective date and
	// inserts the new one, keeping periods non-overlapping
	Append(ctx context.Context, price *ProductPrice) error
}
