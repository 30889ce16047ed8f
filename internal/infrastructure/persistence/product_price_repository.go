package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mezze/backend/internal/domain/catalog"
)

// GormProductPriceRepository implements ProductPriceRepository using GORM.
// The history is append-only: Append closes the open period and inserts
// the new one in a single transaction, keeping periods non-overlapping.
type GormProductPriceRepository struct {
	db *gorm.DB
}

// NewGormProductPriceRepository creates a new GormProductPriceRepository
func NewGormProductPriceRepository(db *gorm.DB) *GormProductPriceRepository {
	return &GormProductPriceRepository{db: db}
}

// FindByProduct returns the full history ordered by effective date
func (r *GormProductPriceRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]catalog.ProductPrice, error) {
	var prices []catalog.ProductPrice
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("effective_from ASC").
		Find(&prices).Error; err != nil {
		return nil, err
	}
	return prices, nil
}

// FindEffectiveAt returns the price period covering the given instant,
// nil when no period covers it
func (r *GormProductPriceRepository) FindEffectiveAt(ctx context.Context, productID uuid.UUID, unitCode string, at time.Time) (*catalog.ProductPrice, error) {
	var price catalog.ProductPrice
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND unit_code = ?", productID, strings.ToUpper(unitCode)).
		Where("effective_from <= ?", at).
		Where("effective_to IS NULL OR effective_to > ?", at).
		Order("effective_from DESC").
		First(&price).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &price, nil
}

// Append closes the open period at the new price's effective date and
// inserts the new one
func (r *GormProductPriceRepository) Append(ctx context.Context, price *catalog.ProductPrice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&catalog.ProductPrice{}).
			Where("product_id = ? AND unit_code = ? AND effective_to IS NULL", price.ProductID, price.UnitCode).
			Where("effective_from < ?", price.EffectiveFrom).
			Update("effective_to", price.EffectiveFrom).Error; err != nil {
			return err
		}
		return translateWriteError(tx.Create(price).Error)
	})
}

// Ensure GormProductPriceRepository implements ProductPriceRepository
var _ catalog.ProductPriceRepository = (*GormProductPriceRepository)(nil)
