package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mezze/backend/internal/domain/catalog"
	"github.com/mezze/backend/internal/domain/shared"
)

// GormProductUnitRepository implements ProductUnitRepository using GORM
type GormProductUnitRepository struct {
	db *gorm.DB
}

// NewGormProductUnitRepository creates a new GormProductUnitRepository
func NewGormProductUnitRepository(db *gorm.DB) *GormProductUnitRepository {
	return &GormProductUnitRepository{db: db}
}

// FindByProduct finds all alternate units for a product
func (r *GormProductUnitRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]catalog.ProductUnit, error) {
	var units []catalog.ProductUnit
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("sort_order ASC, unit_code ASC").
		Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// FindByProductAndCode finds one unit by product and unit code, nil when
// the unit is not configured
func (r *GormProductUnitRepository) FindByProductAndCode(ctx context.Context, productID uuid.UUID, unitCode string) (*catalog.ProductUnit, error) {
	var unit catalog.ProductUnit
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND unit_code = ?", productID, strings.ToUpper(unitCode)).
		First(&unit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &unit, nil
}

// Save creates or updates a product unit
func (r *GormProductUnitRepository) Save(ctx context.Context, unit *catalog.ProductUnit) error {
	return translateWriteError(r.db.WithContext(ctx).Save(unit).Error)
}

// Delete removes a product unit
func (r *GormProductUnitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&catalog.ProductUnit{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormProductUnitRepository implements ProductUnitRepository
var _ catalog.ProductUnitRepository = (*GormProductUnitRepository)(nil)
