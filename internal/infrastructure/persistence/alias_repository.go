package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mezze/backend/internal/domain/resolution"
	"github.com/mezze/backend/internal/domain/shared"
)

// GormAliasRepository implements AliasRepository using GORM.
//
// The unique index on (owner_type, normalized) is the store-side guard
// behind the one-owner-per-spelling invariant; a violated insert surfaces
// as shared.ErrInvariantViolation.
type GormAliasRepository struct {
	db *gorm.DB
}

// NewGormAliasRepository creates a new GormAliasRepository
func NewGormAliasRepository(db *gorm.DB) *GormAliasRepository {
	return &GormAliasRepository{db: db}
}

// FindByID finds an alias by its ID
func (r *GormAliasRepository) FindByID(ctx context.Context, id uuid.UUID) (*resolution.Alias, error) {
	var alias resolution.Alias
	if err := r.db.WithContext(ctx).First(&alias, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &alias, nil
}

// FindByNormalized finds the alias owning a normalized form, nil when
// the form is unclaimed
func (r *GormAliasRepository) FindByNormalized(ctx context.Context, ownerType resolution.OwnerType, normalized string) (*resolution.Alias, error) {
	var alias resolution.Alias
	if err := r.db.WithContext(ctx).
		Where("owner_type = ? AND normalized = ?", ownerType, normalized).
		First(&alias).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &alias, nil
}

// FindByOwner finds all aliases recorded for one entity
func (r *GormAliasRepository) FindByOwner(ctx context.Context, ownerType resolution.OwnerType, ownerID uuid.UUID) ([]resolution.Alias, error) {
	var aliases []resolution.Alias
	if err := r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Order("created_at ASC").
		Find(&aliases).Error; err != nil {
		return nil, err
	}
	return aliases, nil
}

// FindAllByType finds every alias of one entity kind
func (r *GormAliasRepository) FindAllByType(ctx context.Context, ownerType resolution.OwnerType) ([]resolution.Alias, error) {
	var aliases []resolution.Alias
	if err := r.db.WithContext(ctx).
		Where("owner_type = ?", ownerType).
		Find(&aliases).Error; err != nil {
		return nil, err
	}
	return aliases, nil
}

// Save creates or updates an alias
func (r *GormAliasRepository) Save(ctx context.Context, alias *resolution.Alias) error {
	return translateWriteError(r.db.WithContext(ctx).Save(alias).Error)
}

// Delete removes an alias
func (r *GormAliasRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&resolution.Alias{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ExistsByNormalized checks whether a normalized form is already owned
func (r *GormAliasRepository) ExistsByNormalized(ctx context.Context, ownerType resolution.OwnerType, normalized string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&resolution.Alias{}).
		Where("owner_type = ? AND normalized = ?", ownerType, normalized).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count counts aliases of one entity kind
func (r *GormAliasRepository) Count(ctx context.Context, ownerType resolution.OwnerType) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&resolution.Alias{}).
		Where("owner_type = ?", ownerType).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormAliasRepository implements AliasRepository
var _ resolution.AliasRepository = (*GormAliasRepository)(nil)
