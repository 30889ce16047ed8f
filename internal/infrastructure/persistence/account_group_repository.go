package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mezze/backend/internal/domain/partner"
	"github.com/mezze/backend/internal/domain/shared"
)

// GormAccountGroupRepository implements AccountGroupRepository using GORM
type GormAccountGroupRepository struct {
	db *gorm.DB
}

// NewGormAccountGroupRepository creates a new GormAccountGroupRepository
func NewGormAccountGroupRepository(db *gorm.DB) *GormAccountGroupRepository {
	return &GormAccountGroupRepository{db: db}
}

// FindByID finds a group by its ID
func (r *GormAccountGroupRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.AccountGroup, error) {
	var group partner.AccountGroup
	if err := r.db.WithContext(ctx).First(&group, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

// FindByCode finds a group by its code
func (r *GormAccountGroupRepository) FindByCode(ctx context.Context, code string) (*partner.AccountGroup, error) {
	var group partner.AccountGroup
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(code)).
		First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

// FindAll finds all groups matching the filter
func (r *GormAccountGroupRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.AccountGroup, error) {
	var groups []partner.AccountGroup
	query := r.db.WithContext(ctx).Model(&partner.AccountGroup{})

	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR code ILIKE ?", searchPattern, searchPattern)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	query = query.Order("name ASC")

	if err := query.Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// Save creates or updates a group
func (r *GormAccountGroupRepository) Save(ctx context.Context, group *partner.AccountGroup) error {
	return translateWriteError(r.db.WithContext(ctx).Save(group).Error)
}

// Delete removes a group. Member accounts keep running ungrouped, so the
// membership pointers are cleared in the same transaction.
func (r *GormAccountGroupRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&partner.Account{}).
			Where("group_id = ?", id).
			Update("group_id", nil).Error; err != nil {
			return err
		}
		result := tx.Delete(&partner.AccountGroup{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Count counts groups matching the filter
func (r *GormAccountGroupRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&partner.AccountGroup{})
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR code ILIKE ?", searchPattern, searchPattern)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormAccountGroupRepository implements AccountGroupRepository
var _ partner.AccountGroupRepository = (*GormAccountGroupRepository)(nil)
