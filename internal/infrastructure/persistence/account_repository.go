package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mezze/backend/internal/domain/partner"
	"github.com/mezze/backend/internal/domain/shared"
)

// GormAccountRepository implements AccountRepository using GORM.
//
// Single-entity finders return (nil, nil) when nothing matches: the
// pipeline probes for accounts that may not exist yet, and absence is a
// normal answer there, not an error.
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account by its ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Account, error) {
	var account partner.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// FindByCode finds an account by its display code
func (r *GormAccountRepository) FindByCode(ctx context.Context, code string) (*partner.Account, error) {
	var account partner.Account
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(code)).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// FindByName finds an account by exact canonical name
func (r *GormAccountRepository) FindByName(ctx context.Context, name string) (*partner.Account, error) {
	var account partner.Account
	if err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// FindByIDs finds multiple accounts by their IDs
func (r *GormAccountRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]partner.Account, error) {
	if len(ids) == 0 {
		return []partner.Account{}, nil
	}
	var accounts []partner.Account
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// FindByGroup finds all accounts belonging to a group
func (r *GormAccountRepository) FindByGroup(ctx context.Context, groupID uuid.UUID, filter shared.Filter) ([]partner.Account, error) {
	var accounts []partner.Account
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&partner.Account{}).Where("group_id = ?", groupID),
		filter,
	)
	if err := query.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// FindAll finds all accounts matching the filter
func (r *GormAccountRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Account, error) {
	var accounts []partner.Account
	query := r.applyFilter(r.db.WithContext(ctx).Model(&partner.Account{}), filter)
	if err := query.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// FindActive finds all active accounts
func (r *GormAccountRepository) FindActive(ctx context.Context, filter shared.Filter) ([]partner.Account, error) {
	var accounts []partner.Account
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&partner.Account{}).
			Where("status = ?", partner.AccountStatusActive),
		filter,
	)
	if err := query.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// Save creates or updates an account
func (r *GormAccountRepository) Save(ctx context.Context, account *partner.Account) error {
	return translateWriteError(r.db.WithContext(ctx).Save(account).Error)
}

// Delete removes an account
func (r *GormAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&partner.Account{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts accounts matching the filter
func (r *GormAccountRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&partner.Account{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByCode checks if an account with the given code exists
func (r *GormAccountRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&partner.Account{}).
		Where("code = ?", strings.ToUpper(code)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// NextCode mints the next display code from the highest one on file.
// Callers run this inside the ingestion transaction, so two concurrent
// runs cannot mint the same code past commit: the unique index on code
// rejects the loser.
func (r *GormAccountRepository) NextCode(ctx context.Context) (string, error) {
	return nextDisplayCode(ctx, r.db, &partner.Account{}, "ACC")
}

func (r *GormAccountRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, AccountSortFields, "name")
	orderDir := ValidateSortOrder(filter.OrderDir)
	if filter.OrderBy == "" {
		orderDir = "ASC"
	}
	return query.Order(orderBy + " " + orderDir)
}

func (r *GormAccountRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR code ILIKE ? OR contact_name ILIKE ?",
			searchPattern, searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "group_id":
			query = query.Where("group_id = ?", value)
		case "origin":
			query = query.Where("origin = ?", value)
		}
	}

	return query
}

// nextDisplayCode reads the highest prefixed code on file and returns the
// next one, zero-padded to four digits (ACC-0007, PRD-0012). Ordering by
// length first keeps codes past 9999 sorting after shorter ones.
func nextDisplayCode(ctx context.Context, db *gorm.DB, model any, prefix string) (string, error) {
	var last string
	err := db.WithContext(ctx).
		Model(model).
		Where("code LIKE ?", prefix+"-%").
		Order("length(code) DESC, code DESC").
		Limit(1).
		Pluck("code", &last).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	next := 1
	if last != "" {
		var n int
		if _, err := fmt.Sscanf(last, prefix+"-%d", &n); err == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s-%04d", prefix, next), nil
}

// Ensure GormAccountRepository implements AccountRepository
var _ partner.AccountRepository = (*GormAccountRepository)(nil)
