package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mezze/backend/internal/domain/shared"
	"github.com/mezze/backend/internal/domain/trade"
	"github.com/mezze/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements OrderRepository using GORM.
//
// FindBySourceRef is the dedup probe the pipeline runs for every record;
// it answers (nil, nil) for a never-seen observation. Saves replace the
// line set wholesale because lines only change through the aggregate root.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by its ID, lines included
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySourceRef finds an order by its dedup key
func (r *GormOrderRepository) FindBySourceRef(ctx context.Context, sourceCode, sourceRef string) (*trade.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("source_code = ? AND source_ref = ?", sourceCode, sourceRef).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByAccount finds orders for an account
func (r *GormOrderRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]trade.Order, error) {
	return r.FindByQuery(ctx, trade.OrderQuery{AccountID: accountID}, filter)
}

// FindByQuery finds orders matching the query
func (r *GormOrderRepository) FindByQuery(ctx context.Context, query trade.OrderQuery, filter shared.Filter) ([]trade.Order, error) {
	var orderModels []models.OrderModel
	q := r.applyQuery(r.db.WithContext(ctx).Model(&models.OrderModel{}).Preload("Lines"), query)
	q = r.applyFilter(q, filter)

	if err := q.Find(&orderModels).Error; err != nil {
		return nil, err
	}

	orders := make([]trade.Order, len(orderModels))
	for i, model := range orderModels {
		orders[i] = *model.ToDomain()
	}
	return orders, nil
}

// FindCommittedInPeriod finds non-cancelled orders whose order date falls
// in [start, end)
func (r *GormOrderRepository) FindCommittedInPeriod(ctx context.Context, start, end time.Time) ([]trade.Order, error) {
	var orderModels []models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("status <> ?", trade.OrderStatusCancelled).
		Where("order_date >= ? AND order_date < ?", start, end).
		Order("order_date ASC, source_ref ASC").
		Find(&orderModels).Error; err != nil {
		return nil, err
	}

	orders := make([]trade.Order, len(orderModels))
	for i, model := range orderModels {
		orders[i] = *model.ToDomain()
	}
	return orders, nil
}

// Save creates or updates an order with its lines
func (r *GormOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	model := models.OrderModelFromDomain(order)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Replace the line set: a revision may have dropped lines that a
		// plain upsert would leave behind
		if err := tx.Where("order_id = ?", model.ID).
			Delete(&models.OrderLineModel{}).Error; err != nil {
			return err
		}
		if err := tx.Omit("Lines").Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&model).Error; err != nil {
			return translateWriteError(err)
		}
		if len(model.Lines) == 0 {
			return nil
		}
		return translateWriteError(tx.Create(&model.Lines).Error)
	})
}

// Count counts orders matching the query
func (r *GormOrderRepository) Count(ctx context.Context, query trade.OrderQuery) (int64, error) {
	var count int64
	q := r.applyQuery(r.db.WithContext(ctx).Model(&models.OrderModel{}), query)
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsBySourceRef checks the dedup key without loading the order
func (r *GormOrderRepository) ExistsBySourceRef(ctx context.Context, sourceCode, sourceRef string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("source_code = ? AND source_ref = ?", sourceCode, sourceRef).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormOrderRepository) applyQuery(q *gorm.DB, query trade.OrderQuery) *gorm.DB {
	if query.SourceCode != "" {
		q = q.Where("source_code = ?", query.SourceCode)
	}
	if query.AccountID != uuid.Nil {
		q = q.Where("account_id = ?", query.AccountID)
	}
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}
	if !query.WindowStart.IsZero() {
		q = q.Where("order_date >= ?", query.WindowStart)
	}
	if !query.WindowEnd.IsZero() {
		q = q.Where("order_date < ?", query.WindowEnd)
	}
	return q
}

func (r *GormOrderRepository) applyFilter(q *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		q = q.Where("account_name ILIKE ? OR source_ref ILIKE ? OR po_number ILIKE ?",
			searchPattern, searchPattern, searchPattern)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		q = q.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, OrderSortFields, "order_date")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return q.Order(orderBy + " " + orderDir)
}

// Ensure GormOrderRepository implements OrderRepository
var _ trade.OrderRepository = (*GormOrderRepository)(nil)
