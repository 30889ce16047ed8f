package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mezze/backend/internal/domain/finance"
	"github.com/mezze/backend/internal/domain/shared"
	"github.com/mezze/backend/internal/infrastructure/persistence/models"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Invoice, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByNumber finds an invoice by its number, nil when the number has
// never been invoiced
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, number string) (*finance.Invoice, error) {
	return r.findOne(ctx, "number = ?", number)
}

// FindBySourceRef finds an invoice by its source provenance
func (r *GormInvoiceRepository) FindBySourceRef(ctx context.Context, sourceCode, sourceRef string) (*finance.Invoice, error) {
	return r.findOne(ctx, "source_code = ? AND source_ref = ?", sourceCode, sourceRef)
}

func (r *GormInvoiceRepository) findOne(ctx context.Context, cond string, args ...any) (*finance.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).Where(cond, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByAccount finds invoices for an account
func (r *GormInvoiceRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]finance.Invoice, error) {
	return r.findMany(r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("account_id = ?", accountID), filter)
}

// FindByStatus finds invoices in a given status
func (r *GormInvoiceRepository) FindByStatus(ctx context.Context, status finance.InvoiceStatus, filter shared.Filter) ([]finance.Invoice, error) {
	return r.findMany(r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("status = ?", status), filter)
}

// FindOverpaid finds invoices flagged overpaid
func (r *GormInvoiceRepository) FindOverpaid(ctx context.Context, filter shared.Filter) ([]finance.Invoice, error) {
	return r.FindByStatus(ctx, finance.InvoiceStatusOverpaid, filter)
}

// FindInPeriod finds invoices dated in [start, end)
func (r *GormInvoiceRepository) FindInPeriod(ctx context.Context, start, end time.Time) ([]finance.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("invoice_date >= ? AND invoice_date < ?", start, end).
		Where("status <> ?", finance.InvoiceStatusVoid).
		Order("invoice_date ASC, number ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return toDomainInvoices(invoiceModels), nil
}

// Save creates or updates an invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *finance.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return translateWriteError(r.db.WithContext(ctx).Save(model).Error)
}

// Count counts invoices matching the filter
func (r *GormInvoiceRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{})
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("number ILIKE ? OR account_name ILIKE ?", searchPattern, searchPattern)
	}
	for key, value := range filter.Filters {
		if key == "status" {
			query = query.Where("status = ?", value)
		}
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormInvoiceRepository) findMany(query *gorm.DB, filter shared.Filter) ([]finance.Invoice, error) {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("number ILIKE ? OR account_name ILIKE ?", searchPattern, searchPattern)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	query = query.Order("invoice_date DESC, number DESC")

	var invoiceModels []models.InvoiceModel
	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return toDomainInvoices(invoiceModels), nil
}

func toDomainInvoices(invoiceModels []models.InvoiceModel) []finance.Invoice {
	invoices := make([]finance.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ finance.InvoiceRepository = (*GormInvoiceRepository)(nil)
