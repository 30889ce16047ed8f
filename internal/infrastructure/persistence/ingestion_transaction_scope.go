package persistence

import (
	"context"

	"gorm.io/gorm"

	appingest "github.com/mezze/backend/internal/application/ingestion"
	"github.com/mezze/backend/internal/domain/catalog"
	"github.com/mezze/backend/internal/domain/finance"
	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/domain/partner"
	"github.com/mezze/backend/internal/domain/resolution"
	"github.com/mezze/backend/internal/domain/trade"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// One ingestion run commits through exactly one Execute call; every write
// inside lands atomically or not at all.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appingest.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides the pipeline's repositories, all
// bound to one transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Accounts returns the account repository scoped to the transaction
func (r *gormTransactionalRepositories) Accounts() partner.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

// Products returns the product repository scoped to the transaction
func (r *gormTransactionalRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

// ProductUnits returns the product unit repository scoped to the transaction
func (r *gormTransactionalRepositories) ProductUnits() catalog.ProductUnitRepository {
	return NewGormProductUnitRepository(r.tx)
}

// Prices returns the price history repository scoped to the transaction
func (r *gormTransactionalRepositories) Prices() catalog.ProductPriceRepository {
	return NewGormProductPriceRepository(r.tx)
}

// Orders returns the order repository scoped to the transaction
func (r *gormTransactionalRepositories) Orders() trade.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

// Invoices returns the invoice repository scoped to the transaction
func (r *gormTransactionalRepositories) Invoices() finance.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

// Payments returns the payment repository scoped to the transaction
func (r *gormTransactionalRepositories) Payments() finance.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// Aliases returns the alias repository scoped to the transaction
func (r *gormTransactionalRepositories) Aliases() resolution.AliasRepository {
	return NewGormAliasRepository(r.tx)
}

// Records returns the ingestion record repository scoped to the transaction
func (r *gormTransactionalRepositories) Records() ingestion.RecordRepository {
	return NewGormRecordRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appingest.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appingest.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
