package ingestion

import (
	"context"

	"github.com/mezze/backend/internal/domain/catalog"
	"github.com/mezze/backend/internal/domain/finance"
	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/domain/partner"
	"github.com/mezze/backend/internal/domain/resolution"
	"github.com/mezze/backend/internal/domain/trade"
)

// TransactionScope provides transactional access to the canonical store.
// One ingestion run commits through exactly one Execute call: every write
// it makes lands atomically or not at all, so an aborted run leaves nothing
// observable.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories the
// pipeline writes through, all scoped to the same transaction.
//
// Aggregate boundary notes:
//   - Orders(): Order aggregate with its lines; lines persist through the
//     aggregate root, never independently.
//   - Aliases(): resolution alias rows staged by the run's resolver
//     session. The unique (owner_type, normalized) index is the store-side
//     guard against two entities claiming one name.
//   - Records(): durable per-(source, source ref) pipeline records;
//     review-queue state lives here.
type TransactionalRepositories interface {
	// Accounts returns the account repository scoped to the transaction
	Accounts() partner.AccountRepository
	// Products returns the product repository scoped to the transaction
	Products() catalog.ProductRepository
	// ProductUnits returns the product unit repository scoped to the transaction
	ProductUnits() catalog.ProductUnitRepository
	// Prices returns the price history repository scoped to the transaction
	Prices() catalog.ProductPriceRepository
	// Orders returns the order repository scoped to the transaction
	Orders() trade.OrderRepository
	// Invoices returns the invoice repository scoped to the transaction
	Invoices() finance.InvoiceRepository
	// Payments returns the payment repository scoped to the transaction
	Payments() finance.PaymentRepository
	// Aliases returns the alias repository scoped to the transaction
	Aliases() resolution.AliasRepository
	// Records returns the ingestion record repository scoped to the transaction
	Records() ingestion.RecordRepository
}

// NoOpTransactionScope runs the function without a real transaction, for
// tests and tools that bring their own repositories.
type NoOpTransactionScope struct {
	accounts     partner.AccountRepository
	products     catalog.ProductRepository
	productUnits catalog.ProductUnitRepository
	prices       catalog.ProductPriceRepository
	orders       trade.OrderRepository
	invoices     finance.InvoiceRepository
	payments     finance.PaymentRepository
	aliases      resolution.AliasRepository
	records      ingestion.RecordRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given
// repositories
func NewNoOpTransactionScope(
	accounts partner.AccountRepository,
	products catalog.ProductRepository,
	productUnits catalog.ProductUnitRepository,
	prices catalog.ProductPriceRepository,
	orders trade.OrderRepository,
	invoices finance.InvoiceRepository,
	payments finance.PaymentRepository,
	aliases resolution.AliasRepository,
	records ingestion.RecordRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		accounts:     accounts,
		products:     products,
		productUnits: productUnits,
		prices:       prices,
		orders:       orders,
		invoices:     invoices,
		payments:     payments,
		aliases:      aliases,
		records:      records,
	}
}

// Execute runs the function without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Accounts returns the account repository
func (s *NoOpTransactionScope) Accounts() partner.AccountRepository { return s.accounts }

// Products returns the product repository
func (s *NoOpTransactionScope) Products() catalog.ProductRepository { return s.products }

// ProductUnits returns the product unit repository
func (s *NoOpTransactionScope) ProductUnits() catalog.ProductUnitRepository { return s.productUnits }

// Prices returns the price history repository
func (s *NoOpTransactionScope) Prices() catalog.ProductPriceRepository { return s.prices }

// Orders returns the order repository
func (s *NoOpTransactionScope) Orders() trade.OrderRepository { return s.orders }

// Invoices returns the invoice repository
func (s *NoOpTransactionScope) Invoices() finance.InvoiceRepository { return s.invoices }

// Payments returns the payment repository
func (s *NoOpTransactionScope) Payments() finance.PaymentRepository { return s.payments }

// Aliases returns the alias repository
func (s *NoOpTransactionScope) Aliases() resolution.AliasRepository { return s.aliases }

// Records returns the ingestion record repository
func (s *NoOpTransactionScope) Records() ingestion.RecordRepository { return s.records }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
