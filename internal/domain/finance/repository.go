package finance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mezze/backend/internal/domain/shared"
)

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByNumber finds an invoice by its number
	FindByNumber(ctx context.Context, number string) (*Invoice, error)

	// FindBySourceRef finds an invoice by its source provenance
	FindBySourceRef(ctx context.Context, sourceCode, sourceRef string) (*Invoice, error)

	// FindByAccount finds invoices for an account
	FindByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]Invoice, error)

	// FindByStatus finds invoices in a given status
	FindByStatus(ctx context.Context, status InvoiceStatus, filter shared.Filter) ([]Invoice, error)

	// FindOverpaid finds invoices flagged overpaid
	FindOverpaid(ctx context.Context, filter shared.Filter) ([]Invoice, error)

	// FindInPeriod finds invoices dated in [start, end)
	FindInPeriod(ctx context.Context, start, end time.Time) ([]Invoice, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, invoice *Invoice) error

	// Count counts invoices matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByID finds a payment by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByInvoice finds all payments applied to an invoice
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error)

	// FindBySourceRef finds a payment by its source provenance
	FindBySourceRef(ctx context.Context, sourceCode, sourceRef string) (*Payment, error)

	// FindInPeriod finds payments received in [start, end)
	FindInPeriod(ctx context.Context, start, end time.Time) ([]Payment, error)

	// Save creates or updates a payment
	Save(ctx context.Context, payment *Payment) error
}
