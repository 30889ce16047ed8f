package finance

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mezze/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeInvoice = "Invoice"
	AggregateTypePayment = "Payment"
)

// Event type constants
const (
	EventTypeInvoiceCreated  = "InvoiceCreated"
	EventTypeInvoicePaid     = "InvoicePaid"
	EventTypeInvoiceOverpaid = "InvoiceOverpaid"
	EventTypeInvoiceVoided   = "InvoiceVoided"
	EventTypePaymentRecorded = "PaymentRecorded"
)

// InvoiceCreatedEvent is published when an invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Number    string          `json:"number"`
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(invoice *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, invoice.ID),
		InvoiceID:       invoice.ID,
		Number:          invoice.Number,
		AccountID:       invoice.AccountID,
		Amount:          invoice.Amount,
	}
}

// InvoicePaidEvent is published when an invoice is settled exactly
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID  uuid.UUID       `json:"invoice_id"`
	Number     string          `json:"number"`
	AccountID  uuid.UUID       `json:"account_id"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(invoice *Invoice) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaid, AggregateTypeInvoice, invoice.ID),
		InvoiceID:       invoice.ID,
		Number:          invoice.Number,
		AccountID:       invoice.AccountID,
		PaidAmount:      invoice.PaidAmount,
	}
}

// InvoiceOverpaidEvent flags an invoice whose payments exceed its face
// amount. Review picks these up; the payment itself is never refused.
type InvoiceOverpaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID      uuid.UUID       `json:"invoice_id"`
	Number         string          `json:"number"`
	AccountID      uuid.UUID       `json:"account_id"`
	Amount         decimal.Decimal `json:"amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	OverpaidAmount decimal.Decimal `json:"overpaid_amount"`
}

// NewInvoiceOverpaidEvent creates a new InvoiceOverpaidEvent
func NewInvoiceOverpaidEvent(invoice *Invoice) *InvoiceOverpaidEvent {
	return &InvoiceOverpaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceOverpaid, AggregateTypeInvoice, invoice.ID),
		InvoiceID:       invoice.ID,
		Number:          invoice.Number,
		AccountID:       invoice.AccountID,
		Amount:          invoice.Amount,
		PaidAmount:      invoice.PaidAmount,
		OverpaidAmount:  invoice.OverpaidAmount(),
	}
}

// InvoiceVoidedEvent is published when an invoice is voided
type InvoiceVoidedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID `json:"invoice_id"`
	Number    string    `json:"number"`
	Reason    string    `json:"reason"`
}

// NewInvoiceVoidedEvent creates a new InvoiceVoidedEvent
func NewInvoiceVoidedEvent(invoice *Invoice) *InvoiceVoidedEvent {
	return &InvoiceVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceVoided, AggregateTypeInvoice, invoice.ID),
		InvoiceID:       invoice.ID,
		Number:          invoice.Number,
		Reason:          invoice.VoidReason,
	}
}

// PaymentRecordedEvent is published when a payment is recorded
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID       `json:"payment_id"`
	InvoiceID uuid.UUID       `json:"invoice_id"`
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(payment *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypePayment, payment.ID),
		PaymentID:       payment.ID,
		InvoiceID:       payment.InvoiceID,
		AccountID:       payment.AccountID,
		Amount:          payment.Amount,
	}
}
