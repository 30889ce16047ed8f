package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mezze/backend/internal/domain/shared"
	"github.com/mezze/backend/internal/domain/shared/valueobject"
)

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCheck PaymentMethod = "CHECK"
	PaymentMethodACH   PaymentMethod = "ACH"
	PaymentMethodCard  PaymentMethod = "CARD"
	PaymentMethodCash  PaymentMethod = "CASH"
	PaymentMethodOther PaymentMethod = "OTHER"
)

// IsValid checks if the method is a valid PaymentMethod
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCheck, PaymentMethodACH, PaymentMethodCard, PaymentMethodCash, PaymentMethodOther:
		return true
	}
	return false
}

// Payment is a received payment against an invoice. It is the durable
// record; the invoice mirrors it in its applied-payment list. A payment
// larger than the invoice remainder is stored as-is and the invoice is
// flagged overpaid.
type Payment struct {
	shared.BaseAggregateRoot
	InvoiceID  uuid.UUID
	AccountID  uuid.UUID
	Amount     decimal.Decimal
	Method     PaymentMethod
	Reference  string
	SourceCode string
	SourceRef  string
	ReceivedAt time.Time
	Remark     string
}

// NewPayment creates a payment record
func NewPayment(invoiceID, accountID uuid.UUID, amount valueobject.Money, method PaymentMethod, receivedAt time.Time) (*Payment, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_METHOD", "Unknown payment method")
	}
	if receivedAt.IsZero() {
		return nil, shared.NewDomainError("INVALID_RECEIVED_DATE", "Received date cannot be zero")
	}

	payment := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceID:         invoiceID,
		AccountID:         accountID,
		Amount:            amount.Amount(),
		Method:            method,
		ReceivedAt:        receivedAt.UTC(),
	}

	payment.AddDomainEvent(NewPaymentRecordedEvent(payment))

	return payment, nil
}

// SetReference records the payer's reference, e.g. a check number
func (p *Payment) SetReference(ref string) error {
	if len(ref) > 100 {
		return shared.NewDomainError("INVALID_REFERENCE", "Reference cannot exceed 100 characters")
	}
	p.Reference = ref
	p.UpdatedAt = time.Now()
	return nil
}

// SetProvenance records which source record produced this payment
func (p *Payment) SetProvenance(sourceCode, sourceRef string) {
	p.SourceCode = sourceCode
	p.SourceRef = sourceRef
	p.UpdatedAt = time.Now()
}

// GetAmountMoney returns the amount as Money
func (p *Payment) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(p.Amount)
}
