package finance

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mezze/backend/internal/domain/shared"
	"github.com/mezze/backend/internal/domain/shared/valueobject"
)

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusOpen     InvoiceStatus = "OPEN"
	InvoiceStatusPartial  InvoiceStatus = "PARTIAL"
	InvoiceStatusPaid     InvoiceStatus = "PAID"
	InvoiceStatusOverpaid InvoiceStatus = "OVERPAID" // flagged for review, payments are never refused
	InvoiceStatusVoid     InvoiceStatus = "VOID"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusOpen, InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusOverpaid, InvoiceStatusVoid:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// InvoiceLine links an invoice to one order line and carries the billed
// extended price. Stored as JSONB inside the invoice aggregate.
type InvoiceLine struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"order_id"`
	OrderLineID uuid.UUID       `json:"order_line_id"`
	Amount      decimal.Decimal `json:"amount"`
}

// InvoiceLines implements GORM Scanner/Valuer for JSONB storage
type InvoiceLines []InvoiceLine

// Value implements driver.Valuer
func (l InvoiceLines) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *InvoiceLines) Scan(value interface{}) error {
	if value == nil {
		*l = InvoiceLines{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan InvoiceLines: unsupported type")
	}
	if len(bytes) == 0 {
		*l = InvoiceLines{}
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// PaymentRecord is one payment applied to the invoice, a value object
// stored as JSONB inside the aggregate. The Payment aggregate is the
// durable record; this mirror keeps the invoice self-contained for reads.
type PaymentRecord struct {
	ID        uuid.UUID       `json:"id"`
	PaymentID uuid.UUID       `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	AppliedAt time.Time       `json:"applied_at"`
	Remark    string          `json:"remark,omitempty"`
}

// PaymentRecords implements GORM Scanner/Valuer for JSONB storage
type PaymentRecords []PaymentRecord

// Value implements driver.Valuer
func (p PaymentRecords) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner
func (p *PaymentRecords) Scan(value interface{}) error {
	if value == nil {
		*p = PaymentRecords{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan PaymentRecords: unsupported type")
	}
	if len(bytes) == 0 {
		*p = PaymentRecords{}
		return nil
	}
	return json.Unmarshal(bytes, p)
}

// Invoice bills an account for a set of committed order lines. The face
// Amount must equal the sum of its line amounts within the configured
// tolerance; a mismatch rejects the single record at commit time.
type Invoice struct {
	shared.BaseAggregateRoot
	Number      string
	AccountID   uuid.UUID
	AccountName string
	SourceCode  string
	SourceRef   string
	InvoiceDate time.Time
	DueDate     *time.Time
	Amount      decimal.Decimal
	PaidAmount  decimal.Decimal
	Status      InvoiceStatus
	Lines       InvoiceLines
	Payments    PaymentRecords
	Remark      string
	PaidAt      *time.Time
	VoidedAt    *time.Time
	VoidReason  string
}

// NewInvoice creates an invoice in OPEN status
func NewInvoice(number string, accountID uuid.UUID, accountName string, amount valueobject.Money, invoiceDate time.Time) (*Invoice, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if accountName == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_NAME", "Account name cannot be empty")
	}
	if amount.Amount().IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice amount cannot be negative")
	}
	if invoiceDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_INVOICE_DATE", "Invoice date cannot be zero")
	}

	invoice := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		AccountID:         accountID,
		AccountName:       accountName,
		InvoiceDate:       invoiceDate.UTC(),
		Amount:            amount.Amount(),
		PaidAmount:        decimal.Zero,
		Status:            InvoiceStatusOpen,
		Lines:             InvoiceLines{},
		Payments:          PaymentRecords{},
	}

	invoice.AddDomainEvent(NewInvoiceCreatedEvent(invoice))

	return invoice, nil
}

// SetProvenance records which source record produced this invoice
func (inv *Invoice) SetProvenance(sourceCode, sourceRef string) {
	inv.SourceCode = sourceCode
	inv.SourceRef = sourceRef
	inv.UpdatedAt = time.Now()
}

// SetDueDate sets the payment due date
func (inv *Invoice) SetDueDate(due time.Time) error {
	if due.Before(inv.InvoiceDate) {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before the invoice date")
	}
	u := due.UTC()
	inv.DueDate = &u
	inv.UpdatedAt = time.Now()
	return nil
}

// AddLine links an order line with its billed amount.
// Only allowed before any payment has been applied.
func (inv *Invoice) AddLine(orderID, orderLineID uuid.UUID, amount valueobject.Money) error {
	if inv.Status != InvoiceStatusOpen {
		return shared.NewDomainError("INVALID_STATE", "Cannot add lines to a non-open invoice")
	}
	if len(inv.Payments) > 0 {
		return shared.NewDomainError("INVALID_STATE", "Cannot add lines after payments were applied")
	}
	if orderID == uuid.Nil || orderLineID == uuid.Nil {
		return shared.NewDomainError("INVALID_LINE", "Order and order line references are required")
	}
	for _, line := range inv.Lines {
		if line.OrderLineID == orderLineID {
			return shared.NewDomainError("DUPLICATE_LINE", "Order line is already billed on this invoice")
		}
	}

	inv.Lines = append(inv.Lines, InvoiceLine{
		ID:          uuid.New(),
		OrderID:     orderID,
		OrderLineID: orderLineID,
		Amount:      amount.Amount(),
	})
	inv.UpdatedAt = time.Now()

	return nil
}

// LineTotal returns the sum of all billed line amounts
func (inv *Invoice) LineTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range inv.Lines {
		total = total.Add(line.Amount)
	}
	return total
}

// ValidateAmount checks the face amount against the line total within the
// given tolerance. The pipeline calls this before committing the record.
func (inv *Invoice) ValidateAmount(epsilon decimal.Decimal) error {
	diff := inv.Amount.Sub(inv.LineTotal()).Abs()
	if diff.GreaterThan(epsilon) {
		return shared.NewDomainError("AMOUNT_MISMATCH",
			fmt.Sprintf("Invoice amount %s differs from line total %s by more than %s",
				inv.Amount.String(), inv.LineTotal().String(), epsilon.String()))
	}
	return nil
}

// ApplyPayment records a payment against the invoice. Payments exceeding
// the face amount are accepted and flag the invoice OVERPAID; blocking
// money that already arrived helps nobody.
func (inv *Invoice) ApplyPayment(paymentID uuid.UUID, amount valueobject.Money, appliedAt time.Time, remark string) error {
	if inv.Status == InvoiceStatusVoid {
		return shared.NewDomainError("INVALID_STATE", "Cannot apply payment to a void invoice")
	}
	if paymentID == uuid.Nil {
		return shared.NewDomainError("INVALID_PAYMENT", "Payment ID cannot be empty")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	for _, rec := range inv.Payments {
		if rec.PaymentID == paymentID {
			return shared.NewDomainError("DUPLICATE_PAYMENT", "Payment is already applied to this invoice")
		}
	}

	inv.Payments = append(inv.Payments, PaymentRecord{
		ID:        uuid.New(),
		PaymentID: paymentID,
		Amount:    amount.Amount(),
		AppliedAt: appliedAt.UTC(),
		Remark:    remark,
	})
	inv.PaidAmount = inv.PaidAmount.Add(amount.Amount())

	now := time.Now()
	switch {
	case inv.PaidAmount.GreaterThan(inv.Amount):
		wasOverpaid := inv.Status == InvoiceStatusOverpaid
		inv.Status = InvoiceStatusOverpaid
		if inv.PaidAt == nil {
			inv.PaidAt = &now
		}
		if !wasOverpaid {
			inv.AddDomainEvent(NewInvoiceOverpaidEvent(inv))
		}
	case inv.PaidAmount.Equal(inv.Amount):
		inv.Status = InvoiceStatusPaid
		inv.PaidAt = &now
		inv.AddDomainEvent(NewInvoicePaidEvent(inv))
	default:
		inv.Status = InvoiceStatusPartial
	}

	inv.UpdatedAt = now
	inv.IncrementVersion()

	return nil
}

// Void voids the invoice. Not allowed once payments were applied.
func (inv *Invoice) Void(reason string) error {
	if inv.Status == InvoiceStatusVoid {
		return shared.NewDomainError("ALREADY_VOID", "Invoice is already void")
	}
	if len(inv.Payments) > 0 {
		return shared.NewDomainError("INVALID_STATE", "Cannot void an invoice with applied payments")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Void reason is required")
	}

	now := time.Now()
	inv.Status = InvoiceStatusVoid
	inv.VoidedAt = &now
	inv.VoidReason = reason
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceVoidedEvent(inv))

	return nil
}

// OutstandingAmount returns the unpaid remainder, never negative
func (inv *Invoice) OutstandingAmount() decimal.Decimal {
	out := inv.Amount.Sub(inv.PaidAmount)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// OverpaidAmount returns the excess over the face amount, zero when not overpaid
func (inv *Invoice) OverpaidAmount() decimal.Decimal {
	over := inv.PaidAmount.Sub(inv.Amount)
	if over.IsNegative() {
		return decimal.Zero
	}
	return over
}

// IsOverpaid returns true if payments exceed the face amount
func (inv *Invoice) IsOverpaid() bool {
	return inv.Status == InvoiceStatusOverpaid
}

// IsPaid returns true if the invoice is settled exactly
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// GetAmountMoney returns the face amount as Money
func (inv *Invoice) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(inv.Amount)
}
