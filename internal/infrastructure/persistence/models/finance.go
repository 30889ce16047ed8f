package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mezze/backend/internal/domain/finance"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
// Lines and applied payments are small, append-mostly collections and are
// stored as JSONB on the row rather than as child tables.
type InvoiceModel struct {
	AggregateModel
	Number      string                 `gorm:"type:varchar(50);not null;uniqueIndex"`
	AccountID   uuid.UUID              `gorm:"type:uuid;not null;index"`
	AccountName string                 `gorm:"type:varchar(200);not null"`
	SourceCode  string                 `gorm:"type:varchar(50);not null;index:idx_invoice_source_ref"`
	SourceRef   string                 `gorm:"type:varchar(100);not null;index:idx_invoice_source_ref"`
	InvoiceDate time.Time              `gorm:"not null;index"`
	DueDate     *time.Time
	Amount      decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	PaidAmount  decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	Status      finance.InvoiceStatus  `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	Lines       finance.InvoiceLines   `gorm:"type:jsonb"`
	Payments    finance.PaymentRecords `gorm:"type:jsonb"`
	Remark      string                 `gorm:"type:text"`
	PaidAt      *time.Time
	VoidedAt    *time.Time
	VoidReason  string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *finance.Invoice {
	return &finance.Invoice{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Number:            m.Number,
		AccountID:         m.AccountID,
		AccountName:       m.AccountName,
		SourceCode:        m.SourceCode,
		SourceRef:         m.SourceRef,
		InvoiceDate:       m.InvoiceDate,
		DueDate:           m.DueDate,
		Amount:            m.Amount,
		PaidAmount:        m.PaidAmount,
		Status:            m.Status,
		Lines:             m.Lines,
		Payments:          m.Payments,
		Remark:            m.Remark,
		PaidAt:            m.PaidAt,
		VoidedAt:          m.VoidedAt,
		VoidReason:        m.VoidReason,
	}
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(inv *finance.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.Number = inv.Number
	m.AccountID = inv.AccountID
	m.AccountName = inv.AccountName
	m.SourceCode = inv.SourceCode
	m.SourceRef = inv.SourceRef
	m.InvoiceDate = inv.InvoiceDate
	m.DueDate = inv.DueDate
	m.Amount = inv.Amount
	m.PaidAmount = inv.PaidAmount
	m.Status = inv.Status
	m.Lines = inv.Lines
	m.Payments = inv.Payments
	m.Remark = inv.Remark
	m.PaidAt = inv.PaidAt
	m.VoidedAt = inv.VoidedAt
	m.VoidReason = inv.VoidReason
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice entity.
func InvoiceModelFromDomain(inv *finance.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// PaymentModel is the persistence model for the Payment aggregate root.
type PaymentModel struct {
	AggregateModel
	InvoiceID  uuid.UUID             `gorm:"type:uuid;not null;index"`
	AccountID  uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount     decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Method     finance.PaymentMethod `gorm:"type:varchar(20);not null"`
	Reference  string                `gorm:"type:varchar(100)"`
	SourceCode string                `gorm:"type:varchar(50);not null;uniqueIndex:idx_payment_source_ref,priority:1"`
	SourceRef  string                `gorm:"type:varchar(100);not null;uniqueIndex:idx_payment_source_ref,priority:2"`
	ReceivedAt time.Time             `gorm:"not null;index"`
	Remark     string                `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *finance.Payment {
	return &finance.Payment{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		InvoiceID:         m.InvoiceID,
		AccountID:         m.AccountID,
		Amount:            m.Amount,
		Method:            m.Method,
		Reference:         m.Reference,
		SourceCode:        m.SourceCode,
		SourceRef:         m.SourceRef,
		ReceivedAt:        m.ReceivedAt,
		Remark:            m.Remark,
	}
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *finance.Payment) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.InvoiceID = p.InvoiceID
	m.AccountID = p.AccountID
	m.Amount = p.Amount
	m.Method = p.Method
	m.Reference = p.Reference
	m.SourceCode = p.SourceCode
	m.SourceRef = p.SourceRef
	m.ReceivedAt = p.ReceivedAt
	m.Remark = p.Remark
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment entity.
func PaymentModelFromDomain(p *finance.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}
