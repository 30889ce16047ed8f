package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mezze/backend/internal/domain/trade"
)

// OrderModel is the persistence model for the Order aggregate root.
// The (source_code, source_ref) pair carries the dedup invariant: the
// unique index is the store-side guard against a source record committing
// twice.
type OrderModel struct {
	AggregateModel
	SourceCode   string            `gorm:"type:varchar(50);not null;uniqueIndex:idx_order_source_ref,priority:1"`
	SourceRef    string            `gorm:"type:varchar(100);not null;uniqueIndex:idx_order_source_ref,priority:2"`
	AccountID    uuid.UUID         `gorm:"type:uuid;not null;index"`
	AccountName  string            `gorm:"type:varchar(200);not null"`
	PONumber     string            `gorm:"type:varchar(50)"`
	OrderDate    time.Time         `gorm:"not null;index"`
	WindowStart  *time.Time        `gorm:"index"`
	WindowEnd    *time.Time
	DayOfWeek    string            `gorm:"type:varchar(10)"`
	Lines        []OrderLineModel  `gorm:"foreignKey:OrderID;references:ID"`
	TotalAmount  decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	Status       trade.OrderStatus `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	Remark       string            `gorm:"type:text"`
	FulfilledAt  *time.Time
	InvoicedAt   *time.Time
	CancelledAt  *time.Time
	CancelReason string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order entity.
func (m *OrderModel) ToDomain() *trade.Order {
	order := &trade.Order{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		SourceCode:        m.SourceCode,
		SourceRef:         m.SourceRef,
		AccountID:         m.AccountID,
		AccountName:       m.AccountName,
		PONumber:          m.PONumber,
		OrderDate:         m.OrderDate,
		WindowStart:       m.WindowStart,
		WindowEnd:         m.WindowEnd,
		DayOfWeek:         m.DayOfWeek,
		TotalAmount:       m.TotalAmount,
		Status:            m.Status,
		Remark:            m.Remark,
		FulfilledAt:       m.FulfilledAt,
		InvoicedAt:        m.InvoicedAt,
		CancelledAt:       m.CancelledAt,
		CancelReason:      m.CancelReason,
		Lines:             make([]trade.OrderLine, len(m.Lines)),
	}
	for i, line := range m.Lines {
		order.Lines[i] = *line.ToDomain()
	}
	return order
}

// FromDomain populates the persistence model from a domain Order entity.
func (m *OrderModel) FromDomain(o *trade.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.SourceCode = o.SourceCode
	m.SourceRef = o.SourceRef
	m.AccountID = o.AccountID
	m.AccountName = o.AccountName
	m.PONumber = o.PONumber
	m.OrderDate = o.OrderDate
	m.WindowStart = o.WindowStart
	m.WindowEnd = o.WindowEnd
	m.DayOfWeek = o.DayOfWeek
	m.TotalAmount = o.TotalAmount
	m.Status = o.Status
	m.Remark = o.Remark
	m.FulfilledAt = o.FulfilledAt
	m.InvoicedAt = o.InvoicedAt
	m.CancelledAt = o.CancelledAt
	m.CancelReason = o.CancelReason
	m.Lines = make([]OrderLineModel, len(o.Lines))
	for i, line := range o.Lines {
		m.Lines[i] = *OrderLineModelFromDomain(&line)
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order entity.
func OrderModelFromDomain(o *trade.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderLineModel is the persistence model for the OrderLine entity.
type OrderLineModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductSKU     string          `gorm:"type:varchar(50);not null"`
	ProductName    string          `gorm:"type:varchar(200);not null"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Unit           string          `gorm:"type:varchar(20);not null"`
	ConversionRate decimal.Decimal `gorm:"type:decimal(18,6);not null;default:1"`
	BaseQuantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BaseUnit       string          `gorm:"type:varchar(20);not null"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Remark         string          `gorm:"type:varchar(500)"`
	CreatedAt      time.Time       `gorm:"not null"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "order_lines"
}

// ToDomain converts the persistence model to a domain OrderLine entity.
func (m *OrderLineModel) ToDomain() *trade.OrderLine {
	return &trade.OrderLine{
		ID:             m.ID,
		OrderID:        m.OrderID,
		ProductID:      m.ProductID,
		ProductSKU:     m.ProductSKU,
		ProductName:    m.ProductName,
		Quantity:       m.Quantity,
		Unit:           m.Unit,
		ConversionRate: m.ConversionRate,
		BaseQuantity:   m.BaseQuantity,
		BaseUnit:       m.BaseUnit,
		UnitPrice:      m.UnitPrice,
		Amount:         m.Amount,
		Remark:         m.Remark,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain OrderLine entity.
func (m *OrderLineModel) FromDomain(l *trade.OrderLine) {
	m.ID = l.ID
	m.OrderID = l.OrderID
	m.ProductID = l.ProductID
	m.ProductSKU = l.ProductSKU
	m.ProductName = l.ProductName
	m.Quantity = l.Quantity
	m.Unit = l.Unit
	m.ConversionRate = l.ConversionRate
	m.BaseQuantity = l.BaseQuantity
	m.BaseUnit = l.BaseUnit
	m.UnitPrice = l.UnitPrice
	m.Amount = l.Amount
	m.Remark = l.Remark
	m.CreatedAt = l.CreatedAt
	m.UpdatedAt = l.UpdatedAt
}

// OrderLineModelFromDomain creates a new persistence model from a domain OrderLine entity.
func OrderLineModelFromDomain(l *trade.OrderLine) *OrderLineModel {
	m := &OrderLineModel{}
	m.FromDomain(l)
	return m
}
