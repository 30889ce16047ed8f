package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mezze/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderCreated       = "OrderCreated"
	EventTypeOrderStatusChanged = "OrderStatusChanged"
	EventTypeOrderRevised       = "OrderRevised"
)

// OrderCreatedEvent is published when an order is created
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	SourceCode  string    `json:"source_code"`
	SourceRef   string    `json:"source_ref"`
	AccountID   uuid.UUID `json:"account_id"`
	AccountName string    `json:"account_name"`
	OrderDate   time.Time `json:"order_date"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(order *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, order.ID),
		OrderID:         order.ID,
		SourceCode:      order.SourceCode,
		SourceRef:       order.SourceRef,
		AccountID:       order.AccountID,
		AccountName:     order.AccountName,
		OrderDate:       order.OrderDate,
	}
}

// OrderStatusChangedEvent is published when an order's status changes,
// whether merged from a source or set by an operator
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID       `json:"order_id"`
	SourceCode  string          `json:"source_code"`
	SourceRef   string          `json:"source_ref"`
	OldStatus   OrderStatus     `json:"old_status"`
	NewStatus   OrderStatus     `json:"new_status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(order *Order, oldStatus, newStatus OrderStatus) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypeOrder, order.ID),
		OrderID:         order.ID,
		SourceCode:      order.SourceCode,
		SourceRef:       order.SourceRef,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
		TotalAmount:     order.TotalAmount,
	}
}

// OrderRevisedEvent is published when an operator-approved overwrite
// replaced the order's content
type OrderRevisedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID       `json:"order_id"`
	SourceCode  string          `json:"source_code"`
	SourceRef   string          `json:"source_ref"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	LineCount   int             `json:"line_count"`
}

// NewOrderRevisedEvent creates a new OrderRevisedEvent
func NewOrderRevisedEvent(order *Order) *OrderRevisedEvent {
	return &OrderRevisedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderRevised, AggregateTypeOrder, order.ID),
		OrderID:         order.ID,
		SourceCode:      order.SourceCode,
		SourceRef:       order.SourceRef,
		TotalAmount:     order.TotalAmount,
		LineCount:       len(order.Lines),
	}
}
