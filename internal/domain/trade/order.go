package trade

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mezze/backend/internal/domain/shared"
	"github.com/mezze/backend/internal/domain/shared/valueobject"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "OPEN"
	OrderStatusFulfilled OrderStatus = "FULFILLED"
	OrderStatusInvoiced  OrderStatus = "INVOICED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusOpen, OrderStatusFulfilled, OrderStatusInvoiced, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusOpen:
		return target == OrderStatusFulfilled || target == OrderStatusCancelled
	case OrderStatusFulfilled:
		return target == OrderStatusInvoiced || target == OrderStatusCancelled
	case OrderStatusInvoiced, OrderStatusCancelled:
		return false
	}
	return false
}

// rank orders the lifecycle for source-driven merges. A source may report a
// later state than we last saw without the intermediate update ever arriving.
func (s OrderStatus) rank() int {
	switch s {
	case OrderStatusOpen:
		return 0
	case OrderStatusFulfilled:
		return 1
	case OrderStatusInvoiced:
		return 2
	}
	return -1
}

// Order is one committed order from a source. The pair (SourceCode,
// SourceRef) is the dedup key: re-ingesting the same source record must hit
// this order, never create a second one. Content other than Status is
// immutable once committed; a re-ingest that changes anything covered by
// Fingerprint is a conflict, not an update.
type Order struct {
	shared.BaseAggregateRoot
	SourceCode   string
	SourceRef    string
	AccountID    uuid.UUID
	AccountName  string
	PONumber     string
	OrderDate    time.Time
	WindowStart  *time.Time
	WindowEnd    *time.Time
	DayOfWeek    string
	Lines        []OrderLine
	TotalAmount  decimal.Decimal
	Status       OrderStatus
	Remark       string
	FulfilledAt  *time.Time
	InvoicedAt   *time.Time
	CancelledAt  *time.Time
	CancelReason string
}

// NewOrder creates an order in OPEN status
func NewOrder(sourceCode, sourceRef string, accountID uuid.UUID, accountName string, orderDate time.Time) (*Order, error) {
	if sourceCode == "" {
		return nil, shared.NewDomainError("INVALID_SOURCE", "Source code cannot be empty")
	}
	if sourceRef == "" {
		return nil, shared.NewDomainError("INVALID_SOURCE_REF", "Source reference cannot be empty")
	}
	if len(sourceRef) > 100 {
		return nil, shared.NewDomainError("INVALID_SOURCE_REF", "Source reference cannot exceed 100 characters")
	}
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if accountName == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_NAME", "Account name cannot be empty")
	}
	if orderDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_ORDER_DATE", "Order date cannot be zero")
	}

	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SourceCode:        sourceCode,
		SourceRef:         sourceRef,
		AccountID:         accountID,
		AccountName:       accountName,
		OrderDate:         orderDate.UTC(),
		Lines:             make([]OrderLine, 0),
		TotalAmount:       decimal.Zero,
		Status:            OrderStatusOpen,
	}

	order.AddDomainEvent(NewOrderCreatedEvent(order))

	return order, nil
}

// DisplayRef returns the human-readable reference, e.g. "mezze/W03-17"
func (o *Order) DisplayRef() string {
	return o.SourceCode + "/" + o.SourceRef
}

// SetPONumber sets the customer purchase order number
func (o *Order) SetPONumber(po string) error {
	if len(po) > 50 {
		return shared.NewDomainError("INVALID_PO_NUMBER", "PO number cannot exceed 50 characters")
	}
	o.PONumber = po
	o.UpdatedAt = time.Now()
	return nil
}

// SetWindow records the source reporting window the order was fetched in
func (o *Order) SetWindow(start, end time.Time) error {
	if end.Before(start) {
		return shared.NewDomainError("INVALID_WINDOW", "Window end cannot be before start")
	}
	s, e := start.UTC(), end.UTC()
	o.WindowStart = &s
	o.WindowEnd = &e
	o.UpdatedAt = time.Now()
	return nil
}

// SetDayOfWeek records the delivery day from weekly order sheets
func (o *Order) SetDayOfWeek(day string) {
	o.DayOfWeek = day
	o.UpdatedAt = time.Now()
}

// SetRemark sets the order remark
func (o *Order) SetRemark(remark string) {
	o.Remark = remark
	o.UpdatedAt = time.Now()
}

// AddLine adds a line to the order. Lines can only be added while the order
// is OPEN; committed content never changes afterwards.
func (o *Order) AddLine(productID uuid.UUID, productSKU, productName, unit, baseUnit string, quantity, conversionRate decimal.Decimal, unitPrice valueobject.Money) (*OrderLine, error) {
	if o.Status != OrderStatusOpen {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add lines to a non-open order")
	}

	for _, line := range o.Lines {
		if line.ProductID == productID && line.Unit == unit {
			return nil, shared.NewDomainError("DUPLICATE_PRODUCT", "Product already has a line in this unit")
		}
	}

	line, err := NewOrderLine(o.ID, productID, productSKU, productName, unit, baseUnit, quantity, conversionRate, unitPrice)
	if err != nil {
		return nil, err
	}

	o.Lines = append(o.Lines, *line)
	o.recalculateTotal()
	o.UpdatedAt = time.Now()

	return line, nil
}

// MergeStatus applies a status reported by the source. Forward jumps are
// allowed (OPEN straight to INVOICED when the intermediate update was never
// seen); backward moves and moves out of CANCELLED are conflicts.
func (o *Order) MergeStatus(target OrderStatus) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown order status %q", target))
	}
	if target == o.Status {
		return nil
	}
	if o.Status == OrderStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot merge status into a cancelled order")
	}

	now := time.Now()
	oldStatus := o.Status

	if target == OrderStatusCancelled {
		o.Status = OrderStatusCancelled
		o.CancelledAt = &now
		o.CancelReason = "cancelled at source"
	} else {
		if target.rank() < o.Status.rank() {
			return shared.NewDomainError("STATUS_REGRESSION", fmt.Sprintf("Cannot merge status %s into %s", target, o.Status))
		}
		o.Status = target
		switch target {
		case OrderStatusFulfilled:
			o.FulfilledAt = &now
		case OrderStatusInvoiced:
			if o.FulfilledAt == nil {
				o.FulfilledAt = &now
			}
			o.InvoicedAt = &now
		}
	}

	o.UpdatedAt = now
	o.IncrementVersion()

	o.AddDomainEvent(NewOrderStatusChangedEvent(o, oldStatus, o.Status))

	return nil
}

// Cancel cancels the order with an operator-supplied reason
func (o *Order) Cancel(reason string) error {
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	oldStatus := o.Status
	now := time.Now()
	o.Status = OrderStatusCancelled
	o.CancelledAt = &now
	o.CancelReason = reason
	o.UpdatedAt = now
	o.IncrementVersion()

	o.AddDomainEvent(NewOrderStatusChangedEvent(o, oldStatus, OrderStatusCancelled))

	return nil
}

// ApplyRevision replaces the order's content with a freshly observed
// version of the same source record. Only the conflict-review path calls
// this, after an operator approved the overwrite: identity and status
// survive, header fields and lines are replaced wholesale.
func (o *Order) ApplyRevision(rev *Order) error {
	if rev == nil {
		return shared.NewDomainError("INVALID_REVISION", "Revision order is required")
	}
	if o.Status == OrderStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot revise a cancelled order")
	}
	if rev.SourceCode != o.SourceCode || rev.SourceRef != o.SourceRef {
		return shared.NewDomainError("REVISION_MISMATCH", "Revision must carry the same source code and source ref")
	}

	o.AccountID = rev.AccountID
	o.AccountName = rev.AccountName
	o.PONumber = rev.PONumber
	o.OrderDate = rev.OrderDate
	o.WindowStart = rev.WindowStart
	o.WindowEnd = rev.WindowEnd
	o.DayOfWeek = rev.DayOfWeek
	o.Remark = rev.Remark

	now := time.Now()
	o.Lines = make([]OrderLine, len(rev.Lines))
	for i, line := range rev.Lines {
		line.ID = uuid.New()
		line.OrderID = o.ID
		line.CreatedAt = now
		line.UpdatedAt = now
		o.Lines[i] = line
	}
	o.recalculateTotal()
	o.UpdatedAt = now
	o.IncrementVersion()

	o.AddDomainEvent(NewOrderRevisedEvent(o))

	return nil
}

// Fingerprint hashes the immutable content: account, date, PO, and every
// line. Status and timestamps are excluded, so two fetches of the same
// source record hash equal even when only the status moved.
func (o *Order) Fingerprint() string {
	parts := make([]string, 0, len(o.Lines)+3)
	parts = append(parts,
		o.AccountID.String(),
		o.OrderDate.UTC().Format("2006-01-02"),
		o.PONumber,
	)

	lines := make([]string, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, strings.Join([]string{
			l.ProductSKU,
			l.Quantity.String(),
			l.Unit,
			l.UnitPrice.String(),
		}, "|"))
	}
	sort.Strings(lines)
	parts = append(parts, lines...)

	sum := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(sum[:])
}

// recalculateTotal recalculates the order total from its lines
func (o *Order) recalculateTotal() {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.Amount)
	}
	o.TotalAmount = total
}

// GetTotalAmountMoney returns the total as a Money value object
func (o *Order) GetTotalAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(o.TotalAmount)
}

// TotalBaseQuantity returns the sum of all line quantities in base units
func (o *Order) TotalBaseQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.BaseQuantity)
	}
	return total
}

// LineCount returns the number of lines
func (o *Order) LineCount() int {
	return len(o.Lines)
}

// GetLineByProduct returns the line for a product, or nil
func (o *Order) GetLineByProduct(productID uuid.UUID) *OrderLine {
	for idx := range o.Lines {
		if o.Lines[idx].ProductID == productID {
			return &o.Lines[idx]
		}
	}
	return nil
}

// IsOpen returns true if the order is open
func (o *Order) IsOpen() bool {
	return o.Status == OrderStatusOpen
}

// IsCancelled returns true if the order is cancelled
func (o *Order) IsCancelled() bool {
	return o.Status == OrderStatusCancelled
}

// IsTerminal returns true if the order is invoiced or cancelled
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusInvoiced || o.Status == OrderStatusCancelled
}
