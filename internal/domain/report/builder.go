package report

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mezze/backend/internal/domain/finance"
	"github.com/mezze/backend/internal/domain/trade"
)

// Namespace for deterministic point IDs. A point's ID is a function of its
// Key, so a rebuild over unchanged facts reproduces the exact same rows.
var timeSeriesNamespace = uuid.MustParse("c6c7cb34-5a4a-4a8e-9a5e-2d3f4ba0a001")

// Builder derives time series points from committed facts. It is pure:
// same facts in, byte-identical points out, regardless of input order.
type Builder struct {
	granularity Granularity
}

// NewBuilder creates a builder for the given granularity
func NewBuilder(granularity Granularity) *Builder {
	return &Builder{granularity: granularity}
}

// Build aggregates the given facts into series points. Cancelled orders and
// void invoices carry no weight. computedAt stamps every point; callers
// pass one instant per rebuild.
func (b *Builder) Build(orders []trade.Order, invoices []finance.Invoice, payments []finance.Payment, computedAt time.Time) []TimeSeriesPoint {
	acc := make(map[string]*TimeSeriesPoint)

	for i := range orders {
		order := &orders[i]
		if order.IsCancelled() {
			continue
		}
		bucket := b.granularity.PeriodStart(order.OrderDate)

		b.add(acc, MetricOrderedAmount, bucket, order.TotalAmount, nil, nil, computedAt)
		b.add(acc, MetricOrderedAmount, bucket, order.TotalAmount, &order.AccountID, nil, computedAt)
		b.add(acc, MetricOrderedQuantity, bucket, order.TotalBaseQuantity(), nil, nil, computedAt)
		b.add(acc, MetricOrderedQuantity, bucket, order.TotalBaseQuantity(), &order.AccountID, nil, computedAt)

		for j := range order.Lines {
			line := &order.Lines[j]
			b.add(acc, MetricOrderedQuantity, bucket, line.BaseQuantity, nil, &line.ProductID, computedAt)
			b.add(acc, MetricOrderedAmount, bucket, line.Amount, nil, &line.ProductID, computedAt)
		}
	}

	for i := range invoices {
		invoice := &invoices[i]
		if invoice.Status == finance.InvoiceStatusVoid {
			continue
		}
		bucket := b.granularity.PeriodStart(invoice.InvoiceDate)

		b.add(acc, MetricInvoicedAmount, bucket, invoice.Amount, nil, nil, computedAt)
		b.add(acc, MetricInvoicedAmount, bucket, invoice.Amount, &invoice.AccountID, nil, computedAt)
	}

	for i := range payments {
		payment := &payments[i]
		bucket := b.granularity.PeriodStart(payment.ReceivedAt)

		b.add(acc, MetricPaidAmount, bucket, payment.Amount, nil, nil, computedAt)
		b.add(acc, MetricPaidAmount, bucket, payment.Amount, &payment.AccountID, nil, computedAt)
	}

	keys := make([]string, 0, len(acc))
	for k := range acc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	points := make([]TimeSeriesPoint, 0, len(keys))
	for _, k := range keys {
		points = append(points, *acc[k])
	}
	return points
}

func (b *Builder) add(acc map[string]*TimeSeriesPoint, metric Metric, bucket time.Time, value decimal.Decimal, accountID, productID *uuid.UUID, computedAt time.Time) {
	point := TimeSeriesPoint{
		Metric:      metric,
		Granularity: b.granularity,
		PeriodStart: bucket,
		Value:       value,
		ComputedAt:  computedAt.UTC(),
	}
	if accountID != nil {
		id := *accountID
		point.AccountID = &id
	}
	if productID != nil {
		id := *productID
		point.ProductID = &id
	}

	key := point.Key()
	if existing, ok := acc[key]; ok {
		existing.Value = existing.Value.Add(value)
		return
	}
	point.ID = uuid.NewSHA1(timeSeriesNamespace, []byte(key))
	acc[key] = &point
}
