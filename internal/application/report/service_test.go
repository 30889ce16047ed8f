package report

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mezze/backend/internal/domain/finance"
	"github.com/mezze/backend/internal/domain/report"
	"github.com/mezze/backend/internal/domain/shared/valueobject"
	"github.com/mezze/backend/internal/domain/trade"
)

type factFixture struct {
	orders   []trade.Order
	invoices []finance.Invoice
}

// orderFacts and invoiceFacts expose one repository interface each on top of
// a shared factFixture; the trade and finance Count signatures conflict, so
// one type cannot embed both interfaces.
type orderFacts struct {
	trade.OrderRepository
	f *factFixture
}

func (o *orderFacts) FindCommittedInPeriod(ctx context.Context, start, end time.Time) ([]trade.Order, error) {
	return o.f.FindCommittedInPeriod(ctx, start, end)
}

type invoiceFacts struct {
	finance.InvoiceRepository
	f *factFixture
}

func (i *invoiceFacts) FindInPeriod(ctx context.Context, start, end time.Time) ([]finance.Invoice, error) {
	return i.f.FindInPeriod(ctx, start, end)
}

func (f *factFixture) FindCommittedInPeriod(_ context.Context, start, end time.Time) ([]trade.Order, error) {
	var out []trade.Order
	for _, o := range f.orders {
		if !o.OrderDate.Before(start) && o.OrderDate.Before(end) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *factFixture) FindInPeriod(_ context.Context, start, end time.Time) ([]finance.Invoice, error) {
	var out []finance.Invoice
	for _, inv := range f.invoices {
		if !inv.InvoiceDate.Before(start) && inv.InvoiceDate.Before(end) {
			out = append(out, inv)
		}
	}
	return out, nil
}

type paymentFixture struct {
	finance.PaymentRepository
	payments []finance.Payment
}

func (f *paymentFixture) FindInPeriod(_ context.Context, start, end time.Time) ([]finance.Payment, error) {
	var out []finance.Payment
	for _, p := range f.payments {
		if !p.ReceivedAt.Before(start) && p.ReceivedAt.Before(end) {
			out = append(out, p)
		}
	}
	return out, nil
}

type seriesStore struct {
	report.TimeSeriesRepository
	replaced map[report.Granularity][]report.TimeSeriesPoint
	points   []report.TimeSeriesPoint
}

func (s *seriesStore) ReplacePeriod(_ context.Context, g report.Granularity, _, _ time.Time, points []report.TimeSeriesPoint) error {
	if s.replaced == nil {
		s.replaced = map[report.Granularity][]report.TimeSeriesPoint{}
	}
	s.replaced[g] = points
	return nil
}

func (s *seriesStore) FindSeries(_ context.Context, _ report.TimeSeriesQuery) ([]report.TimeSeriesPoint, error) {
	return s.points, nil
}

func buildOrder(t *testing.T, accountID uuid.UUID, date time.Time, amount int64) trade.Order {
	t.Helper()
	order, err := trade.NewOrder("mezze", "W03-4-HUMMUS-CASE-"+uuid.NewString()[:8], accountID, "Crown", date)
	require.NoError(t, err)
	_, err = order.AddLine(uuid.New(), "HUM-16", "Hummus 16oz", "CASE", "EACH",
		decimal.NewFromInt(3), decimal.NewFromInt(12), valueobject.NewMoneyUSD(decimal.NewFromInt(amount)))
	require.NoError(t, err)
	return *order
}

func TestService_RecomputeRebuildsEveryGranularity(t *testing.T) {
	accountID := uuid.New()
	facts := &factFixture{
		orders: []trade.Order{
			buildOrder(t, accountID, time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC), 10),
			buildOrder(t, accountID, time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC), 20),
		},
	}
	store := &seriesStore{}
	svc := NewService(&orderFacts{f: facts}, &invoiceFacts{f: facts}, &paymentFixture{}, store, nil, zap.NewNop())

	results, err := svc.Recompute(context.Background(),
		time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Len(t, store.replaced, 3)

	// weekly: both orders share the Jan 12 bucket, so the total series
	// sums them into one point per metric
	var weeklyTotal *report.TimeSeriesPoint
	for i := range store.replaced[report.GranularityWeekly] {
		p := &store.replaced[report.GranularityWeekly][i]
		if p.Metric == report.MetricOrderedAmount && p.AccountID == nil && p.ProductID == nil {
			weeklyTotal = p
		}
	}
	require.NotNil(t, weeklyTotal)
	assert.Equal(t, time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), weeklyTotal.PeriodStart)
	// 3 CASE * $10 + 3 CASE * $20
	assert.True(t, weeklyTotal.Value.Equal(decimal.NewFromInt(90)), "got %s", weeklyTotal.Value)

	// daily: the two orders land in different buckets
	daily := 0
	for i := range store.replaced[report.GranularityDaily] {
		if store.replaced[report.GranularityDaily][i].Metric == report.MetricOrderedAmount {
			daily++
		}
	}
	assert.Greater(t, daily, 1)
}

func TestService_RecomputeRejectsEmptyPeriod(t *testing.T) {
	svc := NewService(&orderFacts{f: &factFixture{}}, &invoiceFacts{f: &factFixture{}}, &paymentFixture{}, &seriesStore{}, nil, zap.NewNop())
	at := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	_, err := svc.Recompute(context.Background(), at, at)
	require.Error(t, err)
}

func TestService_SeriesValidatesQuery(t *testing.T) {
	store := &seriesStore{}
	svc := NewService(&orderFacts{f: &factFixture{}}, &invoiceFacts{f: &factFixture{}}, &paymentFixture{}, store, nil, zap.NewNop())

	_, err := svc.Series(context.Background(), report.TimeSeriesQuery{})
	require.Error(t, err, "metric is required")

	_, err = svc.Series(context.Background(), report.TimeSeriesQuery{Metric: "margin"})
	require.Error(t, err)

	_, err = svc.Series(context.Background(), report.TimeSeriesQuery{Metric: report.MetricPaidAmount, Granularity: "hourly"})
	require.Error(t, err)

	points, err := svc.Series(context.Background(), report.TimeSeriesQuery{Metric: report.MetricPaidAmount})
	require.NoError(t, err)
	assert.Empty(t, points)
}
