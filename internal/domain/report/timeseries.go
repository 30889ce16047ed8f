package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mezze/backend/internal/domain/shared"
)

// Metric identifies one derived series
type Metric string

const (
	MetricOrderedQuantity Metric = "ordered_quantity" // base units ordered
	MetricOrderedAmount   Metric = "ordered_amount"
	MetricInvoicedAmount  Metric = "invoiced_amount"
	MetricPaidAmount      Metric = "paid_amount"
)

// IsValid checks if the metric is known
func (m Metric) IsValid() bool {
	switch m {
	case MetricOrderedQuantity, MetricOrderedAmount, MetricInvoicedAmount, MetricPaidAmount:
		return true
	}
	return false
}

// AllMetrics lists every metric a rebuild produces
func AllMetrics() []Metric {
	return []Metric{MetricOrderedQuantity, MetricOrderedAmount, MetricInvoicedAmount, MetricPaidAmount}
}

// Granularity is the bucket size of a series
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly" // ISO weeks, Monday start
	GranularityMonthly Granularity = "monthly"
)

// IsValid checks if the granularity is known
func (g Granularity) IsValid() bool {
	switch g {
	case GranularityDaily, GranularityWeekly, GranularityMonthly:
		return true
	}
	return false
}

// PeriodStart truncates t to the start of its bucket in UTC
func (g Granularity) PeriodStart(t time.Time) time.Time {
	u := t.UTC()
	switch g {
	case GranularityWeekly:
		d := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
		return d.AddDate(0, 0, -offset)
	case GranularityMonthly:
		return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// PeriodEnd returns the exclusive end of the bucket containing t
func (g Granularity) PeriodEnd(t time.Time) time.Time {
	start := g.PeriodStart(t)
	switch g {
	case GranularityWeekly:
		return start.AddDate(0, 0, 7)
	case GranularityMonthly:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// TimeSeriesPoint is one bucket of one derived series. Points are pure
// functions of the committed facts: rebuilds delete and rewrite whole
// periods and never edit points in place, so two rebuilds over the same
// facts produce identical rows.
type TimeSeriesPoint struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Metric      Metric          `gorm:"type:varchar(50);not null;uniqueIndex:idx_ts_key,priority:1"`
	Granularity Granularity     `gorm:"type:varchar(20);not null;uniqueIndex:idx_ts_key,priority:2"`
	PeriodStart time.Time       `gorm:"not null;uniqueIndex:idx_ts_key,priority:3"`
	AccountID   *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_ts_key,priority:4"`
	ProductID   *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_ts_key,priority:5"`
	Value       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ComputedAt  time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TimeSeriesPoint) TableName() string {
	return "timeseries_points"
}

// NewTimeSeriesPoint creates a point for the bucket containing periodStart
func NewTimeSeriesPoint(metric Metric, granularity Granularity, periodStart time.Time, value decimal.Decimal) (*TimeSeriesPoint, error) {
	if !metric.IsValid() {
		return nil, shared.NewDomainError("INVALID_METRIC", fmt.Sprintf("Unknown metric %q", metric))
	}
	if !granularity.IsValid() {
		return nil, shared.NewDomainError("INVALID_GRANULARITY", fmt.Sprintf("Unknown granularity %q", granularity))
	}
	if periodStart.IsZero() {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period start cannot be zero")
	}

	return &TimeSeriesPoint{
		ID:          uuid.New(),
		Metric:      metric,
		Granularity: granularity,
		PeriodStart: granularity.PeriodStart(periodStart),
		Value:       value,
		ComputedAt:  time.Now().UTC(),
	}, nil
}

// WithAccount adds the account dimension
func (p *TimeSeriesPoint) WithAccount(accountID uuid.UUID) *TimeSeriesPoint {
	p.AccountID = &accountID
	return p
}

// WithProduct adds the product dimension
func (p *TimeSeriesPoint) WithProduct(productID uuid.UUID) *TimeSeriesPoint {
	p.ProductID = &productID
	return p
}

// Key is the point's stable identity inside one rebuild: metric, bucket,
// and dimensions. Sorting rebuild output by Key makes writes deterministic.
func (p *TimeSeriesPoint) Key() string {
	acct, prod := "", ""
	if p.AccountID != nil {
		acct = p.AccountID.String()
	}
	if p.ProductID != nil {
		prod = p.ProductID.String()
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s", p.Metric, p.Granularity, p.PeriodStart.Format(time.RFC3339), acct, prod)
}

// TimeSeriesQuery narrows series reads
type TimeSeriesQuery struct {
	Metric      Metric
	Granularity Granularity
	From        time.Time
	To          time.Time
	AccountID   *uuid.UUID
	ProductID   *uuid.UUID
}

// TimeSeriesRepository defines the interface for series persistence
type TimeSeriesRepository interface {
	// FindSeries returns points matching the query ordered by period start
	FindSeries(ctx context.Context, query TimeSeriesQuery) ([]TimeSeriesPoint, error)

	// ReplacePeriod atomically deletes all points of the granularity with
	// PeriodStart in [start, end) and inserts the given points
	ReplacePeriod(ctx context.Context, granularity Granularity, start, end time.Time, points []TimeSeriesPoint) error
}
