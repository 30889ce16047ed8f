// Package report rebuilds and serves the derived time series. Series are
// never updated incrementally: a recompute reloads the committed facts
// for a period and rewrites every bucket, so the series always agrees
// with the canonical data no matter how many runs or reviews touched it.
package report

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mezze/backend/internal/domain/finance"
	"github.com/mezze/backend/internal/domain/report"
	"github.com/mezze/backend/internal/domain/trade"
	"github.com/mezze/backend/internal/infrastructure/telemetry"
)

// Service recomputes and queries the derived series
type Service struct {
	orderRepo   trade.OrderRepository
	invoiceRepo finance.InvoiceRepository
	paymentRepo finance.PaymentRepository
	seriesRepo  report.TimeSeriesRepository
	namer       *EntityNamer
	logger      *zap.Logger
}

// NewService creates the report service
func NewService(
	orderRepo trade.OrderRepository,
	invoiceRepo finance.InvoiceRepository,
	paymentRepo finance.PaymentRepository,
	seriesRepo report.TimeSeriesRepository,
	namer *EntityNamer,
	logger *zap.Logger,
) *Service {
	return &Service{
		orderRepo:   orderRepo,
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		seriesRepo:  seriesRepo,
		namer:       namer,
		logger:      logger,
	}
}

// RecomputeResult summarizes one rebuild
type RecomputeResult struct {
	Granularity report.Granularity `json:"granularity"`
	PeriodStart time.Time          `json:"period_start"`
	PeriodEnd   time.Time          `json:"period_end"`
	Points      int                `json:"points"`
}

// Recompute rebuilds every granularity over [start, end). Each
// granularity widens the period to whole buckets, reloads the facts for
// the widened span, and replaces those buckets atomically.
func (s *Service) Recompute(ctx context.Context, start, end time.Time) ([]RecomputeResult, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("report: recompute start %s not before end %s", start, end)
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "report", "recompute",
		telemetry.WithAttribute(telemetry.SpanAttrWindow, fmt.Sprintf("%s..%s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))),
	)
	defer span.End()

	computedAt := time.Now().UTC()

	var results []RecomputeResult
	for _, g := range []report.Granularity{report.GranularityDaily, report.GranularityWeekly, report.GranularityMonthly} {
		gStart := g.PeriodStart(start)
		gEnd := g.PeriodEnd(end.Add(-time.Nanosecond))

		orders, err := s.orderRepo.FindCommittedInPeriod(ctx, gStart, gEnd)
		if err != nil {
			return nil, fmt.Errorf("report: load orders: %w", err)
		}
		invoices, err := s.invoiceRepo.FindInPeriod(ctx, gStart, gEnd)
		if err != nil {
			return nil, fmt.Errorf("report: load invoices: %w", err)
		}
		payments, err := s.paymentRepo.FindInPeriod(ctx, gStart, gEnd)
		if err != nil {
			return nil, fmt.Errorf("report: load payments: %w", err)
		}

		points := report.NewBuilder(g).Build(orders, invoices, payments, computedAt)
		if err := s.seriesRepo.ReplacePeriod(ctx, g, gStart, gEnd, points); err != nil {
			return nil, fmt.Errorf("report: replace %s period: %w", g, err)
		}

		s.logger.Info("series rebuilt",
			zap.String("granularity", string(g)),
			zap.Time("period_start", gStart),
			zap.Time("period_end", gEnd),
			zap.Int("orders", len(orders)),
			zap.Int("points", len(points)))
		results = append(results, RecomputeResult{
			Granularity: g,
			PeriodStart: gStart,
			PeriodEnd:   gEnd,
			Points:      len(points),
		})
	}
	return results, nil
}

// Series returns the points matching the query, ordered by period start
func (s *Service) Series(ctx context.Context, query report.TimeSeriesQuery) ([]report.TimeSeriesPoint, error) {
	if err := validateQuery(&query); err != nil {
		return nil, err
	}
	return s.seriesRepo.FindSeries(ctx, query)
}

func validateQuery(q *report.TimeSeriesQuery) error {
	if q.Metric == "" {
		return fmt.Errorf("report: metric is required")
	}
	if !q.Metric.IsValid() {
		return fmt.Errorf("report: unknown metric %q", q.Metric)
	}
	if q.Granularity == "" {
		q.Granularity = report.GranularityWeekly
	}
	if !q.Granularity.IsValid() {
		return fmt.Errorf("report: unknown granularity %q", q.Granularity)
	}
	if !q.From.IsZero() && !q.To.IsZero() && !q.From.Before(q.To) {
		return fmt.Errorf("report: from must be before to")
	}
	return nil
}
