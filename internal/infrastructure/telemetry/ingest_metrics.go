package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Record outcome kinds reported per run
const (
	RecordKindFetched     = "fetched"
	RecordKindSkipped     = "skipped"
	RecordKindCommitted   = "committed"
	RecordKindMerged      = "merged"
	RecordKindNoOp        = "noop"
	RecordKindRejected    = "rejected"
	RecordKindNeedsReview = "needs_review"
	RecordKindConflict    = "conflict"
)

// ReviewQueueProvider reports the pending review queue depth. The
// interface keeps the telemetry layer off the review domain.
type ReviewQueueProvider interface {
	PendingReviewCount(ctx context.Context) (int64, error)
}

// IngestionMetrics tracks run outcomes and record dispositions per
// source, plus the review queue depth as an observed gauge.
type IngestionMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	runsTotal    metric.Int64Counter
	recordsTotal metric.Int64Counter

	reviewQueueDepth metric.Int64ObservableGauge
	registration     metric.Registration
}

// IngestionMetricsConfig holds configuration for ingestion metrics
type IngestionMetricsConfig struct {
	Meter          metric.Meter
	Logger         *zap.Logger
	ReviewProvider ReviewQueueProvider // optional
}

// NewIngestionMetrics creates the ingestion instrument set
func NewIngestionMetrics(cfg IngestionMetricsConfig) (*IngestionMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &IngestionMetrics{
		meter:  cfg.Meter,
		logger: logger,
	}

	var err error
	m.runsTotal, err = cfg.Meter.Int64Counter(
		"mezze.ingestion.runs_total",
		metric.WithDescription("Finished ingestion runs by source and status"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	m.recordsTotal, err = cfg.Meter.Int64Counter(
		"mezze.ingestion.records_total",
		metric.WithDescription("Processed records by source and disposition"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	if cfg.ReviewProvider != nil {
		m.reviewQueueDepth, err = cfg.Meter.Int64ObservableGauge(
			"mezze.review.queue_depth",
			metric.WithDescription("Records waiting on operator review"),
			metric.WithUnit("{record}"),
		)
		if err != nil {
			return nil, err
		}

		provider := cfg.ReviewProvider
		m.registration, err = cfg.Meter.RegisterCallback(
			func(ctx context.Context, observer metric.Observer) error {
				depth, err := provider.PendingReviewCount(ctx)
				if err != nil {
					logger.Warn("review queue depth observation failed", zap.Error(err))
					return nil
				}
				observer.ObserveInt64(m.reviewQueueDepth, depth)
				return nil
			},
			m.reviewQueueDepth,
		)
		if err != nil {
			return nil, err
		}
	}

	return m, nil
}

// RecordRun counts one finished run
func (m *IngestionMetrics) RecordRun(ctx context.Context, sourceCode, status string) {
	m.runsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source_code", sourceCode),
		attribute.String("status", status),
	))
}

// RecordRecords counts n records with the given disposition
func (m *IngestionMetrics) RecordRecords(ctx context.Context, sourceCode, kind string, n int) {
	if n <= 0 {
		return
	}
	m.recordsTotal.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("source_code", sourceCode),
		attribute.String("kind", kind),
	))
}

// Close unregisters the review queue observation
func (m *IngestionMetrics) Close() error {
	if m.registration != nil {
		return m.registration.Unregister()
	}
	return nil
}
