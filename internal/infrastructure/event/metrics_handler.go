package event

import (
	"context"

	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/domain/shared"
	"github.com/mezze/backend/internal/infrastructure/telemetry"
)

// MetricsHandler feeds run outcomes into the ingestion instruments.
// Subscribing to terminal run events keeps the coordinator free of any
// metrics plumbing.
type MetricsHandler struct {
	metrics *telemetry.IngestionMetrics
}

// NewMetricsHandler creates a metrics handler
func NewMetricsHandler(metrics *telemetry.IngestionMetrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// EventTypes returns the terminal run event types
func (h *MetricsHandler) EventTypes() []string {
	return []string{
		ingestion.EventTypeRunCompleted,
		ingestion.EventTypeRunFailed,
		ingestion.EventTypeRunCancelled,
	}
}

// Handle records the run and its per-record dispositions
func (h *MetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *ingestion.RunCompletedEvent:
		source := e.SourceCode.String()
		h.metrics.RecordRun(ctx, source, e.Status.String())
		h.metrics.RecordRecords(ctx, source, telemetry.RecordKindFetched, e.Summary.Fetched)
		h.metrics.RecordRecords(ctx, source, telemetry.RecordKindSkipped, e.Summary.Skipped)
		h.metrics.RecordRecords(ctx, source, telemetry.RecordKindCommitted, e.Summary.Committed)
		h.metrics.RecordRecords(ctx, source, telemetry.RecordKindMerged, e.Summary.Merged)
		h.metrics.RecordRecords(ctx, source, telemetry.RecordKindNoOp, e.Summary.NoOps)
		h.metrics.RecordRecords(ctx, source, telemetry.RecordKindRejected, e.Summary.Rejected)
		h.metrics.RecordRecords(ctx, source, telemetry.RecordKindNeedsReview, e.Summary.NeedsReview)
		h.metrics.RecordRecords(ctx, source, telemetry.RecordKindConflict, e.Summary.Conflicts)
	case *ingestion.RunFailedEvent:
		h.metrics.RecordRun(ctx, e.SourceCode.String(), ingestion.RunStatusFailed.String())
	case *ingestion.RunCancelledEvent:
		h.metrics.RecordRun(ctx, e.SourceCode.String(), ingestion.RunStatusCancelled.String())
	}
	return nil
}
