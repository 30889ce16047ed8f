package event

import (
	"context"
	"time"

	"go.uber.org/zap"

	appreport "github.com/mezze/backend/internal/application/report"
	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/domain/shared"
)

// defaultRecomputeSpan bounds the rebuild when a run has no window:
// unbounded fetches (a drop folder, an unread label) rarely commit facts
// older than this.
const defaultRecomputeSpan = 90 * 24 * time.Hour

// RecomputeHandler rebuilds the derived series whenever a run commits
// canonical changes. Rebuild failures never affect the run; the next
// committed run over the window repairs the series.
type RecomputeHandler struct {
	reports *appreport.Service
	logger  *zap.Logger
}

// NewRecomputeHandler creates the handler
func NewRecomputeHandler(reports *appreport.Service, logger *zap.Logger) *RecomputeHandler {
	return &RecomputeHandler{reports: reports, logger: logger}
}

var _ shared.EventHandler = (*RecomputeHandler)(nil)

// EventTypes subscribes the handler to committed runs only
func (h *RecomputeHandler) EventTypes() []string {
	return []string{ingestion.EventTypeRunCommitted}
}

// Handle recomputes the series for the run's window
func (h *RecomputeHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	committed, ok := ev.(*ingestion.RunCommittedEvent)
	if !ok {
		return nil
	}

	start, end := recomputePeriod(committed, time.Now().UTC())
	results, err := h.reports.Recompute(ctx, start, end)
	if err != nil {
		h.logger.Error("series recompute failed after run commit",
			zap.String("run_id", committed.RunID.String()),
			zap.String("source", string(committed.SourceCode)),
			zap.Error(err))
		return err
	}

	points := 0
	for _, r := range results {
		points += r.Points
	}
	h.logger.Info("series recomputed after run commit",
		zap.String("run_id", committed.RunID.String()),
		zap.String("source", string(committed.SourceCode)),
		zap.Time("period_start", start),
		zap.Time("period_end", end),
		zap.Int("points", points))
	return nil
}

// recomputePeriod derives the rebuild span from the run's window, padded
// a day each way so facts dated at the edges always fall inside.
func recomputePeriod(ev *ingestion.RunCommittedEvent, now time.Time) (time.Time, time.Time) {
	start := now.Add(-defaultRecomputeSpan)
	end := now.Add(24 * time.Hour)
	if ev.WindowStart != nil {
		start = ev.WindowStart.Add(-24 * time.Hour)
	}
	if ev.WindowEnd != nil {
		end = ev.WindowEnd.Add(24 * time.Hour)
	}
	return start, end
}
