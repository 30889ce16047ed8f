package ingestion

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	resolutionapp "github.com/mezze/backend/internal/application/resolution"
	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/domain/shared"
	"github.com/mezze/backend/internal/infrastructure/telemetry"
)

// Coordinator owns the ingestion run lifecycle: it locks the source,
// fetches through the driver, walks the records inside one store
// transaction and settles the run row. The run row lives outside that
// transaction so a failed run stays visible with its error.
type Coordinator struct {
	drivers   ingestion.DriverRegistry
	runs      ingestion.RunRepository
	scope     TransactionScope
	resolver  *resolutionapp.Service
	pipeline  *Pipeline
	lock      RunLock
	publisher shared.EventPublisher
	archiver  PayloadArchiver
	logger    *zap.Logger
}

// NewCoordinator creates a coordinator. archiver may be nil when the
// raw payload archive is disabled.
func NewCoordinator(
	drivers ingestion.DriverRegistry,
	runs ingestion.RunRepository,
	scope TransactionScope,
	resolver *resolutionapp.Service,
	pipeline *Pipeline,
	lock RunLock,
	publisher shared.EventPublisher,
	archiver PayloadArchiver,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		drivers:   drivers,
		runs:      runs,
		scope:     scope,
		resolver:  resolver,
		pipeline:  pipeline,
		lock:      lock,
		publisher: publisher,
		archiver:  archiver,
		logger:    logger,
	}
}

// RunIngestion executes one complete run for a source and returns the run
// in its terminal state. A non-nil error means the run could not be
// carried out at all (unknown source, lock held, run row unwritable); a
// run that started and then failed comes back with status FAILED and a
// nil error, so schedulers and handlers read the outcome off the run.
func (c *Coordinator) RunIngestion(
	ctx context.Context,
	code ingestion.SourceCode,
	window ingestion.Window,
	trigger ingestion.RunTrigger,
) (*ingestion.IngestionRun, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ingestion", "run",
		telemetry.WithAttribute(telemetry.SpanAttrSourceCode, code.String()),
		telemetry.WithAttribute(telemetry.SpanAttrTrigger, trigger.String()),
	)
	defer span.End()

	driver, err := c.drivers.Get(code)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	lease, err := c.lock.Acquire(ctx, code)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer func() {
		if err := lease.Release(context.Background()); err != nil {
			c.logger.Warn("run lock release failed",
				zap.String("source_code", code.String()),
				zap.Error(err),
			)
		}
	}()

	// Heal a run row orphaned by a crashed process. Holding the lock
	// proves no live owner exists.
	if stale, err := c.runs.FindActiveBySource(ctx, code); err != nil {
		return nil, err
	} else if stale != nil {
		if err := stale.Fail("superseded: no live process owns this run"); err != nil {
			return nil, err
		}
		if err := c.runs.Save(ctx, stale); err != nil {
			return nil, err
		}
		c.publishRunEvents(ctx, stale)
		c.logger.Warn("stale run superseded",
			zap.String("source_code", code.String()),
			zap.String("run_id", stale.ID.String()),
		)
	}

	run, err := ingestion.NewIngestionRun(code, window, trigger)
	if err != nil {
		return nil, err
	}
	if err := c.runs.Save(ctx, run); err != nil {
		return nil, err
	}
	c.publishRunEvents(ctx, run)

	if err := run.Start(); err != nil {
		return nil, err
	}
	if err := c.runs.Save(ctx, run); err != nil {
		return nil, err
	}
	c.publishRunEvents(ctx, run)

	c.logger.Info("ingestion run started",
		zap.String("source_code", code.String()),
		zap.String("run_id", run.ID.String()),
		zap.String("window", run.Window().String()),
		zap.String("trigger", trigger.String()),
	)

	result, err := driver.Fetch(ctx, run.Window())
	if err != nil {
		return c.settleFailure(ctx, run, err)
	}

	if c.archiver != nil && len(result.Records) > 0 {
		if err := c.archiver.ArchiveFetch(ctx, run, result.Records); err != nil {
			c.logger.Warn("raw payload archive failed",
				zap.String("source_code", code.String()),
				zap.String("run_id", run.ID.String()),
				zap.Error(err),
			)
		}
	}

	session, err := c.resolver.Begin(ctx, run.ID, code.String())
	if err != nil {
		return c.settleFailure(ctx, run, err)
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrRunID, run.ID.String())

	var summary ingestion.RunSummary
	var execErr error
	telemetry.WithProfilingLabels(ctx, telemetry.IngestionLabels(code.String()), func(ctx context.Context) {
		execErr = c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			var perr error
			summary, perr = c.pipeline.ProcessRun(ctx, repos, session, run, result)
			return perr
		})
	})
	if execErr != nil {
		if err := session.Abort(ctx); err != nil {
			c.logger.Warn("resolver session abort failed", zap.Error(err))
		}
		return c.settleFailure(ctx, run, execErr)
	}
	if err := session.Commit(ctx); err != nil {
		// The store transaction is already committed; the in-memory alias
		// gains are lost until the next index warm-up reloads them.
		c.logger.Warn("resolver session commit failed", zap.Error(err))
	}

	if err := run.Complete(summary); err != nil {
		return nil, err
	}
	if err := c.runs.Save(ctx, run); err != nil {
		return nil, err
	}
	c.publishRunEvents(ctx, run)

	c.logger.Info("ingestion run finished",
		zap.String("source_code", code.String()),
		zap.String("run_id", run.ID.String()),
		zap.String("status", run.Status.String()),
		zap.Int("fetched", summary.Fetched),
		zap.Int("committed", summary.Committed),
		zap.Int("merged", summary.Merged),
		zap.Int("noops", summary.NoOps),
		zap.Int("rejected", summary.Rejected),
		zap.Int("needs_review", summary.NeedsReview),
		zap.Int("conflicts", summary.Conflicts),
	)
	return run, nil
}

// settleFailure moves the run to its terminal failure state and persists
// it. Context cancellation counts as a cancel, everything else as a
// failure.
func (c *Coordinator) settleFailure(ctx context.Context, run *ingestion.IngestionRun, cause error) (*ingestion.IngestionRun, error) {
	telemetry.RecordError(telemetry.SpanFromContext(ctx), cause)
	run.Summary.AddErrorKind(ingestion.ClassifyError(cause))

	var settle error
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		settle = run.Cancel(cause.Error())
	} else {
		settle = run.Fail(cause.Error())
	}
	if settle != nil {
		return nil, settle
	}

	// Persist with a fresh context: the run's own context may be the
	// reason the run is being settled.
	saveCtx := ctx
	if ctx.Err() != nil {
		saveCtx = context.Background()
	}
	if err := c.runs.Save(saveCtx, run); err != nil {
		return nil, err
	}
	c.publishRunEvents(saveCtx, run)

	c.logger.Error("ingestion run failed",
		zap.String("source_code", run.SourceCode.String()),
		zap.String("run_id", run.ID.String()),
		zap.String("status", run.Status.String()),
		zap.Error(cause),
	)
	return run, nil
}

// publishRunEvents drains the run's domain events onto the bus
func (c *Coordinator) publishRunEvents(ctx context.Context, run *ingestion.IngestionRun) {
	events := run.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := c.publisher.Publish(ctx, events...); err != nil {
		c.logger.Error("failed to publish run events",
			zap.String("run_id", run.ID.String()),
			zap.Error(err),
		)
	}
	run.ClearDomainEvents()
}

// GetRun returns one run by ID
func (c *Coordinator) GetRun(ctx context.Context, id uuid.UUID) (*ingestion.IngestionRun, error) {
	run, err := c.runs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, shared.ErrNotFound
	}
	return run, nil
}

// ListRuns returns runs matching the query, newest first
func (c *Coordinator) ListRuns(ctx context.Context, query ingestion.RunQuery, filter shared.Filter) ([]ingestion.IngestionRun, int64, error) {
	runs, err := c.runs.FindByQuery(ctx, query, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := c.runs.Count(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

// SourceStatus pairs a registered source with its most recent run
type SourceStatus struct {
	Code        ingestion.SourceCode
	DisplayName string
	LatestRun   *ingestion.IngestionRun
}

// SourceStatuses reports every registered source with its latest run,
// for the sources overview endpoint
func (c *Coordinator) SourceStatuses(ctx context.Context) ([]SourceStatus, error) {
	codes := c.drivers.Codes()
	out := make([]SourceStatus, 0, len(codes))
	for _, code := range codes {
		latest, err := c.runs.FindLatestBySource(ctx, code)
		if err != nil {
			return nil, err
		}
		out = append(out, SourceStatus{
			Code:        code,
			DisplayName: code.DisplayName(),
			LatestRun:   latest,
		})
	}
	return out, nil
}
