package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/domain/shared"
)

// RunCoordinator starts ingestion runs. Satisfied by the application
// layer's ingestion coordinator.
type RunCoordinator interface {
	RunIngestion(
		ctx context.Context,
		code ingestion.SourceCode,
		window ingestion.Window,
		trigger ingestion.RunTrigger,
	) (*ingestion.IngestionRun, error)
}

// SourceSchedule pairs a source with its polling cadence
type SourceSchedule struct {
	Code     ingestion.SourceCode
	Interval time.Duration
}

// Config holds configuration for the ingestion scheduler
type Config struct {
	// RunTimeout is the maximum time a single run can take
	RunTimeout time.Duration
	// RetryDelay is the delay before retrying a failed source
	RetryDelay time.Duration
	// MaxRetryDelay caps the backoff growth for a repeatedly failing source
	MaxRetryDelay time.Duration
	// Sources lists the enabled sources and their intervals
	Sources []SourceSchedule
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		RunTimeout:    15 * time.Minute,
		RetryDelay:    time.Minute,
		MaxRetryDelay: 30 * time.Minute,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.RunTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.RetryDelay <= 0 {
		return ErrInvalidConfig
	}
	if c.MaxRetryDelay < c.RetryDelay {
		return ErrInvalidConfig
	}
	seen := make(map[ingestion.SourceCode]bool, len(c.Sources))
	for _, src := range c.Sources {
		if !src.Code.IsValid() {
			return ErrInvalidConfig
		}
		if src.Interval <= 0 {
			return ErrInvalidConfig
		}
		if seen[src.Code] {
			return ErrInvalidConfig
		}
		seen[src.Code] = true
	}
	return nil
}

// IngestScheduler runs each configured source on its own cadence. A
// failing source backs off exponentially up to MaxRetryDelay and
// returns to its normal interval after the next clean run; sources
// never block one another.
type IngestScheduler struct {
	config Config
	runner RunCoordinator
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewIngestScheduler creates a scheduler for the configured sources
func NewIngestScheduler(config Config, runner RunCoordinator, logger *zap.Logger) (*IngestScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &IngestScheduler{
		config: config,
		runner: runner,
		logger: logger,
	}, nil
}

// Start launches one polling loop per configured source
func (s *IngestScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, src := range s.config.Sources {
		s.wg.Add(1)
		go s.sourceLoop(ctx, src)
	}

	s.logger.Info("Ingestion scheduler started",
		zap.Int("sources", len(s.config.Sources)),
		zap.Duration("run_timeout", s.config.RunTimeout),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *IngestScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Ingestion scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Ingestion scheduler stop timed out")
		return ctx.Err()
	}
}

// sourceLoop polls one source. The first run fires one full interval
// after start so a restart storm does not hammer every upstream at once.
func (s *IngestScheduler) sourceLoop(ctx context.Context, src SourceSchedule) {
	defer s.wg.Done()

	s.logger.Debug("Source loop started",
		zap.String("source_code", src.Code.String()),
		zap.Duration("interval", src.Interval),
	)

	timer := time.NewTimer(src.Interval)
	defer timer.Stop()

	var backoff time.Duration
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Source loop stopping",
				zap.String("source_code", src.Code.String()),
			)
			return
		case <-timer.C:
		}

		if s.runOnce(ctx, src.Code) {
			backoff = 0
			timer.Reset(src.Interval)
		} else {
			backoff = s.nextBackoff(backoff)
			s.logger.Info("Source backing off after failure",
				zap.String("source_code", src.Code.String()),
				zap.Duration("retry_in", backoff),
			)
			timer.Reset(backoff)
		}
	}
}

// runOnce executes a single scheduled run and reports whether the
// source should keep its normal cadence. A run already in progress
// (manual trigger or another instance holds the lock) counts as clean.
func (s *IngestScheduler) runOnce(ctx context.Context, code ingestion.SourceCode) bool {
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	run, err := s.runner.RunIngestion(runCtx, code, ingestion.Window{}, ingestion.RunTriggerSchedule)
	if err != nil {
		if errors.Is(err, shared.ErrRunInProgress) {
			s.logger.Debug("Scheduled run skipped, source busy",
				zap.String("source_code", code.String()),
			)
			return true
		}
		s.logger.Error("Scheduled ingestion run could not start",
			zap.String("source_code", code.String()),
			zap.Error(err),
		)
		return false
	}

	if run.Status == ingestion.RunStatusFailed {
		s.logger.Warn("Scheduled ingestion run failed",
			zap.String("source_code", code.String()),
			zap.String("run_id", run.ID.String()),
			zap.String("error", run.ErrorMessage),
		)
		return false
	}

	s.logger.Info("Scheduled ingestion run completed",
		zap.String("source_code", code.String()),
		zap.String("run_id", run.ID.String()),
		zap.String("status", run.Status.String()),
		zap.Int("fetched", run.Summary.Fetched),
		zap.Int("committed", run.Summary.Committed),
		zap.Int("merged", run.Summary.Merged),
	)
	return true
}

// nextBackoff doubles the previous delay, capped at MaxRetryDelay
func (s *IngestScheduler) nextBackoff(prev time.Duration) time.Duration {
	if prev == 0 {
		return s.config.RetryDelay
	}
	next := prev * 2
	if next > s.config.MaxRetryDelay {
		next = s.config.MaxRetryDelay
	}
	return next
}
