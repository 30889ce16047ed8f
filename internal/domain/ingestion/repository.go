package ingestion

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mezze/backend/internal/domain/shared"
)

// RunQuery narrows run listings. Zero values mean no constraint.
type RunQuery struct {
	SourceCode SourceCode
	Status     RunStatus
	Trigger    RunTrigger
	Since      time.Time
}

// RunRepository defines the interface for ingestion run persistence
type RunRepository interface {
	// FindByID finds a run by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*IngestionRun, error)

	// FindByQuery finds runs matching the query, newest first
	FindByQuery(ctx context.Context, query RunQuery, filter shared.Filter) ([]IngestionRun, error)

	// FindLatestBySource finds the most recent run for a source, nil when
	// the source has never run
	FindLatestBySource(ctx context.Context, sourceCode SourceCode) (*IngestionRun, error)

	// FindActiveBySource finds a pending or running run for a source, nil
	// when the source is idle
	FindActiveBySource(ctx context.Context, sourceCode SourceCode) (*IngestionRun, error)

	// Save creates or updates a run
	Save(ctx context.Context, run *IngestionRun) error

	// Count counts runs matching the query
	Count(ctx context.Context, query RunQuery) (int64, error)
}

// ReviewQuery narrows record listings for the review workflow.
// Zero values mean no constraint.
type ReviewQuery struct {
	SourceCode SourceCode
	State      RecordState
	RunID      uuid.UUID
}

// RecordRepository defines the interface for ingestion record persistence
type RecordRepository interface {
	// FindByID finds a record by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Record, error)

	// FindBySourceRef finds the durable record for a dedup key, nil when
	// the observation has never been seen
	FindBySourceRef(ctx context.Context, sourceCode SourceCode, sourceRef string) (*Record, error)

	// FindByRun finds the records touched by a run
	FindByRun(ctx context.Context, runID uuid.UUID, filter shared.Filter) ([]Record, error)

	// FindInReview finds records waiting on an operator, oldest first
	FindInReview(ctx context.Context, query ReviewQuery, filter shared.Filter) ([]Record, error)

	// CountInReview counts records waiting on an operator
	CountInReview(ctx context.Context, query ReviewQuery) (int64, error)

	// Save creates or updates a record
	Save(ctx context.Context, record *Record) error

	// Count counts records matching the query
	Count(ctx context.Context, query ReviewQuery) (int64, error)
}
