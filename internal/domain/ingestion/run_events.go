package ingestion

import (
	"time"

	"github.com/google/uuid"

	"github.com/mezze/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeIngestionRun = "IngestionRun"
)

// Event type constants
const (
	EventTypeRunCreated   = "IngestionRunCreated"
	EventTypeRunStarted   = "IngestionRunStarted"
	EventTypeRunCompleted = "IngestionRunCompleted"
	EventTypeRunCommitted = "IngestionRunCommitted"
	EventTypeRunFailed    = "IngestionRunFailed"
	EventTypeRunCancelled = "IngestionRunCancelled"
)

// RunCreatedEvent is published when a new ingestion run is created
type RunCreatedEvent struct {
	shared.BaseDomainEvent
	RunID      uuid.UUID  `json:"run_id"`
	SourceCode SourceCode `json:"source_code"`
	Trigger    RunTrigger `json:"trigger"`
}

// NewRunCreatedEvent creates a new RunCreatedEvent
func NewRunCreatedEvent(run *IngestionRun) *RunCreatedEvent {
	return &RunCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRunCreated, AggregateTypeIngestionRun, run.ID),
		RunID:           run.ID,
		SourceCode:      run.SourceCode,
		Trigger:         run.Trigger,
	}
}

// RunStartedEvent is published when an ingestion run begins executing
type RunStartedEvent struct {
	shared.BaseDomainEvent
	RunID      uuid.UUID  `json:"run_id"`
	SourceCode SourceCode `json:"source_code"`
	StartedAt  time.Time  `json:"started_at"`
}

// NewRunStartedEvent creates a new RunStartedEvent
func NewRunStartedEvent(run *IngestionRun) *RunStartedEvent {
	e := &RunStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRunStarted, AggregateTypeIngestionRun, run.ID),
		RunID:           run.ID,
		SourceCode:      run.SourceCode,
	}
	if run.StartedAt != nil {
		e.StartedAt = *run.StartedAt
	}
	return e
}

// RunCompletedEvent is published when an ingestion run finishes,
// whether every record settled or some are waiting on review
type RunCompletedEvent struct {
	shared.BaseDomainEvent
	RunID      uuid.UUID  `json:"run_id"`
	SourceCode SourceCode `json:"source_code"`
	Status     RunStatus  `json:"status"`
	Summary    RunSummary `json:"summary"`
}

// NewRunCompletedEvent creates a new RunCompletedEvent
func NewRunCompletedEvent(run *IngestionRun) *RunCompletedEvent {
	return &RunCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRunCompleted, AggregateTypeIngestionRun, run.ID),
		RunID:           run.ID,
		SourceCode:      run.SourceCode,
		Status:          run.Status,
		Summary:         run.Summary,
	}
}

// RunCommittedEvent is published when a run changed canonical data.
// Subscribers recompute derived projections for the affected window.
type RunCommittedEvent struct {
	shared.BaseDomainEvent
	RunID       uuid.UUID  `json:"run_id"`
	SourceCode  SourceCode `json:"source_code"`
	WindowStart *time.Time `json:"window_start,omitempty"`
	WindowEnd   *time.Time `json:"window_end,omitempty"`
	Committed   int        `json:"committed"`
	Merged      int        `json:"merged"`
}

// NewRunCommittedEvent creates a new RunCommittedEvent
func NewRunCommittedEvent(run *IngestionRun) *RunCommittedEvent {
	return &RunCommittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRunCommitted, AggregateTypeIngestionRun, run.ID),
		RunID:           run.ID,
		SourceCode:      run.SourceCode,
		WindowStart:     run.WindowStart,
		WindowEnd:       run.WindowEnd,
		Committed:       run.Summary.Committed,
		Merged:          run.Summary.Merged,
	}
}

// RunFailedEvent is published when an ingestion run aborts
type RunFailedEvent struct {
	shared.BaseDomainEvent
	RunID        uuid.UUID  `json:"run_id"`
	SourceCode   SourceCode `json:"source_code"`
	ErrorMessage string     `json:"error_message"`
}

// NewRunFailedEvent creates a new RunFailedEvent
func NewRunFailedEvent(run *IngestionRun) *RunFailedEvent {
	return &RunFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRunFailed, AggregateTypeIngestionRun, run.ID),
		RunID:           run.ID,
		SourceCode:      run.SourceCode,
		ErrorMessage:    run.ErrorMessage,
	}
}

// RunCancelledEvent is published when an ingestion run is cancelled
type RunCancelledEvent struct {
	shared.BaseDomainEvent
	RunID      uuid.UUID  `json:"run_id"`
	SourceCode SourceCode `json:"source_code"`
	Reason     string     `json:"reason"`
}

// NewRunCancelledEvent creates a new RunCancelledEvent
func NewRunCancelledEvent(run *IngestionRun) *RunCancelledEvent {
	return &RunCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRunCancelled, AggregateTypeIngestionRun, run.ID),
		RunID:           run.ID,
		SourceCode:      run.SourceCode,
		Reason:          run.ErrorMessage,
	}
}
