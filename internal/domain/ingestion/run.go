package ingestion

import (
	"time"

	"github.com/mezze/backend/internal/domain/shared"
)

// RunStatus represents the lifecycle state of an ingestion run
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSuccess   RunStatus = "SUCCESS"
	RunStatusPartial   RunStatus = "PARTIAL"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
)

// IsValid checks if the run status is valid
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusSuccess,
		RunStatusPartial, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation
func (s RunStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the run has finished
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSuccess, RunStatusPartial, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks if transitioning to the target status is allowed
func (s RunStatus) CanTransitionTo(target RunStatus) bool {
	transitions := map[RunStatus][]RunStatus{
		RunStatusPending:   {RunStatusRunning, RunStatusFailed, RunStatusCancelled},
		RunStatusRunning:   {RunStatusSuccess, RunStatusPartial, RunStatusFailed, RunStatusCancelled},
		RunStatusSuccess:   {},
		RunStatusPartial:   {},
		RunStatusFailed:    {},
		RunStatusCancelled: {},
	}
	allowed, ok := transitions[s]
	if !ok {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// RunTrigger identifies what started an ingestion run
type RunTrigger string

const (
	RunTriggerSchedule RunTrigger = "SCHEDULE"
	RunTriggerManual   RunTrigger = "MANUAL"
)

// IsValid checks if the trigger is valid
func (t RunTrigger) IsValid() bool {
	return t == RunTriggerSchedule || t == RunTriggerManual
}

// String returns the string representation
func (t RunTrigger) String() string {
	return string(t)
}

// RunSummary aggregates the per-record outcomes of a run.
// Committed, Merged and NoOps partition the records that reached the
// dedup stage; Rejected, NeedsReview and Conflicts are the records the
// pipeline could not land without an operator.
type RunSummary struct {
	Fetched     int             `gorm:"column:fetched;default:0" json:"fetched"`
	Skipped     int             `gorm:"column:skipped;default:0" json:"skipped"`
	Committed   int             `gorm:"column:committed;default:0" json:"committed"`
	Merged      int             `gorm:"column:merged;default:0" json:"merged"`
	NoOps       int             `gorm:"column:no_ops;default:0" json:"no_ops"`
	Rejected    int             `gorm:"column:rejected;default:0" json:"rejected"`
	NeedsReview int             `gorm:"column:needs_review;default:0" json:"needs_review"`
	Conflicts   int             `gorm:"column:conflicts;default:0" json:"conflicts"`
	Warnings    int             `gorm:"column:warnings;default:0" json:"warnings"`
	ErrorKinds  ErrorKindCounts `gorm:"column:error_kinds;type:jsonb" json:"error_kinds"`
}

// AddErrorKind counts one occurrence of an error kind
func (s *RunSummary) AddErrorKind(kind ErrorKind) {
	if s.ErrorKinds == nil {
		s.ErrorKinds = make(ErrorKindCounts)
	}
	s.ErrorKinds[kind]++
}

// FailureCount returns the number of records that did not land cleanly
func (s *RunSummary) FailureCount() int {
	return s.Rejected + s.NeedsReview + s.Conflicts
}

// HasCommittedWork reports whether the run changed canonical data
func (s *RunSummary) HasCommittedWork() bool {
	return s.Committed > 0 || s.Merged > 0
}

// IngestionRun is the aggregate root for one execution of a source's
// ingestion pipeline. All canonical writes of a run happen in a single
// transaction; the run row itself records the outcome either way.
type IngestionRun struct {
	shared.BaseAggregateRoot
	SourceCode   SourceCode `gorm:"column:source_code;type:varchar(50);not null;index" json:"source_code"`
	WindowStart  *time.Time `gorm:"column:window_start" json:"window_start,omitempty"`
	WindowEnd    *time.Time `gorm:"column:window_end" json:"window_end,omitempty"`
	Trigger      RunTrigger `gorm:"column:trigger;type:varchar(20);not null" json:"trigger"`
	Status       RunStatus  `gorm:"column:status;type:varchar(20);not null;index" json:"status"`
	StartedAt    *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt   *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`
	Summary      RunSummary `gorm:"embedded" json:"summary"`
	ErrorMessage string     `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
}

// TableName returns the table name for GORM
func (IngestionRun) TableName() string {
	return "ingestion_runs"
}

// NewIngestionRun creates a pending run for a source and window
func NewIngestionRun(sourceCode SourceCode, window Window, trigger RunTrigger) (*IngestionRun, error) {
	if !sourceCode.IsValid() {
		return nil, shared.NewDomainError("INVALID_SOURCE_CODE", "Invalid source code: "+string(sourceCode))
	}
	if !trigger.IsValid() {
		return nil, shared.NewDomainError("INVALID_RUN_TRIGGER", "Invalid run trigger: "+string(trigger))
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}

	run := &IngestionRun{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SourceCode:        sourceCode,
		Trigger:           trigger,
		Status:            RunStatusPending,
	}
	if !window.Start.IsZero() {
		start := window.Start
		run.WindowStart = &start
	}
	if !window.End.IsZero() {
		end := window.End
		run.WindowEnd = &end
	}

	run.AddDomainEvent(NewRunCreatedEvent(run))
	return run, nil
}

// Window reconstructs the run's ingestion window
func (r *IngestionRun) Window() Window {
	var w Window
	if r.WindowStart != nil {
		w.Start = *r.WindowStart
	}
	if r.WindowEnd != nil {
		w.End = *r.WindowEnd
	}
	return w
}

// Start marks the run as running
func (r *IngestionRun) Start() error {
	if err := r.transitionTo(RunStatusRunning); err != nil {
		return err
	}
	now := time.Now()
	r.StartedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewRunStartedEvent(r))
	return nil
}

// Complete finishes the run with the given summary. The run lands on
// SUCCESS when every fetched record settled cleanly, PARTIAL when some
// records were rejected or are waiting on an operator. Emits a
// RunCommitted event when canonical data changed so downstream
// projections can recompute.
func (r *IngestionRun) Complete(summary RunSummary) error {
	target := RunStatusSuccess
	if summary.FailureCount() > 0 {
		target = RunStatusPartial
	}
	if err := r.transitionTo(target); err != nil {
		return err
	}
	now := time.Now()
	r.FinishedAt = &now
	r.Summary = summary
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewRunCompletedEvent(r))
	if summary.HasCommittedWork() {
		r.AddDomainEvent(NewRunCommittedEvent(r))
	}
	return nil
}

// Fail marks the run as failed with an error message
func (r *IngestionRun) Fail(message string) error {
	if err := r.transitionTo(RunStatusFailed); err != nil {
		return err
	}
	now := time.Now()
	r.FinishedAt = &now
	r.ErrorMessage = message
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewRunFailedEvent(r))
	return nil
}

// Cancel marks the run as cancelled, e.g. on shutdown or lock timeout
func (r *IngestionRun) Cancel(reason string) error {
	if err := r.transitionTo(RunStatusCancelled); err != nil {
		return err
	}
	now := time.Now()
	r.FinishedAt = &now
	r.ErrorMessage = reason
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewRunCancelledEvent(r))
	return nil
}

// Duration returns the wall-clock time of the run, zero until started
func (r *IngestionRun) Duration() time.Duration {
	if r.StartedAt == nil {
		return 0
	}
	if r.FinishedAt == nil {
		return time.Since(*r.StartedAt)
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// HasCommittedWork reports whether the run changed canonical data
func (r *IngestionRun) HasCommittedWork() bool {
	return r.Summary.HasCommittedWork()
}

// IsTerminal reports whether the run has finished
func (r *IngestionRun) IsTerminal() bool {
	return r.Status.IsTerminal()
}

func (r *IngestionRun) transitionTo(target RunStatus) error {
	if !r.Status.CanTransitionTo(target) {
		return shared.NewDomainError("ILLEGAL_RUN_TRANSITION",
			"Run cannot move from "+r.Status.String()+" to "+target.String())
	}
	r.Status = target
	return nil
}
