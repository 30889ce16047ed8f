package ingestion

import (
	"time"

	"github.com/google/uuid"

	"github.com/mezze/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Record State Machine
// ---------------------------------------------------------------------------

// RecordState is the pipeline position of one record. Every record walks
// Raw -> FieldsParsed -> EntityResolved -> Deduplicated -> Committed;
// Rejected is terminal and reachable from every non-terminal state,
// NeedsReview and Conflict park the record for an operator and re-enter
// the walk on their decision.
type RecordState string

const (
	RecordStateRaw            RecordState = "RAW"
	RecordStateFieldsParsed   RecordState = "FIELDS_PARSED"
	RecordStateEntityResolved RecordState = "ENTITY_RESOLVED"
	RecordStateDeduplicated   RecordState = "DEDUPLICATED"
	RecordStateCommitted      RecordState = "COMMITTED"
	RecordStateRejected       RecordState = "REJECTED"
	RecordStateNeedsReview    RecordState = "NEEDS_REVIEW"
	RecordStateConflict       RecordState = "CONFLICT"
)

// recordTransitions is the single source of truth for legal state moves.
// An attempt not listed here is a programming error, not a data error.
var recordTransitions = map[RecordState][]RecordState{
	RecordStateRaw:            {RecordStateFieldsParsed, RecordStateRejected},
	RecordStateFieldsParsed:   {RecordStateEntityResolved, RecordStateNeedsReview, RecordStateRejected},
	RecordStateEntityResolved: {RecordStateDeduplicated, RecordStateConflict, RecordStateRejected},
	RecordStateDeduplicated:   {RecordStateCommitted, RecordStateRejected},
	// The self-loop re-parks a record whose review decision fixed one
	// reference but left another unresolved.
	RecordStateNeedsReview: {RecordStateEntityResolved, RecordStateNeedsReview, RecordStateRejected},
	RecordStateConflict:    {RecordStateDeduplicated, RecordStateRejected},
	RecordStateCommitted:   {},
	RecordStateRejected:    {},
}

// IsValid checks if the state is a valid RecordState
func (s RecordState) IsValid() bool {
	_, ok := recordTransitions[s]
	return ok
}

// String returns the string representation of RecordState
func (s RecordState) String() string {
	return string(s)
}

// CanTransitionTo checks if the state can move to the target state
func (s RecordState) CanTransitionTo(target RecordState) bool {
	for _, allowed := range recordTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the record is done moving
func (s RecordState) IsTerminal() bool {
	return s == RecordStateCommitted || s == RecordStateRejected
}

// InReview reports whether the record is parked for an operator
func (s RecordState) InReview() bool {
	return s == RecordStateNeedsReview || s == RecordStateConflict
}

// ---------------------------------------------------------------------------
// Review Candidates
// ---------------------------------------------------------------------------

// CandidateKind says which reference a review candidate would resolve
type CandidateKind string

const (
	CandidateKindAccount CandidateKind = "account"
	CandidateKindProduct CandidateKind = "product"
)

// ReviewCandidate is one scored resolution option attached to a record in
// review, enough for an operator to decide without re-running the matcher
type ReviewCandidate struct {
	Kind     CandidateKind `json:"kind"`
	EntityID uuid.UUID     `json:"entity_id"`
	Value    string        `json:"value"`
	Score    float64       `json:"score"`
}

// ---------------------------------------------------------------------------
// Record
// ---------------------------------------------------------------------------

// Record is one raw record moving through the pipeline, durable so the
// review queue and run provenance survive restarts. The raw field map is
// kept verbatim; parsing results live on the committed Order, not here.
type Record struct {
	ID         uuid.UUID           `gorm:"type:uuid;primaryKey"`
	RunID      uuid.UUID           `gorm:"type:uuid;not null;index"`
	SourceCode SourceCode          `gorm:"type:varchar(50);not null;uniqueIndex:idx_record_source_ref,priority:1"`
	SourceRef  string              `gorm:"type:varchar(255);not null;uniqueIndex:idx_record_source_ref,priority:2"`
	Fields     FieldMap            `gorm:"type:jsonb;not null"`
	Provenance FieldMap            `gorm:"type:jsonb"`
	State      RecordState         `gorm:"type:varchar(20);not null;index"`
	Warnings   StringList          `gorm:"type:jsonb"`
	Errors     StringList          `gorm:"type:jsonb"`
	Candidates ReviewCandidateList `gorm:"type:jsonb"`
	AccountID  *uuid.UUID          `gorm:"type:uuid"` // set once the account reference resolves
	OrderID    *uuid.UUID          `gorm:"type:uuid"` // set on commit, links provenance to the order
	ReviewedBy string              `gorm:"type:varchar(100)"`
	ReviewedAt *time.Time
	FetchedAt  time.Time `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"not null;autoUpdateTime"`
}

// TableName returns the table name for GORM
func (Record) TableName() string {
	return "ingestion_records"
}

// NewRecord starts tracking one raw record for a run
func NewRecord(runID uuid.UUID, raw RawRecord) (*Record, error) {
	if runID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_RUN_ID", "Record run ID cannot be empty")
	}
	if !raw.SourceCode.IsValid() {
		return nil, shared.NewDomainError("INVALID_SOURCE_CODE", "Invalid source code: "+string(raw.SourceCode))
	}
	if raw.SourceRef == "" {
		return nil, shared.NewDomainError("INVALID_SOURCE_REF", "Record source ref cannot be empty")
	}

	fields := FieldMap{}
	for k, v := range raw.Fields {
		fields[k] = v
	}
	provenance := FieldMap{}
	for k, v := range raw.Provenance {
		provenance[k] = v
	}

	return &Record{
		ID:         uuid.New(),
		RunID:      runID,
		SourceCode: raw.SourceCode,
		SourceRef:  raw.SourceRef,
		Fields:     fields,
		Provenance: provenance,
		State:      RecordStateRaw,
		Warnings:   StringList{},
		Errors:     StringList{},
		Candidates: ReviewCandidateList{},
		FetchedAt:  raw.FetchedAt,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}, nil
}

// transitionTo moves the record through the transition table
func (r *Record) transitionTo(target RecordState) error {
	if !r.State.CanTransitionTo(target) {
		return shared.NewDomainError("ILLEGAL_RECORD_TRANSITION",
			"Record cannot move from "+r.State.String()+" to "+target.String())
	}
	r.State = target
	r.UpdatedAt = time.Now()
	return nil
}

// MarkFieldsParsed advances the record after field normalization
func (r *Record) MarkFieldsParsed() error {
	return r.transitionTo(RecordStateFieldsParsed)
}

// MarkResolved advances the record once its account reference is mapped
// to a canonical ID
func (r *Record) MarkResolved(accountID uuid.UUID) error {
	if accountID == uuid.Nil {
		return shared.NewDomainError("INVALID_ACCOUNT_ID", "Resolved account ID cannot be empty")
	}
	if err := r.transitionTo(RecordStateEntityResolved); err != nil {
		return err
	}
	r.AccountID = &accountID
	r.Candidates = ReviewCandidateList{}
	return nil
}

// MarkDeduplicated advances the record past the dedup check
func (r *Record) MarkDeduplicated() error {
	return r.transitionTo(RecordStateDeduplicated)
}

// MarkCommitted finishes the record, linking it to the order it produced
// or updated
func (r *Record) MarkCommitted(orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return shared.NewDomainError("INVALID_ORDER_ID", "Committed order ID cannot be empty")
	}
	if err := r.transitionTo(RecordStateCommitted); err != nil {
		return err
	}
	r.OrderID = &orderID
	return nil
}

// Reject terminates the record with a reason. Legal from every
// non-terminal state.
func (r *Record) Reject(reason string) error {
	if err := r.transitionTo(RecordStateRejected); err != nil {
		return err
	}
	if reason != "" {
		r.Errors = append(r.Errors, reason)
	}
	return nil
}

// SendToReview parks the record for an operator with the competing or
// near-miss candidates attached
func (r *Record) SendToReview(reason string, candidates []ReviewCandidate) error {
	if err := r.transitionTo(RecordStateNeedsReview); err != nil {
		return err
	}
	if reason != "" {
		r.Errors = append(r.Errors, reason)
	}
	r.Candidates = append(ReviewCandidateList{}, candidates...)
	return nil
}

// FlagConflict parks the record for an operator because its immutable
// fields disagree with the committed order for the same dedup key
func (r *Record) FlagConflict(reason string) error {
	if err := r.transitionTo(RecordStateConflict); err != nil {
		return err
	}
	if reason != "" {
		r.Errors = append(r.Errors, reason)
	}
	return nil
}

// AcceptConflict lets an operator push the conflicting record through:
// it re-enters the walk at Deduplicated and will overwrite on commit
func (r *Record) AcceptConflict() error {
	if r.State != RecordStateConflict {
		return shared.NewDomainError("ILLEGAL_RECORD_TRANSITION",
			"Only conflicted records can be accepted for overwrite")
	}
	return r.transitionTo(RecordStateDeduplicated)
}

// SetReviewedBy records which operator last ruled on this record
func (r *Record) SetReviewedBy(subject string) {
	if subject == "" {
		return
	}
	now := time.Now()
	r.ReviewedBy = subject
	r.ReviewedAt = &now
	r.UpdatedAt = now
}

// AddWarning records a non-fatal observation without moving the record
func (r *Record) AddWarning(msg string) {
	if msg == "" {
		return
	}
	r.Warnings = append(r.Warnings, msg)
	r.UpdatedAt = time.Now()
}

// SameFields reports whether a newly fetched record carries exactly the
// field map this record last walked with. The pipeline uses it to leave
// settled records alone when the upstream has not changed, so an operator
// rejection is not re-litigated every run.
func (r *Record) SameFields(raw RawRecord) bool {
	if len(r.Fields) != len(raw.Fields) {
		return false
	}
	for k, v := range raw.Fields {
		if r.Fields[k] != v {
			return false
		}
	}
	return true
}

// Reset re-arms the record for a fresh walk after a re-fetch observed new
// upstream content for the same dedup key. This is a new observation, not
// a state transition: prior walk results are cleared, the row identity
// stays.
func (r *Record) Reset(runID uuid.UUID, raw RawRecord) error {
	if runID == uuid.Nil {
		return shared.NewDomainError("INVALID_RUN_ID", "Record run ID cannot be empty")
	}
	if raw.SourceCode != r.SourceCode || raw.SourceRef != r.SourceRef {
		return shared.NewDomainError("RECORD_IDENTITY_MISMATCH",
			"Reset must carry the same source code and source ref")
	}

	fields := FieldMap{}
	for k, v := range raw.Fields {
		fields[k] = v
	}
	provenance := FieldMap{}
	for k, v := range raw.Provenance {
		provenance[k] = v
	}

	r.RunID = runID
	r.Fields = fields
	r.Provenance = provenance
	r.State = RecordStateRaw
	r.Warnings = StringList{}
	r.Errors = StringList{}
	r.Candidates = ReviewCandidateList{}
	r.AccountID = nil
	r.OrderID = nil
	r.ReviewedBy = ""
	r.ReviewedAt = nil
	r.FetchedAt = raw.FetchedAt
	r.UpdatedAt = time.Now()
	return nil
}

// IsTerminal reports whether the record is done moving
func (r *Record) IsTerminal() bool {
	return r.State.IsTerminal()
}

// InReview reports whether the record is parked for an operator
func (r *Record) InReview() bool {
	return r.State.InReview()
}

// Field returns a raw field value with surrounding whitespace trimmed
func (r *Record) Field(key string) (string, bool) {
	raw := RawRecord{Fields: r.Fields}
	return raw.Field(key)
}
