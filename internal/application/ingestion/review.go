package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	resolutionapp "github.com/mezze/backend/internal/application/resolution"
	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/domain/resolution"
	"github.com/mezze/backend/internal/domain/shared"
	"github.com/mezze/backend/internal/infrastructure/telemetry"
)

// reviewOrigin marks alias rows learned from operator decisions, as
// opposed to rows learned from a source run
const reviewOrigin = "review"

// ReviewAction is an operator's ruling on a parked record
type ReviewAction string

const (
	// ReviewActionAccept accepts a resolution candidate, or approves the
	// overwrite for a conflicted record
	ReviewActionAccept ReviewAction = "accept"
	// ReviewActionCreate mints a new account for the observed name
	ReviewActionCreate ReviewAction = "create"
	// ReviewActionReject drops the record for good
	ReviewActionReject ReviewAction = "reject"
)

// IsValid checks if the action is a known ReviewAction
func (a ReviewAction) IsValid() bool {
	switch a {
	case ReviewActionAccept, ReviewActionCreate, ReviewActionReject:
		return true
	}
	return false
}

// String returns the string representation of ReviewAction
func (a ReviewAction) String() string {
	return string(a)
}

// ReviewDecision carries one operator ruling on a parked record
type ReviewDecision struct {
	// Action is what the operator decided
	Action ReviewAction
	// CandidateID names the chosen candidate entity for an accept on a
	// record in NeedsReview; ignored for conflicts and other actions
	CandidateID uuid.UUID
	// Reason is the operator's note on a reject
	Reason string
	// Operator is the subject from the bearer token
	Operator string
}

// Validate checks the decision before any store access
func (d ReviewDecision) Validate() error {
	if d.Operator == "" {
		return shared.NewDomainError("MISSING_OPERATOR", "Review decision must carry the deciding operator")
	}
	if !d.Action.IsValid() {
		return shared.NewDomainError("INVALID_REVIEW_ACTION", "Invalid review action: "+string(d.Action))
	}
	return nil
}

// ReviewService is the operator side of the pipeline: it lists parked
// records and applies decisions, re-entering the walk at the stage the
// record parked in. Each decision commits in its own transaction; the
// taught aliases reach the live resolver indexes the same way a run's
// alias gains do.
type ReviewService struct {
	records  ingestion.RecordRepository
	scope    TransactionScope
	resolver *resolutionapp.Service
	pipeline *Pipeline
	logger   *zap.Logger
}

// NewReviewService creates a review service
func NewReviewService(
	records ingestion.RecordRepository,
	scope TransactionScope,
	resolver *resolutionapp.Service,
	pipeline *Pipeline,
	logger *zap.Logger,
) *ReviewService {
	return &ReviewService{
		records:  records,
		scope:    scope,
		resolver: resolver,
		pipeline: pipeline,
		logger:   logger,
	}
}

// ListReview returns records waiting on an operator, oldest first
func (s *ReviewService) ListReview(ctx context.Context, query ingestion.ReviewQuery, filter shared.Filter) ([]ingestion.Record, int64, error) {
	records, err := s.records.FindInReview(ctx, query, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.records.CountInReview(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// GetRecord returns one record by ID
func (s *ReviewService) GetRecord(ctx context.Context, id uuid.UUID) (*ingestion.Record, error) {
	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, shared.ErrNotFound
	}
	return record, nil
}

// PendingReviewCount counts records waiting on an operator, for the
// review queue depth gauge
func (s *ReviewService) PendingReviewCount(ctx context.Context) (int64, error) {
	return s.records.CountInReview(ctx, ingestion.ReviewQuery{})
}

// Resolve applies one operator decision to a parked record and returns the
// record in its settled (or re-parked) state. The decision, the re-walked
// stages and every write they make commit atomically.
func (s *ReviewService) Resolve(ctx context.Context, id uuid.UUID, decision ReviewDecision) (*ingestion.Record, error) {
	if err := decision.Validate(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "review", "resolve",
		telemetry.WithAttribute("review.action", decision.Action.String()),
	)
	defer span.End()

	// Each decision gets its own resolver session so taught aliases stay
	// invisible to concurrent runs until this transaction commits.
	session, err := s.resolver.Begin(ctx, uuid.New(), reviewOrigin)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var record *ingestion.Record
	execErr := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.Records().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if found == nil {
			return shared.ErrNotFound
		}
		if !found.InReview() {
			return shared.NewDomainError("RECORD_NOT_IN_REVIEW",
				"Record is in state "+found.State.String()+", not waiting on review")
		}
		record = found

		if err := s.apply(ctx, repos, session, record, decision); err != nil {
			return err
		}
		record.SetReviewedBy(decision.Operator)
		return repos.Records().Save(ctx, record)
	})
	if execErr != nil {
		telemetry.RecordError(span, execErr)
		if err := session.Abort(ctx); err != nil {
			s.logger.Warn("resolver session abort failed", zap.Error(err))
		}
		return nil, execErr
	}
	if err := session.Commit(ctx); err != nil {
		// The store transaction is already committed; the taught aliases
		// are lost until the next index warm-up reloads them.
		s.logger.Warn("resolver session commit failed", zap.Error(err))
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSourceCode, record.SourceCode.String(),
		telemetry.SpanAttrSourceRef, record.SourceRef,
	)
	s.logger.Info("review decision applied",
		zap.String("record_id", record.ID.String()),
		zap.String("source_code", record.SourceCode.String()),
		zap.String("source_ref", record.SourceRef),
		zap.String("action", decision.Action.String()),
		zap.String("operator", decision.Operator),
		zap.String("state", record.State.String()),
	)
	return record, nil
}

// apply dispatches one decision onto the record's review state
func (s *ReviewService) apply(
	ctx context.Context,
	repos TransactionalRepositories,
	session *resolutionapp.Session,
	record *ingestion.Record,
	decision ReviewDecision,
) error {
	switch decision.Action {
	case ReviewActionReject:
		reason := decision.Reason
		if reason == "" {
			reason = "rejected by operator"
		}
		return record.Reject(reason)

	case ReviewActionAccept:
		if record.State == ingestion.RecordStateConflict {
			return s.acceptConflict(ctx, repos, session, record)
		}
		return s.acceptCandidate(ctx, repos, session, record, decision.CandidateID)

	case ReviewActionCreate:
		if record.State == ingestion.RecordStateConflict {
			return shared.NewDomainError("INVALID_REVIEW_ACTION",
				"Create applies to unresolved names, not conflicts")
		}
		return s.createFromReview(ctx, repos, session, record)
	}
	return shared.NewDomainError("INVALID_REVIEW_ACTION", "Invalid review action: "+string(decision.Action))
}

// acceptCandidate teaches the chosen candidate as an alias for the parked
// observed name and re-enters the walk at the resolve stage. The record
// may park again when a second reference is still unresolved.
func (s *ReviewService) acceptCandidate(
	ctx context.Context,
	repos TransactionalRepositories,
	session *resolutionapp.Session,
	record *ingestion.Record,
	candidateID uuid.UUID,
) error {
	cand := findCandidate(record, candidateID)
	if cand == nil {
		return shared.NewDomainError("UNKNOWN_CANDIDATE",
			"Accept must name one of the record's review candidates")
	}

	parsed, parseErrs := parseRecord(record, s.pipeline.cfg)
	if len(parseErrs) > 0 {
		return record.Reject(joinReasons(parseErrs))
	}

	observed := parsed.account
	owner := resolution.OwnerTypeAccount
	if cand.Kind == ingestion.CandidateKindProduct {
		observed = parsed.product
		owner = resolution.OwnerTypeProduct
	}

	alias, err := session.Teach(ctx, owner, cand.EntityID, observed)
	if err != nil {
		return err
	}
	if alias != nil {
		if err := repos.Aliases().Save(ctx, alias); err != nil {
			if !errors.Is(err, shared.ErrInvariantViolation) {
				return err
			}
			record.AddWarning(fmt.Sprintf("alias %q already claimed, decision kept", alias.Value))
		}
	}

	return s.pipeline.resumeResolve(ctx, repos, session, record, parsed)
}

// createFromReview mints a new account for the observed name and re-enters
// the walk at the resolve stage
func (s *ReviewService) createFromReview(
	ctx context.Context,
	repos TransactionalRepositories,
	session *resolutionapp.Session,
	record *ingestion.Record,
) error {
	parsed, parseErrs := parseRecord(record, s.pipeline.cfg)
	if len(parseErrs) > 0 {
		return record.Reject(joinReasons(parseErrs))
	}

	// Create is only meaningful while the account reference fails to
	// resolve; products are operator-managed catalog data, never minted
	// from review.
	if _, err := session.ResolveAccount(ctx, parsed.account); err == nil {
		return shared.NewDomainError("ACCOUNT_ALREADY_RESOLVES",
			"Observed account name already resolves; accept the match instead")
	} else if !errors.Is(err, resolution.ErrUnresolved) && !errors.Is(err, resolution.ErrAmbiguous) {
		return err
	}

	if _, _, err := s.pipeline.createAccount(ctx, repos, session, record, parsed.account); err != nil {
		return err
	}
	return s.pipeline.resumeResolve(ctx, repos, session, record, parsed)
}

// acceptConflict approves overwriting the committed order with the
// conflicting record's content
func (s *ReviewService) acceptConflict(
	ctx context.Context,
	repos TransactionalRepositories,
	session *resolutionapp.Session,
	record *ingestion.Record,
) error {
	parsed, parseErrs := parseRecord(record, s.pipeline.cfg)
	if len(parseErrs) > 0 {
		return record.Reject(joinReasons(parseErrs))
	}
	if err := record.AcceptConflict(); err != nil {
		return err
	}
	return s.pipeline.resumeCommit(ctx, repos, session, record, parsed)
}

// findCandidate returns the record's review candidate for an entity ID,
// nil when no candidate carries it
func findCandidate(record *ingestion.Record, entityID uuid.UUID) *ingestion.ReviewCandidate {
	for i := range record.Candidates {
		if record.Candidates[i].EntityID == entityID {
			return &record.Candidates[i]
		}
	}
	return nil
}

// resumeResolve re-enters the walk at the resolve stage for a record an
// operator just ruled on. The record's fields have not changed since it
// parked, so the parse stage is re-run for its values only.
func (p *Pipeline) resumeResolve(
	ctx context.Context,
	repos TransactionalRepositories,
	session *resolutionapp.Session,
	record *ingestion.Record,
	parsed *parsedFields,
) error {
	var summary ingestion.RunSummary
	resolved, settled, err := p.resolveStage(ctx, repos, session, record, parsed, &summary)
	if err != nil || settled {
		return err
	}
	return p.commitStage(ctx, repos, record, parsed, resolved, &summary)
}

// resumeCommit pushes an accepted conflict through the commit stage. The
// record is already deduplicated, so the commit overwrites the committed
// order.
func (p *Pipeline) resumeCommit(
	ctx context.Context,
	repos TransactionalRepositories,
	session *resolutionapp.Session,
	record *ingestion.Record,
	parsed *parsedFields,
) error {
	var summary ingestion.RunSummary
	resolved, err := p.reresolveEntities(ctx, repos, session, record, parsed, &summary)
	if err != nil {
		return err
	}
	return p.commitStage(ctx, repos, record, parsed, resolved, &summary)
}

// reresolveEntities recovers the canonical IDs for a record that already
// passed the resolve stage, without moving its state. Both references
// resolved before the record parked, so a miss here is an index or store
// inconsistency, not a data failure.
func (p *Pipeline) reresolveEntities(
	ctx context.Context,
	repos TransactionalRepositories,
	session *resolutionapp.Session,
	record *ingestion.Record,
	parsed *parsedFields,
	summary *ingestion.RunSummary,
) (*resolvedEntities, error) {
	accountRes, err := session.ResolveAccount(ctx, parsed.account)
	if err != nil {
		return nil, fmt.Errorf("account %q no longer resolves: %w", parsed.account, err)
	}
	if err := p.persistAliasGain(ctx, repos, record, accountRes, summary); err != nil {
		return nil, err
	}
	account, err := repos.Accounts().FindByID(ctx, accountRes.EntityID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("resolution index references missing account %s", accountRes.EntityID)
	}

	productRes, err := session.ResolveProduct(ctx, parsed.product)
	if err != nil {
		return nil, fmt.Errorf("product %q no longer resolves: %w", parsed.product, err)
	}
	if err := p.persistAliasGain(ctx, repos, record, productRes, summary); err != nil {
		return nil, err
	}

	return &resolvedEntities{
		accountID:   account.ID,
		accountName: account.Name,
		productID:   productRes.EntityID,
	}, nil
}
