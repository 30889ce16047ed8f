package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	resolutionapp "github.com/mezze/backend/internal/application/resolution"
	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/domain/normalize"
	"github.com/mezze/backend/internal/domain/partner"
	"github.com/mezze/backend/internal/domain/resolution"
	"github.com/mezze/backend/internal/domain/shared"
	"github.com/mezze/backend/internal/domain/shared/valueobject"
)

// Config tunes the pipeline
type Config struct {
	// DateFormats are the accepted source date layouts, tried in order
	DateFormats []string
	// DefaultUnit is assumed when a quantity carries no unit token
	DefaultUnit string
	// InvoiceEpsilon is the tolerance for the invoice amount check
	InvoiceEpsilon decimal.Decimal
	// AutoCreateAccounts lets the resolve stage create accounts for
	// unresolved names. Products are never auto-created.
	AutoCreateAccounts bool
}

// DefaultConfig returns the pipeline defaults
func DefaultConfig() Config {
	return Config{
		DateFormats:        normalize.DefaultDateFormats,
		DefaultUnit:        valueobject.UnitCodeEach,
		InvoiceEpsilon:     decimal.NewFromFloat(0.01),
		AutoCreateAccounts: true,
	}
}

// Pipeline walks raw records through parse, resolve, dedup and commit.
// It is stateless between runs; per-run state (transaction, resolver
// session, summary) is passed in by the coordinator.
type Pipeline struct {
	cfg    Config
	logger *zap.Logger
}

// NewPipeline creates a pipeline
func NewPipeline(cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.DefaultUnit == "" {
		cfg.DefaultUnit = valueobject.UnitCodeEach
	}
	if cfg.InvoiceEpsilon.LessThanOrEqual(decimal.Zero) {
		cfg.InvoiceEpsilon = decimal.NewFromFloat(0.01)
	}
	return &Pipeline{cfg: cfg, logger: logger}
}

// ProcessRun walks every fetched record inside the run transaction. Record
// failures are absorbed into the summary; a returned error is an
// infrastructure failure that must roll the run back.
func (p *Pipeline) ProcessRun(
	ctx context.Context,
	repos TransactionalRepositories,
	session *resolutionapp.Session,
	run *ingestion.IngestionRun,
	result *ingestion.FetchResult,
) (ingestion.RunSummary, error) {
	summary := ingestion.RunSummary{
		Fetched:  result.Report.Fetched,
		Skipped:  result.Report.Skipped,
		Warnings: len(result.Report.Warnings),
	}
	for range result.Report.Errors {
		summary.AddErrorKind(ingestion.ErrorKindFormat)
	}

	for _, raw := range result.Records {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := p.processRecord(ctx, repos, session, run.ID, raw, &summary); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// processRecord walks one raw record to a settled state and persists the
// record row
func (p *Pipeline) processRecord(
	ctx context.Context,
	repos TransactionalRepositories,
	session *resolutionapp.Session,
	runID uuid.UUID,
	raw ingestion.RawRecord,
	summary *ingestion.RunSummary,
) error {
	record, proceed, err := p.prepareRecord(ctx, repos, runID, raw, summary)
	if err != nil || !proceed {
		return err
	}

	if err := p.walkRecord(ctx, repos, session, record, summary); err != nil {
		return err
	}
	return repos.Records().Save(ctx, record)
}

// prepareRecord finds or creates the durable record row for the dedup key.
// Unchanged observations of settled records are left alone so operator
// decisions are not re-litigated; changed content re-arms the row.
func (p *Pipeline) prepareRecord(
	ctx context.Context,
	repos TransactionalRepositories,
	runID uuid.UUID,
	raw ingestion.RawRecord,
	summary *ingestion.RunSummary,
) (*ingestion.Record, bool, error) {
	existing, err := repos.Records().FindBySourceRef(ctx, raw.SourceCode, raw.SourceRef)
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		record, err := ingestion.NewRecord(runID, raw)
		if err != nil {
			// Driver handed over an unidentifiable record; nothing to park.
			p.logger.Warn("record dropped, invalid identity",
				zap.String("source_code", raw.SourceCode.String()),
				zap.String("source_ref", raw.SourceRef),
				zap.Error(err),
			)
			summary.Rejected++
			summary.AddErrorKind(ingestion.ErrorKindFormat)
			return nil, false, nil
		}
		return record, true, nil
	}

	if existing.SameFields(raw) {
		if existing.State == ingestion.RecordStateCommitted {
			summary.NoOps++
		} else {
			// Rejected, in review, or parked mid-walk by an older run:
			// unchanged input never reopens a decision.
			summary.Skipped++
		}
		return nil, false, nil
	}

	if err := existing.Reset(runID, raw); err != nil {
		return nil, false, err
	}
	return existing, true, nil
}

// walkRecord drives one re-armed record through the pipeline stages. All
// data failure modes settle the record; only infrastructure errors return.
func (p *Pipeline) walkRecord(
	ctx context.Context,
	repos TransactionalRepositories,
	session *resolutionapp.Session,
	record *ingestion.Record,
	summary *ingestion.RunSummary,
) error {
	parsed, parseErrs := parseRecord(record, p.cfg)
	if len(parseErrs) > 0 {
		for _, err := range parseErrs {
			summary.AddErrorKind(ingestion.ClassifyError(err))
		}
		summary.Rejected++
		return record.Reject(joinReasons(parseErrs))
	}
	if err := record.MarkFieldsParsed(); err != nil {
		return err
	}

	resolved, settled, err := p.resolveStage(ctx, repos, session, record, parsed, summary)
	if err != nil || settled {
		return err
	}

	return p.commitStage(ctx, repos, record, parsed, resolved, summary)
}

// resolvedEntities carries the resolve stage's outcome into the commit
// stage
type resolvedEntities struct {
	accountID   uuid.UUID
	accountName string
	productID   uuid.UUID
}

// resolveStage maps the observed account and product names onto canonical
// entities. Returns settled=true when the record was parked in review.
func (p *Pipeline) resolveStage(
	ctx context.Context,
	repos TransactionalRepositories,
	session *resolutionapp.Session,
	record *ingestion.Record,
	parsed *parsedFields,
	summary *ingestion.RunSummary,
) (*resolvedEntities, bool, error) {
	out := &resolvedEntities{}

	// Account: fuzzy match, else auto-create when permitted. Ambiguity
	// always parks the record - the matcher never guesses, and neither
	// does the auto-create path.
	accountRes, err := session.ResolveAccount(ctx, parsed.account)
	switch {
	case err == nil:
		if err := p.persistAliasGain(ctx, repos, record, accountRes, summary); err != nil {
			return nil, false, err
		}
		account, err := repos.Accounts().FindByID(ctx, accountRes.EntityID)
		if err != nil {
			return nil, false, err
		}
		if account == nil {
			return nil, false, fmt.Errorf("resolution index references missing account %s", accountRes.EntityID)
		}
		out.accountID = account.ID
		out.accountName = account.Name

	case p.cfg.AutoCreateAccounts && errors.Is(err, resolution.ErrUnresolved):
		accountID, accountName, err := p.createAccount(ctx, repos, session, record, parsed.account)
		if err != nil {
			return nil, false, err
		}
		out.accountID = accountID
		out.accountName = accountName

	default:
		settled, err := p.parkResolutionFailure(record, ingestion.CandidateKindAccount, err, summary)
		return nil, settled, err
	}

	// Product: must exist in the catalog; unresolved goes to review,
	// never auto-created.
	productRes, err := session.ResolveProduct(ctx, parsed.product)
	if err != nil {
		settled, err := p.parkResolutionFailure(record, ingestion.CandidateKindProduct, err, summary)
		return nil, settled, err
	}
	if err := p.persistAliasGain(ctx, repos, record, productRes, summary); err != nil {
		return nil, false, err
	}
	out.productID = productRes.EntityID

	if err := record.MarkResolved(out.accountID); err != nil {
		return nil, false, err
	}
	return out, false, nil
}

// persistAliasGain writes a learned alias row inside the run transaction.
// A uniqueness race with a concurrent run demotes the gain to a warning;
// the match itself stands.
func (p *Pipeline) persistAliasGain(
	ctx context.Context,
	repos TransactionalRepositories,
	record *ingestion.Record,
	res *resolutionapp.Resolution,
	summary *ingestion.RunSummary,
) error {
	if res.NewAlias == nil {
		return nil
	}
	if err := repos.Aliases().Save(ctx, res.NewAlias); err != nil {
		if errors.Is(err, shared.ErrInvariantViolation) {
			record.AddWarning(fmt.Sprintf("alias %q already claimed, match kept", res.NewAlias.Value))
			summary.AddErrorKind(ingestion.ErrorKindInvariantViolation)
			return nil
		}
		return err
	}
	return nil
}

// createAccount mints a canonical account for an unresolved observed name
func (p *Pipeline) createAccount(
	ctx context.Context,
	repos TransactionalRepositories,
	session *resolutionapp.Session,
	record *ingestion.Record,
	observed string,
) (uuid.UUID, string, error) {
	code, err := repos.Accounts().NextCode(ctx)
	if err != nil {
		return uuid.Nil, "", err
	}
	account, err := partner.NewAccountFromSource(code, observed, record.SourceCode.String())
	if err != nil {
		return uuid.Nil, "", err
	}
	if err := repos.Accounts().Save(ctx, account); err != nil {
		return uuid.Nil, "", err
	}

	// The canonical name lands as a self-alias so the store's uniqueness
	// index also rejects a second auto-create for the same name.
	rows, err := session.RegisterAccount(ctx, account.ID, account.Name, observed)
	if err != nil {
		return uuid.Nil, "", err
	}
	for _, alias := range rows {
		if err := repos.Aliases().Save(ctx, alias); err != nil {
			return uuid.Nil, "", err
		}
	}

	p.logger.Info("account auto-created",
		zap.String("code", account.Code),
		zap.String("name", account.Name),
		zap.String("source_ref", record.SourceRef),
	)
	return account.ID, account.Name, nil
}

// parkResolutionFailure sends a record with an unresolved or ambiguous
// name to the review queue with its candidate shortlist attached.
// Resolver infrastructure errors (worker stopped, session lost) pass
// through and abort the run.
func (p *Pipeline) parkResolutionFailure(
	record *ingestion.Record,
	kind ingestion.CandidateKind,
	err error,
	summary *ingestion.RunSummary,
) (bool, error) {
	errKind := ingestion.ClassifyError(err)
	if errKind != ingestion.ErrorKindUnresolved && errKind != ingestion.ErrorKindAmbiguous {
		return false, err
	}
	summary.AddErrorKind(errKind)
	summary.NeedsReview++
	return true, record.SendToReview(err.Error(), reviewCandidates(kind, err))
}

// reviewCandidates converts a resolver error payload into review rows
func reviewCandidates(kind ingestion.CandidateKind, err error) []ingestion.ReviewCandidate {
	var candidates []resolution.Candidate

	var unresolved *resolution.UnresolvedError
	var ambiguous *resolution.AmbiguousError
	switch {
	case errors.As(err, &ambiguous):
		candidates = ambiguous.Candidates
	case errors.As(err, &unresolved):
		candidates = unresolved.Candidates
	default:
		return nil
	}

	out := make([]ingestion.ReviewCandidate, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, ingestion.ReviewCandidate{
			Kind:     kind,
			EntityID: c.EntityID,
			Value:    c.Value,
			Score:    c.Score,
		})
	}
	return out
}
