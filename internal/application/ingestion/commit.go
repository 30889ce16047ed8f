package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mezze/backend/internal/domain/finance"
	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/domain/normalize"
	"github.com/mezze/backend/internal/domain/shared"
	"github.com/mezze/backend/internal/domain/shared/valueobject"
	"github.com/mezze/backend/internal/domain/trade"
)

// rejectError marks a failure that settles one record without aborting the
// run. Everything not wrapped in it is infrastructure and rolls the run
// back.
type rejectError struct {
	err error
}

// Error implements the error interface
func (e *rejectError) Error() string { return e.err.Error() }

// Unwrap keeps errors.Is classification working through the wrapper
func (e *rejectError) Unwrap() error { return e.err }

func rejectf(format string, args ...any) error {
	return &rejectError{err: fmt.Errorf(format, args...)}
}

// commitStage runs the dedup check and commits the record's order with its
// finance enrichment. Data failures settle the record; only infrastructure
// errors return.
func (p *Pipeline) commitStage(
	ctx context.Context,
	repos TransactionalRepositories,
	record *ingestion.Record,
	parsed *parsedFields,
	resolved *resolvedEntities,
	summary *ingestion.RunSummary,
) error {
	// A record re-entering from conflict review arrives already
	// deduplicated; the operator approved overwriting the committed order.
	overwrite := record.State == ingestion.RecordStateDeduplicated

	order, err := p.buildOrder(ctx, repos, record, parsed, resolved)
	if err != nil {
		return p.settleCommitError(record, err, summary)
	}

	existing, err := repos.Orders().FindBySourceRef(ctx, record.SourceCode.String(), record.SourceRef)
	if err != nil {
		return err
	}

	switch {
	case existing == nil:
		if !overwrite {
			if err := record.MarkDeduplicated(); err != nil {
				return err
			}
		}
		return p.commitOrder(ctx, repos, record, parsed, resolved, order, summary)

	case overwrite:
		if err := existing.ApplyRevision(order); err != nil {
			return p.settleCommitError(record, &rejectError{err: err}, summary)
		}
		p.mergeReportedStatus(record, existing, parsed.status)
		return p.commitOrder(ctx, repos, record, parsed, resolved, existing, summary)

	case existing.Fingerprint() == order.Fingerprint():
		return p.settleUnchanged(ctx, repos, record, existing, parsed.status, summary)

	default:
		summary.Conflicts++
		summary.AddErrorKind(ingestion.ErrorKindConflict)
		if err := record.FlagConflict("content differs from committed order " + existing.DisplayRef()); err != nil {
			return err
		}
		p.logger.Warn("record conflicts with committed order",
			zap.String("source_code", record.SourceCode.String()),
			zap.String("source_ref", record.SourceRef),
			zap.String("order_id", existing.ID.String()),
		)
		return nil
	}
}

// settleUnchanged handles the re-observation of an already committed order:
// identical content is a no-op, a moved source status merges forward, a
// status regression is a conflict.
func (p *Pipeline) settleUnchanged(
	ctx context.Context,
	repos TransactionalRepositories,
	record *ingestion.Record,
	existing *trade.Order,
	reported trade.OrderStatus,
	summary *ingestion.RunSummary,
) error {
	if err := record.MarkDeduplicated(); err != nil {
		return err
	}

	if reported != "" && reported != existing.Status {
		if err := existing.MergeStatus(reported); err != nil {
			summary.Conflicts++
			summary.AddErrorKind(ingestion.ErrorKindConflict)
			return record.FlagConflict(err.Error())
		}
		if err := repos.Orders().Save(ctx, existing); err != nil {
			return err
		}
		summary.Merged++
		return record.MarkCommitted(existing.ID)
	}

	summary.NoOps++
	return record.MarkCommitted(existing.ID)
}

// mergeReportedStatus folds a source-reported status into the order on the
// overwrite path. A regression keeps the committed status with a warning;
// the operator already ruled on this record.
func (p *Pipeline) mergeReportedStatus(record *ingestion.Record, order *trade.Order, reported trade.OrderStatus) {
	if reported == "" || reported == order.Status {
		return
	}
	if err := order.MergeStatus(reported); err != nil {
		record.AddWarning(fmt.Sprintf("reported status %s not merged: %s", reported, err.Error()))
	}
}

// commitOrder persists the order and its finance enrichment, then
// finishes the record
func (p *Pipeline) commitOrder(
	ctx context.Context,
	repos TransactionalRepositories,
	record *ingestion.Record,
	parsed *parsedFields,
	resolved *resolvedEntities,
	order *trade.Order,
	summary *ingestion.RunSummary,
) error {
	// Finance objects are built and validated before anything is saved, so
	// an epsilon mismatch rejects the record with the store untouched.
	invoice, payment, err := p.buildFinance(ctx, repos, record, parsed, resolved, order)
	if err != nil {
		return p.settleCommitError(record, err, summary)
	}

	if err := repos.Orders().Save(ctx, order); err != nil {
		if errors.Is(err, shared.ErrInvariantViolation) {
			return p.settleCommitError(record, &rejectError{err: err}, summary)
		}
		return err
	}
	if invoice != nil {
		if err := repos.Invoices().Save(ctx, invoice); err != nil {
			return err
		}
	}
	if payment != nil {
		if err := repos.Payments().Save(ctx, payment); err != nil {
			return err
		}
	}

	summary.Committed++
	return record.MarkCommitted(order.ID)
}

// settleCommitError rejects the record for data failures and passes
// infrastructure errors through
func (p *Pipeline) settleCommitError(record *ingestion.Record, err error, summary *ingestion.RunSummary) error {
	var rej *rejectError
	if !errors.As(err, &rej) {
		return err
	}
	summary.Rejected++
	summary.AddErrorKind(ingestion.ClassifyError(err))
	return record.Reject(err.Error())
}

// buildOrder assembles the order aggregate for a resolved record: unit
// conversion against the product's configured units, price from the
// record or the price book. Data failures come back as rejectError.
func (p *Pipeline) buildOrder(
	ctx context.Context,
	repos TransactionalRepositories,
	record *ingestion.Record,
	parsed *parsedFields,
	resolved *resolvedEntities,
) (*trade.Order, error) {
	product, err := repos.Products().FindByID(ctx, resolved.productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("resolution index references missing product %s", resolved.productID)
	}

	unit := parsed.quantity.Unit()
	rate := decimal.NewFromInt(1)
	if unit != product.BaseUnit {
		pu, err := repos.ProductUnits().FindByProductAndCode(ctx, product.ID, unit)
		if err != nil {
			return nil, err
		}
		if pu == nil {
			return nil, rejectf("%w: unit %s not configured for %s", normalize.ErrUnknownUnit, unit, product.SKU)
		}
		rate = pu.ConversionRate
	}

	unitPrice, err := p.resolveUnitPrice(ctx, repos, record, parsed, product.ID, unit)
	if err != nil {
		return nil, err
	}

	order, err := trade.NewOrder(
		record.SourceCode.String(),
		record.SourceRef,
		resolved.accountID,
		resolved.accountName,
		parsed.orderDate,
	)
	if err != nil {
		return nil, &rejectError{err: err}
	}

	if _, err := order.AddLine(product.ID, product.SKU, product.Name, unit, product.BaseUnit, parsed.quantity.Amount(), rate, unitPrice); err != nil {
		return nil, &rejectError{err: err}
	}

	if parsed.poNumber != "" {
		if err := order.SetPONumber(parsed.poNumber); err != nil {
			record.AddWarning(err.Error())
		}
	}
	if !parsed.windowStart.IsZero() && !parsed.windowEnd.IsZero() {
		if err := order.SetWindow(parsed.windowStart, parsed.windowEnd); err != nil {
			record.AddWarning(err.Error())
		}
	}
	if parsed.dayOfWeek != "" {
		order.SetDayOfWeek(parsed.dayOfWeek)
	}
	if parsed.remark != "" {
		order.SetRemark(parsed.remark)
	}
	if parsed.status != "" && parsed.status != trade.OrderStatusOpen {
		if err := order.MergeStatus(parsed.status); err != nil {
			return nil, &rejectError{err: err}
		}
	}

	return order, nil
}

// resolveUnitPrice picks the line's unit price: the record's explicit
// price wins, then a price derived from the extended amount, then the
// price book, then zero with a warning.
func (p *Pipeline) resolveUnitPrice(
	ctx context.Context,
	repos TransactionalRepositories,
	record *ingestion.Record,
	parsed *parsedFields,
	productID uuid.UUID,
	unit string,
) (valueobject.Money, error) {
	if parsed.unitPrice != nil {
		return *parsed.unitPrice, nil
	}
	if parsed.amount != nil && parsed.quantity.Amount().IsPositive() {
		derived := parsed.amount.Amount().Div(parsed.quantity.Amount()).Round(4)
		return valueobject.NewMoneyUSD(derived), nil
	}

	price, err := repos.Prices().FindEffectiveAt(ctx, productID, unit, parsed.orderDate)
	if err != nil {
		return valueobject.Money{}, err
	}
	if price != nil {
		return price.Price, nil
	}

	record.AddWarning(fmt.Sprintf("no price on file for unit %s, committed at zero", unit))
	return valueobject.ZeroUSD(), nil
}

// buildFinance assembles the invoice and payment a record carries, fully
// validated so the caller can persist without further checks. Records
// without an invoice reference return all nils.
func (p *Pipeline) buildFinance(
	ctx context.Context,
	repos TransactionalRepositories,
	record *ingestion.Record,
	parsed *parsedFields,
	resolved *resolvedEntities,
	order *trade.Order,
) (*finance.Invoice, *finance.Payment, error) {
	if parsed.invoiceNo == "" {
		if parsed.paymentRef != "" {
			record.AddWarning("payment reference without invoice number ignored")
		}
		return nil, nil, nil
	}

	existing, err := repos.Invoices().FindByNumber(ctx, parsed.invoiceNo)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		if existing.SourceCode == record.SourceCode.String() && existing.SourceRef == record.SourceRef {
			// Same provenance re-observed; the invoice already stands.
			return nil, nil, nil
		}
		record.AddWarning(fmt.Sprintf("invoice %s already claimed by %s/%s", parsed.invoiceNo, existing.SourceCode, existing.SourceRef))
		return nil, nil, nil
	}

	face := valueobject.NewMoneyUSD(order.TotalAmount)
	if parsed.amount != nil {
		face = *parsed.amount
	}
	invoice, err := finance.NewInvoice(parsed.invoiceNo, resolved.accountID, resolved.accountName, face, parsed.orderDate)
	if err != nil {
		return nil, nil, &rejectError{err: err}
	}
	invoice.SetProvenance(record.SourceCode.String(), record.SourceRef)
	for i := range order.Lines {
		line := &order.Lines[i]
		if err := invoice.AddLine(order.ID, line.ID, line.GetAmountMoney()); err != nil {
			return nil, nil, &rejectError{err: err}
		}
	}
	if err := invoice.ValidateAmount(p.cfg.InvoiceEpsilon); err != nil {
		return nil, nil, &rejectError{err: err}
	}

	payment, err := p.buildPayment(ctx, repos, record, parsed, resolved, invoice)
	if err != nil {
		return nil, nil, err
	}
	return invoice, payment, nil
}

// buildPayment records the payment a record references and applies it to
// the invoice. Re-observations of the same payment reference are
// idempotent.
func (p *Pipeline) buildPayment(
	ctx context.Context,
	repos TransactionalRepositories,
	record *ingestion.Record,
	parsed *parsedFields,
	resolved *resolvedEntities,
	invoice *finance.Invoice,
) (*finance.Payment, error) {
	if parsed.paymentRef == "" {
		return nil, nil
	}

	existing, err := repos.Payments().FindBySourceRef(ctx, record.SourceCode.String(), record.SourceRef)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	amount := valueobject.NewMoneyUSD(invoice.Amount)
	payment, err := finance.NewPayment(invoice.ID, resolved.accountID, amount, paymentMethodFromRef(parsed.paymentRef), parsed.orderDate)
	if err != nil {
		return nil, &rejectError{err: err}
	}
	if err := payment.SetReference(parsed.paymentRef); err != nil {
		record.AddWarning(err.Error())
	}
	payment.SetProvenance(record.SourceCode.String(), record.SourceRef)

	if err := invoice.ApplyPayment(payment.ID, amount, payment.ReceivedAt, "recorded at source"); err != nil {
		return nil, &rejectError{err: err}
	}
	return payment, nil
}

// paymentMethodFromRef guesses the payment method from the reference text
func paymentMethodFromRef(ref string) finance.PaymentMethod {
	lower := strings.ToLower(ref)
	switch {
	case strings.Contains(lower, "check") || strings.Contains(lower, "chk"):
		return finance.PaymentMethodCheck
	case strings.Contains(lower, "ach") || strings.Contains(lower, "wire") || strings.Contains(lower, "transfer"):
		return finance.PaymentMethodACH
	case strings.Contains(lower, "card") || strings.Contains(lower, "visa") || strings.Contains(lower, "amex"):
		return finance.PaymentMethodCard
	case strings.Contains(lower, "cash"):
		return finance.PaymentMethodCash
	}
	return finance.PaymentMethodOther
}
