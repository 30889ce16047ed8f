package ingestion

import (
	"errors"

	"github.com/mezze/backend/internal/domain/normalize"
	"github.com/mezze/backend/internal/domain/resolution"
	"github.com/mezze/backend/internal/domain/shared"
)

// Driver-level errors. A Fetch that returns one of these (wrapped with
// detail) failed as a whole; per-record trouble goes in the FetchReport.
var (
	// ErrSourceAuthFailed indicates credentials were rejected upstream
	ErrSourceAuthFailed = errors.New("ingestion: source authentication failed")
	// ErrSourceUnavailable indicates the source could not be reached
	ErrSourceUnavailable = errors.New("ingestion: source temporarily unavailable")
	// ErrSourceFormat indicates the payload did not have the expected shape
	ErrSourceFormat = errors.New("ingestion: source payload format invalid")
	// ErrDriverNotRegistered indicates no driver serves the source code
	ErrDriverNotRegistered = errors.New("ingestion: no driver registered for source")
	// ErrMissingField indicates a record lacks a field the pipeline requires
	ErrMissingField = errors.New("ingestion: required field missing")
)

// ErrorKind buckets every failure the pipeline can see, for the per-kind
// counts in the run summary
type ErrorKind string

const (
	ErrorKindAuth                ErrorKind = "auth"
	ErrorKindUnavailable         ErrorKind = "unavailable"
	ErrorKindFormat              ErrorKind = "format"
	ErrorKindUnparseableDate     ErrorKind = "unparseable_date"
	ErrorKindUnparseableQuantity ErrorKind = "unparseable_quantity"
	ErrorKindUnknownUnit         ErrorKind = "unknown_unit"
	ErrorKindUnparseableAmount   ErrorKind = "unparseable_amount"
	ErrorKindUnparseableBool     ErrorKind = "unparseable_bool"
	ErrorKindUnresolved          ErrorKind = "unresolved"
	ErrorKindAmbiguous           ErrorKind = "ambiguous"
	ErrorKindConflict            ErrorKind = "conflict"
	ErrorKindInvariantViolation  ErrorKind = "invariant_violation"
	ErrorKindOther               ErrorKind = "other"
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	return string(k)
}

// ClassifyError maps any error surfacing in the pipeline onto its summary
// bucket. Unrecognized errors count as ErrorKindOther rather than being
// dropped from the counts.
func ClassifyError(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrorKindOther
	case errors.Is(err, ErrSourceAuthFailed):
		return ErrorKindAuth
	case errors.Is(err, ErrSourceUnavailable):
		return ErrorKindUnavailable
	case errors.Is(err, ErrSourceFormat):
		return ErrorKindFormat
	case errors.Is(err, ErrMissingField):
		return ErrorKindFormat
	case errors.Is(err, normalize.ErrUnparseableDate):
		return ErrorKindUnparseableDate
	case errors.Is(err, normalize.ErrUnparseableQuantity):
		return ErrorKindUnparseableQuantity
	case errors.Is(err, normalize.ErrUnknownUnit):
		return ErrorKindUnknownUnit
	case errors.Is(err, normalize.ErrUnparseableAmount):
		return ErrorKindUnparseableAmount
	case errors.Is(err, normalize.ErrUnparseableBool):
		return ErrorKindUnparseableBool
	case errors.Is(err, resolution.ErrAmbiguous):
		return ErrorKindAmbiguous
	case errors.Is(err, resolution.ErrUnresolved):
		return ErrorKindUnresolved
	case errors.Is(err, shared.ErrInvariantViolation):
		return ErrorKindInvariantViolation
	case isDomainError(err):
		// Any other domain rule the data ran into (amount mismatch,
		// duplicate line, status regression).
		return ErrorKindInvariantViolation
	default:
		return ErrorKindOther
	}
}

func isDomainError(err error) bool {
	var domainErr *shared.DomainError
	return errors.As(err, &domainErr)
}
