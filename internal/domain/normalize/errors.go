package normalize

import "errors"

// Normalizer errors. These are recoverable per-field: the pipeline records
// the failing field as a warning or rejects the single record, never the run.
var (
	// ErrUnparseableDate indicates the value matched none of the recognized date formats
	ErrUnparseableDate = errors.New("normalize: unparseable date")
	// ErrUnparseableQuantity indicates the numeric part of a quantity could not be parsed
	ErrUnparseableQuantity = errors.New("normalize: unparseable quantity")
	// ErrUnknownUnit indicates the unit token is not in the unit alias table
	ErrUnknownUnit = errors.New("normalize: unknown unit")
	// ErrUnparseableAmount indicates a currency amount could not be parsed
	ErrUnparseableAmount = errors.New("normalize: unparseable amount")
	// ErrUnparseableBool indicates a boolean token was not recognized
	ErrUnparseableBool = errors.New("normalize: unparseable boolean")
)
