package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Fetch Window
// ---------------------------------------------------------------------------

// Window bounds one fetch in source time, half-open [Start, End). A zero
// window means the driver's own default reach (e.g. current sheet tabs,
// unread mail).
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow creates a fetch window
func NewWindow(start, end time.Time) (Window, error) {
	w := Window{Start: start.UTC(), End: end.UTC()}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// Validate checks the window bounds
func (w Window) Validate() error {
	if w.IsZero() {
		return nil
	}
	if w.Start.IsZero() || w.End.IsZero() {
		return errors.New("ingestion: window start and end must both be set")
	}
	if !w.Start.Before(w.End) {
		return errors.New("ingestion: window start must be before end")
	}
	return nil
}

// IsZero reports whether the window is unbounded
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Contains reports whether t falls inside the window. A zero window
// contains everything.
func (w Window) Contains(t time.Time) bool {
	if w.IsZero() {
		return true
	}
	return !t.Before(w.Start) && t.Before(w.End)
}

// String returns the window in log-friendly form
func (w Window) String() string {
	if w.IsZero() {
		return "(unbounded)"
	}
	return fmt.Sprintf("%s..%s", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

// ---------------------------------------------------------------------------
// Raw Records
// ---------------------------------------------------------------------------

// RawRecord is one unit of upstream data exactly as a driver saw it: the
// source-native ID, the raw field map keyed by the canonical field names,
// and provenance hints back into the upstream artifact. Drivers never
// parse values or mint canonical IDs.
type RawRecord struct {
	// SourceCode identifies the emitting driver
	SourceCode SourceCode
	// SourceRef is the source-native record ID, e.g. "W03-17" for week 3
	// row 17 or a cleaned mail message ID
	SourceRef string
	// Fields is the raw field map (canonical field key -> raw string)
	Fields map[string]string
	// Provenance locates the record in the upstream artifact
	Provenance map[string]string
	// FetchedAt is when the driver read the record
	FetchedAt time.Time
}

// Field returns a raw field value with surrounding whitespace trimmed.
// A missing or blank field reports false.
func (r RawRecord) Field(key string) (string, bool) {
	v, ok := r.Fields[key]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// ---------------------------------------------------------------------------
// Fetch Results
// ---------------------------------------------------------------------------

// FetchReport accounts for everything a fetch saw. Partial row failures
// land in Warnings or Errors, never abort the fetch.
type FetchReport struct {
	// Fetched is the number of records emitted
	Fetched int
	// Skipped is the number of upstream rows/messages recognized and
	// deliberately not emitted (headers, totals, error tokens)
	Skipped int
	// Warnings are non-fatal oddities, with provenance in the text
	Warnings []string
	// Errors are per-record failures the driver could not recover
	Errors []string
}

// AddWarning records a non-fatal fetch observation
func (r *FetchReport) AddWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// AddError records a per-record fetch failure
func (r *FetchReport) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Merge folds another report into this one
func (r *FetchReport) Merge(other FetchReport) {
	r.Fetched += other.Fetched
	r.Skipped += other.Skipped
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Errors = append(r.Errors, other.Errors...)
}

// FetchResult is a driver's complete answer for one window
type FetchResult struct {
	Records []RawRecord
	Report  FetchReport
}

// ---------------------------------------------------------------------------
// SourceDriver Port Interface
// ---------------------------------------------------------------------------

// SourceDriver is the port a source adapter implements. Implementations
// live in the infrastructure layer (sheets, csv, gmail, mbox); the
// coordinator only sees this interface.
//
// Fetch returns raw records for the window. It fails as a whole only for
// source-level conditions - ErrSourceAuthFailed, ErrSourceUnavailable,
// ErrSourceFormat (wrapped with detail). Anything recoverable per row
// belongs in the report instead.
type SourceDriver interface {
	// SourceCode returns the source this driver serves
	SourceCode() SourceCode

	// Fetch reads the source for the window
	Fetch(ctx context.Context, window Window) (*FetchResult, error)
}

// DriverRegistry resolves configured drivers by source code
type DriverRegistry interface {
	// Get returns the driver for a source code, or ErrDriverNotRegistered
	Get(code SourceCode) (SourceDriver, error)

	// List returns all registered drivers
	List() []SourceDriver

	// Codes returns the registered source codes in stable order
	Codes() []SourceCode
}
