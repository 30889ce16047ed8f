package resolution

import (
	"fmt"

	"github.com/mezze/backend/internal/domain/shared"
)

// Resolver errors. Both carry the scored candidates so review tooling can
// show the operator what the matcher saw.
var (
	ErrUnresolved = shared.NewDomainError("UNRESOLVED", "No acceptable match for observed name")
	ErrAmbiguous  = shared.NewDomainError("AMBIGUOUS_MATCH", "Multiple candidates within the ambiguity margin")
)

// UnresolvedError reports that no candidate reached the acceptance
// threshold. Candidates holds the best near misses, strongest first,
// and may be empty.
type UnresolvedError struct {
	Observed   string
	Candidates []Candidate
}

// Error implements the error interface
func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("no acceptable match for %q (%d near misses)", e.Observed, len(e.Candidates))
}

// Unwrap makes errors.Is(err, ErrUnresolved) work
func (e *UnresolvedError) Unwrap() error {
	return ErrUnresolved
}

// AmbiguousError reports that the best candidates are too close to call.
// The matcher never guesses between them; the record goes to review with
// Candidates attached, strongest first.
type AmbiguousError struct {
	Observed   string
	Candidates []Candidate
}

// Error implements the error interface
func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous match for %q: %d candidates within margin", e.Observed, len(e.Candidates))
}

// Unwrap makes errors.Is(err, ErrAmbiguous) work
func (e *AmbiguousError) Unwrap() error {
	return ErrAmbiguous
}
