package persistence

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mezze/backend/internal/domain/shared"
)

// translateWriteError maps driver-level constraint failures onto the
// domain's invariant sentinel. The unique indexes on (source_code,
// source_ref) and (owner_type, normalized) are the last line of defense
// against duplicate commits; callers treat their violation as a store
// invariant, not an I/O error.
func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrInvariantViolation
	}
	return err
}
