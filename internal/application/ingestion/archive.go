package ingestion

import (
	"context"

	"github.com/mezze/backend/internal/domain/ingestion"
)

// PayloadArchiver keeps the raw records of a fetch so any run can be
// audited, or replayed later against the exact payload it saw. Archive
// writes are best effort: the coordinator logs a failure and carries on,
// the run itself never fails on archive errors.
type PayloadArchiver interface {
	ArchiveFetch(ctx context.Context, run *ingestion.IngestionRun, records []ingestion.RawRecord) error
}
