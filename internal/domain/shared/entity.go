package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the surrogate ID and timestamps shared by every
// persisted row, canonical entities and ingestion bookkeeping alike.
// Display codes (ACC-0007) are a separate, store-minted concern.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity mints a fresh identity with both timestamps set to now
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
