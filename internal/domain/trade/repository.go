package trade

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mezze/backend/internal/domain/shared"
)

// OrderQuery narrows order listings. Zero values mean no constraint.
type OrderQuery struct {
	SourceCode  string
	AccountID   uuid.UUID
	Status      OrderStatus
	WindowStart time.Time
	WindowEnd   time.Time
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// FindByID finds an order by its ID, lines included
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindBySourceRef finds an order by its dedup key (source code,
	// source-native ref). This is the lookup the pipeline dedup stage uses.
	FindBySourceRef(ctx context.Context, sourceCode, sourceRef string) (*Order, error)

	// FindByAccount finds orders for an account
	FindByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]Order, error)

	// FindByQuery finds orders matching the query
	FindByQuery(ctx context.Context, query OrderQuery, filter shared.Filter) ([]Order, error)

	// FindCommittedInPeriod finds non-cancelled orders whose order date falls
	// in [start, end). Used by the time series rebuild.
	FindCommittedInPeriod(ctx context.Context, start, end time.Time) ([]Order, error)

	// Save creates or updates an order with its lines
	Save(ctx context.Context, order *Order) error

	// Count counts orders matching the query
	Count(ctx context.Context, query OrderQuery) (int64, error)

	// ExistsBySourceRef checks the dedup key without loading the order
	ExistsBySourceRef(ctx context.Context, sourceCode, sourceRef string) (bool, error)
}
