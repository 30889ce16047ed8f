package partner

import (
	"context"

	"github.com/google/uuid"

	"github.com/mezze/backend/internal/domain/shared"
)

// AccountRepository defines the interface for account persistence
type AccountRepository interface {
	// FindByID finds an account by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// FindByCode finds an account by its display code
	FindByCode(ctx context.Context, code string) (*Account, error)

	// FindByName finds an account by exact canonical name
	FindByName(ctx context.Context, name string) (*Account, error)

	// FindByIDs finds multiple accounts by their IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Account, error)

	// FindByGroup finds all accounts belonging to a group
	FindByGroup(ctx context.Context, groupID uuid.UUID, filter shared.Filter) ([]Account, error)

	// FindAll finds all accounts matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Account, error)

	// FindActive finds all active accounts
	FindActive(ctx context.Context, filter shared.Filter) ([]Account, error)

	// Save creates or updates an account
	Save(ctx context.Context, account *Account) error

	// Delete removes an account. Only used by merge cleanup; accounts are
	// normally deactivated, never deleted.
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts accounts matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsByCode checks if an account with the given code exists
	ExistsByCode(ctx context.Context, code string) (bool, error)

	// NextCode mints the next display code from the store sequence (ACC-0007)
	NextCode(ctx context.Context) (string, error)
}

// AccountGroupRepository defines the interface for account group persistence
type AccountGroupRepository interface {
	// FindByID finds a group by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*AccountGroup, error)

	// FindByCode finds a group by its code
	FindByCode(ctx context.Context, code string) (*AccountGroup, error)

	// FindAll finds all groups matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]AccountGroup, error)

	// Save creates or updates a group
	Save(ctx context.Context, group *AccountGroup) error

	// Delete removes a group; member accounts keep running ungrouped
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts groups matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
