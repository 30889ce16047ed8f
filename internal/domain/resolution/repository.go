package resolution

import (
	"context"

	"github.com/google/uuid"
)

// AliasRepository defines the interface for alias persistence
type AliasRepository interface {
	// FindByID finds an alias by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Alias, error)

	// FindByNormalized finds the alias owning a normalized form, if any.
	// This is the exact-lookup fast path the resolver warms its index from.
	FindByNormalized(ctx context.Context, ownerType OwnerType, normalized string) (*Alias, error)

	// FindByOwner finds all aliases recorded for one entity
	FindByOwner(ctx context.Context, ownerType OwnerType, ownerID uuid.UUID) ([]Alias, error)

	// FindAllByType finds every alias of one entity kind. Used to build
	// the in-memory resolver index at startup.
	FindAllByType(ctx context.Context, ownerType OwnerType) ([]Alias, error)

	// Save creates or updates an alias
	Save(ctx context.Context, alias *Alias) error

	// Delete removes an alias. Only review tooling does this.
	Delete(ctx context.Context, id uuid.UUID) error

	// ExistsByNormalized checks whether a normalized form is already owned
	ExistsByNormalized(ctx context.Context, ownerType OwnerType, normalized string) (bool, error)

	// Count counts aliases of one entity kind
	Count(ctx context.Context, ownerType OwnerType) (int64, error)
}
