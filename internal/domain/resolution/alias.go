package resolution

import (
	"time"

	"github.com/google/uuid"

	"github.com/mezze/backend/internal/domain/shared"
)

// OwnerType identifies which entity kind an alias belongs to
type OwnerType string

const (
	OwnerTypeAccount OwnerType = "account"
	OwnerTypeProduct OwnerType = "product"
)

// IsValid checks if the owner type is valid
func (t OwnerType) IsValid() bool {
	switch t {
	case OwnerTypeAccount, OwnerTypeProduct:
		return true
	}
	return false
}

// String returns the string representation of the owner type
func (t OwnerType) String() string {
	return string(t)
}

// Alias records one observed string as belonging to exactly one entity.
// Aliases are how the resolver learns: every accepted match records the
// observed string, so the next run resolves it exactly. The normalized
// form is unique per owner type - one spelling can never point at two
// accounts.
type Alias struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerType  OwnerType `gorm:"type:varchar(20);not null;uniqueIndex:idx_alias_owner_norm,priority:1"`
	OwnerID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Value      string    `gorm:"type:varchar(255);not null"`
	Normalized string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_alias_owner_norm,priority:2"`
	Origin     string    `gorm:"type:varchar(50)"` // source code or "review" that contributed it
	CreatedAt  time.Time `gorm:"not null;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"not null;autoUpdateTime"`
}

// TableName returns the table name for GORM
func (Alias) TableName() string {
	return "aliases"
}

// NewAlias creates a new alias for an entity
func NewAlias(ownerType OwnerType, ownerID uuid.UUID, value, origin string) (*Alias, error) {
	if !ownerType.IsValid() {
		return nil, shared.NewDomainError("INVALID_OWNER_TYPE", "Invalid alias owner type: "+string(ownerType))
	}
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER_ID", "Alias owner ID cannot be empty")
	}
	if value == "" {
		return nil, shared.NewDomainError("INVALID_ALIAS", "Alias value cannot be empty")
	}
	if len(value) > 255 {
		return nil, shared.NewDomainError("INVALID_ALIAS", "Alias value cannot exceed 255 characters")
	}

	normalized := Normalize(value)
	if normalized == "" {
		return nil, shared.NewDomainError("INVALID_ALIAS", "Alias value carries no matchable text")
	}

	return &Alias{
		ID:         uuid.New(),
		OwnerType:  ownerType,
		OwnerID:    ownerID,
		Value:      value,
		Normalized: normalized,
		Origin:     origin,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}, nil
}
