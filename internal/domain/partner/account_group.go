package partner

import (
	"strings"
	"time"

	"github.com/mezze/backend/internal/domain/shared"
)

// AccountGroup collects related accounts, e.g. all locations of one chain.
// Membership lives on the Account side; an account joins at most one group.
type AccountGroup struct {
	shared.BaseAggregateRoot
	Code        string `gorm:"type:varchar(20);not null;uniqueIndex"`
	Name        string `gorm:"type:varchar(200);not null"`
	Description string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (AccountGroup) TableName() string {
	return "account_groups"
}

// NewAccountGroup creates a new account group
func NewAccountGroup(code, name string) (*AccountGroup, error) {
	if err := validateAccountCode(code); err != nil {
		return nil, err
	}
	if err := validateGroupName(name); err != nil {
		return nil, err
	}

	group := &AccountGroup{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
	}

	group.AddDomainEvent(NewAccountGroupCreatedEvent(group))

	return group, nil
}

// Rename changes the group's display name
func (g *AccountGroup) Rename(name string) error {
	if err := validateGroupName(name); err != nil {
		return err
	}

	g.Name = name
	g.UpdatedAt = time.Now()
	g.IncrementVersion()

	g.AddDomainEvent(NewAccountGroupUpdatedEvent(g))

	return nil
}

// SetDescription sets the group description
func (g *AccountGroup) SetDescription(description string) {
	g.Description = description
	g.UpdatedAt = time.Now()
	g.IncrementVersion()
}

func validateGroupName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Group name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Group name cannot exceed 200 characters")
	}
	return nil
}
