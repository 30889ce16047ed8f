package partner

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mezze/backend/internal/domain/shared"
)

// AccountStatus represents the status of an account
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusInactive AccountStatus = "inactive"
)

// Account is a customer the business sells to. It is the aggregate root the
// resolver maps observed source names onto; its Name is the canonical form
// and every observed spelling lives in the alias table, never here.
//
// Accounts are append-only: they are deactivated or merged, never deleted,
// so an ID stays valid for the life of the store.
type Account struct {
	shared.BaseAggregateRoot
	Code        string        `gorm:"type:varchar(20);not null;uniqueIndex"`
	Name        string        `gorm:"type:varchar(200);not null"`
	GroupID     *uuid.UUID    `gorm:"type:uuid;index"`
	Status      AccountStatus `gorm:"type:varchar(20);not null;default:'active'"`
	ContactName string        `gorm:"type:varchar(100)"`
	Phone       string        `gorm:"type:varchar(50)"`
	Email       string        `gorm:"type:varchar(200)"`
	Address     string        `gorm:"type:text"`
	Origin      string        `gorm:"type:varchar(50)"` // source code that first proposed this account, empty for manual entry
	Notes       string        `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Account) TableName() string {
	return "accounts"
}

// NewAccount creates an account with a store-minted code and canonical name.
func NewAccount(code, name string) (*Account, error) {
	if err := validateAccountCode(code); err != nil {
		return nil, err
	}
	if err := validateAccountName(name); err != nil {
		return nil, err
	}

	account := &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Status:            AccountStatusActive,
	}

	account.AddDomainEvent(NewAccountCreatedEvent(account))

	return account, nil
}

// NewAccountFromSource creates an account auto-created by the ingestion
// pipeline, recording which source first proposed it.
func NewAccountFromSource(code, name, origin string) (*Account, error) {
	account, err := NewAccount(code, name)
	if err != nil {
		return nil, err
	}
	account.Origin = origin
	return account, nil
}

// Rename changes the canonical name. The previous name is expected to be
// kept as an alias by the caller so existing source spellings still resolve.
func (a *Account) Rename(name string) error {
	if err := validateAccountName(name); err != nil {
		return err
	}
	if name == a.Name {
		return nil
	}

	oldName := a.Name
	a.Name = name
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	a.AddDomainEvent(NewAccountRenamedEvent(a, oldName))

	return nil
}

// AssignGroup places the account in a group. An account belongs to at most
// one group; assigning replaces the previous membership.
func (a *Account) AssignGroup(groupID uuid.UUID) error {
	if groupID == uuid.Nil {
		return shared.NewDomainError("INVALID_GROUP", "Group ID cannot be empty")
	}
	if a.GroupID != nil && *a.GroupID == groupID {
		return nil
	}

	a.GroupID = &groupID
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	a.AddDomainEvent(NewAccountGroupAssignedEvent(a, groupID))

	return nil
}

// RemoveFromGroup clears the account's group membership.
func (a *Account) RemoveFromGroup() {
	if a.GroupID == nil {
		return
	}
	a.GroupID = nil
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
}

// SetContact sets the account's contact information
func (a *Account) SetContact(contactName, phone, email string) error {
	if contactName != "" && len(contactName) > 100 {
		return shared.NewDomainError("INVALID_CONTACT_NAME", "Contact name cannot exceed 100 characters")
	}
	if phone != "" {
		if err := validatePhone(phone); err != nil {
			return err
		}
	}
	if email != "" {
		if err := validateEmail(email); err != nil {
			return err
		}
	}

	a.ContactName = contactName
	a.Phone = phone
	a.Email = email
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	return nil
}

// SetAddress sets the account's address
func (a *Account) SetAddress(address string) error {
	if len(address) > 500 {
		return shared.NewDomainError("INVALID_ADDRESS", "Address cannot exceed 500 characters")
	}
	a.Address = address
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}

// SetNotes sets free-form notes
func (a *Account) SetNotes(notes string) {
	a.Notes = notes
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
}

// Activate activates the account
func (a *Account) Activate() error {
	if a.Status == AccountStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Account is already active")
	}

	oldStatus := a.Status
	a.Status = AccountStatusActive
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	a.AddDomainEvent(NewAccountStatusChangedEvent(a, oldStatus, AccountStatusActive))

	return nil
}

// Deactivate deactivates the account. Orders referencing it stay intact.
func (a *Account) Deactivate() error {
	if a.Status == AccountStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Account is already inactive")
	}

	oldStatus := a.Status
	a.Status = AccountStatusInactive
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	a.AddDomainEvent(NewAccountStatusChangedEvent(a, oldStatus, AccountStatusInactive))

	return nil
}

// IsActive returns true if the account is active
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// InGroup returns true if the account belongs to the given group
func (a *Account) InGroup(groupID uuid.UUID) bool {
	return a.GroupID != nil && *a.GroupID == groupID
}

// Validation functions

var accountCodeRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func validateAccountCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Account code cannot be empty")
	}
	if len(code) > 20 {
		return shared.NewDomainError("INVALID_CODE", "Account code cannot exceed 20 characters")
	}
	if !accountCodeRe.MatchString(code) {
		return shared.NewDomainError("INVALID_CODE", "Account code can only contain letters, numbers, underscores, and hyphens")
	}
	return nil
}

func validateAccountName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Account name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Account name cannot exceed 200 characters")
	}
	return nil
}

func validatePhone(phone string) error {
	if len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone number cannot exceed 50 characters")
	}
	validPhone := regexp.MustCompile(`^[\d\s\-\(\)\+]+$`)
	if !validPhone.MatchString(phone) {
		return shared.NewDomainError("INVALID_PHONE", "Invalid phone number format")
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}
