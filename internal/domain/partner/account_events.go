package partner

import (
	"github.com/google/uuid"

	"github.com/mezze/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeAccount      = "Account"
	AggregateTypeAccountGroup = "AccountGroup"
)

// Event type constants
const (
	EventTypeAccountCreated       = "AccountCreated"
	EventTypeAccountRenamed       = "AccountRenamed"
	EventTypeAccountGroupAssigned = "AccountGroupAssigned"
	EventTypeAccountStatusChanged = "AccountStatusChanged"
	EventTypeAccountGroupCreated  = "AccountGroupCreated"
	EventTypeAccountGroupUpdated  = "AccountGroupUpdated"
)

// AccountCreatedEvent is published when a new account is created
type AccountCreatedEvent struct {
	shared.BaseDomainEvent
	AccountID uuid.UUID `json:"account_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Origin    string    `json:"origin,omitempty"`
}

// NewAccountCreatedEvent creates a new AccountCreatedEvent
func NewAccountCreatedEvent(account *Account) *AccountCreatedEvent {
	return &AccountCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountCreated, AggregateTypeAccount, account.ID),
		AccountID:       account.ID,
		Code:            account.Code,
		Name:            account.Name,
		Origin:          account.Origin,
	}
}

// AccountRenamedEvent is published when the canonical name changes
type AccountRenamedEvent struct {
	shared.BaseDomainEvent
	AccountID uuid.UUID `json:"account_id"`
	Code      string    `json:"code"`
	OldName   string    `json:"old_name"`
	NewName   string    `json:"new_name"`
}

// NewAccountRenamedEvent creates a new AccountRenamedEvent
func NewAccountRenamedEvent(account *Account, oldName string) *AccountRenamedEvent {
	return &AccountRenamedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountRenamed, AggregateTypeAccount, account.ID),
		AccountID:       account.ID,
		Code:            account.Code,
		OldName:         oldName,
		NewName:         account.Name,
	}
}

// AccountGroupAssignedEvent is published when an account joins a group
type AccountGroupAssignedEvent struct {
	shared.BaseDomainEvent
	AccountID uuid.UUID `json:"account_id"`
	GroupID   uuid.UUID `json:"group_id"`
}

// NewAccountGroupAssignedEvent creates a new AccountGroupAssignedEvent
func NewAccountGroupAssignedEvent(account *Account, groupID uuid.UUID) *AccountGroupAssignedEvent {
	return &AccountGroupAssignedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountGroupAssigned, AggregateTypeAccount, account.ID),
		AccountID:       account.ID,
		GroupID:         groupID,
	}
}

// AccountStatusChangedEvent is published when an account's status changes
type AccountStatusChangedEvent struct {
	shared.BaseDomainEvent
	AccountID uuid.UUID     `json:"account_id"`
	Code      string        `json:"code"`
	OldStatus AccountStatus `json:"old_status"`
	NewStatus AccountStatus `json:"new_status"`
}

// NewAccountStatusChangedEvent creates a new AccountStatusChangedEvent
func NewAccountStatusChangedEvent(account *Account, oldStatus, newStatus AccountStatus) *AccountStatusChangedEvent {
	return &AccountStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountStatusChanged, AggregateTypeAccount, account.ID),
		AccountID:       account.ID,
		Code:            account.Code,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}

// AccountGroupCreatedEvent is published when a new account group is created
type AccountGroupCreatedEvent struct {
	shared.BaseDomainEvent
	GroupID uuid.UUID `json:"group_id"`
	Code    string    `json:"code"`
	Name    string    `json:"name"`
}

// NewAccountGroupCreatedEvent creates a new AccountGroupCreatedEvent
func NewAccountGroupCreatedEvent(group *AccountGroup) *AccountGroupCreatedEvent {
	return &AccountGroupCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountGroupCreated, AggregateTypeAccountGroup, group.ID),
		GroupID:         group.ID,
		Code:            group.Code,
		Name:            group.Name,
	}
}

// AccountGroupUpdatedEvent is published when an account group is updated
type AccountGroupUpdatedEvent struct {
	shared.BaseDomainEvent
	GroupID uuid.UUID `json:"group_id"`
	Code    string    `json:"code"`
	Name    string    `json:"name"`
}

// NewAccountGroupUpdatedEvent creates a new AccountGroupUpdatedEvent
func NewAccountGroupUpdatedEvent(group *AccountGroup) *AccountGroupUpdatedEvent {
	return &AccountGroupUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountGroupUpdated, AggregateTypeAccountGroup, group.ID),
		GroupID:         group.ID,
		Code:            group.Code,
		Name:            group.Name,
	}
}
