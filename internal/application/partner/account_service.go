package partner

import (
	"context"

	"github.com/google/uuid"

	"github.com/mezze/backend/internal/domain/partner"
	"github.com/mezze/backend/internal/domain/shared"
	"github.com/mezze/backend/internal/domain/trade"
)

// AccountService serves the canonical account read surface. Accounts are
// written by the ingestion pipeline (fuzzy-match auto-create) and by
// review decisions, never through this service.
type AccountService struct {
	accounts partner.AccountRepository
	orders   trade.OrderRepository
}

// NewAccountService creates a new AccountService
func NewAccountService(accounts partner.AccountRepository, orders trade.OrderRepository) *AccountService {
	return &AccountService{
		accounts: accounts,
		orders:   orders,
	}
}

// ListAccounts returns accounts matching the filter
func (s *AccountService) ListAccounts(ctx context.Context, filter shared.Filter) ([]partner.Account, int64, error) {
	accounts, err := s.accounts.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.accounts.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

// GetAccount returns one account by ID
func (s *AccountService) GetAccount(ctx context.Context, id uuid.UUID) (*partner.Account, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, shared.ErrNotFound
	}
	return account, nil
}

// ListAccountOrders returns the orders committed against one account
func (s *AccountService) ListAccountOrders(ctx context.Context, id uuid.UUID, filter shared.Filter) ([]trade.Order, int64, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if account == nil {
		return nil, 0, shared.ErrNotFound
	}

	orders, err := s.orders.FindByAccount(ctx, id, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.orders.Count(ctx, trade.OrderQuery{AccountID: id})
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
