package trade

import (
	"context"

	"github.com/google/uuid"

	"github.com/mezze/backend/internal/domain/shared"
	"github.com/mezze/backend/internal/domain/trade"
)

// OrderService serves the committed order read surface. Orders are facts
// derived from source records; the pipeline is their only writer.
type OrderService struct {
	orders trade.OrderRepository
}

// NewOrderService creates a new OrderService
func NewOrderService(orders trade.OrderRepository) *OrderService {
	return &OrderService{orders: orders}
}

// ListOrders returns orders matching the query
func (s *OrderService) ListOrders(ctx context.Context, query trade.OrderQuery, filter shared.Filter) ([]trade.Order, int64, error) {
	orders, err := s.orders.FindByQuery(ctx, query, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.orders.Count(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// GetOrder returns one order by ID, lines included
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, shared.ErrNotFound
	}
	return order, nil
}
