package order

import (
	"context"
	"errors"

	"github.com/antonminaichev/gomarket/internal/types/order"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrNotOrderOwner = errors.New("order belongs to another user")
	ErrItemNotFound  = errors.New("order item not found")
	ErrNotItemSeller = errors.New("order item belongs to another seller")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Order returns the buyer's own order with its items.
func (s *Service) Order(ctx context.Context, orderID, userID int64) (*order.Order, error) {
	o, err := s.repo.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotOrderOwner
	}
	return o, nil
}

func (s *Service) ListOrders(ctx context.Context, userID int64) ([]order.Order, error) {
	return s.repo.ListOrdersByUser(ctx, userID)
}

// MarkShipped records that the seller has shipped an item of a paid
// order. The shipped flag is never reset.
func (s *Service) MarkShipped(ctx context.Context, itemID, sellerID int64) error {
	return s.repo.MarkItemShipped(ctx, itemID, sellerID)
}
