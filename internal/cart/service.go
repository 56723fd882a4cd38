package cart

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/antonminaichev/gomarket/internal/logger"
	"github.com/antonminaichev/gomarket/internal/types/cart"
	"github.com/antonminaichev/gomarket/internal/types/catalog"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be a non-negative integer")
	ErrCartNotFound    = errors.New("cart not found")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SetItem upserts the desired quantity for a product type. Quantity 0
// removes the entry. The cart is a loose staging area: no stock or
// ownership check happens here.
func (s *Service) SetItem(ctx context.Context, userID, productTypeID int64, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	c, err := s.repo.Cart(ctx, userID)
	if err != nil {
		return err
	}
	key := strconv.FormatInt(productTypeID, 10)
	if quantity == 0 {
		delete(c.Items, key)
	} else {
		c.Items[key] = quantity
	}
	return s.repo.SaveCartItems(ctx, userID, c.Items)
}

// PrepareItems strips entries that point at deleted product types, at
// the owner's own products, or carry a non-positive count. Returns how
// many entries were dropped so the caller can warn the user. Stock
// levels are not checked here, that happens at reservation time.
func (s *Service) PrepareItems(ctx context.Context, userID int64) (int, error) {
	c, err := s.repo.Cart(ctx, userID)
	if err != nil {
		return 0, err
	}
	if c.IsEmpty() {
		return 0, nil
	}

	ids := make([]int64, 0, len(c.Items))
	for key := range c.Items {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	sellers, err := s.repo.ProductTypeSellers(ctx, ids)
	if err != nil {
		return 0, err
	}

	cleaned := make(map[string]int, len(c.Items))
	for key, count := range c.Items {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || count <= 0 {
			continue
		}
		seller, exists := sellers[id]
		if !exists || seller == userID {
			continue
		}
		cleaned[key] = count
	}

	removed := len(c.Items) - len(cleaned)
	if removed > 0 {
		if err := s.repo.SaveCartItems(ctx, userID, cleaned); err != nil {
			return 0, err
		}
		logger.Log.Info("stale cart entries removed",
			zap.Int64("user_id", userID),
			zap.Int("removed", removed),
		)
	}
	return removed, nil
}

func (s *Service) Clear(ctx context.Context, userID int64) error {
	return s.repo.ClearCart(ctx, userID)
}

func (s *Service) Cart(ctx context.Context, userID int64) (*cart.Cart, error) {
	return s.repo.Cart(ctx, userID)
}

// ItemDetails resolves the cart entries against the live catalogue.
func (s *Service) ItemDetails(ctx context.Context, userID int64) ([]catalog.ProductType, error) {
	c, err := s.repo.Cart(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(c.Items))
	for key := range c.Items {
		if id, err := strconv.ParseInt(key, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.repo.ProductTypesByIDs(ctx, ids)
}
