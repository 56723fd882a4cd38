package inventory

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/antonminaichev/gomarket/internal/logger"
	"github.com/antonminaichev/gomarket/internal/types/catalog"
	"github.com/antonminaichev/gomarket/internal/types/currency"
	"github.com/antonminaichev/gomarket/internal/util/money"
)

var (
	ErrProductTypeNotFound   = errors.New("product type not found")
	ErrProductNotFound       = errors.New("product not found")
	ErrMarketNotFound        = errors.New("market not found")
	ErrInvalidCount          = errors.New("count must be a positive integer")
	ErrInvalidPrice          = errors.New("invalid price")
	ErrInsufficientInventory = errors.New("insufficient inventory")
)

// Exchanger converts seller-entered prices into the canonical currency
// before they are stored.
type Exchanger interface {
	Exchange(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

type Service struct {
	repo      Repository
	exchanger Exchanger
}

func NewService(repo Repository, exchanger Exchanger) *Service {
	return &Service{repo: repo, exchanger: exchanger}
}

func (s *Service) CreateMarket(ctx context.Context, ownerID int64, name string) (*catalog.Market, error) {
	m := &catalog.Market{OwnerID: ownerID, Name: name}
	if err := s.repo.CreateMarket(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateProduct stores a product with its price converted into the
// canonical currency.
func (s *Service) CreateProduct(ctx context.Context, marketID int64, name string, price decimal.Decimal, currencyCode string) (*catalog.Product, error) {
	if err := money.ValidateAmount(price); err != nil {
		return nil, ErrInvalidPrice
	}
	if currencyCode != "" && currencyCode != currency.DefaultCode {
		converted, err := s.exchanger.Exchange(ctx, price, currencyCode, currency.DefaultCode)
		if err != nil {
			return nil, err
		}
		price = converted
	}
	p := &catalog.Product{
		MarketID:      marketID,
		Name:          name,
		OriginalPrice: money.Round(price),
		Available:     true,
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) CreateProductType(ctx context.Context, productID int64, properties map[string]string, markupPercent decimal.Decimal, unitsCount int) (*catalog.ProductType, error) {
	if markupPercent.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if unitsCount < 0 {
		return nil, ErrInvalidCount
	}
	t := &catalog.ProductType{
		ProductID:     productID,
		Properties:    properties,
		MarkupPercent: markupPercent,
		UnitsCount:    unitsCount,
	}
	if err := s.repo.CreateProductType(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) ProductType(ctx context.Context, id int64) (*catalog.ProductType, error) {
	return s.repo.ProductType(ctx, id)
}

// Reserve takes up to requested units off the market and returns how
// many were actually taken. Undersupply is not an error: the caller
// gets whatever is left, possibly zero. requested <= 0 is a no-op.
func (s *Service) Reserve(ctx context.Context, productTypeID int64, requested int) (int, error) {
	if requested <= 0 {
		return 0, nil
	}
	taken, err := s.repo.Reserve(ctx, productTypeID, requested)
	if err != nil {
		return 0, err
	}
	logger.Log.Debug("units reserved",
		zap.Int64("product_type_id", productTypeID),
		zap.Int("requested", requested),
		zap.Int("taken", taken),
	)
	return taken, nil
}

// Release returns count units to the market after a cancellation.
func (s *Service) Release(ctx context.Context, productTypeID int64, count int) error {
	if count <= 0 {
		return ErrInvalidCount
	}
	return s.repo.Release(ctx, productTypeID, count)
}

// AddUnits is a seller-initiated restock.
func (s *Service) AddUnits(ctx context.Context, productTypeID int64, count int) error {
	if count <= 0 {
		return ErrInvalidCount
	}
	return s.repo.AddUnits(ctx, productTypeID, count)
}

// RemoveUnits is a seller-initiated adjustment that, unlike Reserve,
// fails when the stock cannot cover the exact count.
func (s *Service) RemoveUnits(ctx context.Context, productTypeID int64, count int) error {
	if count <= 0 {
		return ErrInvalidCount
	}
	return s.repo.RemoveUnits(ctx, productTypeID, count)
}
