package inventory

import (
	"context"

	"github.com/antonminaichev/gomarket/internal/types/catalog"
)

// Repository is the storage contract for markets, products and stock.
// Reserve, Release, AddUnits and RemoveUnits are single conditional
// updates on units_count, never read-modify-write.
type Repository interface {
	CreateMarket(ctx context.Context, m *catalog.Market) error
	MarketByID(ctx context.Context, id int64) (*catalog.Market, error)

	CreateProduct(ctx context.Context, p *catalog.Product) error
	ProductByID(ctx context.Context, id int64) (*catalog.Product, error)

	CreateProductType(ctx context.Context, t *catalog.ProductType) error
	ProductType(ctx context.Context, id int64) (*catalog.ProductType, error)

	// Reserve decrements units_count by min(requested, units_count)
	// and returns how many units were actually taken.
	Reserve(ctx context.Context, productTypeID int64, requested int) (int, error)
	// Release increments units_count by count.
	Release(ctx context.Context, productTypeID int64, count int) error
	// AddUnits increments units_count by exactly count.
	AddUnits(ctx context.Context, productTypeID int64, count int) error
	// RemoveUnits decrements units_count by exactly count and fails
	// with ErrInsufficientInventory when count exceeds the stock.
	RemoveUnits(ctx context.Context, productTypeID int64, count int) error
}
