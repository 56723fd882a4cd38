package cart

import (
	"context"

	"github.com/antonminaichev/gomarket/internal/types/cart"
	"github.com/antonminaichev/gomarket/internal/types/catalog"
)

// Repository is the storage contract for carts. A cart row is created
// at user provisioning time, so reads expect the row to exist.
type Repository interface {
	Cart(ctx context.Context, userID int64) (*cart.Cart, error)
	SaveCartItems(ctx context.Context, userID int64, items map[string]int) error
	ClearCart(ctx context.Context, userID int64) error

	// ProductTypeSellers returns, for each id that still exists, the
	// user id of the market owner selling it. Missing ids are simply
	// absent from the result.
	ProductTypeSellers(ctx context.Context, ids []int64) (map[int64]int64, error)
	ProductTypesByIDs(ctx context.Context, ids []int64) ([]catalog.ProductType, error)
}
