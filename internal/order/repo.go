package order

import (
	"context"

	"github.com/antonminaichev/gomarket/internal/types/order"
)

// Repository is the read/query side of orders. Mutations that move
// money or inventory belong to the purchase orchestrator.
type Repository interface {
	// OrderByID loads the order with its items, each carrying the
	// live sale price and, once paid, the payment amount.
	OrderByID(ctx context.Context, id int64) (*order.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]order.Order, error)
	// MarkItemShipped flips is_shipped to true. The flag is one-way,
	// and only the seller of the item's product may set it.
	MarkItemShipped(ctx context.Context, itemID, sellerID int64) error
}
