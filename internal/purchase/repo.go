package purchase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/antonminaichev/gomarket/internal/types/coupon"
	"github.com/antonminaichev/gomarket/internal/types/ledger"
	"github.com/antonminaichev/gomarket/internal/types/order"
)

// SettlementItem is one order line joined with everything settlement
// needs: the live unit price and the seller to credit.
type SettlementItem struct {
	ItemID        int64
	ProductTypeID int64
	Amount        int
	UnitSalePrice decimal.Decimal
	SellerID      int64
}

// Tx is the set of row-level steps available inside one storage
// transaction. Every method either succeeds or poisons the transaction;
// the orchestrator never commits partial state.
type Tx interface {
	// Cart side.
	CartItems(ctx context.Context, userID int64) (map[string]int, error)
	ClearCart(ctx context.Context, userID int64) error

	// Inventory side. Reserve is a single conditional decrement that
	// returns the number of units actually taken; Release is the
	// matching increment.
	ReserveUnits(ctx context.Context, productTypeID int64, requested int) (int, error)
	ReleaseUnits(ctx context.Context, productTypeID int64, count int) error

	// Order side. OrderForUpdate locks the order row, serializing
	// concurrent settlement attempts for the same order.
	// ItemsForSettlement fails with inventory's not-found error when a
	// line references a product type that no longer exists; an order
	// never settles around an unpriceable line. ReservedUnits is the
	// release-side read: per product type, the units an order still
	// holds, skipping types that are gone and have nothing to take
	// units back.
	CreateOrder(ctx context.Context, userID int64, address string) (*order.Order, error)
	AddOrderItem(ctx context.Context, orderID, productTypeID int64, amount int) (*order.Item, error)
	OrderForUpdate(ctx context.Context, orderID int64) (*order.Order, error)
	ItemsForSettlement(ctx context.Context, orderID int64) ([]SettlementItem, error)
	ReservedUnits(ctx context.Context, orderID int64) (map[int64]int, error)
	SetItemPayment(ctx context.Context, itemID, operationID int64) error
	SetOrderOperation(ctx context.Context, orderID, operationID int64) error
	AttachCoupon(ctx context.Context, orderID, couponID int64) error
	DeleteOrder(ctx context.Context, orderID int64) error

	// Coupon side.
	CouponByID(ctx context.Context, id int64) (*coupon.Coupon, error)
	IsCouponEligible(ctx context.Context, couponID, userID int64) (bool, error)
	ConsumeCoupon(ctx context.Context, couponID, userID int64) error

	// Ledger side. Debit fails with ledger's insufficient-funds error
	// and, being part of the transaction, undoes everything before it.
	Debit(ctx context.Context, userID int64, amount decimal.Decimal, description string) (*ledger.Operation, error)
	Credit(ctx context.Context, userID int64, amount decimal.Decimal, description string) (*ledger.Operation, error)
}

// Repository runs fn inside a single storage transaction. A non-nil
// error from fn rolls back every step.
type Repository interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
