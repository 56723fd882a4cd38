package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/antonminaichev/gomarket/internal/util/money"
)

type OrderStatus string

const (
	StatusUnpaid  OrderStatus = "UNPAID"
	StatusHasPaid OrderStatus = "HAS_PAID"
	StatusShipped OrderStatus = "SHIPPED"
)

// MaxAddressLength bounds the shipping address text.
const MaxAddressLength = 255

// Order is an immutable snapshot of reserved items plus mutable
// settlement state. OperationID is set exactly once at settlement;
// its presence means the order has been paid.
type Order struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"-"`
	OperationID *int64    `db:"operation_id" json:"-"`
	CouponID    *int64    `db:"coupon_id" json:"-"`
	Address     string    `db:"address" json:"address"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	Items       []Item    `db:"-" json:"items,omitempty"`
}

// HasPaid reports whether the order has been settled.
func (o *Order) HasPaid() bool {
	return o.OperationID != nil
}

// Status is derived, never stored: UNPAID until settled, then HAS_PAID
// until every item is shipped.
func (o *Order) Status() OrderStatus {
	if !o.HasPaid() {
		return StatusUnpaid
	}
	for i := range o.Items {
		if !o.Items[i].IsShipped {
			return StatusHasPaid
		}
	}
	return StatusShipped
}

// TotalReserved is the number of units this order holds off the market.
func (o *Order) TotalReserved() int {
	total := 0
	for i := range o.Items {
		total += o.Items[i].Amount
	}
	return total
}

// Item is one order line. ProductTypeID and PaymentID are kept nullable
// so the line survives deletion of the product type and carries the
// per-seller settlement operation once paid. IsShipped is one-way.
type Item struct {
	ID            int64  `db:"id" json:"id"`
	OrderID       int64  `db:"order_id" json:"-"`
	ProductTypeID *int64 `db:"product_type_id" json:"product_type_id,omitempty"`
	PaymentID     *int64 `db:"payment_id" json:"-"`
	Amount        int    `db:"amount" json:"amount"`
	IsShipped     bool   `db:"is_shipped" json:"is_shipped"`

	// Filled by reads joining the live product type and, once paid,
	// the per-seller payment operation.
	UnitSalePrice decimal.Decimal  `db:"-" json:"unit_price"`
	PaymentAmount *decimal.Decimal `db:"-" json:"-"`
}

// TotalPrice is the payment amount once the line is paid, otherwise the
// live sale price times the reserved amount.
func (it *Item) TotalPrice() decimal.Decimal {
	if it.PaymentID != nil && it.PaymentAmount != nil {
		return *it.PaymentAmount
	}
	return money.Round(it.UnitSalePrice.Mul(decimal.NewFromInt(int64(it.Amount))))
}
