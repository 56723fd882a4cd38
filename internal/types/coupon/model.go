package coupon

import (
	"github.com/shopspring/decimal"

	"github.com/antonminaichev/gomarket/internal/util/money"
)

// Coupon is a percentage discount, optionally capped, that an eligible
// customer spends exactly once at settlement time.
type Coupon struct {
	ID              int64            `db:"id" json:"id"`
	Code            string           `db:"code" json:"code"`
	Description     string           `db:"description" json:"description,omitempty"`
	DiscountPercent decimal.Decimal  `db:"discount_percent" json:"discount_percent"`
	DiscountLimit   *decimal.Decimal `db:"discount_limit" json:"discount_limit,omitempty"`
}

// Apply computes the discount for a total price. Pure, no state change.
func (c *Coupon) Apply(totalPrice decimal.Decimal) decimal.Decimal {
	discount := totalPrice.Mul(c.DiscountPercent).Div(decimal.NewFromInt(100))
	if c.DiscountLimit != nil && discount.GreaterThan(*c.DiscountLimit) {
		discount = *c.DiscountLimit
	}
	return money.Round(discount)
}
