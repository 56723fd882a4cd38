package coupon

import (
	"context"

	"github.com/antonminaichev/gomarket/internal/types/coupon"
)

// Repository is the storage contract for coupons and their
// eligible-customers set.
type Repository interface {
	CreateCoupon(ctx context.Context, c *coupon.Coupon) error
	CouponByID(ctx context.Context, id int64) (*coupon.Coupon, error)
	GrantCoupon(ctx context.Context, couponID, userID int64) error
	IsCouponEligible(ctx context.Context, couponID, userID int64) (bool, error)
	// ConsumeCoupon removes the user from the eligible set. Consuming
	// a coupon the user does not hold is an error, not a no-op.
	ConsumeCoupon(ctx context.Context, couponID, userID int64) error
}
