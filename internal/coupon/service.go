package coupon

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/antonminaichev/gomarket/internal/types/coupon"
)

var (
	ErrCouponNotFound  = errors.New("coupon not found")
	ErrNotEligible     = errors.New("user is not eligible for this coupon")
	ErrInvalidDiscount = errors.New("discount percent must be between 0 and 100")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create issues a new coupon with a generated code.
func (s *Service) Create(ctx context.Context, description string, discountPercent decimal.Decimal, discountLimit *decimal.Decimal) (*coupon.Coupon, error) {
	if discountPercent.IsNegative() || discountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, ErrInvalidDiscount
	}
	c := &coupon.Coupon{
		Code:            uuid.NewString(),
		Description:     description,
		DiscountPercent: discountPercent,
		DiscountLimit:   discountLimit,
	}
	if err := s.repo.CreateCoupon(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Grant adds a user to the coupon's eligible-customers set.
func (s *Service) Grant(ctx context.Context, couponID, userID int64) error {
	return s.repo.GrantCoupon(ctx, couponID, userID)
}

func (s *Service) Coupon(ctx context.Context, id int64) (*coupon.Coupon, error) {
	return s.repo.CouponByID(ctx, id)
}

// IsUsableBy reports whether the user is still in the coupon's
// eligible set.
func (s *Service) IsUsableBy(ctx context.Context, couponID, userID int64) (bool, error) {
	return s.repo.IsCouponEligible(ctx, couponID, userID)
}

// Consume spends the coupon for this user. The orchestrator checks
// eligibility first; consuming an absent grant is surfaced as
// ErrNotEligible by the repository.
func (s *Service) Consume(ctx context.Context, couponID, userID int64) error {
	return s.repo.ConsumeCoupon(ctx, couponID, userID)
}
