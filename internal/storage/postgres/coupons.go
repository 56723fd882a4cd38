package storage

import (
	"context"
	"database/sql"
	"errors"

	couponsvc "github.com/antonminaichev/gomarket/internal/coupon"
	"github.com/antonminaichev/gomarket/internal/types/coupon"
)

func couponByID(ctx context.Context, q querier, id int64) (*coupon.Coupon, error) {
	c := &coupon.Coupon{}
	err := q.QueryRowContext(ctx, `
        SELECT id, code, description, discount_percent, discount_limit
        FROM coupons WHERE id = $1`, id).
		Scan(&c.ID, &c.Code, &c.Description, &c.DiscountPercent, &c.DiscountLimit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, couponsvc.ErrCouponNotFound
		}
		return nil, err
	}
	return c, nil
}

func isCouponEligible(ctx context.Context, q querier, couponID, userID int64) (bool, error) {
	var eligible bool
	err := q.QueryRowContext(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM coupon_customers WHERE coupon_id = $1 AND user_id = $2
        )`, couponID, userID).Scan(&eligible)
	return eligible, err
}

func consumeCoupon(ctx context.Context, q querier, couponID, userID int64) error {
	res, err := q.ExecContext(ctx,
		`DELETE FROM coupon_customers WHERE coupon_id = $1 AND user_id = $2`,
		couponID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return couponsvc.ErrNotEligible
	}
	return nil
}

func (s *PostgresStorage) CreateCoupon(ctx context.Context, c *coupon.Coupon) error {
	q := `
        INSERT INTO coupons (code, description, discount_percent, discount_limit)
        VALUES ($1, $2, $3, $4) RETURNING id`
	return s.db.QueryRowContext(ctx, q,
		c.Code, c.Description, c.DiscountPercent, c.DiscountLimit).Scan(&c.ID)
}

func (s *PostgresStorage) CouponByID(ctx context.Context, id int64) (*coupon.Coupon, error) {
	return couponByID(ctx, s.db, id)
}

func (s *PostgresStorage) GrantCoupon(ctx context.Context, couponID, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO coupon_customers (coupon_id, user_id)
        VALUES ($1, $2) ON CONFLICT DO NOTHING`, couponID, userID)
	return err
}

func (s *PostgresStorage) IsCouponEligible(ctx context.Context, couponID, userID int64) (bool, error) {
	return isCouponEligible(ctx, s.db, couponID, userID)
}

func (s *PostgresStorage) ConsumeCoupon(ctx context.Context, couponID, userID int64) error {
	return consumeCoupon(ctx, s.db, couponID, userID)
}

func (t *pgTx) CouponByID(ctx context.Context, id int64) (*coupon.Coupon, error) {
	return couponByID(ctx, t.tx, id)
}

func (t *pgTx) IsCouponEligible(ctx context.Context, couponID, userID int64) (bool, error) {
	return isCouponEligible(ctx, t.tx, couponID, userID)
}

func (t *pgTx) ConsumeCoupon(ctx context.Context, couponID, userID int64) error {
	return consumeCoupon(ctx, t.tx, couponID, userID)
}
