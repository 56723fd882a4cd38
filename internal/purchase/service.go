package purchase

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/antonminaichev/gomarket/internal/logger"
	"github.com/antonminaichev/gomarket/internal/types/ledger"
	"github.com/antonminaichev/gomarket/internal/types/order"
	"github.com/antonminaichev/gomarket/internal/util/money"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrAlreadyPaid        = errors.New("order is already paid")
	ErrEmptyOrder         = errors.New("order is empty")
	ErrEmptyAddress       = errors.New("shipping address is required")
	ErrAddressTooLong     = errors.New("shipping address is too long")
	ErrCouponNotUsable    = errors.New("coupon is not usable by this user")
	ErrNotOrderOwner      = errors.New("order belongs to another user")
	ErrCannotCancelPaid   = errors.New("paid order cannot be cancelled")
)

// CartPreparer is the cart-side cleanup invoked before reservation.
type CartPreparer interface {
	PrepareItems(ctx context.Context, userID int64) (int, error)
}

// Service is the transaction boundary of the marketplace: it is the
// only component that moves money and inventory together.
type Service struct {
	repo Repository
	cart CartPreparer
}

func NewService(repo Repository, cart CartPreparer) *Service {
	return &Service{repo: repo, cart: cart}
}

// PrepareResult reports what PrepareOrder did, including how many
// stale cart entries were dropped so the caller can warn the user.
type PrepareResult struct {
	Order        *order.Order
	RemovedItems int
}

// PrepareOrder reserves inventory for the cleaned cart and freezes the
// reservation into a new unpaid order. The buyer is only ever charged
// for the units actually taken, never the requested amount. No money
// moves here.
func (s *Service) PrepareOrder(ctx context.Context, userID int64, address string) (*PrepareResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrEmptyAddress
	}
	if len(address) > order.MaxAddressLength {
		return nil, ErrAddressTooLong
	}

	removed, err := s.cart.PrepareItems(ctx, userID)
	if err != nil {
		return nil, err
	}

	var prepared *order.Order
	err = s.repo.InTx(ctx, func(tx Tx) error {
		items, err := tx.CartItems(ctx, userID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyOrder
		}

		o, err := tx.CreateOrder(ctx, userID, address)
		if err != nil {
			return err
		}

		for key, requested := range items {
			productTypeID, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				continue
			}
			taken, err := tx.ReserveUnits(ctx, productTypeID, requested)
			if err != nil {
				return err
			}
			// Sold out between cleanup and reservation: no zero lines.
			if taken == 0 {
				continue
			}
			item, err := tx.AddOrderItem(ctx, o.ID, productTypeID, taken)
			if err != nil {
				return err
			}
			o.Items = append(o.Items, *item)
		}
		if len(o.Items) == 0 {
			return ErrEmptyOrder
		}

		if err := tx.ClearCart(ctx, userID); err != nil {
			return err
		}
		prepared = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("order prepared",
		zap.Int64("order_id", prepared.ID),
		zap.Int64("user_id", userID),
		zap.Int("lines", len(prepared.Items)),
		zap.Int("units", prepared.TotalReserved()),
	)
	return &PrepareResult{Order: prepared, RemovedItems: removed}, nil
}

// MakePurchase settles a prepared order: debits the buyer for the
// coupon-discounted total, credits every seller the full price of
// their items and stamps the order paid, all in one transaction.
// A second call for the same order fails with ErrAlreadyPaid and
// changes nothing.
func (s *Service) MakePurchase(ctx context.Context, orderID, buyerID int64, couponID *int64) (*ledger.Operation, error) {
	var purchaseOp *ledger.Operation

	err := s.repo.InTx(ctx, func(tx Tx) error {
		o, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != buyerID {
			return ErrNotOrderOwner
		}
		if o.HasPaid() {
			return ErrAlreadyPaid
		}

		items, err := tx.ItemsForSettlement(ctx, orderID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyOrder
		}

		subtotal := decimal.Zero
		for _, it := range items {
			subtotal = subtotal.Add(it.UnitSalePrice.Mul(decimal.NewFromInt(int64(it.Amount))))
		}
		subtotal = money.Round(subtotal)

		total := subtotal
		if couponID != nil {
			discount, err := s.applyCoupon(ctx, tx, *couponID, buyerID, orderID, subtotal)
			if err != nil {
				return err
			}
			total = money.Round(subtotal.Sub(discount))
		}

		// The buyer absorbs the whole discount: sellers are credited
		// full item totals below, so buyer_debit + discount always
		// equals the sum of seller credits.
		purchaseOp, err = tx.Debit(ctx, buyerID, total, "order "+strconv.FormatInt(orderID, 10))
		if err != nil {
			return err
		}

		for _, it := range items {
			itemTotal := money.Round(it.UnitSalePrice.Mul(decimal.NewFromInt(int64(it.Amount))))
			sellerOp, err := tx.Credit(ctx, it.SellerID, itemTotal, "sale, order "+strconv.FormatInt(orderID, 10))
			if err != nil {
				return err
			}
			if err := tx.SetItemPayment(ctx, it.ItemID, sellerOp.ID); err != nil {
				return err
			}
		}

		return tx.SetOrderOperation(ctx, orderID, purchaseOp.ID)
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("order settled",
		zap.Int64("order_id", orderID),
		zap.Int64("buyer_id", buyerID),
		zap.String("amount", purchaseOp.Amount.String()),
	)
	return purchaseOp, nil
}

func (s *Service) applyCoupon(ctx context.Context, tx Tx, couponID, buyerID, orderID int64, subtotal decimal.Decimal) (decimal.Decimal, error) {
	usable, err := tx.IsCouponEligible(ctx, couponID, buyerID)
	if err != nil {
		return decimal.Zero, err
	}
	if !usable {
		return decimal.Zero, ErrCouponNotUsable
	}
	c, err := tx.CouponByID(ctx, couponID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := tx.ConsumeCoupon(ctx, couponID, buyerID); err != nil {
		return decimal.Zero, err
	}
	if err := tx.AttachCoupon(ctx, orderID, couponID); err != nil {
		return decimal.Zero, err
	}
	return c.Apply(subtotal), nil
}

// CancelOrder releases every reserved unit back to inventory and
// deletes the order. Only the buyer may cancel, and only while the
// order is unpaid.
func (s *Service) CancelOrder(ctx context.Context, orderID, userID int64) error {
	err := s.repo.InTx(ctx, func(tx Tx) error {
		o, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return ErrNotOrderOwner
		}
		if o.HasPaid() {
			return ErrCannotCancelPaid
		}

		units, err := tx.ReservedUnits(ctx, orderID)
		if err != nil {
			return err
		}
		for productTypeID, count := range units {
			if err := tx.ReleaseUnits(ctx, productTypeID, count); err != nil {
				return err
			}
		}
		return tx.DeleteOrder(ctx, orderID)
	})
	if err != nil {
		return err
	}

	logger.Log.Info("order cancelled",
		zap.Int64("order_id", orderID),
		zap.Int64("user_id", userID),
	)
	return nil
}
