package purchase

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	inventorysvc "github.com/antonminaichev/gomarket/internal/inventory"
	ledgersvc "github.com/antonminaichev/gomarket/internal/ledger"
	"github.com/antonminaichev/gomarket/internal/types/coupon"
	"github.com/antonminaichev/gomarket/internal/types/ledger"
	"github.com/antonminaichev/gomarket/internal/types/order"
)

// fakeState is an in-memory marketplace. fakeRepo snapshots it before
// every transaction and restores the snapshot on error, mirroring the
// rollback behaviour of the storage layer.
type fakeState struct {
	carts    map[int64]map[string]int
	stock    map[int64]int
	price    map[int64]decimal.Decimal
	seller   map[int64]int64
	balance  map[int64]decimal.Decimal
	orders   map[int64]*order.Order
	items    map[int64]*fakeItem
	coupons  map[int64]*coupon.Coupon
	eligible map[int64]map[int64]bool

	nextOrderID int64
	nextItemID  int64
	nextOpID    int64
}

type fakeItem struct {
	id            int64
	orderID       int64
	productTypeID int64
	amount        int
	paymentID     *int64
}

func newFakeState() *fakeState {
	return &fakeState{
		carts:    map[int64]map[string]int{},
		stock:    map[int64]int{},
		price:    map[int64]decimal.Decimal{},
		seller:   map[int64]int64{},
		balance:  map[int64]decimal.Decimal{},
		orders:   map[int64]*order.Order{},
		items:    map[int64]*fakeItem{},
		coupons:  map[int64]*coupon.Coupon{},
		eligible: map[int64]map[int64]bool{},
	}
}

func (s *fakeState) clone() *fakeState {
	c := newFakeState()
	for k, v := range s.carts {
		items := make(map[string]int, len(v))
		for id, n := range v {
			items[id] = n
		}
		c.carts[k] = items
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	for k, v := range s.price {
		c.price[k] = v
	}
	for k, v := range s.seller {
		c.seller[k] = v
	}
	for k, v := range s.balance {
		c.balance[k] = v
	}
	for k, v := range s.orders {
		o := *v
		c.orders[k] = &o
	}
	for k, v := range s.items {
		it := *v
		c.items[k] = &it
	}
	for k, v := range s.coupons {
		cp := *v
		c.coupons[k] = &cp
	}
	for k, v := range s.eligible {
		users := make(map[int64]bool, len(v))
		for id, ok := range v {
			users[id] = ok
		}
		c.eligible[k] = users
	}
	c.nextOrderID = s.nextOrderID
	c.nextItemID = s.nextItemID
	c.nextOpID = s.nextOpID
	return c
}

// totalMoney is the sum of every balance, the quantity settlement must
// conserve up to the coupon discount.
func (s *fakeState) totalMoney() decimal.Decimal {
	total := decimal.Zero
	for _, b := range s.balance {
		total = total.Add(b)
	}
	return total
}

func (s *fakeState) totalUnits() int {
	total := 0
	for _, n := range s.stock {
		total += n
	}
	for _, it := range s.items {
		total += it.amount
	}
	return total
}

type fakeRepo struct {
	state *fakeState
}

func (r *fakeRepo) InTx(ctx context.Context, fn func(tx Tx) error) error {
	snap := r.state.clone()
	if err := fn(&fakeTx{s: r.state}); err != nil {
		*r.state = *snap
		return err
	}
	return nil
}

type fakeTx struct {
	s *fakeState
}

func (t *fakeTx) CartItems(ctx context.Context, userID int64) (map[string]int, error) {
	items, ok := t.s.carts[userID]
	if !ok {
		return nil, errors.New("cart not found")
	}
	return items, nil
}

func (t *fakeTx) ClearCart(ctx context.Context, userID int64) error {
	t.s.carts[userID] = map[string]int{}
	return nil
}

func (t *fakeTx) ReserveUnits(ctx context.Context, productTypeID int64, requested int) (int, error) {
	if requested <= 0 {
		return 0, nil
	}
	units, ok := t.s.stock[productTypeID]
	if !ok {
		return 0, errors.New("product type not found")
	}
	taken := requested
	if units < taken {
		taken = units
	}
	t.s.stock[productTypeID] = units - taken
	return taken, nil
}

func (t *fakeTx) ReleaseUnits(ctx context.Context, productTypeID int64, count int) error {
	if _, ok := t.s.stock[productTypeID]; !ok {
		return errors.New("product type not found")
	}
	t.s.stock[productTypeID] += count
	return nil
}

func (t *fakeTx) CreateOrder(ctx context.Context, userID int64, address string) (*order.Order, error) {
	t.s.nextOrderID++
	o := &order.Order{ID: t.s.nextOrderID, UserID: userID, Address: address}
	t.s.orders[o.ID] = o
	return o, nil
}

func (t *fakeTx) AddOrderItem(ctx context.Context, orderID, productTypeID int64, amount int) (*order.Item, error) {
	t.s.nextItemID++
	t.s.items[t.s.nextItemID] = &fakeItem{
		id:            t.s.nextItemID,
		orderID:       orderID,
		productTypeID: productTypeID,
		amount:        amount,
	}
	return &order.Item{ID: t.s.nextItemID, OrderID: orderID, ProductTypeID: &productTypeID, Amount: amount}, nil
}

func (t *fakeTx) OrderForUpdate(ctx context.Context, orderID int64) (*order.Order, error) {
	o, ok := t.s.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (t *fakeTx) ItemsForSettlement(ctx context.Context, orderID int64) ([]SettlementItem, error) {
	var out []SettlementItem
	for id := int64(1); id <= t.s.nextItemID; id++ {
		it, ok := t.s.items[id]
		if !ok || it.orderID != orderID {
			continue
		}
		price, ok := t.s.price[it.productTypeID]
		if !ok {
			return nil, inventorysvc.ErrProductTypeNotFound
		}
		out = append(out, SettlementItem{
			ItemID:        it.id,
			ProductTypeID: it.productTypeID,
			Amount:        it.amount,
			UnitSalePrice: price,
			SellerID:      t.s.seller[it.productTypeID],
		})
	}
	return out, nil
}

func (t *fakeTx) ReservedUnits(ctx context.Context, orderID int64) (map[int64]int, error) {
	units := map[int64]int{}
	for _, it := range t.s.items {
		if it.orderID != orderID {
			continue
		}
		if _, ok := t.s.stock[it.productTypeID]; !ok {
			continue
		}
		units[it.productTypeID] += it.amount
	}
	return units, nil
}

func (t *fakeTx) SetItemPayment(ctx context.Context, itemID, operationID int64) error {
	it, ok := t.s.items[itemID]
	if !ok {
		return errors.New("item not found")
	}
	it.paymentID = &operationID
	return nil
}

func (t *fakeTx) SetOrderOperation(ctx context.Context, orderID, operationID int64) error {
	o, ok := t.s.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	o.OperationID = &operationID
	return nil
}

func (t *fakeTx) AttachCoupon(ctx context.Context, orderID, couponID int64) error {
	o, ok := t.s.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	o.CouponID = &couponID
	return nil
}

func (t *fakeTx) DeleteOrder(ctx context.Context, orderID int64) error {
	delete(t.s.orders, orderID)
	for id, it := range t.s.items {
		if it.orderID == orderID {
			delete(t.s.items, id)
		}
	}
	return nil
}

func (t *fakeTx) CouponByID(ctx context.Context, id int64) (*coupon.Coupon, error) {
	c, ok := t.s.coupons[id]
	if !ok {
		return nil, errors.New("coupon not found")
	}
	return c, nil
}

func (t *fakeTx) IsCouponEligible(ctx context.Context, couponID, userID int64) (bool, error) {
	return t.s.eligible[couponID][userID], nil
}

func (t *fakeTx) ConsumeCoupon(ctx context.Context, couponID, userID int64) error {
	if !t.s.eligible[couponID][userID] {
		return errors.New("not eligible")
	}
	delete(t.s.eligible[couponID], userID)
	return nil
}

func (t *fakeTx) Debit(ctx context.Context, userID int64, amount decimal.Decimal, description string) (*ledger.Operation, error) {
	bal := t.s.balance[userID]
	if bal.LessThan(amount) {
		return nil, ledgersvc.ErrInsufficientFunds
	}
	t.s.balance[userID] = bal.Sub(amount)
	t.s.nextOpID++
	return &ledger.Operation{ID: t.s.nextOpID, Amount: amount.Neg(), Description: description}, nil
}

func (t *fakeTx) Credit(ctx context.Context, userID int64, amount decimal.Decimal, description string) (*ledger.Operation, error) {
	t.s.balance[userID] = t.s.balance[userID].Add(amount)
	t.s.nextOpID++
	return &ledger.Operation{ID: t.s.nextOpID, Amount: amount, Description: description}, nil
}

type stubPreparer struct {
	removed int
	err     error
}

func (p *stubPreparer) PrepareItems(ctx context.Context, userID int64) (int, error) {
	return p.removed, p.err
}

const (
	buyerID   = int64(1)
	sellerOne = int64(10)
	sellerTwo = int64(20)
)

// marketState seeds two product types from two sellers and a funded
// buyer cart: 2 units at 300.00 and 1 unit at 400.00.
func marketState() *fakeState {
	s := newFakeState()
	s.stock[101] = 5
	s.price[101] = decimal.RequireFromString("300.00")
	s.seller[101] = sellerOne
	s.stock[102] = 3
	s.price[102] = decimal.RequireFromString("400.00")
	s.seller[102] = sellerTwo
	s.balance[buyerID] = decimal.RequireFromString("5000.00")
	s.balance[sellerOne] = decimal.Zero
	s.balance[sellerTwo] = decimal.Zero
	s.carts[buyerID] = map[string]int{"101": 2, "102": 1}
	return s
}

func prepare(t *testing.T, s *fakeState, svc *Service) *order.Order {
	t.Helper()
	res, err := svc.PrepareOrder(context.Background(), buyerID, "12 Main street")
	if err != nil {
		t.Fatalf("PrepareOrder: %v", err)
	}
	return res.Order
}

func TestPrepareOrder(t *testing.T) {
	t.Run("reserves stock and clears cart", func(t *testing.T) {
		s := marketState()
		svc := NewService(&fakeRepo{state: s}, &stubPreparer{})

		o := prepare(t, s, svc)

		assert.Len(t, o.Items, 2)
		if s.stock[101] != 3 {
			t.Errorf("expected 3 units left of 101, got %d", s.stock[101])
		}
		if s.stock[102] != 2 {
			t.Errorf("expected 2 units left of 102, got %d", s.stock[102])
		}
		if len(s.carts[buyerID]) != 0 {
			t.Errorf("expected cart cleared, got %v", s.carts[buyerID])
		}
	})

	t.Run("oversell is clamped to available units", func(t *testing.T) {
		s := marketState()
		s.carts[buyerID] = map[string]int{"101": 100}
		svc := NewService(&fakeRepo{state: s}, &stubPreparer{})

		o := prepare(t, s, svc)

		if got := o.TotalReserved(); got != 5 {
			t.Errorf("expected 5 units reserved, got %d", got)
		}
		if s.stock[101] != 0 {
			t.Errorf("expected empty stock, got %d", s.stock[101])
		}
	})

	t.Run("sold out cart rolls back empty", func(t *testing.T) {
		s := marketState()
		s.stock[101] = 0
		s.stock[102] = 0
		svc := NewService(&fakeRepo{state: s}, &stubPreparer{})

		_, err := svc.PrepareOrder(context.Background(), buyerID, "12 Main street")
		if !errors.Is(err, ErrEmptyOrder) {
			t.Fatalf("expected ErrEmptyOrder, got %v", err)
		}
		if len(s.orders) != 0 {
			t.Errorf("expected no orders after rollback, got %d", len(s.orders))
		}
		if len(s.carts[buyerID]) == 0 {
			t.Error("expected cart kept after rollback")
		}
	})

	t.Run("empty cart", func(t *testing.T) {
		s := marketState()
		s.carts[buyerID] = map[string]int{}
		svc := NewService(&fakeRepo{state: s}, &stubPreparer{})

		_, err := svc.PrepareOrder(context.Background(), buyerID, "12 Main street")
		if !errors.Is(err, ErrEmptyOrder) {
			t.Errorf("expected ErrEmptyOrder, got %v", err)
		}
	})

	t.Run("address validation", func(t *testing.T) {
		s := marketState()
		svc := NewService(&fakeRepo{state: s}, &stubPreparer{})

		if _, err := svc.PrepareOrder(context.Background(), buyerID, "   "); !errors.Is(err, ErrEmptyAddress) {
			t.Errorf("expected ErrEmptyAddress, got %v", err)
		}

		long := make([]byte, order.MaxAddressLength+1)
		for i := range long {
			long[i] = 'a'
		}
		if _, err := svc.PrepareOrder(context.Background(), buyerID, string(long)); !errors.Is(err, ErrAddressTooLong) {
			t.Errorf("expected ErrAddressTooLong, got %v", err)
		}
	})

	t.Run("reports removed cart entries", func(t *testing.T) {
		s := marketState()
		svc := NewService(&fakeRepo{state: s}, &stubPreparer{removed: 2})

		res, err := svc.PrepareOrder(context.Background(), buyerID, "12 Main street")
		if err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, 2, res.RemovedItems)
	})

	t.Run("inventory is conserved across prepare and cancel", func(t *testing.T) {
		s := marketState()
		svc := NewService(&fakeRepo{state: s}, &stubPreparer{})

		before := s.totalUnits()
		o := prepare(t, s, svc)
		if got := s.totalUnits(); got != before {
			t.Fatalf("units not conserved after prepare: %d != %d", got, before)
		}

		if err := svc.CancelOrder(context.Background(), o.ID, buyerID); err != nil {
			t.Fatal(err)
		}
		if got := s.totalUnits(); got != before {
			t.Errorf("units not conserved after cancel: %d != %d", got, before)
		}
	})
}

func TestMakePurchase(t *testing.T) {
	t.Run("settles and conserves money", func(t *testing.T) {
		s := marketState()
		svc := NewService(&fakeRepo{state: s}, &stubPreparer{})
		o := prepare(t, s, svc)
		before := s.totalMoney()

		op, err := svc.MakePurchase(context.Background(), o.ID, buyerID, nil)
		if err != nil {
			t.Fatalf("MakePurchase: %v", err)
		}

		// 2 x 300.00 + 1 x 400.00
		assert.True(t, op.Amount.Equal(decimal.RequireFromString("-1000.00")),
			"buyer operation amount: %s", op.Amount)
		assert.True(t, s.balance[buyerID].Equal(decimal.RequireFromString("4000.00")))
		assert.True(t, s.balance[sellerOne].Equal(decimal.RequireFromString("600.00")))
		assert.True(t, s.balance[sellerTwo].Equal(decimal.RequireFromString("400.00")))

		if got := s.totalMoney(); !got.Equal(before) {
			t.Errorf("money not conserved: %s != %s", got, before)
		}
		if s.orders[o.ID].OperationID == nil {
			t.Error("expected order stamped with settlement operation")
		}
		for _, it := range s.items {
			if it.paymentID == nil {
				t.Errorf("item %d has no payment", it.id)
			}
		}
	})

	t.Run("coupon discount is absorbed by the buyer", func(t *testing.T) {
		s := marketState()
		limit := decimal.RequireFromString("80.00")
		s.coupons[7] = &coupon.Coupon{
			ID:              7,
			Code:            "WELCOME",
			DiscountPercent: decimal.NewFromInt(10),
			DiscountLimit:   &limit,
		}
		s.eligible[7] = map[int64]bool{buyerID: true}
		svc := NewService(&fakeRepo{state: s}, &stubPreparer{})
		o := prepare(t, s, svc)

		couponID := int64(7)
		op, err := svc.MakePurchase(context.Background(), o.ID, buyerID, &couponID)
		if err != nil {
			t.Fatalf("MakePurchase: %v", err)
		}

		// 10% of 1000.00 capped at 80.00: buyer pays 920.00, sellers
		// are still credited the full 1000.00.
		assert.True(t, op.Amount.Equal(decimal.RequireFromString("-920.00")),
			"buyer operation amount: %s", op.Amount)
		assert.True(t, s.balance[sellerOne].Equal(decimal.RequireFromString("600.00")))
		assert.True(t, s.balance[sellerTwo].Equal(decimal.RequireFromString("400.00")))

		if s.eligible[7][buyerID] {
			t.Error("expected coupon consumed")
		}
		if s.orders[o.ID].CouponID == nil || *s.orders[o.ID].CouponID != 7 {
			t.Error("expected coupon attached to order")
		}
	})

	t.Run("coupon not granted", func(t *testing.T) {
		s := marketState()
		s.coupons[7] = &coupon.Coupon{ID: 7, DiscountPercent: decimal.NewFromInt(10)}
		svc := NewService(&fakeRepo{state: s}, &stubPreparer{})
		o := prepare(t, s, svc)

		couponID := int64(7)
		_, err := svc.MakePurchase(context.Background(), o.ID, buyerID, &couponID)
		if !errors.Is(err, ErrCouponNotUsable) {
			t.Fatalf("expected ErrCouponNotUsable, got %v", err)
		}
		if !s.balance[buyerID].Equal(decimal.RequireFromString("5000.00")) {
			t.Error("expected no money moved")
		}
	})

	t.Run("insufficient funds rolls everything back", func(t *testing.T) {
		s := marketState()
		s.balance[buyerID] = decimal.RequireFromString("10.00")
		limit := decimal.RequireFromString("80.00")
		s.coupons[7] = &coupon.Coupon{ID: 7, DiscountPercent: decimal.NewFromInt(10), DiscountLimit: &limit}
		s.eligible[7] = map[int64]bool{buyerID: true}
		svc := NewService(&fakeRepo{state: s}, &stubPreparer{})
		o := prepare(t, s, svc)

		couponID := int64(7)
		_, err := svc.MakePurchase(context.Background(), o.ID, buyerID, &couponID)
		if !errors.Is(err, ledgersvc.ErrInsufficientFunds) {
			t.Fatalf("expected ErrInsufficientFunds, got %v", err)
		}

		if !s.balance[sellerOne].IsZero() || !s.balance[sellerTwo].IsZero() {
			t.Error("expected seller balances untouched")
		}
		if s.orders[o.ID].OperationID != nil {
			t.Error("expected order still unpaid")
		}
		if !s.eligible[7][buyerID] {
			t.Error("expected coupon still usable after rollback")
		}
	})

	t.Run("second settlement fails and changes nothing", func(t *testing.T) {
		s := marketState()
		svc := NewService(&fakeRepo{state: s}, &stubPreparer{})
		o := prepare(t, s, svc)

		if _, err := svc.MakePurchase(context.Background(), o.ID, buyerID, nil); err != nil {
			t.Fatal(err)
		}
		after := s.clone()

		_, err := svc.MakePurchase(context.Background(), o.ID, buyerID, nil)
		if !errors.Is(err, ErrAlreadyPaid) {
			t.Fatalf("expected ErrAlreadyPaid, got %v", err)
		}
		if !s.balance[buyerID].Equal(after.balance[buyerID]) ||
			!s.balance[sellerOne].Equal(after.balance[sellerOne]) {
			t.Error("expected balances unchanged on repeat settlement")
		}
	})

	t.Run("not the order owner", func(t *testing.T) {
		s := marketState()
		svc := NewService(&fakeRepo{state: s}, &stubPreparer{})
		o := prepare(t, s, svc)

		_, err := svc.MakePurchase(context.Background(), o.ID, buyerID+1, nil)
		if !errors.Is(err, ErrNotOrderOwner) {
			t.Errorf("expected ErrNotOrderOwner, got %v", err)
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		s := marketState()
		svc := NewService(&fakeRepo{state: s}, &stubPreparer{})

		_, err := svc.MakePurchase(context.Background(), 999, buyerID, nil)
		if !errors.Is(err, ErrOrderNotFound) {
			t.Errorf("expected ErrOrderNotFound, got %v", err)
		}
	})

	t.Run("deleted product type fails settlement untouched", func(t *testing.T) {
		s := marketState()
		svc := NewService(&fakeRepo{state: s}, &stubPreparer{})
		o := prepare(t, s, svc)

		delete(s.stock, 102)
		delete(s.price, 102)
		delete(s.seller, 102)

		_, err := svc.MakePurchase(context.Background(), o.ID, buyerID, nil)
		if !errors.Is(err, inventorysvc.ErrProductTypeNotFound) {
			t.Fatalf("expected ErrProductTypeNotFound, got %v", err)
		}

		if !s.balance[buyerID].Equal(decimal.RequireFromString("5000.00")) {
			t.Errorf("expected buyer balance untouched, got %s", s.balance[buyerID])
		}
		if !s.balance[sellerOne].IsZero() {
			t.Error("expected no seller credit for an unsettleable order")
		}
		if s.orders[o.ID].OperationID != nil {
			t.Error("expected order still unpaid")
		}
		for _, it := range s.items {
			if it.orderID == o.ID && it.paymentID != nil {
				t.Error("expected no line marked paid")
			}
		}
	})
}

func TestCancelOrder(t *testing.T) {
	t.Run("releases reserved units and deletes the order", func(t *testing.T) {
		s := marketState()
		svc := NewService(&fakeRepo{state: s}, &stubPreparer{})
		o := prepare(t, s, svc)

		if err := svc.CancelOrder(context.Background(), o.ID, buyerID); err != nil {
			t.Fatal(err)
		}
		if s.stock[101] != 5 || s.stock[102] != 3 {
			t.Errorf("expected stock restored, got %d and %d", s.stock[101], s.stock[102])
		}
		if _, ok := s.orders[o.ID]; ok {
			t.Error("expected order deleted")
		}
	})

	t.Run("paid order cannot be cancelled", func(t *testing.T) {
		s := marketState()
		svc := NewService(&fakeRepo{state: s}, &stubPreparer{})
		o := prepare(t, s, svc)
		if _, err := svc.MakePurchase(context.Background(), o.ID, buyerID, nil); err != nil {
			t.Fatal(err)
		}

		err := svc.CancelOrder(context.Background(), o.ID, buyerID)
		if !errors.Is(err, ErrCannotCancelPaid) {
			t.Errorf("expected ErrCannotCancelPaid, got %v", err)
		}
	})

	t.Run("only the owner may cancel", func(t *testing.T) {
		s := marketState()
		svc := NewService(&fakeRepo{state: s}, &stubPreparer{})
		o := prepare(t, s, svc)

		err := svc.CancelOrder(context.Background(), o.ID, buyerID+5)
		if !errors.Is(err, ErrNotOrderOwner) {
			t.Errorf("expected ErrNotOrderOwner, got %v", err)
		}
	})

	t.Run("deleted product type does not block cancellation", func(t *testing.T) {
		s := marketState()
		svc := NewService(&fakeRepo{state: s}, &stubPreparer{})
		o := prepare(t, s, svc)

		delete(s.stock, 102)
		delete(s.price, 102)
		delete(s.seller, 102)

		if err := svc.CancelOrder(context.Background(), o.ID, buyerID); err != nil {
			t.Fatal(err)
		}
		if s.stock[101] != 5 {
			t.Errorf("expected surviving type restocked, got %d", s.stock[101])
		}
		if _, ok := s.orders[o.ID]; ok {
			t.Error("expected order deleted")
		}
	})
}

func TestOrderDescriptionCarriesID(t *testing.T) {
	s := marketState()
	svc := NewService(&fakeRepo{state: s}, &stubPreparer{})
	o := prepare(t, s, svc)

	op, err := svc.MakePurchase(context.Background(), o.ID, buyerID, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := "order " + strconv.FormatInt(o.ID, 10)
	if op.Description != want {
		t.Errorf("expected description %q, got %q", want, op.Description)
	}
}
