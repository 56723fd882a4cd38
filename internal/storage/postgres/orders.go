package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	inventorysvc "github.com/antonminaichev/gomarket/internal/inventory"
	ordersvc "github.com/antonminaichev/gomarket/internal/order"
	"github.com/antonminaichev/gomarket/internal/purchase"
	"github.com/antonminaichev/gomarket/internal/types/catalog"
	"github.com/antonminaichev/gomarket/internal/types/order"
)

func orderByID(ctx context.Context, q querier, id int64, forUpdate bool) (*order.Order, error) {
	query := `SELECT id, user_id, operation_id, coupon_id, address, created_at
              FROM orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	o := &order.Order{}
	err := q.QueryRowContext(ctx, query, id).
		Scan(&o.ID, &o.UserID, &o.OperationID, &o.CouponID, &o.Address, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ordersvc.ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

// loadOrderItems joins each line with the live product type for its
// current sale price and with the settlement operation for the amount
// actually paid. Lines whose product type was deleted keep nil prices.
func loadOrderItems(ctx context.Context, q querier, orderID int64) ([]order.Item, error) {
	rows, err := q.QueryContext(ctx, `
        SELECT oi.id, oi.order_id, oi.product_type_id, oi.payment_id, oi.amount, oi.is_shipped,
               p.original_price, p.discount_percent, pt.markup_percent,
               op.amount
        FROM order_items oi
        LEFT JOIN product_types pt ON pt.id = oi.product_type_id
        LEFT JOIN products p ON p.id = pt.product_id
        LEFT JOIN operations op ON op.id = oi.payment_id
        WHERE oi.order_id = $1
        ORDER BY oi.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []order.Item
	for rows.Next() {
		var (
			it       order.Item
			original decimal.NullDecimal
			discount decimal.NullDecimal
			markup   decimal.NullDecimal
			paid     decimal.NullDecimal
		)
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductTypeID, &it.PaymentID, &it.Amount, &it.IsShipped,
			&original, &discount, &markup, &paid,
		); err != nil {
			return nil, err
		}
		if original.Valid {
			t := catalog.ProductType{
				ProductOriginalPrice:   original.Decimal,
				ProductDiscountPercent: discount.Decimal,
				MarkupPercent:          markup.Decimal,
			}
			it.UnitSalePrice = t.SalePrice()
		}
		if paid.Valid {
			it.PaymentAmount = &paid.Decimal
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *PostgresStorage) OrderByID(ctx context.Context, id int64) (*order.Order, error) {
	o, err := orderByID(ctx, s.db, id, false)
	if err != nil {
		return nil, err
	}
	o.Items, err = loadOrderItems(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *PostgresStorage) ListOrdersByUser(ctx context.Context, userID int64) ([]order.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, user_id, operation_id, coupon_id, address, created_at
        FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		var o order.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.OperationID, &o.CouponID, &o.Address, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items, err = loadOrderItems(ctx, s.db, orders[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *PostgresStorage) MarkItemShipped(ctx context.Context, itemID, sellerID int64) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE order_items oi SET is_shipped = TRUE
        FROM product_types pt
        JOIN products p ON p.id = pt.product_id
        JOIN markets m ON m.id = p.market_id
        WHERE oi.id = $1 AND oi.product_type_id = pt.id AND m.owner_id = $2`,
		itemID, sellerID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM order_items WHERE id = $1)`,
			itemID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ordersvc.ErrItemNotFound
		}
		return ordersvc.ErrNotItemSeller
	}
	return nil
}

func (t *pgTx) CreateOrder(ctx context.Context, userID int64, address string) (*order.Order, error) {
	o := &order.Order{UserID: userID, Address: address}
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO orders (user_id, address) VALUES ($1, $2) RETURNING id, created_at`,
		userID, address).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (t *pgTx) AddOrderItem(ctx context.Context, orderID, productTypeID int64, amount int) (*order.Item, error) {
	it := &order.Item{OrderID: orderID, ProductTypeID: &productTypeID, Amount: amount}
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO order_items (order_id, product_type_id, amount) VALUES ($1, $2, $3) RETURNING id`,
		orderID, productTypeID, amount).Scan(&it.ID)
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (t *pgTx) OrderForUpdate(ctx context.Context, orderID int64) (*order.Order, error) {
	o, err := orderByID(ctx, t.tx, orderID, true)
	if errors.Is(err, ordersvc.ErrOrderNotFound) {
		return nil, purchase.ErrOrderNotFound
	}
	return o, err
}

func (t *pgTx) ItemsForSettlement(ctx context.Context, orderID int64) ([]purchase.SettlementItem, error) {
	rows, err := t.tx.QueryContext(ctx, `
        SELECT oi.id, oi.product_type_id, oi.amount,
               p.original_price, p.discount_percent, pt.markup_percent, m.owner_id
        FROM order_items oi
        LEFT JOIN product_types pt ON pt.id = oi.product_type_id
        LEFT JOIN products p ON p.id = pt.product_id
        LEFT JOIN markets m ON m.id = p.market_id
        WHERE oi.order_id = $1
        ORDER BY oi.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []purchase.SettlementItem
	for rows.Next() {
		var (
			it       purchase.SettlementItem
			ptID     sql.NullInt64
			original decimal.NullDecimal
			discount decimal.NullDecimal
			markup   decimal.NullDecimal
			seller   sql.NullInt64
		)
		if err := rows.Scan(&it.ItemID, &ptID, &it.Amount,
			&original, &discount, &markup, &seller); err != nil {
			return nil, err
		}
		// A line whose product type row is gone cannot be priced or
		// paid out; the order must not settle around it.
		if !ptID.Valid || !seller.Valid {
			return nil, inventorysvc.ErrProductTypeNotFound
		}
		it.ProductTypeID = ptID.Int64
		it.SellerID = seller.Int64
		pt := catalog.ProductType{
			ProductOriginalPrice:   original.Decimal,
			ProductDiscountPercent: discount.Decimal,
			MarkupPercent:          markup.Decimal,
		}
		it.UnitSalePrice = pt.SalePrice()
		items = append(items, it)
	}
	return items, rows.Err()
}

func (t *pgTx) ReservedUnits(ctx context.Context, orderID int64) (map[int64]int, error) {
	rows, err := t.tx.QueryContext(ctx, `
        SELECT oi.product_type_id, SUM(oi.amount)
        FROM order_items oi
        JOIN product_types pt ON pt.id = oi.product_type_id
        WHERE oi.order_id = $1
        GROUP BY oi.product_type_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	units := map[int64]int{}
	for rows.Next() {
		var (
			ptID  int64
			count int
		)
		if err := rows.Scan(&ptID, &count); err != nil {
			return nil, err
		}
		units[ptID] = count
	}
	return units, rows.Err()
}

func (t *pgTx) SetItemPayment(ctx context.Context, itemID, operationID int64) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE order_items SET payment_id = $1 WHERE id = $2`, operationID, itemID)
	return err
}

func (t *pgTx) SetOrderOperation(ctx context.Context, orderID, operationID int64) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE orders SET operation_id = $1 WHERE id = $2`, operationID, orderID)
	return err
}

func (t *pgTx) AttachCoupon(ctx context.Context, orderID, couponID int64) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE orders SET coupon_id = $1 WHERE id = $2`, couponID, orderID)
	return err
}

func (t *pgTx) DeleteOrder(ctx context.Context, orderID int64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	return err
}
