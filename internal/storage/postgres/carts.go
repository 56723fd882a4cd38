package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	cartsvc "github.com/antonminaichev/gomarket/internal/cart"
	"github.com/antonminaichev/gomarket/internal/types/cart"
)

func cartItems(ctx context.Context, q querier, userID int64) (map[string]int, error) {
	var raw []byte
	err := q.QueryRowContext(ctx,
		`SELECT items FROM carts WHERE user_id = $1`, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cartsvc.ErrCartNotFound
		}
		return nil, err
	}
	items := map[string]int{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("unmarshal cart items: %w", err)
		}
	}
	return items, nil
}

func saveCartItems(ctx context.Context, q querier, userID int64, items map[string]int) error {
	if items == nil {
		items = map[string]int{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cart items: %w", err)
	}
	res, err := q.ExecContext(ctx,
		`UPDATE carts SET items = $1 WHERE user_id = $2`, raw, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return cartsvc.ErrCartNotFound
	}
	return nil
}

func (s *PostgresStorage) Cart(ctx context.Context, userID int64) (*cart.Cart, error) {
	items, err := cartItems(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	return &cart.Cart{UserID: userID, Items: items}, nil
}

func (s *PostgresStorage) SaveCartItems(ctx context.Context, userID int64, items map[string]int) error {
	return saveCartItems(ctx, s.db, userID, items)
}

func (s *PostgresStorage) ClearCart(ctx context.Context, userID int64) error {
	return saveCartItems(ctx, s.db, userID, nil)
}

func (t *pgTx) CartItems(ctx context.Context, userID int64) (map[string]int, error) {
	return cartItems(ctx, t.tx, userID)
}

func (t *pgTx) ClearCart(ctx context.Context, userID int64) error {
	return saveCartItems(ctx, t.tx, userID, nil)
}
