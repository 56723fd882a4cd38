package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	inventorysvc "github.com/antonminaichev/gomarket/internal/inventory"
	"github.com/antonminaichev/gomarket/internal/types/catalog"
)

func (s *PostgresStorage) CreateMarket(ctx context.Context, m *catalog.Market) error {
	q := `INSERT INTO markets (owner_id, name) VALUES ($1, $2) RETURNING id, created_at`
	return s.db.QueryRowContext(ctx, q, m.OwnerID, m.Name).Scan(&m.ID, &m.CreatedAt)
}

func (s *PostgresStorage) MarketByID(ctx context.Context, id int64) (*catalog.Market, error) {
	m := &catalog.Market{}
	q := `SELECT id, owner_id, name, created_at FROM markets WHERE id = $1`
	if err := s.db.QueryRowContext(ctx, q, id).
		Scan(&m.ID, &m.OwnerID, &m.Name, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventorysvc.ErrMarketNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *PostgresStorage) CreateProduct(ctx context.Context, p *catalog.Product) error {
	q := `
        INSERT INTO products (market_id, name, original_price, discount_percent, available)
        VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	return s.db.QueryRowContext(ctx, q,
		p.MarketID, p.Name, p.OriginalPrice, p.DiscountPercent, p.Available,
	).Scan(&p.ID, &p.CreatedAt)
}

func (s *PostgresStorage) ProductByID(ctx context.Context, id int64) (*catalog.Product, error) {
	p := &catalog.Product{}
	q := `
        SELECT id, market_id, name, original_price, discount_percent, available, created_at
        FROM products WHERE id = $1`
	if err := s.db.QueryRowContext(ctx, q, id).
		Scan(&p.ID, &p.MarketID, &p.Name, &p.OriginalPrice, &p.DiscountPercent, &p.Available, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventorysvc.ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PostgresStorage) CreateProductType(ctx context.Context, t *catalog.ProductType) error {
	props, err := json.Marshal(t.Properties)
	if err != nil {
		return fmt.Errorf("marshal properties: %w", err)
	}
	if t.Properties == nil {
		props = []byte(`{}`)
	}
	q := `
        INSERT INTO product_types (product_id, units_count, properties, markup_percent)
        VALUES ($1, $2, $3, $4) RETURNING id`
	return s.db.QueryRowContext(ctx, q, t.ProductID, t.UnitsCount, props, t.MarkupPercent).Scan(&t.ID)
}

const productTypeSelect = `
    SELECT pt.id, pt.product_id, pt.units_count, pt.properties, pt.markup_percent,
           p.name, p.original_price, p.discount_percent, m.owner_id
    FROM product_types pt
    JOIN products p ON p.id = pt.product_id
    JOIN markets m ON m.id = p.market_id`

func scanProductType(row interface{ Scan(dest ...any) error }) (*catalog.ProductType, error) {
	t := &catalog.ProductType{}
	var props []byte
	if err := row.Scan(
		&t.ID, &t.ProductID, &t.UnitsCount, &props, &t.MarkupPercent,
		&t.ProductName, &t.ProductOriginalPrice, &t.ProductDiscountPercent, &t.SellerID,
	); err != nil {
		return nil, err
	}
	if len(props) > 0 {
		if err := json.Unmarshal(props, &t.Properties); err != nil {
			return nil, fmt.Errorf("unmarshal properties: %w", err)
		}
	}
	return t, nil
}

func (s *PostgresStorage) ProductType(ctx context.Context, id int64) (*catalog.ProductType, error) {
	t, err := scanProductType(s.db.QueryRowContext(ctx, productTypeSelect+` WHERE pt.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventorysvc.ErrProductTypeNotFound
	}
	return t, err
}

func (s *PostgresStorage) ProductTypesByIDs(ctx context.Context, ids []int64) ([]catalog.ProductType, error) {
	rows, err := s.db.QueryContext(ctx, productTypeSelect+` WHERE pt.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.ProductType
	for rows.Next() {
		t, err := scanProductType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *PostgresStorage) ProductTypeSellers(ctx context.Context, ids []int64) (map[int64]int64, error) {
	q := `
        SELECT pt.id, m.owner_id
        FROM product_types pt
        JOIN products p ON p.id = pt.product_id
        JOIN markets m ON m.id = p.market_id
        WHERE pt.id = ANY($1)`
	rows, err := s.db.QueryContext(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]int64, len(ids))
	for rows.Next() {
		var id, owner int64
		if err := rows.Scan(&id, &owner); err != nil {
			return nil, err
		}
		out[id] = owner
	}
	return out, rows.Err()
}

// reserveUnits takes min(requested, units_count) in one conditional
// update so concurrent buyers can never overdraw the stock.
func reserveUnits(ctx context.Context, q querier, productTypeID int64, requested int) (int, error) {
	var taken int
	err := q.QueryRowContext(ctx, `
        WITH reserved AS (
            SELECT id, LEAST(units_count, $2::int) AS n
            FROM product_types WHERE id = $1 FOR UPDATE
        )
        UPDATE product_types pt
        SET units_count = pt.units_count - reserved.n
        FROM reserved WHERE pt.id = reserved.id
        RETURNING reserved.n`,
		productTypeID, requested).Scan(&taken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, inventorysvc.ErrProductTypeNotFound
		}
		return 0, err
	}
	return taken, nil
}

func releaseUnits(ctx context.Context, q querier, productTypeID int64, count int) error {
	res, err := q.ExecContext(ctx,
		`UPDATE product_types SET units_count = units_count + $1 WHERE id = $2`,
		count, productTypeID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return inventorysvc.ErrProductTypeNotFound
	}
	return nil
}

func (s *PostgresStorage) Reserve(ctx context.Context, productTypeID int64, requested int) (int, error) {
	return reserveUnits(ctx, s.db, productTypeID, requested)
}

func (s *PostgresStorage) Release(ctx context.Context, productTypeID int64, count int) error {
	return releaseUnits(ctx, s.db, productTypeID, count)
}

func (s *PostgresStorage) AddUnits(ctx context.Context, productTypeID int64, count int) error {
	return releaseUnits(ctx, s.db, productTypeID, count)
}

// RemoveUnits is the seller-facing exact decrement: unlike Reserve it
// refuses to take less than asked.
func (s *PostgresStorage) RemoveUnits(ctx context.Context, productTypeID int64, count int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE product_types SET units_count = units_count - $1
         WHERE id = $2 AND units_count >= $1`,
		count, productTypeID)
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
			`SELECT EXISTS (SELECT 1 FROM product_types WHERE id = $1)`,
			productTypeID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return inventorysvc.ErrProductTypeNotFound
		}
		return inventorysvc.ErrInsufficientInventory
	}
	return nil
}

func (t *pgTx) ReserveUnits(ctx context.Context, productTypeID int64, requested int) (int, error) {
	if requested <= 0 {
		return 0, nil
	}
	return reserveUnits(ctx, t.tx, productTypeID, requested)
}

func (t *pgTx) ReleaseUnits(ctx context.Context, productTypeID int64, count int) error {
	return releaseUnits(ctx, t.tx, productTypeID, count)
}
