package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/antonminaichev/gomarket/internal/purchase"
	mstorage "github.com/antonminaichev/gomarket/internal/storage"
)

type PostgresStorage struct {
	db *sql.DB
}

var _ mstorage.Storage = (*PostgresStorage)(nil)

func NewPostgresStorage(dsn string) (*PostgresStorage, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &PostgresStorage{db: db}

	if err := s.db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStorage) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            login TEXT UNIQUE NOT NULL,
            password_hash TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS balances (
            user_id INT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
            amount NUMERIC(15,2) NOT NULL DEFAULT 0 CHECK (amount >= 0)
        )`,
		`CREATE TABLE IF NOT EXISTS operations (
            id SERIAL PRIMARY KEY,
            user_id INT REFERENCES users(id) ON DELETE SET NULL,
            amount NUMERIC(15,2) NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            transaction_time TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE TABLE IF NOT EXISTS markets (
            id SERIAL PRIMARY KEY,
            owner_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            name TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE TABLE IF NOT EXISTS products (
            id SERIAL PRIMARY KEY,
            market_id INT NOT NULL REFERENCES markets(id) ON DELETE CASCADE,
            name TEXT NOT NULL,
            original_price NUMERIC(15,2) NOT NULL,
            discount_percent NUMERIC(5,2) NOT NULL DEFAULT 0,
            available BOOLEAN NOT NULL DEFAULT TRUE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE TABLE IF NOT EXISTS product_types (
            id SERIAL PRIMARY KEY,
            product_id INT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
            units_count INT NOT NULL DEFAULT 0 CHECK (units_count >= 0),
            properties JSONB NOT NULL DEFAULT '{}',
            markup_percent NUMERIC(5,2) NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS carts (
            user_id INT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
            items JSONB NOT NULL DEFAULT '{}'
        )`,
		`CREATE TABLE IF NOT EXISTS coupons (
            id SERIAL PRIMARY KEY,
            code TEXT UNIQUE NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            discount_percent NUMERIC(5,2) NOT NULL DEFAULT 0,
            discount_limit NUMERIC(15,2)
        )`,
		`CREATE TABLE IF NOT EXISTS coupon_customers (
            coupon_id INT NOT NULL REFERENCES coupons(id) ON DELETE CASCADE,
            user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            PRIMARY KEY (coupon_id, user_id)
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id SERIAL PRIMARY KEY,
            user_id INT NOT NULL REFERENCES users(id),
            operation_id INT UNIQUE REFERENCES operations(id),
            coupon_id INT REFERENCES coupons(id),
            address TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE TABLE IF NOT EXISTS order_items (
            id SERIAL PRIMARY KEY,
            order_id INT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
            product_type_id INT REFERENCES product_types(id) ON DELETE SET NULL,
            payment_id INT REFERENCES operations(id),
            amount INT NOT NULL CHECK (amount > 0),
            is_shipped BOOLEAN NOT NULL DEFAULT FALSE
        )`,
		`CREATE TABLE IF NOT EXISTS currencies (
            code TEXT PRIMARY KEY,
            sym TEXT NOT NULL,
            rate NUMERIC(12,6) NOT NULL
        )`,
		`INSERT INTO currencies (code, sym, rate) VALUES ('USD', '$', 1)
            ON CONFLICT (code) DO NOTHING`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx,
// so row-level operations can run standalone or inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// pgTx adapts one *sql.Tx to the purchase orchestrator's step set.
type pgTx struct {
	tx *sql.Tx
}

// InTx runs fn inside a single transaction; any error rolls everything
// back. This is the whole settlement atomicity story: the orchestrator
// composes steps, the database makes them all-or-nothing.
func (s *PostgresStorage) InTx(ctx context.Context, fn func(tx purchase.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&pgTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}
