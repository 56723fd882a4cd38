package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/antonminaichev/gomarket/internal/types/user"
	usersvc "github.com/antonminaichev/gomarket/internal/user"
)

const uniqueViolation = "23505"

func (s *PostgresStorage) Create(ctx context.Context, u *user.User) error {
	q := `INSERT INTO users (login, password_hash, created_at) VALUES ($1, $2, $3) RETURNING id`
	err := s.db.QueryRowContext(ctx, q, u.Login, u.PasswordHash, u.CreatedAt).Scan(&u.ID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return usersvc.ErrUserExists
	}
	return err
}

func (s *PostgresStorage) FindByLogin(ctx context.Context, login string) (*user.User, error) {
	u := &user.User{}
	q := `SELECT id, login, password_hash, created_at FROM users WHERE login = $1`
	if err := s.db.QueryRowContext(ctx, q, login).
		Scan(&u.ID, &u.Login, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, usersvc.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// ProvisionAccount creates the zero balance and empty cart for a new
// user. Idempotent so a retried registration does not fail.
func (s *PostgresStorage) ProvisionAccount(ctx context.Context, userID int64) error {
	return s.inOwnTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO balances (user_id, amount) VALUES ($1, 0)
             ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
			return fmt.Errorf("create balance: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO carts (user_id, items) VALUES ($1, '{}')
             ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
			return fmt.Errorf("create cart: %w", err)
		}
		return nil
	})
}
