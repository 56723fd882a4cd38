package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	ledgersvc "github.com/antonminaichev/gomarket/internal/ledger"
	"github.com/antonminaichev/gomarket/internal/types/ledger"
)

func (s *PostgresStorage) Balance(ctx context.Context, userID int64) (*ledger.Balance, error) {
	b := &ledger.Balance{UserID: userID}
	q := `SELECT amount FROM balances WHERE user_id = $1`
	if err := s.db.QueryRowContext(ctx, q, userID).Scan(&b.Amount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledgersvc.ErrBalanceNotFound
		}
		return nil, err
	}
	return b, nil
}

// creditBalance applies a positive balance delta and appends the
// matching operation. Callers supply the transaction scope.
func creditBalance(ctx context.Context, q querier, userID int64, amount decimal.Decimal, description string) (*ledger.Operation, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE balances SET amount = amount + $1 WHERE user_id = $2`,
		amount, userID)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ledgersvc.ErrBalanceNotFound
	}
	return insertOperation(ctx, q, userID, amount, description)
}

// debitBalance locks the balance row, verifies coverage and applies a
// negative delta plus the matching operation. ErrInsufficientFunds
// leaves the transaction free to roll back with no partial state.
func debitBalance(ctx context.Context, q querier, userID int64, amount decimal.Decimal, description string) (*ledger.Operation, error) {
	var current decimal.Decimal
	err := q.QueryRowContext(ctx,
		`SELECT amount FROM balances WHERE user_id = $1 FOR UPDATE`,
		userID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledgersvc.ErrBalanceNotFound
		}
		return nil, err
	}
	if current.LessThan(amount) {
		return nil, ledgersvc.ErrInsufficientFunds
	}
	if _, err := q.ExecContext(ctx,
		`UPDATE balances SET amount = amount - $1 WHERE user_id = $2`,
		amount, userID); err != nil {
		return nil, err
	}
	return insertOperation(ctx, q, userID, amount.Neg(), description)
}

func insertOperation(ctx context.Context, q querier, userID int64, amount decimal.Decimal, description string) (*ledger.Operation, error) {
	op := &ledger.Operation{UserID: &userID, Amount: amount, Description: description}
	err := q.QueryRowContext(ctx,
		`INSERT INTO operations (user_id, amount, description)
         VALUES ($1, $2, $3) RETURNING id, transaction_time`,
		userID, amount, description).Scan(&op.ID, &op.TransactionTime)
	if err != nil {
		return nil, fmt.Errorf("insert operation: %w", err)
	}
	return op, nil
}

func (s *PostgresStorage) Credit(ctx context.Context, userID int64, amount decimal.Decimal, description string) (op *ledger.Operation, err error) {
	err = s.inOwnTx(ctx, func(tx *sql.Tx) error {
		op, err = creditBalance(ctx, tx, userID, amount, description)
		return err
	})
	return op, err
}

func (s *PostgresStorage) Debit(ctx context.Context, userID int64, amount decimal.Decimal, description string) (op *ledger.Operation, err error) {
	err = s.inOwnTx(ctx, func(tx *sql.Tx) error {
		op, err = debitBalance(ctx, tx, userID, amount, description)
		return err
	})
	return op, err
}

func (s *PostgresStorage) inOwnTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *PostgresStorage) SumOperations(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	q := `SELECT COALESCE(SUM(amount), 0) FROM operations WHERE user_id = $1`
	if err := s.db.QueryRowContext(ctx, q, userID).Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

func (s *PostgresStorage) ListOperationsByUser(ctx context.Context, userID int64) ([]ledger.Operation, error) {
	q := `
        SELECT id, user_id, amount, description, transaction_time
        FROM operations WHERE user_id = $1 ORDER BY transaction_time DESC`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Operation
	for rows.Next() {
		var op ledger.Operation
		var uid sql.NullInt64
		if err := rows.Scan(&op.ID, &uid, &op.Amount, &op.Description, &op.TransactionTime); err != nil {
			return nil, err
		}
		if uid.Valid {
			op.UserID = &uid.Int64
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

func (t *pgTx) Credit(ctx context.Context, userID int64, amount decimal.Decimal, description string) (*ledger.Operation, error) {
	return creditBalance(ctx, t.tx, userID, amount, description)
}

func (t *pgTx) Debit(ctx context.Context, userID int64, amount decimal.Decimal, description string) (*ledger.Operation, error) {
	return debitBalance(ctx, t.tx, userID, amount, description)
}
