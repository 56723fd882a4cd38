package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/antonminaichev/gomarket/internal/types/ledger"
)

// Repository is the storage contract for balances and operations.
// Credit and Debit apply the balance delta and append the operation in
// a single transaction; Debit must fail with ErrInsufficientFunds and
// leave no trace when the balance cannot cover the amount.
type Repository interface {
	Balance(ctx context.Context, userID int64) (*ledger.Balance, error)
	Credit(ctx context.Context, userID int64, amount decimal.Decimal, description string) (*ledger.Operation, error)
	Debit(ctx context.Context, userID int64, amount decimal.Decimal, description string) (*ledger.Operation, error)
	SumOperations(ctx context.Context, userID int64) (decimal.Decimal, error)
	ListOperationsByUser(ctx context.Context, userID int64) ([]ledger.Operation, error)
}
