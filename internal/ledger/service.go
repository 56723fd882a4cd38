package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/antonminaichev/gomarket/internal/logger"
	"github.com/antonminaichev/gomarket/internal/types/currency"
	"github.com/antonminaichev/gomarket/internal/types/ledger"
	"github.com/antonminaichev/gomarket/internal/util/money"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBalanceNotFound   = errors.New("balance not found")
)

// Exchanger converts an amount between currency codes. Amounts reaching
// Credit/Debit are always in the canonical currency already.
type Exchanger interface {
	Exchange(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

type Service struct {
	repo      Repository
	exchanger Exchanger
}

func NewService(repo Repository, exchanger Exchanger) *Service {
	return &Service{repo: repo, exchanger: exchanger}
}

// Credit adds amount to the user's balance and appends a positive
// operation. Negative amounts are rejected before any mutation.
func (s *Service) Credit(ctx context.Context, userID int64, amount decimal.Decimal, description string) (*ledger.Operation, error) {
	if err := money.ValidateAmount(amount); err != nil {
		return nil, ErrInvalidAmount
	}
	op, err := s.repo.Credit(ctx, userID, money.Round(amount), description)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("balance credited",
		zap.Int64("user_id", userID),
		zap.String("amount", op.Amount.String()),
	)
	return op, nil
}

// Debit subtracts amount from the user's balance and appends a negative
// operation. No partial debit: ErrInsufficientFunds leaves the balance
// and the operations log untouched.
func (s *Service) Debit(ctx context.Context, userID int64, amount decimal.Decimal, description string) (*ledger.Operation, error) {
	if err := money.ValidateAmount(amount); err != nil {
		return nil, ErrInvalidAmount
	}
	op, err := s.repo.Debit(ctx, userID, money.Round(amount), description)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("balance debited",
		zap.Int64("user_id", userID),
		zap.String("amount", op.Amount.String()),
	)
	return op, nil
}

// TopUp converts the amount into the canonical currency and credits it.
func (s *Service) TopUp(ctx context.Context, userID int64, amount decimal.Decimal, currencyCode string) (*ledger.Operation, error) {
	if err := money.ValidateAmount(amount); err != nil {
		return nil, ErrInvalidAmount
	}
	converted, err := s.toCanonical(ctx, amount, currencyCode)
	if err != nil {
		return nil, err
	}
	return s.Credit(ctx, userID, converted, "top-up")
}

// Withdraw converts the amount into the canonical currency and debits it.
func (s *Service) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal, currencyCode string) (*ledger.Operation, error) {
	if err := money.ValidateAmount(amount); err != nil {
		return nil, ErrInvalidAmount
	}
	converted, err := s.toCanonical(ctx, amount, currencyCode)
	if err != nil {
		return nil, err
	}
	return s.Debit(ctx, userID, converted, "withdrawal")
}

func (s *Service) toCanonical(ctx context.Context, amount decimal.Decimal, code string) (decimal.Decimal, error) {
	if code == "" || code == currency.DefaultCode {
		return amount, nil
	}
	return s.exchanger.Exchange(ctx, amount, code, currency.DefaultCode)
}

func (s *Service) Balance(ctx context.Context, userID int64) (*ledger.Balance, error) {
	return s.repo.Balance(ctx, userID)
}

func (s *Service) ListOperations(ctx context.Context, userID int64) ([]ledger.Operation, error) {
	return s.repo.ListOperationsByUser(ctx, userID)
}

// SumOperations re-derives the balance from the operations log. Used
// for reconciliation, not on the hot path.
func (s *Service) SumOperations(ctx context.Context, userID int64) (decimal.Decimal, error) {
	return s.repo.SumOperations(ctx, userID)
}
