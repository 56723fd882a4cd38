package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/antonminaichev/gomarket/internal/currency"
	"github.com/antonminaichev/gomarket/internal/middleware"
	"github.com/antonminaichev/gomarket/internal/types/ledger"
)

type stubLedgerRepo struct {
	balances map[int64]decimal.Decimal
	ops      []ledger.Operation
	nextID   int64
}

func newStubLedgerRepo() *stubLedgerRepo {
	return &stubLedgerRepo{balances: map[int64]decimal.Decimal{}}
}

func (r *stubLedgerRepo) Balance(ctx context.Context, userID int64) (*ledger.Balance, error) {
	bal, ok := r.balances[userID]
	if !ok {
		return nil, ErrBalanceNotFound
	}
	return &ledger.Balance{UserID: userID, Amount: bal}, nil
}

func (r *stubLedgerRepo) record(userID int64, amount decimal.Decimal, description string) *ledger.Operation {
	r.nextID++
	op := ledger.Operation{ID: r.nextID, UserID: &userID, Amount: amount, Description: description}
	r.ops = append(r.ops, op)
	return &op
}

func (r *stubLedgerRepo) Credit(ctx context.Context, userID int64, amount decimal.Decimal, description string) (*ledger.Operation, error) {
	bal, ok := r.balances[userID]
	if !ok {
		return nil, ErrBalanceNotFound
	}
	r.balances[userID] = bal.Add(amount)
	return r.record(userID, amount, description), nil
}

func (r *stubLedgerRepo) Debit(ctx context.Context, userID int64, amount decimal.Decimal, description string) (*ledger.Operation, error) {
	bal, ok := r.balances[userID]
	if !ok {
		return nil, ErrBalanceNotFound
	}
	if bal.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}
	r.balances[userID] = bal.Sub(amount)
	return r.record(userID, amount.Neg(), description), nil
}

func (r *stubLedgerRepo) SumOperations(ctx context.Context, userID int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, op := range r.ops {
		if op.UserID != nil && *op.UserID == userID {
			total = total.Add(op.Amount)
		}
	}
	return total, nil
}

func (r *stubLedgerRepo) ListOperationsByUser(ctx context.Context, userID int64) ([]ledger.Operation, error) {
	var out []ledger.Operation
	for _, op := range r.ops {
		if op.UserID != nil && *op.UserID == userID {
			out = append(out, op)
		}
	}
	return out, nil
}

type stubExchanger struct {
	rate decimal.Decimal
	err  error
}

func (e *stubExchanger) Exchange(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if e.err != nil {
		return decimal.Zero, e.err
	}
	return amount.Mul(e.rate).Round(2), nil
}

func TestServiceCreditDebit(t *testing.T) {
	repo := newStubLedgerRepo()
	repo.balances[1] = decimal.Zero
	svc := NewService(repo, &stubExchanger{rate: decimal.NewFromInt(1)})

	t.Run("credit then debit", func(t *testing.T) {
		if _, err := svc.Credit(context.Background(), 1, decimal.RequireFromString("150.00"), "test"); err != nil {
			t.Fatal(err)
		}
		op, err := svc.Debit(context.Background(), 1, decimal.RequireFromString("50.00"), "test")
		if err != nil {
			t.Fatal(err)
		}
		assert.True(t, op.Amount.Equal(decimal.RequireFromString("-50.00")))
		assert.True(t, repo.balances[1].Equal(decimal.RequireFromString("100.00")))
	})

	t.Run("negative amount", func(t *testing.T) {
		_, err := svc.Credit(context.Background(), 1, decimal.NewFromInt(-5), "test")
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("expected ErrInvalidAmount, got %v", err)
		}
		_, err = svc.Debit(context.Background(), 1, decimal.NewFromInt(-5), "test")
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("expected ErrInvalidAmount, got %v", err)
		}
	})

	t.Run("insufficient funds leaves no trace", func(t *testing.T) {
		opsBefore := len(repo.ops)
		_, err := svc.Debit(context.Background(), 1, decimal.RequireFromString("9999.00"), "test")
		if !errors.Is(err, ErrInsufficientFunds) {
			t.Fatalf("expected ErrInsufficientFunds, got %v", err)
		}
		if len(repo.ops) != opsBefore {
			t.Error("expected no operation recorded")
		}
		assert.True(t, repo.balances[1].Equal(decimal.RequireFromString("100.00")))
	})

	t.Run("operations sum matches balance", func(t *testing.T) {
		sum, err := svc.SumOperations(context.Background(), 1)
		if err != nil {
			t.Fatal(err)
		}
		if !sum.Equal(repo.balances[1]) {
			t.Errorf("operations sum %s does not match balance %s", sum, repo.balances[1])
		}
	})
}

func TestServiceTopUpWithdrawConversion(t *testing.T) {
	repo := newStubLedgerRepo()
	repo.balances[1] = decimal.Zero
	// 1 EUR = 1.25 USD in this stub.
	svc := NewService(repo, &stubExchanger{rate: decimal.RequireFromString("1.25")})

	op, err := svc.TopUp(context.Background(), 1, decimal.RequireFromString("100.00"), "EUR")
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, op.Amount.Equal(decimal.RequireFromString("125.00")),
		"converted top-up amount: %s", op.Amount)
	assert.Equal(t, "top-up", op.Description)

	op, err = svc.Withdraw(context.Background(), 1, decimal.RequireFromString("40.00"), "EUR")
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, op.Amount.Equal(decimal.RequireFromString("-50.00")),
		"converted withdrawal amount: %s", op.Amount)

	t.Run("canonical currency skips conversion", func(t *testing.T) {
		op, err := svc.TopUp(context.Background(), 1, decimal.RequireFromString("10.00"), "")
		if err != nil {
			t.Fatal(err)
		}
		assert.True(t, op.Amount.Equal(decimal.RequireFromString("10.00")))
	})

	t.Run("conversion failure aborts", func(t *testing.T) {
		svc := NewService(repo, &stubExchanger{err: errors.New("no rate")})
		_, err := svc.TopUp(context.Background(), 1, decimal.RequireFromString("10.00"), "XTS")
		if err == nil {
			t.Error("expected conversion error")
		}
	})
}

func setupLedgerHandler() (*Handler, *stubLedgerRepo) {
	repo := newStubLedgerRepo()
	repo.balances[1] = decimal.RequireFromString("100.00")
	svc := NewService(repo, &stubExchanger{rate: decimal.NewFromInt(1)})
	return NewHandler(svc), repo
}

func authed(req *http.Request) *http.Request {
	return req.WithContext(middleware.ContextWithUserID(req.Context(), 1))
}

func TestLedgerHandlerWithdraw(t *testing.T) {
	handler, _ := setupLedgerHandler()

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"Valid withdrawal", `{"amount":"50.00"}`, http.StatusOK},
		{"Insufficient funds", `{"amount":"500.00"}`, http.StatusPaymentRequired},
		{"Negative amount", `{"amount":"-10"}`, http.StatusBadRequest},
		{"Invalid JSON", `{"amount":}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		req := authed(httptest.NewRequest(http.MethodPost, "/balance/withdraw", strings.NewReader(tt.body)))
		rec := httptest.NewRecorder()

		handler.Withdraw(rec, req)
		res := rec.Result()
		defer res.Body.Close()

		if res.StatusCode != tt.wantStatus {
			t.Errorf("%s: got status %d, want %d", tt.name, res.StatusCode, tt.wantStatus)
		}
	}
}

func TestLedgerHandlerUnknownCurrency(t *testing.T) {
	repo := newStubLedgerRepo()
	repo.balances[1] = decimal.RequireFromString("100.00")
	svc := NewService(repo, &stubExchanger{
		err: fmt.Errorf("rate for XTS: %w", currency.ErrUnknownCurrency),
	})
	handler := NewHandler(svc)

	for _, path := range []string{"/balance/topup", "/balance/withdraw"} {
		body := strings.NewReader(`{"amount":"10.00","currency":"XTS"}`)
		req := authed(httptest.NewRequest(http.MethodPost, path, body))
		rec := httptest.NewRecorder()

		if path == "/balance/topup" {
			handler.TopUp(rec, req)
		} else {
			handler.Withdraw(rec, req)
		}
		res := rec.Result()
		defer res.Body.Close()

		if res.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: got status %d, want %d", path, res.StatusCode, http.StatusBadRequest)
		}
	}
}

func TestLedgerHandlerGetBalance(t *testing.T) {
	handler, _ := setupLedgerHandler()

	req := authed(httptest.NewRequest(http.MethodGet, "/balance", nil))
	rec := httptest.NewRecorder()

	handler.GetBalance(rec, req)
	res := rec.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want %d", res.StatusCode, http.StatusOK)
	}
	assert.Contains(t, rec.Body.String(), "100")
}

func TestLedgerHandlerListOperations(t *testing.T) {
	handler, repo := setupLedgerHandler()

	t.Run("no operations", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodGet, "/operations", nil))
		rec := httptest.NewRecorder()

		handler.ListOperations(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusNoContent)
		}
	})

	t.Run("with operations", func(t *testing.T) {
		userID := int64(1)
		repo.ops = append(repo.ops, ledger.Operation{ID: 1, UserID: &userID, Amount: decimal.NewFromInt(10)})

		req := authed(httptest.NewRequest(http.MethodGet, "/operations", nil))
		rec := httptest.NewRecorder()

		handler.ListOperations(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusOK)
		}
	})
}
