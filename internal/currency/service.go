package currency

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/antonminaichev/gomarket/internal/types/currency"
	"github.com/antonminaichev/gomarket/internal/util/money"
)

var ErrUnknownCurrency = errors.New("unknown currency code")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Exchange converts an amount between two currency codes using the
// stored rates. Pure numeric contract: amount * rate(to) / rate(from),
// rounded to currency precision. Same-code conversion is a passthrough.
func (s *Service) Exchange(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return amount, nil
	}

	fromCur, err := s.repo.CurrencyByCode(ctx, from)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rate for %s: %w", from, err)
	}
	toCur, err := s.repo.CurrencyByCode(ctx, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rate for %s: %w", to, err)
	}
	if fromCur.Rate.IsZero() {
		return decimal.Zero, fmt.Errorf("rate for %s is zero", from)
	}
	if toCur.Rate.IsZero() {
		return decimal.Zero, fmt.Errorf("rate for %s is zero", to)
	}

	rate := toCur.Rate.Div(fromCur.Rate)
	return money.Round(amount.Mul(rate)), nil
}

func (s *Service) Currencies(ctx context.Context) ([]currency.Currency, error) {
	return s.repo.Currencies(ctx)
}

// Track ensures a stored row exists for every listed code. Rows that
// already exist are left alone, keeping their symbol and last known
// rate. A freshly added code starts without a usable rate and stays
// rejected on entry paths until a refresh supplies one.
func (s *Service) Track(ctx context.Context, codes []string) error {
	for _, code := range codes {
		code = strings.ToUpper(code)
		_, err := s.repo.CurrencyByCode(ctx, code)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrUnknownCurrency) {
			return err
		}
		c := &currency.Currency{Code: code}
		if code == currency.DefaultCode {
			c.Sym = "$"
			c.Rate = decimal.NewFromInt(1)
		}
		if err := s.repo.UpsertCurrency(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// UpdateRates stores freshly fetched rates. The canonical currency
// keeps rate 1, and non-positive rates never overwrite a stored one.
func (s *Service) UpdateRates(ctx context.Context, rates map[string]decimal.Decimal) error {
	filtered := make(map[string]decimal.Decimal, len(rates))
	for code, rate := range rates {
		code = strings.ToUpper(code)
		if code == currency.DefaultCode || !rate.IsPositive() {
			continue
		}
		filtered[code] = rate
	}
	if len(filtered) == 0 {
		return nil
	}
	return s.repo.UpdateRates(ctx, filtered)
}
