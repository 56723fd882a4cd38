package currency

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/antonminaichev/gomarket/internal/types/currency"
)

// Repository is the storage contract for currency rates. Rates are
// expressed relative to the canonical currency, whose rate is 1.
type Repository interface {
	Currencies(ctx context.Context) ([]currency.Currency, error)
	CurrencyByCode(ctx context.Context, code string) (*currency.Currency, error)
	UpsertCurrency(ctx context.Context, c *currency.Currency) error
	UpdateRates(ctx context.Context, rates map[string]decimal.Decimal) error
}
