package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	currencysvc "github.com/antonminaichev/gomarket/internal/currency"
	"github.com/antonminaichev/gomarket/internal/types/currency"
)

func (s *PostgresStorage) Currencies(ctx context.Context) ([]currency.Currency, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, sym, rate FROM currencies ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []currency.Currency
	for rows.Next() {
		var c currency.Currency
		if err := rows.Scan(&c.Code, &c.Sym, &c.Rate); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStorage) CurrencyByCode(ctx context.Context, code string) (*currency.Currency, error) {
	c := &currency.Currency{}
	err := s.db.QueryRowContext(ctx,
		`SELECT code, sym, rate FROM currencies WHERE code = $1`, code).
		Scan(&c.Code, &c.Sym, &c.Rate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, currencysvc.ErrUnknownCurrency
		}
		return nil, err
	}
	return c, nil
}

func (s *PostgresStorage) UpsertCurrency(ctx context.Context, c *currency.Currency) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO currencies (code, sym, rate) VALUES ($1, $2, $3)
        ON CONFLICT (code) DO UPDATE
        SET sym  = COALESCE(NULLIF(EXCLUDED.sym, ''), currencies.sym),
            rate = EXCLUDED.rate`,
		c.Code, c.Sym, c.Rate)
	return err
}

// UpdateRates applies a fetched rate set in one transaction. The
// canonical currency keeps rate 1; unknown codes are ignored.
func (s *PostgresStorage) UpdateRates(ctx context.Context, rates map[string]decimal.Decimal) error {
	return s.inOwnTx(ctx, func(tx *sql.Tx) error {
		for code, rate := range rates {
			if code == currency.DefaultCode || !rate.IsPositive() {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE currencies SET rate = $1 WHERE code = $2`, rate, code); err != nil {
				return err
			}
		}
		return nil
	})
}
