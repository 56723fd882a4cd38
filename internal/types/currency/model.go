package currency

import "github.com/shopspring/decimal"

// DefaultCode is the canonical currency every amount is stored in.
// The ledger never sees any other currency; conversion happens at the
// price-entry paths (top-up, withdrawal, product pricing).
const DefaultCode = "USD"

type Currency struct {
	Code string          `db:"code" json:"code"`
	Sym  string          `db:"sym" json:"sym"`
	Rate decimal.Decimal `db:"rate" json:"rate"`
}
