package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// DecimalPlaces is the precision of the canonical currency's minor units.
const DecimalPlaces = 2

var ErrNegativeAmount = errors.New("amount must be zero or greater")

// Round quantizes an amount to currency precision.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(DecimalPlaces)
}

// ValidateAmount rejects negative amounts before they reach the ledger.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}
