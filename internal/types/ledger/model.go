package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is a user's spendable amount in the canonical currency.
// Invariant: Amount equals the sum of all operations of the user.
type Balance struct {
	UserID int64           `db:"user_id" json:"-"`
	Amount decimal.Decimal `db:"amount" json:"current"`
}

// Operation is an immutable ledger entry. Positive amount is a credit,
// negative is a debit. UserID is kept nullable so entries survive the
// deletion of their owner for audit purposes.
type Operation struct {
	ID              int64           `db:"id" json:"id"`
	UserID          *int64          `db:"user_id" json:"-"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	Description     string          `db:"description" json:"description,omitempty"`
	TransactionTime time.Time       `db:"transaction_time" json:"processed_at"`
}

type TopUpRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency,omitempty"`
}

type WithdrawRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency,omitempty"`
}
