package storage

import (
	"context"

	"github.com/antonminaichev/gomarket/internal/cart"
	"github.com/antonminaichev/gomarket/internal/coupon"
	"github.com/antonminaichev/gomarket/internal/currency"
	"github.com/antonminaichev/gomarket/internal/inventory"
	"github.com/antonminaichev/gomarket/internal/ledger"
	"github.com/antonminaichev/gomarket/internal/order"
	"github.com/antonminaichev/gomarket/internal/purchase"
	"github.com/antonminaichev/gomarket/internal/user"
)

// Storage unites every repository the services consume. A single
// Postgres implementation backs all of them so the purchase
// orchestrator can run multi-repository steps in one transaction.
type Storage interface {
	user.UserRepository
	user.AccountProvisioner
	ledger.Repository
	inventory.Repository
	cart.Repository
	coupon.Repository
	order.Repository
	currency.Repository
	purchase.Repository

	Ping(ctx context.Context) error
	Close() error
}
