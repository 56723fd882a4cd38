package router

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/antonminaichev/gomarket/internal/cart"
	"github.com/antonminaichev/gomarket/internal/coupon"
	"github.com/antonminaichev/gomarket/internal/inventory"
	"github.com/antonminaichev/gomarket/internal/ledger"
	"github.com/antonminaichev/gomarket/internal/logger"
	"github.com/antonminaichev/gomarket/internal/middleware"
	"github.com/antonminaichev/gomarket/internal/order"
	"github.com/antonminaichev/gomarket/internal/purchase"
	"github.com/antonminaichev/gomarket/internal/user"
)

func NewRouter(
	userH *user.Handler,
	ledgerH *ledger.Handler,
	cartH *cart.Handler,
	orderH *order.Handler,
	purchaseH *purchase.Handler,
	inventoryH *inventory.Handler,
	couponH *coupon.Handler,
	jwtSecret []byte,
	userRepo user.UserRepository,
) chi.Router {
	r := chi.NewRouter()

	r.Use(logger.WithLogging)
	r.Use(chiMiddleware.Recoverer)

	r.Use(middleware.GzipHandler)

	r.Post("/api/user/register", userH.Register)
	r.Post("/api/user/login", userH.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTMiddleware(jwtSecret, userRepo))

		r.Get("/api/user/balance", ledgerH.GetBalance)
		r.Post("/api/user/balance/topup", ledgerH.TopUp)
		r.Post("/api/user/balance/withdraw", ledgerH.Withdraw)
		r.Get("/api/user/operations", ledgerH.ListOperations)

		r.Mount("/api/cart", cartH.Routes())
		r.Mount("/api/market", inventoryH.Routes())
		r.Mount("/api/coupon", couponH.Routes())

		// Order reads and order mutations live side by side: the
		// purchase handler owns prepare/settle/cancel, the order
		// handler owns reads and shipping.
		r.Get("/api/orders", orderH.ListOrders)
		r.Get("/api/orders/{id}", orderH.GetOrder)
		r.Post("/api/order-items/{id}/ship", orderH.MarkShipped)
		r.Post("/api/orders", purchaseH.PrepareOrder)
		r.Post("/api/orders/{id}/payment", purchaseH.MakePurchase)
		r.Delete("/api/orders/{id}", purchaseH.CancelOrder)
	})

	return r
}
