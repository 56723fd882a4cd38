package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/antonminaichev/gomarket/internal/cart"
	"github.com/antonminaichev/gomarket/internal/coupon"
	"github.com/antonminaichev/gomarket/internal/currency"
	"github.com/antonminaichev/gomarket/internal/inventory"
	"github.com/antonminaichev/gomarket/internal/ledger"
	"github.com/antonminaichev/gomarket/internal/logger"
	"github.com/antonminaichev/gomarket/internal/order"
	"github.com/antonminaichev/gomarket/internal/purchase"
	"github.com/antonminaichev/gomarket/internal/router"
	storage "github.com/antonminaichev/gomarket/internal/storage/postgres"
	"github.com/antonminaichev/gomarket/internal/user"
)

func main() {
	if err := run(); err != nil {
		panic(err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := NewConfig()
	if err != nil {
		log.Fatal(err)
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewPostgresStorage(cfg.DatabaseConnection)
	if err != nil {
		log.Fatalf("Failed to initialize Postgres storage: %v", err)
	}
	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	defer cancelPing()
	if err := store.Ping(pingCtx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Warning: failed to close storage: %v", err)
		}
	}()

	currencySvc := currency.NewService(store)

	userSvc := user.NewService(store, store, []byte(cfg.JWTSecret), cfg.JWTTTL)
	userHandler := user.NewHandler(userSvc)

	ledgerSvc := ledger.NewService(store, currencySvc)
	ledgerHandler := ledger.NewHandler(ledgerSvc)

	inventorySvc := inventory.NewService(store, currencySvc)
	inventoryHandler := inventory.NewHandler(inventorySvc)

	cartSvc := cart.NewService(store)
	cartHandler := cart.NewHandler(cartSvc)

	couponSvc := coupon.NewService(store)
	couponHandler := coupon.NewHandler(couponSvc)

	orderSvc := order.NewService(store)
	orderHandler := order.NewHandler(orderSvc)

	purchaseSvc := purchase.NewService(store, cartSvc)
	purchaseHandler := purchase.NewHandler(purchaseSvc)

	r := router.NewRouter(userHandler, ledgerHandler, cartHandler, orderHandler,
		purchaseHandler, inventoryHandler, couponHandler, []byte(cfg.JWTSecret), store)

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	rateClient := &currency.HTTPRateClient{
		Client:  &http.Client{Timeout: 10 * time.Second},
		RateURL: cfg.RatesURL,
	}
	seedCtx, cancelSeed := context.WithTimeout(ctx, 15*time.Second)
	if err := currency.Seed(seedCtx, rateClient, currencySvc, cfg.Codes()); err != nil {
		log.Printf("Warning: currency seeding incomplete: %v", err)
	}
	cancelSeed()

	go currency.UpdateLoop(ctx, rateClient, currencySvc, cfg.Codes(), cfg.RatesInterval)

	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
	return nil
}
