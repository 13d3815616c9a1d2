// shopd runs the reference storefront backend: auth, catalog, and order
// acceptance with atomic stock decrements. It exists for local development
// and demos; production deployments point the client at the real API.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voltworks/storefront/internal/backend"
	"github.com/voltworks/storefront/internal/backend/auth"
	"github.com/voltworks/storefront/internal/catalog"
	"github.com/voltworks/storefront/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Shopd] Failed to load configuration: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("[Shopd] JWT_SECRET environment variable is required")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[Shopd] JWT_SECRET must be at least 32 characters long")
	}

	store := backend.NewStore()
	seedCatalog(store)

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.UserSessionTTL, cfg.AdminSessionTTL)

	var opts []backend.Option
	if len(cfg.KafkaBrokers) > 0 {
		publisher := backend.NewEventPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		opts = append(opts, backend.WithEventPublisher(publisher))
		log.Printf("[Shopd] Publishing order events to %v topic %s", cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	if cfg.DatabaseURL != "" {
		orderLog, err := backend.ConnectOrderLog(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("[Shopd] Failed to connect order log: %v", err)
		}
		defer orderLog.Close()
		opts = append(opts, backend.WithOrderLog(orderLog))
		log.Println("[Shopd] Mirroring orders to PostgreSQL")
	}

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: backend.NewServer(store, tokens, opts...).Handler(),
	}

	go func() {
		log.Printf("[Shopd] Storefront backend listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[Shopd] Server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[Shopd] Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Shopd] Shutdown error: %v", err)
	}
}

// seedCatalog loads a small electrical-supplies catalog so a fresh shopd is
// browsable immediately.
func seedCatalog(store *backend.Store) {
	wiring := catalog.Category{ID: 1, Name: "Wiring Accessories", Slug: "wiring-accessories"}
	protection := catalog.Category{ID: 2, Name: "Circuit Protection", Slug: "circuit-protection"}
	store.SeedCategory(wiring)
	store.SeedCategory(protection)

	store.SeedProduct(catalog.Product{
		ID: 1, Name: "Twin Socket Outlet", Slug: "twin-socket-outlet",
		Description: "13A twin switched socket, white moulded",
		Price:       500, Stock: 40, IsActive: true, Category: &wiring,
	})
	store.SeedProduct(catalog.Product{
		ID: 2, Name: "Consumer Unit 8-Way", Slug: "consumer-unit-8-way",
		Description: "8-way dual RCD consumer unit",
		Price:       1200, Stock: 12, IsActive: true, Category: &protection,
	})
	store.SeedProduct(catalog.Product{
		ID: 3, Name: "MCB 16A Type B", Slug: "mcb-16a-type-b",
		Description: "Single pole miniature circuit breaker",
		Price:       450, Stock: 60, IsActive: true, Category: &protection,
	})
	store.SeedProduct(catalog.Product{
		ID: 4, Name: "Armoured Cable 10m", Slug: "armoured-cable-10m",
		Description: "2.5mm 3-core SWA cable, 10 metre cut",
		Price:       2500, Stock: 0, IsActive: true, Category: &wiring,
	})
}
