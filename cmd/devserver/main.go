package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/stubserver"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	stub := stubserver.NewServer(cfg.DevJWTSecret, cfg.DevAccessTTL)
	seedFixtures(stub)

	httpServer := &http.Server{
		Addr:         cfg.DevListenAddr,
		Handler:      stub.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("storefront devserver listening on %s", cfg.DevListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func seedFixtures(stub *stubserver.Server) {
	stub.SeedUser("Dev", "Admin", "admin@storefront.local", "admin", domain.RoleAdmin)
	stub.SeedUser("Dev", "User", "user@storefront.local", "user", domain.RoleUser)

	stub.SeedMenuItem(domain.MenuItem{Name: "Masala Dosa", Price: 120, Stock: 20, Category: "south-indian", Availability: true, PreparationTime: 15})
	stub.SeedMenuItem(domain.MenuItem{Name: "Idli Sambar", Price: 60, Stock: 30, Category: "south-indian", Availability: true, PreparationTime: 10})
	stub.SeedMenuItem(domain.MenuItem{Name: "Filter Coffee", Price: 40, Stock: 50, Category: "beverages", Availability: true, PreparationTime: 5})
	stub.SeedMenuItem(domain.MenuItem{Name: "Thali", Price: 250, Stock: 0, Category: "meals", Availability: false, PreparationTime: 25})
}
