package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hongminglow/coinfolio-be/internal/config"
	"github.com/hongminglow/coinfolio-be/internal/log"
	"github.com/hongminglow/coinfolio-be/internal/pricing"
	"github.com/hongminglow/coinfolio-be/internal/server"
	"github.com/hongminglow/coinfolio-be/internal/storage"
	"github.com/hongminglow/coinfolio-be/internal/storage/memory"
	"github.com/hongminglow/coinfolio-be/internal/storage/postgres"
)

func main() {
	loadLocalEnv()
	log.EnableDebug(os.Getenv("DEBUG") == "true")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}
	defer store.Close()

	prices := pricing.NewCache(
		pricing.NewCoinGecko(cfg.PriceAPIURL, cfg.PriceAPIKey, cfg.PriceTimeout),
		cfg.PriceCacheTTL,
	)
	go purgePrices(ctx, prices, cfg.PriceCacheTTL)

	srv := server.New(cfg, store, prices)

	go func() {
		log.Infof("coinfolio backend listening on %s (storage=%s)", cfg.HTTPAddress(), cfg.StorageDriver)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Errorf("graceful shutdown error: %v", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if cfg.StorageDriver == config.DriverMemory {
		log.Warn("using in-memory storage; data is lost on restart")
		return memory.New(), nil
	}
	return postgres.New(ctx, cfg.DatabaseURL)
}

func purgePrices(ctx context.Context, cache *pricing.Cache, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cache.Purge()
		}
	}
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found; relying on existing environment")
	}
}
