package server

import (
	"context"
	"net/http"
	"time"

	"github.com/hongminglow/coinfolio-be/internal/auth"
	"github.com/hongminglow/coinfolio-be/internal/config"
	"github.com/hongminglow/coinfolio-be/internal/http/handlers"
	"github.com/hongminglow/coinfolio-be/internal/ledger"
	"github.com/hongminglow/coinfolio-be/internal/middleware"
	"github.com/hongminglow/coinfolio-be/internal/pricing"
	"github.com/hongminglow/coinfolio-be/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// NewHandler builds the routed, middleware-wrapped HTTP handler.
func NewHandler(cfg config.Config, store storage.Store, oracle pricing.Oracle) http.Handler {
	mux := http.NewServeMux()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	protect := func(next http.Handler) http.Handler {
		return middleware.RequireAuth(tokens, store, next)
	}
	ledgerSvc := ledger.NewService(store, oracle, cfg.SettlementCurrency, cfg.PriceTimeout)

	handlers.NewHealthHandler(time.Now()).Register(mux)
	handlers.NewAuthHandler(store, store, tokens).Register(mux, protect)
	handlers.NewProfileHandler(store).Register(mux, protect)
	handlers.NewPortfolioHandler(store).Register(mux, protect)
	handlers.NewAssetHandler(store, ledgerSvc, cfg.PageSize).Register(mux, protect)
	handlers.NewTransactionHandler(store, ledgerSvc, cfg.PageSize).Register(mux, protect)
	handlers.NewPriceHandler(oracle, cfg.SettlementCurrency).Register(mux, protect)

	return middleware.CORS(cfg.CORSOrigins, middleware.Logging(mux))
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, store storage.Store, oracle pricing.Oracle) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           NewHandler(cfg, store, oracle),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10*time.Second + cfg.PriceTimeout,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
