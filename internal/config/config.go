package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port          string
	StorageDriver string
	DatabaseURL   string
	JWTSecret     string
	JWTIssuer     string
	JWTTTL        time.Duration
	CORSOrigins   []string

	PriceAPIURL        string
	PriceAPIKey        string
	PriceCacheTTL      time.Duration
	PriceTimeout       time.Duration
	SettlementCurrency string

	PageSize int
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:               fallback(os.Getenv("PORT"), "8080"),
		StorageDriver:      strings.ToLower(fallback(os.Getenv("STORAGE_DRIVER"), DriverPostgres)),
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:          strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:          fallback(os.Getenv("JWT_ISSUER"), "coinfolio-backend"),
		CORSOrigins:        parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		PriceAPIURL:        strings.TrimRight(fallback(os.Getenv("COINGECKO_API_URL"), "https://api.coingecko.com/api/v3"), "/"),
		PriceAPIKey:        strings.TrimSpace(os.Getenv("COINGECKO_API_KEY")),
		SettlementCurrency: strings.ToLower(fallback(os.Getenv("SETTLEMENT_CURRENCY"), "usd")),
	}

	cfg.JWTTTL = time.Duration(positiveInt(os.Getenv("JWT_TTL_MINUTES"), 60)) * time.Minute
	cfg.PriceCacheTTL = time.Duration(positiveInt(os.Getenv("PRICE_CACHE_TTL_SECONDS"), 300)) * time.Second
	cfg.PriceTimeout = time.Duration(positiveInt(os.Getenv("PRICE_TIMEOUT_SECONDS"), 10)) * time.Second
	cfg.PageSize = positiveInt(os.Getenv("PAGE_SIZE"), 10)

	switch cfg.StorageDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required")
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if money.GetCurrency(strings.ToUpper(cfg.SettlementCurrency)) == nil {
		return Config{}, fmt.Errorf("unknown SETTLEMENT_CURRENCY %q", cfg.SettlementCurrency)
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

// positiveInt parses value as a positive integer, returning def when it is missing or invalid.
func positiveInt(value string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
		return n
	}
	return def
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
