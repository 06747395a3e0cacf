package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/hongminglow/coinfolio-be/internal/pricing"
)

type priceCmd struct {
	apiURL   string
	apiKey   string
	currency string
	timeout  time.Duration
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "look up the live price of one or more coins" }
func (*priceCmd) Usage() string {
	return `portfolioctl price [-currency usd] <coin_id>...

  Queries the price oracle and prints one JSON quote per coin.
`
}

func (c *priceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.apiURL, "api", envOr("COINGECKO_API_URL", "https://api.coingecko.com/api/v3"), "Price API base URL.")
	f.StringVar(&c.apiKey, "key", os.Getenv("COINGECKO_API_KEY"), "Price API key.")
	f.StringVar(&c.currency, "currency", envOr("SETTLEMENT_CURRENCY", "usd"), "Quote currency.")
	f.DurationVar(&c.timeout, "timeout", 10*time.Second, "Per-request timeout.")
}

func (c *priceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "at least one coin id is required")
		return subcommands.ExitUsageError
	}
	oracle := pricing.NewCoinGecko(c.apiURL, c.apiKey, c.timeout)
	enc := json.NewEncoder(os.Stdout)
	status := subcommands.ExitSuccess
	for _, coin := range f.Args() {
		quote := pricing.Lookup(ctx, oracle, coin, c.currency)
		if !quote.Success {
			status = subcommands.ExitFailure
		}
		if err := enc.Encode(quote); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
	}
	return status
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
