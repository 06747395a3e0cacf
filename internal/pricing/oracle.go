// Package pricing looks up live unit prices for coins.
package pricing

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrPriceUnavailable covers upstream failures, timeouts, and unknown coins.
var ErrPriceUnavailable = errors.New("price unavailable")

// Oracle returns the current unit price of a coin in a fiat currency.
type Oracle interface {
	Price(ctx context.Context, coinID, currency string) (decimal.Decimal, error)
}

// Quote is the outcome of a single lookup in a caller-friendly shape.
type Quote struct {
	CoinID   string           `json:"coin_id"`
	Currency string           `json:"currency"`
	Success  bool             `json:"success"`
	Price    *decimal.Decimal `json:"price"`
	Display  string           `json:"display,omitempty"`
	Message  string           `json:"message,omitempty"`
}

// Lookup queries oracle and folds the result into a Quote. It never returns an error.
func Lookup(ctx context.Context, oracle Oracle, coinID, currency string) Quote {
	q := Quote{CoinID: normalize(coinID), Currency: normalize(currency)}
	price, err := oracle.Price(ctx, q.CoinID, q.Currency)
	if err != nil {
		q.Message = err.Error()
		return q
	}
	q.Success = true
	q.Price = &price
	q.Display = Display(price, q.Currency)
	return q
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
