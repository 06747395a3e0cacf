package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/hongminglow/coinfolio-be/internal/log"
)

// CoinGecko queries the CoinGecko simple price endpoint.
type CoinGecko struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewCoinGecko builds a client for baseURL (e.g. https://api.coingecko.com/api/v3).
// An empty apiKey sends unauthenticated requests.
func NewCoinGecko(baseURL, apiKey string, timeout time.Duration) *CoinGecko {
	return &CoinGecko{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Price implements Oracle.
func (c *CoinGecko) Price(ctx context.Context, coinID, currency string) (decimal.Decimal, error) {
	coinID, currency = normalize(coinID), normalize(currency)
	if coinID == "" || currency == "" {
		return decimal.Zero, errors.Wrap(ErrPriceUnavailable, "coin id and currency are required")
	}

	q := url.Values{}
	q.Set("ids", coinID)
	q.Set("vs_currencies", currency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, errors.Wrap(ErrPriceUnavailable, err.Error())
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Warnf("coingecko: request for %s/%s failed: %v", coinID, currency, err)
		return decimal.Zero, errors.Wrap(ErrPriceUnavailable, "upstream request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warnf("coingecko: %s/%s returned %s", coinID, currency, resp.Status)
		return decimal.Zero, errors.Wrapf(ErrPriceUnavailable, "upstream returned %d", resp.StatusCode)
	}

	var body map[string]map[string]json.Number
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return decimal.Zero, errors.Wrap(ErrPriceUnavailable, "malformed upstream response")
	}

	prices, ok := body[coinID]
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrPriceUnavailable, "coin id %s not found", coinID)
	}
	raw, ok := prices[currency]
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrPriceUnavailable, "no %s price for %s", currency, coinID)
	}
	price, err := decimal.NewFromString(raw.String())
	if err != nil || !price.IsPositive() {
		return decimal.Zero, errors.Wrapf(ErrPriceUnavailable, "invalid price %q for %s", raw, coinID)
	}
	return price, nil
}
