package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type cacheKey struct {
	coinID   string
	currency string
}

type cachedPrice struct {
	price   decimal.Decimal
	fetched time.Time
}

// Cache memoises successful lookups of an Oracle for a fixed window.
// Failures are never cached. The cache is best effort and not needed for correctness.
type Cache struct {
	next Oracle
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[cacheKey]cachedPrice
}

// NewCache wraps next with a TTL cache keyed by (coin, currency).
func NewCache(next Oracle, ttl time.Duration) *Cache {
	return &Cache{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[cacheKey]cachedPrice),
	}
}

// Price implements Oracle.
func (c *Cache) Price(ctx context.Context, coinID, currency string) (decimal.Decimal, error) {
	key := cacheKey{coinID: normalize(coinID), currency: normalize(currency)}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Sub(entry.fetched) < c.ttl {
		return entry.price, nil
	}

	price, err := c.next.Price(ctx, key.coinID, key.currency)
	if err != nil {
		return decimal.Zero, err
	}

	c.mu.Lock()
	c.entries[key] = cachedPrice{price: price, fetched: c.now()}
	c.mu.Unlock()
	return price, nil
}

// Purge drops expired entries.
func (c *Cache) Purge() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if now.Sub(entry.fetched) >= c.ttl {
			delete(c.entries, key)
		}
	}
}
