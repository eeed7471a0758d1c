package autosell

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"autosell-worker/internal/pkg/log_messages"
	"autosell-worker/internal/pkg/logger"
	"autosell-worker/internal/pkg/metrics"
	"autosell-worker/internal/service/interfaces"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	errNoPairs          = errors.New("no trading pairs")
	errNonPositivePrice = errors.New("non-positive price")
)

type priceEntry struct {
	price     decimal.Decimal
	updatedAt time.Time
}

// PriceCache holds the latest USD price per collateral token. A token whose
// lookup fails keeps its previous entry; callers gate on age via Lookup.
type PriceCache struct {
	quotes        interfaces.QuoteProvider
	metrics       *metrics.Metrics
	lookupTimeout time.Duration
	now           func() time.Time

	mu     sync.RWMutex
	prices map[string]priceEntry
}

func NewPriceCache(quotes interfaces.QuoteProvider, lookupTimeout time.Duration, m *metrics.Metrics) *PriceCache {
	return &PriceCache{
		quotes:        quotes,
		metrics:       m,
		lookupTimeout: lookupTimeout,
		now:           time.Now,
		prices:        make(map[string]priceEntry),
	}
}

func tokenKey(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}

// Refresh looks up every token in turn. Failures are isolated per token.
func (c *PriceCache) Refresh(ctx context.Context, tokens []string) {
	for _, token := range tokens {
		if ctx.Err() != nil {
			return
		}

		price, err := c.fetch(ctx, token)
		if err != nil {
			c.metrics.PriceLookupFailures.Inc()
			if errors.Is(err, errNoPairs) {
				logger.CtxWarn(ctx, log_messages.PriceLookupNoPairs, zap.String("token", token))
			} else {
				logger.CtxError(ctx, log_messages.PriceLookupFailed, err, zap.String("token", token))
			}
			continue
		}

		c.mu.Lock()
		c.prices[tokenKey(token)] = priceEntry{price: price, updatedAt: c.now()}
		c.mu.Unlock()
	}
}

func (c *PriceCache) fetch(ctx context.Context, token string) (decimal.Decimal, error) {
	if c.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.lookupTimeout)
		defer cancel()
	}

	pairs, err := c.quotes.GetPairs(ctx, token)
	if err != nil {
		return decimal.Zero, err
	}
	if len(pairs) == 0 {
		return decimal.Zero, errNoPairs
	}

	price, err := decimal.NewFromString(strings.TrimSpace(pairs[0].PriceUSD))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", log_messages.PriceParseFailed, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, errNonPositivePrice
	}
	return price, nil
}

// Lookup returns the cached price if it is no older than maxAge at now.
// A zero maxAge disables the age check.
func (c *PriceCache) Lookup(token string, now time.Time, maxAge time.Duration) (decimal.Decimal, bool) {
	c.mu.RLock()
	entry, ok := c.prices[tokenKey(token)]
	c.mu.RUnlock()
	if !ok {
		return decimal.Zero, false
	}
	if maxAge > 0 && now.Sub(entry.updatedAt) > maxAge {
		return decimal.Zero, false
	}
	return entry.price, true
}

// Snapshot returns every cached price as a decimal string.
func (c *PriceCache) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(c.prices))
	for token, entry := range c.prices {
		out[token] = entry.price.String()
	}
	return out
}
