package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/aegistech/base-markets/internal/catalog"
	"github.com/aegistech/base-markets/internal/domain"
)

// PriceSource fetches a fresh price snapshot.
type PriceSource interface {
	Markets(ctx context.Context, ids []string) ([]domain.CoinPrice, error)
}

// Ticker polls a PriceSource and keeps the latest snapshot in memory, in the
// price cache and on the ticker bus channel. Any fetch failure swaps in the
// catalog fallback prices.
type Ticker struct {
	source   PriceSource
	ids      []string
	cache    domain.PriceCache // optional
	bus      domain.SignalBus  // optional
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	latest   []domain.CoinPrice
	fallback bool
}

// NewTicker creates a Ticker. cache and bus may be nil.
func NewTicker(source PriceSource, ids []string, cache domain.PriceCache, bus domain.SignalBus, interval time.Duration, logger *slog.Logger) *Ticker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Ticker{
		source:   source,
		ids:      ids,
		cache:    cache,
		bus:      bus,
		interval: interval,
		logger:   logger.With(slog.String("component", "ticker")),
		now:      time.Now,
	}
}

// Run refreshes once immediately and then every interval until ctx ends.
func (t *Ticker) Run(ctx context.Context) error {
	t.Refresh(ctx)

	tick := time.NewTicker(t.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			t.Refresh(ctx)
		}
	}
}

// Refresh fetches prices, falling back to the static set on error, and
// stores and publishes the result.
func (t *Ticker) Refresh(ctx context.Context) []domain.CoinPrice {
	prices, err := t.source.Markets(ctx, t.ids)
	fallback := false
	if err != nil {
		if ctx.Err() != nil {
			return t.Latest(ctx)
		}
		t.logger.WarnContext(ctx, "price fetch failed, using fallback data", slog.String("error", err.Error()))
		prices = catalog.FallbackCoins(t.now().UTC())
		fallback = true
	}

	t.mu.Lock()
	t.latest = prices
	t.fallback = fallback
	t.mu.Unlock()

	if t.cache != nil {
		if err := t.cache.SetPrices(ctx, prices); err != nil {
			t.logger.WarnContext(ctx, "price cache write failed", slog.String("error", err.Error()))
		}
	}
	if t.bus != nil {
		payload, err := json.Marshal(domain.Event{
			Type: domain.EventTicker,
			Data: map[string]any{"coins": prices, "fallback": fallback},
			At:   t.now().UTC(),
		})
		if err == nil {
			if err := t.bus.Publish(ctx, domain.ChannelTicker, payload); err != nil {
				t.logger.WarnContext(ctx, "ticker publish failed", slog.String("error", err.Error()))
			}
		}
	}
	return prices
}

// Latest returns the newest snapshot: memory first, then the shared cache
// (another instance may be polling), then the fallback set.
func (t *Ticker) Latest(ctx context.Context) []domain.CoinPrice {
	t.mu.RLock()
	latest := t.latest
	t.mu.RUnlock()
	if len(latest) > 0 {
		return latest
	}
	if t.cache != nil {
		if prices, err := t.cache.GetPrices(ctx); err == nil && len(prices) > 0 {
			return prices
		}
	}
	return catalog.FallbackCoins(t.now().UTC())
}

// UsingFallback reports whether the last refresh served static prices.
func (t *Ticker) UsingFallback() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.fallback
}
