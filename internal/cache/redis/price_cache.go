package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aegistech/base-markets/internal/domain"
)

const priceTTL = 10 * time.Minute

// PriceCache implements domain.PriceCache as a single JSON snapshot of the
// ticker, replaced on every refresh.
type PriceCache struct {
	c *Client
}

var _ domain.PriceCache = (*PriceCache)(nil)

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{c: c}
}

func (pc *PriceCache) SetPrices(ctx context.Context, prices []domain.CoinPrice) error {
	data, err := json.Marshal(prices)
	if err != nil {
		return fmt.Errorf("redis: marshal prices: %w", err)
	}
	if err := pc.c.rdb.Set(ctx, pc.c.Key("ticker"), data, priceTTL).Err(); err != nil {
		return fmt.Errorf("redis: set prices: %w", err)
	}
	return nil
}

// GetPrices returns domain.ErrNotFound when no snapshot is cached.
func (pc *PriceCache) GetPrices(ctx context.Context) ([]domain.CoinPrice, error) {
	data, err := pc.c.rdb.Get(ctx, pc.c.Key("ticker")).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get prices: %w", err)
	}
	var prices []domain.CoinPrice
	if err := json.Unmarshal(data, &prices); err != nil {
		return nil, fmt.Errorf("redis: unmarshal prices: %w", err)
	}
	return prices, nil
}
