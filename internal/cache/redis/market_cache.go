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

const marketTTL = 5 * time.Minute

// MarketCache implements domain.MarketCache.
//
// Key schema:
//
//	{prefix}:market:{id}   - JSON of one market
//	{prefix}:markets:all   - JSON array of the whole catalog, in display order
type MarketCache struct {
	c *Client
}

var _ domain.MarketCache = (*MarketCache)(nil)

// NewMarketCache creates a MarketCache backed by the given Client.
func NewMarketCache(c *Client) *MarketCache {
	return &MarketCache{c: c}
}

func (mc *MarketCache) Set(ctx context.Context, market domain.Market) error {
	data, err := json.Marshal(market)
	if err != nil {
		return fmt.Errorf("redis: marshal market %s: %w", market.ID, err)
	}
	if err := mc.c.rdb.Set(ctx, mc.c.Key("market", market.ID), data, marketTTL).Err(); err != nil {
		return fmt.Errorf("redis: set market %s: %w", market.ID, err)
	}
	return nil
}

func (mc *MarketCache) Get(ctx context.Context, id string) (domain.Market, error) {
	var m domain.Market
	if err := mc.getJSON(ctx, mc.c.Key("market", id), &m); err != nil {
		return domain.Market{}, fmt.Errorf("redis: get market %s: %w", id, err)
	}
	return m, nil
}

// SetAll stores the catalog and each market under its own key.
func (mc *MarketCache) SetAll(ctx context.Context, markets []domain.Market) error {
	all, err := json.Marshal(markets)
	if err != nil {
		return fmt.Errorf("redis: marshal markets: %w", err)
	}
	pipe := mc.c.rdb.TxPipeline()
	pipe.Set(ctx, mc.c.Key("markets", "all"), all, marketTTL)
	for _, m := range markets {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("redis: marshal market %s: %w", m.ID, err)
		}
		pipe.Set(ctx, mc.c.Key("market", m.ID), data, marketTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set markets: %w", err)
	}
	return nil
}

func (mc *MarketCache) All(ctx context.Context) ([]domain.Market, error) {
	var markets []domain.Market
	if err := mc.getJSON(ctx, mc.c.Key("markets", "all"), &markets); err != nil {
		return nil, fmt.Errorf("redis: get markets: %w", err)
	}
	return markets, nil
}

// Invalidate drops one market and the catalog list.
func (mc *MarketCache) Invalidate(ctx context.Context, id string) error {
	if err := mc.c.rdb.Del(ctx, mc.c.Key("market", id), mc.c.Key("markets", "all")).Err(); err != nil {
		return fmt.Errorf("redis: invalidate market %s: %w", id, err)
	}
	return nil
}

func (mc *MarketCache) getJSON(ctx context.Context, key string, dst any) error {
	data, err := mc.c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, dst)
}
