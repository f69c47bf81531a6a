package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/aegistech/base-markets/internal/domain"
)

// BalanceCache implements domain.BalanceCache as one JSON string per address
// with a short TTL.
type BalanceCache struct {
	c   *Client
	ttl time.Duration
}

var _ domain.BalanceCache = (*BalanceCache)(nil)

// NewBalanceCache creates a BalanceCache. A non-positive ttl means 15s.
func NewBalanceCache(c *Client, ttl time.Duration) *BalanceCache {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &BalanceCache{c: c, ttl: ttl}
}

func (bc *BalanceCache) key(addr common.Address) string {
	return bc.c.Key("balance", strings.ToLower(addr.Hex()))
}

func (bc *BalanceCache) Get(ctx context.Context, addr common.Address) (domain.Balances, error) {
	data, err := bc.c.rdb.Get(ctx, bc.key(addr)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Balances{}, domain.ErrNotFound
		}
		return domain.Balances{}, fmt.Errorf("redis: get balance %s: %w", addr.Hex(), err)
	}
	var b domain.Balances
	if err := json.Unmarshal(data, &b); err != nil {
		return domain.Balances{}, fmt.Errorf("redis: unmarshal balance %s: %w", addr.Hex(), err)
	}
	return b, nil
}

func (bc *BalanceCache) Set(ctx context.Context, b domain.Balances) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("redis: marshal balance %s: %w", b.Address.Hex(), err)
	}
	if err := bc.c.rdb.Set(ctx, bc.key(b.Address), data, bc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set balance %s: %w", b.Address.Hex(), err)
	}
	return nil
}

func (bc *BalanceCache) Invalidate(ctx context.Context, addr common.Address) error {
	if err := bc.c.rdb.Del(ctx, bc.key(addr)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate balance %s: %w", addr.Hex(), err)
	}
	return nil
}
