package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/aegistech/base-markets/internal/domain"
)

// NonceStore implements domain.NonceStore. Take uses GETDEL so a nonce can
// be redeemed once.
type NonceStore struct {
	c *Client
}

var _ domain.NonceStore = (*NonceStore)(nil)

// NewNonceStore creates a NonceStore backed by the given Client.
func NewNonceStore(c *Client) *NonceStore {
	return &NonceStore{c: c}
}

func (ns *NonceStore) key(addr common.Address) string {
	return ns.c.Key("nonce", strings.ToLower(addr.Hex()))
}

func (ns *NonceStore) Put(ctx context.Context, addr common.Address, nonce string, ttl time.Duration) error {
	if err := ns.c.rdb.Set(ctx, ns.key(addr), nonce, ttl).Err(); err != nil {
		return fmt.Errorf("redis: put nonce %s: %w", addr.Hex(), err)
	}
	return nil
}

func (ns *NonceStore) Take(ctx context.Context, addr common.Address) (string, error) {
	v, err := ns.c.rdb.GetDel(ctx, ns.key(addr)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrNonceExpired
		}
		return "", fmt.Errorf("redis: take nonce %s: %w", addr.Hex(), err)
	}
	return v, nil
}
