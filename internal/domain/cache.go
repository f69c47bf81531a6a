package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// BalanceCache holds recently queried balances. Entries are invalidated after
// every action on the address.
type BalanceCache interface {
	Get(ctx context.Context, addr common.Address) (Balances, error)
	Set(ctx context.Context, b Balances) error
	Invalidate(ctx context.Context, addr common.Address) error
}

// MarketCache provides fast market metadata lookups.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	Get(ctx context.Context, id string) (Market, error)
	SetAll(ctx context.Context, markets []Market) error
	All(ctx context.Context) ([]Market, error)
	Invalidate(ctx context.Context, id string) error
}

// PriceCache stores the latest ticker snapshot.
type PriceCache interface {
	SetPrices(ctx context.Context, prices []CoinPrice) error
	GetPrices(ctx context.Context) ([]CoinPrice, error)
}

// NonceStore keeps one-time login nonces per address.
type NonceStore interface {
	Put(ctx context.Context, addr common.Address, nonce string, ttl time.Duration) error
	// Take returns and deletes the nonce. ErrNonceExpired when absent.
	Take(ctx context.Context, addr common.Address) (string, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
