package redis

import (
	"context"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegistech/base-markets/internal/domain"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("BASEMARKETS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BASEMARKETS_TEST_REDIS_ADDR is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := New(ctx, ClientConfig{Addr: addr, PoolSize: 4, KeyPrefix: "bmtest-" + uuid.NewString()[:8]})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestKey(t *testing.T) {
	c := &Client{prefix: "bm"}
	assert.Equal(t, "bm:balance:0xabc", c.Key("balance", "0xabc"))
	assert.Equal(t, "bm:ticker", c.Key("ticker"))
}

func TestLockManager(t *testing.T) {
	c := newTestClient(t)
	lm := NewLockManager(c)
	ctx := context.Background()

	unlock, err := lm.Acquire(ctx, "wallet:0x1", time.Minute)
	require.NoError(t, err)

	_, err = lm.Acquire(ctx, "wallet:0x1", time.Minute)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	unlock()
	unlock() // idempotent

	unlock2, err := lm.Acquire(ctx, "wallet:0x1", time.Minute)
	require.NoError(t, err)
	unlock2()
}

func TestRateLimiter(t *testing.T) {
	c := newTestClient(t)
	rl := NewRateLimiter(c)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, "ip:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, err := rl.Allow(ctx, "ip:1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBalanceCache(t *testing.T) {
	c := newTestClient(t)
	bc := NewBalanceCache(c, time.Minute)
	ctx := context.Background()
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	_, err := bc.Get(ctx, addr)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	b := domain.ZeroBalances(addr)
	b.Wallet = big.NewInt(12_500_000)
	require.NoError(t, bc.Set(ctx, b))

	got, err := bc.Get(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, addr, got.Address)
	assert.Equal(t, "12500000", got.Wallet.String())

	require.NoError(t, bc.Invalidate(ctx, addr))
	_, err = bc.Get(ctx, addr)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNonceStoreSingleUse(t *testing.T) {
	c := newTestClient(t)
	ns := NewNonceStore(c)
	ctx := context.Background()
	addr := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	require.NoError(t, ns.Put(ctx, addr, "n1", time.Minute))
	got, err := ns.Take(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, "n1", got)

	_, err = ns.Take(ctx, addr)
	assert.ErrorIs(t, err, domain.ErrNonceExpired)
}

func TestMarketAndPriceCache(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	mc := NewMarketCache(c)
	markets := []domain.Market{
		{ID: "1", Question: "BTC above 100k?", YesPrice: 0.6, NoPrice: 0.4, Category: domain.CategoryCrypto},
		{ID: "2", Question: "Rain?", YesPrice: 0.3, NoPrice: 0.7, Category: domain.CategorySports},
	}
	require.NoError(t, mc.SetAll(ctx, markets))
	all, err := mc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	one, err := mc.Get(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Rain?", one.Question)
	require.NoError(t, mc.Invalidate(ctx, "2"))
	_, err = mc.All(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	pc := NewPriceCache(c)
	_, err = pc.GetPrices(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, pc.SetPrices(ctx, []domain.CoinPrice{{ID: "bitcoin", Symbol: "btc", Price: 65000}}))
	prices, err := pc.GetPrices(ctx)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, "btc", prices[0].Symbol)
}

func TestSignalBus(t *testing.T) {
	c := newTestClient(t)
	sb := NewSignalBus(c)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := sb.Subscribe(ctx, "staking")
	require.NoError(t, err)
	require.NoError(t, sb.Publish(ctx, "staking", []byte(`{"type":"stake"}`)))
	select {
	case msg := <-sub:
		assert.JSONEq(t, `{"type":"stake"}`, string(msg))
	case <-ctx.Done():
		t.Fatal("no message received")
	}

	require.NoError(t, sb.StreamAppend(ctx, "activity", []byte("a")))
	require.NoError(t, sb.StreamAppend(ctx, "activity", []byte("b")))
	msgs, err := sb.StreamRead(ctx, "activity", "0", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "b", string(msgs[1].Payload))
}
