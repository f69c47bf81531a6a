package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aegistech/base-markets/internal/domain"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestCoinGeckoMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/markets", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "usd", q.Get("vs_currency"))
		assert.Equal(t, "bitcoin,brett", q.Get("ids"))
		assert.Equal(t, "market_cap_desc", q.Get("order"))
		_, _ = io.WriteString(w, `[
			{"id":"bitcoin","symbol":"btc","current_price":100000.5,"price_change_percentage_24h":-1.25,"image":"btc.png"},
			{"id":"brett","symbol":"brett","current_price":0.15,"price_change_percentage_24h":3}
		]`)
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL+"/", 6000)
	coins, err := c.Markets(context.Background(), []string{"bitcoin", "brett"})
	require.NoError(t, err)
	require.Len(t, coins, 2)
	assert.Equal(t, "BTC", coins[0].Symbol)
	assert.Equal(t, 100000.5, coins[0].Price)
	assert.Equal(t, -1.25, coins[0].Change24h)
	assert.Equal(t, "btc.png", coins[0].ImageURL)
	assert.Equal(t, "BRETT", coins[1].Symbol)
}

func TestCoinGeckoErrors(t *testing.T) {
	status := http.StatusTooManyRequests
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL, 6000)
	_, err := c.Markets(context.Background(), []string{"bitcoin"})
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	status = http.StatusOK
	_, err = c.Markets(context.Background(), []string{"bitcoin"})
	assert.ErrorContains(t, err, "empty response")
}

type stubSource struct {
	mu    sync.Mutex
	calls int
	err   error
	coins []domain.CoinPrice
}

func (s *stubSource) Markets(context.Context, []string) ([]domain.CoinPrice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.coins, s.err
}

type memPrices struct {
	mu     sync.Mutex
	prices []domain.CoinPrice
}

func (m *memPrices) SetPrices(_ context.Context, p []domain.CoinPrice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices = p
	return nil
}

func (m *memPrices) GetPrices(context.Context) ([]domain.CoinPrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prices, nil
}

type memBus struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func (b *memBus) Publish(_ context.Context, ch string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.published == nil {
		b.published = map[string][][]byte{}
	}
	b.published[ch] = append(b.published[ch], payload)
	return nil
}

func (b *memBus) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }
func (b *memBus) StreamAppend(context.Context, string, []byte) error { return nil }
func (b *memBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func TestTickerRefreshPublishesAndCaches(t *testing.T) {
	src := &stubSource{coins: []domain.CoinPrice{{ID: "bitcoin", Symbol: "BTC", Price: 1}}}
	cache := &memPrices{}
	bus := &memBus{}
	tk := NewTicker(src, []string{"bitcoin"}, cache, bus, time.Minute, quiet())

	got := tk.Refresh(context.Background())
	require.Len(t, got, 1)
	assert.False(t, tk.UsingFallback())
	assert.Equal(t, got, cache.prices)

	require.Len(t, bus.published[domain.ChannelTicker], 1)
	var ev domain.Event
	require.NoError(t, json.Unmarshal(bus.published[domain.ChannelTicker][0], &ev))
	assert.Equal(t, domain.EventTicker, ev.Type)
	assert.Equal(t, false, ev.Data["fallback"])
}

func TestTickerFallsBackOnError(t *testing.T) {
	src := &stubSource{err: errors.New("api down")}
	tk := NewTicker(src, nil, nil, nil, time.Minute, quiet())

	got := tk.Refresh(context.Background())
	require.Len(t, got, 9)
	assert.Equal(t, "BTC", got[0].Symbol)
	assert.True(t, tk.UsingFallback())
}

func TestTickerLatestPrefersCache(t *testing.T) {
	cache := &memPrices{prices: []domain.CoinPrice{{ID: "x", Symbol: "X"}}}
	tk := NewTicker(&stubSource{}, nil, cache, nil, time.Minute, quiet())
	assert.Equal(t, "X", tk.Latest(context.Background())[0].Symbol)

	empty := NewTicker(&stubSource{}, nil, nil, nil, time.Minute, quiet())
	assert.Len(t, empty.Latest(context.Background()), 9)
}

func TestTickerRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &stubSource{coins: []domain.CoinPrice{{ID: "a"}}}
	tk := NewTicker(src, nil, nil, nil, 5*time.Millisecond, quiet())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tk.Run(ctx) }()

	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.calls >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
