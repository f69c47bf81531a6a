package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	cachemem "github.com/aegistech/base-markets/internal/cache/memory"
	"github.com/aegistech/base-markets/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	var ev domain.Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	return ev
}

func TestHubBridgesBusToClients(t *testing.T) {
	bus := cachemem.NewSignalBus(10)
	hub := NewHub(bus, "Server", slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	hello := readEvent(t, conn)
	assert.Equal(t, "hello", hello.Type)
	assert.Equal(t, "server", hello.Data["mode"])

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Drop the ticker channel, then publish on it and on staking.
	require.NoError(t, conn.WriteJSON(subscribeMsg{Action: "unsubscribe", Channels: []string{domain.ChannelTicker}}))
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		for c := range hub.clients {
			return !c.isSubscribed(domain.ChannelTicker)
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	ticker, _ := json.Marshal(domain.Event{Type: domain.EventTicker})
	staking, _ := json.Marshal(domain.Event{Type: domain.EventUnstakeClaimable, Wallet: "0xabc"})

	// Bus subscriptions start asynchronously inside Run; publish until one lands.
	stop := make(chan struct{})
	published := make(chan struct{})
	go func() {
		defer close(published)
		tick := time.NewTicker(20 * time.Millisecond)
		defer tick.Stop()
		for {
			_ = bus.Publish(ctx, domain.ChannelTicker, ticker)
			_ = bus.Publish(ctx, domain.ChannelStaking, staking)
			select {
			case <-stop:
				return
			case <-tick.C:
			}
		}
	}()

	ev := readEvent(t, conn)
	close(stop)
	<-published
	assert.Equal(t, domain.EventUnstakeClaimable, ev.Type)
	assert.Equal(t, "0xabc", ev.Wallet)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 0, hub.ClientCount())
}
