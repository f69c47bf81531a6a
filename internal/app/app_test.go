package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aegistech/base-markets/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.Ticker.Enabled = false
	return &cfg
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestWireFallsBackToMemory(t *testing.T) {
	cfg := testConfig()
	cfg.Wallet.PrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

	deps, cleanup, err := Wire(context.Background(), cfg, discard())
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), deps.Operator())
	assert.Equal(t, "simulated", deps.ChainMode)
	assert.NotNil(t, deps.ActivityStore)
	assert.NotNil(t, deps.LockManager)
	assert.NotNil(t, deps.SignalBus)
	assert.Nil(t, deps.MarketStore)
	assert.Nil(t, deps.Archiver)
	assert.Empty(t, deps.Checks)
}

func TestWireReadOnlyWithoutKey(t *testing.T) {
	deps, cleanup, err := Wire(context.Background(), testConfig(), discard())
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, deps.Wallet)
	assert.Equal(t, common.Address{}, deps.Operator())
}

func TestWireRejectsBadKey(t *testing.T) {
	cfg := testConfig()
	cfg.Wallet.PrivateKey = "0x1234"
	_, _, err := Wire(context.Background(), cfg, discard())
	assert.Error(t, err)
}

func TestBuildServicesServesCatalog(t *testing.T) {
	ctx := context.Background()
	a := New(testConfig(), discard())
	deps, cleanup, err := Wire(ctx, a.cfg, discard())
	require.NoError(t, err)
	defer cleanup()

	svc, err := a.buildServices(ctx, deps)
	require.NoError(t, err)
	assert.Nil(t, svc.ticker)

	markets, err := svc.markets.List(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, markets)

	leaders, err := svc.board.Leaderboard(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, leaders, 3)
}

func TestWatchModeNeedsWallets(t *testing.T) {
	cfg := testConfig()
	cfg.Mode = "watch"
	a := New(cfg, discard())
	defer a.Close()

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no wallets to watch")
}

func TestTrackedAddresses(t *testing.T) {
	op := common.HexToAddress("0x01")
	got := trackedAddresses(op, []string{"0x02"})
	assert.Equal(t, []common.Address{op, common.HexToAddress("0x02")}, got)
}
