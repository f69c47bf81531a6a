package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	cachemem "github.com/aegistech/base-markets/internal/cache/memory"
	"github.com/aegistech/base-markets/internal/chain/sim"
	"github.com/aegistech/base-markets/internal/domain"
	"github.com/aegistech/base-markets/internal/money"
	storemem "github.com/aegistech/base-markets/internal/store/memory"
	"github.com/aegistech/base-markets/internal/unstake"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var operator = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func usdc(t *testing.T, s string) *big.Int {
	t.Helper()
	v, err := money.ParseUSDC(s)
	require.NoError(t, err)
	return v
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev domain.Event) error {
	n.mu.Lock()
	n.events = append(n.events, ev)
	n.mu.Unlock()
	return nil
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, ev := range n.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	clock    *clock
	chain    *sim.Chain
	activity *storemem.ActivityStore
	audit    *storemem.AuditStore
	bus      *cachemem.SignalBus
	notifier *recordingNotifier
	runner   *ActionRunner
	accounts *AccountService
	markets  *MarketService
	trades   *TradeService
	staking  *StakingService
}

func newFixture(t *testing.T, contracts func(*sim.Chain) domain.Contracts) *fixture {
	t.Helper()
	f := &fixture{
		clock:    &clock{t: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)},
		activity: storemem.NewActivityStore(),
		audit:    storemem.NewAuditStore(100),
		bus:      cachemem.NewSignalBus(100),
		notifier: &recordingNotifier{},
	}
	f.chain = sim.New(sim.Options{
		Account: operator,
		Faucet:  usdc(t, "1000"),
		APY:     0.125,
		Now:     f.clock.Now,
	})
	var c domain.Contracts = f.chain
	if contracts != nil {
		c = contracts(f.chain)
	}

	log := discard()
	f.runner = NewActionRunner(RunnerDeps{
		Account:  c.Account(),
		Locks:    cachemem.NewLockManager(),
		Activity: f.activity,
		Audit:    f.audit,
		Bus:      f.bus,
		Notifier: f.notifier,
		Timeout:  5 * time.Second,
	}, log)
	f.runner.now = f.clock.Now
	f.accounts = NewAccountService(c, nil, f.activity, f.runner, log)
	f.markets = NewMarketService(nil, nil, log)
	f.trades = NewTradeService(f.markets, c, f.runner, f.accounts, log)
	f.staking = NewStakingService(c, f.accounts, f.runner, DefaultStakingParams(), log)
	f.staking.now = f.clock.Now
	return f
}

func TestDepositAndWithdraw(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	act, bal, err := f.accounts.Deposit(ctx, usdc(t, "250"))
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityConfirmed, act.Status)
	assert.NotEmpty(t, act.TxHash)
	assert.Equal(t, usdc(t, "750"), bal.Wallet)
	assert.Equal(t, usdc(t, "250"), bal.Vault)

	_, bal, err = f.accounts.Withdraw(ctx, usdc(t, "100.5"))
	require.NoError(t, err)
	assert.Equal(t, usdc(t, "850.5"), bal.Wallet)
	assert.Equal(t, usdc(t, "149.5"), bal.Vault)

	rows, err := f.accounts.Activity(ctx, operator, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, domain.ActivityConfirmed, r.Status)
		assert.Equal(t, strings.ToLower(operator.Hex()), r.Wallet)
	}
	assert.Equal(t, []string{domain.EventDeposit, domain.EventWithdraw}, f.notifier.types())

	entries, err := f.audit.List(ctx, domain.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestActionBounds(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"deposit over wallet", func() error {
			_, _, err := f.accounts.Deposit(ctx, usdc(t, "1000.000001"))
			return err
		}, domain.ErrInsufficientBalance},
		{"deposit zero", func() error {
			_, _, err := f.accounts.Deposit(ctx, new(big.Int))
			return err
		}, domain.ErrInvalidAmount},
		{"withdraw empty vault", func() error {
			_, _, err := f.accounts.Withdraw(ctx, usdc(t, "1"))
			return err
		}, domain.ErrInsufficientBalance},
		{"stake over wallet", func() error {
			_, _, err := f.staking.Stake(ctx, usdc(t, "5000"))
			return err
		}, domain.ErrInsufficientBalance},
		{"unstake nothing staked", func() error {
			_, _, err := f.staking.RequestUnstake(ctx, usdc(t, "1"))
			return err
		}, domain.ErrInsufficientBalance},
		{"complete without request", func() error {
			_, _, err := f.staking.CompleteUnstake(ctx)
			return err
		}, domain.ErrNothingPending},
		{"claim without rewards", func() error {
			_, _, err := f.staking.ClaimRewards(ctx)
			return err
		}, domain.ErrNothingPending},
		{"buy over wallet", func() error {
			_, _, _, err := f.trades.Buy(ctx, "1", domain.OutcomeYes, usdc(t, "1001"))
			return err
		}, domain.ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.want)
		})
	}

	// Rejected actions never reach the chain or the activity log.
	rows, err := f.accounts.Activity(ctx, operator, domain.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	wallet, err := f.chain.WalletBalance(ctx, operator)
	require.NoError(t, err)
	assert.Equal(t, usdc(t, "1000"), wallet)
}

func TestUnstakeLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, _, err := f.staking.Stake(ctx, usdc(t, "100"))
	require.NoError(t, err)
	_, _, err = f.staking.RequestUnstake(ctx, usdc(t, "40"))
	require.NoError(t, err)

	pos, err := f.staking.Position(ctx, operator)
	require.NoError(t, err)
	assert.Equal(t, usdc(t, "60"), pos.Staked)
	assert.Equal(t, usdc(t, "40"), pos.Pending.Amount)
	assert.Equal(t, unstake.PhaseLocked, pos.Lock.Phase)
	assert.Equal(t, int64(3), pos.Lock.DaysLeft)

	_, _, err = f.staking.CompleteUnstake(ctx)
	require.ErrorIs(t, err, domain.ErrNotClaimable)

	f.clock.Advance(72*time.Hour - time.Second)
	_, _, err = f.staking.CompleteUnstake(ctx)
	require.ErrorIs(t, err, domain.ErrNotClaimable)

	f.clock.Advance(time.Second)
	act, bal, err := f.staking.CompleteUnstake(ctx)
	require.NoError(t, err)
	assert.Equal(t, usdc(t, "40"), act.Amount)
	assert.Equal(t, usdc(t, "940"), bal.Wallet)

	_, st, err := f.staking.Unstake(ctx, operator)
	require.NoError(t, err)
	assert.Equal(t, unstake.PhaseNone, st.Phase)
	assert.False(t, st.Pending)
}

func TestClaimRewardsAfterAccrual(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, _, err := f.staking.Stake(ctx, usdc(t, "1000"))
	require.NoError(t, err)
	f.clock.Advance(24 * time.Hour)

	act, bal, err := f.staking.ClaimRewards(ctx)
	require.NoError(t, err)
	assert.Positive(t, act.Amount.Sign())
	assert.Equal(t, act.Amount, bal.Wallet)
	assert.Zero(t, bal.PendingRewards.Sign())
}

func TestStakingPositionFigures(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, _, err := f.staking.Stake(ctx, usdc(t, "730"))
	require.NoError(t, err)

	pos, err := f.staking.Position(ctx, operator)
	require.NoError(t, err)
	assert.InDelta(t, 730*0.125/365, pos.ProjectedDailyReward, 1e-9)
	assert.InDelta(t, 300_730, pos.PoolTVL, 1e-6)
	assert.Equal(t, 0.003, pos.ProtocolFee)
	assert.Equal(t, unstake.LockPeriod, pos.LockPeriod)
}

func TestBuySharesRecordsTrade(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sub, cancel := context.WithCancel(ctx)
	defer cancel()
	events, err := f.bus.Subscribe(sub, domain.ChannelTrades)
	require.NoError(t, err)

	act, q, bal, err := f.trades.Buy(ctx, "1", domain.OutcomeNo, usdc(t, "58"))
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityBuyShares, act.Kind)
	assert.Equal(t, "1", act.MarketID)
	assert.Equal(t, domain.OutcomeNo, act.Outcome)
	assert.InDelta(t, 100, q.Shares, 1e-9)
	assert.Equal(t, usdc(t, "942"), bal.Wallet)
	assert.Equal(t, usdc(t, "58"), f.chain.Shares(operator, "1", domain.OutcomeNo))

	select {
	case payload := <-events:
		var ev domain.Event
		require.NoError(t, json.Unmarshal(payload, &ev))
		assert.Equal(t, domain.EventTrade, ev.Type)
		assert.Equal(t, "58", ev.Data["amount"])
	case <-time.After(time.Second):
		t.Fatal("no trade event published")
	}
}

func TestQuote(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	q, err := f.trades.Quote(ctx, "1", domain.OutcomeYes, usdc(t, "42"))
	require.NoError(t, err)
	assert.Equal(t, 0.42, q.Price)
	assert.InDelta(t, 100, q.Shares, 1e-9)
	assert.InDelta(t, 100, q.PotentialReturn, 1e-9)
	assert.InDelta(t, 58, q.PotentialProfit, 1e-9)
	assert.InDelta(t, 58.0/42*100, q.ProfitPercent, 1e-9)

	_, err = f.trades.Quote(ctx, "404", domain.OutcomeYes, usdc(t, "1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = NewQuote(domain.Market{ID: "9", YesPrice: 0.5, IsResolved: true}, domain.OutcomeYes, usdc(t, "1"))
	assert.ErrorIs(t, err, domain.ErrMarketClosed)

	_, err = NewQuote(domain.Market{ID: "9", YesPrice: 1}, domain.OutcomeYes, usdc(t, "1"))
	assert.ErrorIs(t, err, domain.ErrMarketClosed)
}

// blockingChain holds Deposit until released.
type blockingChain struct {
	*sim.Chain
	entered chan struct{}
	release chan struct{}
}

func (b *blockingChain) Deposit(ctx context.Context, amount *big.Int) (domain.TxResult, error) {
	close(b.entered)
	<-b.release
	return b.Chain.Deposit(ctx, amount)
}

func TestConcurrentActionRejected(t *testing.T) {
	bc := &blockingChain{entered: make(chan struct{}), release: make(chan struct{})}
	f := newFixture(t, func(c *sim.Chain) domain.Contracts {
		bc.Chain = c
		return bc
	})
	ctx := context.Background()
	amount := usdc(t, "10")

	done := make(chan error, 1)
	go func() {
		_, _, err := f.accounts.Deposit(ctx, amount)
		done <- err
	}()
	<-bc.entered

	_, _, err := f.staking.Stake(ctx, usdc(t, "10"))
	assert.ErrorIs(t, err, domain.ErrActionInFlight)

	close(bc.release)
	require.NoError(t, <-done)

	// The lock is free again.
	_, _, err = f.staking.Stake(ctx, usdc(t, "10"))
	assert.NoError(t, err)
}

// failingChain reverts every withdrawal.
type failingChain struct {
	*sim.Chain
}

func (f failingChain) Withdraw(context.Context, *big.Int) (domain.TxResult, error) {
	return domain.TxResult{}, errors.Join(domain.ErrChain, errors.New("execution reverted"))
}

func (f failingChain) VaultBalance(context.Context, common.Address) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func TestFailedActionRecorded(t *testing.T) {
	f := newFixture(t, func(c *sim.Chain) domain.Contracts { return failingChain{c} })
	ctx := context.Background()

	act, _, err := f.accounts.Withdraw(ctx, usdc(t, "5"))
	require.ErrorIs(t, err, domain.ErrChain)
	assert.Equal(t, domain.ActivityFailed, act.Status)

	stored, err := f.activity.GetByID(ctx, act.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityFailed, stored.Status)
	assert.Contains(t, stored.Error, "execution reverted")
	assert.Equal(t, []string{domain.EventError}, f.notifier.types())
}

func TestReadOnlyRunner(t *testing.T) {
	log := discard()
	chain := sim.New(sim.Options{})
	runner := NewActionRunner(RunnerDeps{
		Locks:    cachemem.NewLockManager(),
		Activity: storemem.NewActivityStore(),
	}, log)
	accounts := NewAccountService(chain, nil, storemem.NewActivityStore(), runner, log)

	_, _, err := accounts.Deposit(context.Background(), big.NewInt(1))
	assert.ErrorIs(t, err, domain.ErrWalletUnavailable)
}

func TestDailyReward(t *testing.T) {
	assert.Zero(t, DailyReward(new(big.Int), 0.125))
	assert.InDelta(t, 0.3424657534, DailyReward(big.NewInt(1_000_000_000), 0.125), 1e-9)
}
