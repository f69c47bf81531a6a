package sim

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegistech/base-markets/internal/domain"
	"github.com/aegistech/base-markets/internal/unstake"
)

var operator = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

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

func usdc(n int64) *big.Int { return big.NewInt(n * 1_000_000) }

func newChain(t *testing.T) (*Chain, *clock) {
	t.Helper()
	clk := &clock{t: time.Unix(1_760_000_000, 0)}
	return New(Options{
		Account:    operator,
		Faucet:     usdc(1000),
		LockPeriod: unstake.LockPeriod,
		APY:        0.125,
		Now:        clk.Now,
	}), clk
}

func TestDepositWithdraw(t *testing.T) {
	c, _ := newChain(t)
	ctx := context.Background()

	res, err := c.Deposit(ctx, usdc(100))
	require.NoError(t, err)
	assert.Equal(t, domain.TxSuccess, res.Status)
	assert.Equal(t, uint64(1), res.BlockNumber)

	w, _ := c.WalletBalance(ctx, operator)
	v, _ := c.VaultBalance(ctx, operator)
	assert.Equal(t, usdc(900).String(), w.String())
	assert.Equal(t, usdc(100).String(), v.String())

	_, err = c.Withdraw(ctx, usdc(101))
	assert.ErrorIs(t, err, domain.ErrChain)

	res2, err := c.Withdraw(ctx, usdc(40))
	require.NoError(t, err)
	assert.NotEqual(t, res.Hash, res2.Hash)
	w, _ = c.WalletBalance(ctx, operator)
	assert.Equal(t, usdc(940).String(), w.String())
}

func TestUnstakeLifecycle(t *testing.T) {
	c, clk := newChain(t)
	ctx := context.Background()

	_, err := c.CompleteUnstake(ctx)
	assert.ErrorContains(t, err, "no pending unstake")

	_, err = c.Stake(ctx, usdc(200))
	require.NoError(t, err)
	_, err = c.RequestUnstake(ctx, usdc(250))
	assert.ErrorContains(t, err, "insufficient stake")

	_, err = c.RequestUnstake(ctx, usdc(50))
	require.NoError(t, err)

	p, err := c.PendingUnstake(ctx, operator)
	require.NoError(t, err)
	assert.Equal(t, usdc(50).String(), p.Amount.String())
	assert.Equal(t, clk.Now().Unix()+259200, p.UnlockTime)
	assert.Equal(t, int64(3), unstake.Evaluate(p, clk.Now()).DaysLeft)

	clk.Advance(71 * time.Hour)
	_, err = c.CompleteUnstake(ctx)
	assert.ErrorContains(t, err, "still locked")

	clk.Advance(time.Hour)
	_, err = c.CompleteUnstake(ctx)
	require.NoError(t, err)

	p, _ = c.PendingUnstake(ctx, operator)
	assert.False(t, p.HasRequest())
	assert.Zero(t, p.UnlockTime)

	w, _ := c.WalletBalance(ctx, operator)
	s, _ := c.Staked(ctx, operator)
	assert.Equal(t, usdc(850).String(), w.String())
	assert.Equal(t, usdc(150).String(), s.String())
}

func TestSecondRequestRestartsLock(t *testing.T) {
	c, clk := newChain(t)
	ctx := context.Background()
	_, err := c.Stake(ctx, usdc(10))
	require.NoError(t, err)
	_, err = c.RequestUnstake(ctx, usdc(4))
	require.NoError(t, err)
	clk.Advance(48 * time.Hour)
	_, err = c.RequestUnstake(ctx, usdc(6))
	require.NoError(t, err)

	p, _ := c.PendingUnstake(ctx, operator)
	assert.Equal(t, usdc(10).String(), p.Amount.String())
	assert.Equal(t, clk.Now().Unix()+259200, p.UnlockTime)
}

func TestRewardsAccrue(t *testing.T) {
	c, clk := newChain(t)
	ctx := context.Background()

	_, err := c.ClaimRewards(ctx)
	assert.ErrorContains(t, err, "no rewards")

	_, err = c.Stake(ctx, usdc(1000))
	require.NoError(t, err)
	clk.Advance(365 * 24 * time.Hour)

	r, err := c.PendingRewards(ctx, operator)
	require.NoError(t, err)
	assert.Equal(t, usdc(125).String(), r.String())

	_, err = c.ClaimRewards(ctx)
	require.NoError(t, err)
	w, _ := c.WalletBalance(ctx, operator)
	assert.Equal(t, usdc(125).String(), w.String())
	r, _ = c.PendingRewards(ctx, operator)
	assert.Zero(t, r.Sign())
}

func TestBuySharesAndTotals(t *testing.T) {
	c, _ := newChain(t)
	ctx := context.Background()

	_, err := c.BuyShares(ctx, big.NewInt(2), domain.OutcomeNo, usdc(25))
	require.NoError(t, err)
	assert.Equal(t, usdc(25).String(), c.Shares(operator, "2", domain.OutcomeNo).String())
	assert.Zero(t, c.Shares(operator, "2", domain.OutcomeYes).Sign())

	other := common.HexToAddress("0x0000000000000000000000000000000000000abc")
	c.Fund(other, usdc(5))
	w, _ := c.WalletBalance(ctx, other)
	assert.Equal(t, usdc(1005).String(), w.String())

	_, err = c.Stake(ctx, usdc(30))
	require.NoError(t, err)
	total, _ := c.TotalStaked(ctx)
	assert.Equal(t, usdc(30).String(), total.String())
}

func TestReadOnlyChain(t *testing.T) {
	c := New(Options{})
	_, err := c.Stake(context.Background(), usdc(1))
	assert.ErrorIs(t, err, domain.ErrWalletUnavailable)
}
