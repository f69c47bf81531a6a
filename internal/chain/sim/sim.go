// Package sim is an in-memory stand-in for the BaseMarkets contracts. It keeps
// per-address balances, the single pending unstake slot with its lock, and
// accrues staking rewards, so the service can run end to end without a node.
package sim

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/aegistech/base-markets/internal/domain"
	"github.com/aegistech/base-markets/internal/unstake"
)

const secondsPerYear = 365 * 24 * 3600

// Options configure a simulated chain.
type Options struct {
	// Account is the address writes act for. Zero makes the chain read-only.
	Account common.Address
	// Faucet is the wallet balance an address starts with.
	Faucet     *big.Int
	LockPeriod time.Duration
	APY        float64
	Now        func() time.Time
}

type position struct {
	market  string
	outcome domain.Outcome
}

type ledger struct {
	wallet    *big.Int
	vault     *big.Int
	staked    *big.Int
	rewards   *big.Int
	accruedAt time.Time
	pending   domain.PendingUnstake
	shares    map[position]*big.Int
}

// Chain implements domain.Contracts in memory.
type Chain struct {
	mu       sync.Mutex
	account  common.Address
	faucet   *big.Int
	lock     time.Duration
	apyPPM   int64
	now      func() time.Time
	accounts map[common.Address]*ledger
	block    uint64
}

var _ domain.Contracts = (*Chain)(nil)

// New creates a simulated chain.
func New(opts Options) *Chain {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LockPeriod <= 0 {
		opts.LockPeriod = unstake.LockPeriod
	}
	faucet := new(big.Int)
	if opts.Faucet != nil {
		faucet.Set(opts.Faucet)
	}
	return &Chain{
		account:  opts.Account,
		faucet:   faucet,
		lock:     opts.LockPeriod,
		apyPPM:   int64(opts.APY * 1e6),
		now:      opts.Now,
		accounts: make(map[common.Address]*ledger),
	}
}

func (c *Chain) Account() common.Address { return c.account }

// ledgerFor returns the ledger of addr, creating it with the faucet balance
// and bringing rewards up to date. Caller holds mu.
func (c *Chain) ledgerFor(addr common.Address) *ledger {
	now := c.now()
	l, ok := c.accounts[addr]
	if !ok {
		l = &ledger{
			wallet:    new(big.Int).Set(c.faucet),
			vault:     new(big.Int),
			staked:    new(big.Int),
			rewards:   new(big.Int),
			accruedAt: now,
			pending:   domain.PendingUnstake{Amount: new(big.Int)},
			shares:    make(map[position]*big.Int),
		}
		c.accounts[addr] = l
		return l
	}
	if elapsed := int64(now.Sub(l.accruedAt) / time.Second); elapsed > 0 {
		r := new(big.Int).Mul(l.staked, big.NewInt(c.apyPPM))
		r.Mul(r, big.NewInt(elapsed))
		r.Quo(r, big.NewInt(1_000_000*secondsPerYear))
		l.rewards.Add(l.rewards, r)
		l.accruedAt = l.accruedAt.Add(time.Duration(elapsed) * time.Second)
	}
	return l
}

// ── reads ──

func (c *Chain) WalletBalance(_ context.Context, addr common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.ledgerFor(addr).wallet), nil
}

func (c *Chain) VaultBalance(_ context.Context, addr common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.ledgerFor(addr).vault), nil
}

func (c *Chain) Staked(_ context.Context, addr common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.ledgerFor(addr).staked), nil
}

func (c *Chain) PendingRewards(_ context.Context, addr common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.ledgerFor(addr).rewards), nil
}

func (c *Chain) PendingUnstake(_ context.Context, addr common.Address) (domain.PendingUnstake, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.ledgerFor(addr).pending
	return domain.PendingUnstake{Amount: new(big.Int).Set(p.Amount), UnlockTime: p.UnlockTime}, nil
}

// TotalStaked sums the stake of every known address.
func (c *Chain) TotalStaked(_ context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := new(big.Int)
	for _, l := range c.accounts {
		total.Add(total, l.staked)
	}
	return total, nil
}

// Shares returns the position of addr in one market outcome.
func (c *Chain) Shares(addr common.Address, marketID string, outcome domain.Outcome) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.ledgerFor(addr).shares[position{marketID, outcome}]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// Fund credits amount to the wallet balance of addr.
func (c *Chain) Fund(addr common.Address, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.ledgerFor(addr)
	l.wallet.Add(l.wallet, amount)
}

// ── writes ──

func (c *Chain) Deposit(_ context.Context, amount *big.Int) (domain.TxResult, error) {
	return c.write("deposit", func(l *ledger) error {
		if err := debit(l.wallet, amount, "transfer amount exceeds balance"); err != nil {
			return err
		}
		l.vault.Add(l.vault, amount)
		return nil
	})
}

func (c *Chain) Withdraw(_ context.Context, amount *big.Int) (domain.TxResult, error) {
	return c.write("withdraw", func(l *ledger) error {
		if err := debit(l.vault, amount, "insufficient vault balance"); err != nil {
			return err
		}
		l.wallet.Add(l.wallet, amount)
		return nil
	})
}

func (c *Chain) BuyShares(_ context.Context, marketID *big.Int, outcome domain.Outcome, amount *big.Int) (domain.TxResult, error) {
	return c.write("buyShares", func(l *ledger) error {
		if err := debit(l.wallet, amount, "transfer amount exceeds balance"); err != nil {
			return err
		}
		key := position{marketID.String(), outcome}
		if l.shares[key] == nil {
			l.shares[key] = new(big.Int)
		}
		l.shares[key].Add(l.shares[key], amount)
		return nil
	})
}

func (c *Chain) Stake(_ context.Context, amount *big.Int) (domain.TxResult, error) {
	return c.write("stake", func(l *ledger) error {
		if err := debit(l.wallet, amount, "transfer amount exceeds balance"); err != nil {
			return err
		}
		l.staked.Add(l.staked, amount)
		return nil
	})
}

// RequestUnstake moves amount into the pending slot. A second request adds
// to the pending amount and restarts the lock.
func (c *Chain) RequestUnstake(_ context.Context, amount *big.Int) (domain.TxResult, error) {
	return c.write("requestUnstake", func(l *ledger) error {
		if err := debit(l.staked, amount, "insufficient stake"); err != nil {
			return err
		}
		l.pending.Amount = new(big.Int).Add(l.pending.Amount, amount)
		l.pending.UnlockTime = unstake.UnlockTime(c.now(), c.lock)
		return nil
	})
}

func (c *Chain) CompleteUnstake(_ context.Context) (domain.TxResult, error) {
	return c.write("completeUnstake", func(l *ledger) error {
		if !l.pending.HasRequest() {
			return revert("no pending unstake")
		}
		if !unstake.Evaluate(l.pending, c.now()).CanWithdraw {
			return revert("still locked")
		}
		l.wallet.Add(l.wallet, l.pending.Amount)
		l.pending = domain.PendingUnstake{Amount: new(big.Int)}
		return nil
	})
}

func (c *Chain) ClaimRewards(_ context.Context) (domain.TxResult, error) {
	return c.write("claimRewards", func(l *ledger) error {
		if l.rewards.Sign() == 0 {
			return revert("no rewards")
		}
		l.wallet.Add(l.wallet, l.rewards)
		l.rewards = new(big.Int)
		return nil
	})
}

// write applies fn to the account ledger atomically and mints a block.
func (c *Chain) write(method string, fn func(l *ledger) error) (domain.TxResult, error) {
	if c.account == (common.Address{}) {
		return domain.TxResult{}, domain.ErrWalletUnavailable
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := fn(c.ledgerFor(c.account)); err != nil {
		return domain.TxResult{}, fmt.Errorf("%s: %w", method, err)
	}
	c.block++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], c.block)
	hash := ethcrypto.Keccak256Hash(c.account.Bytes(), []byte(method), buf[:])
	return domain.TxResult{Hash: hash, BlockNumber: c.block, Status: domain.TxSuccess}, nil
}

func debit(bal, amount *big.Int, reason string) error {
	if amount == nil || amount.Sign() <= 0 {
		return revert("amount must be positive")
	}
	if bal.Cmp(amount) < 0 {
		return revert(reason)
	}
	bal.Sub(bal, amount)
	return nil
}

func revert(reason string) error {
	return fmt.Errorf("%w: execution reverted: %s", domain.ErrChain, reason)
}
