// Package chain talks to the BaseMarkets contracts on Base through go-ethereum
// bound contracts.
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/aegistech/base-markets/internal/domain"
	"github.com/aegistech/base-markets/internal/money"
)

// Addresses are the deployed contract addresses.
type Addresses struct {
	Vault   common.Address
	Staking common.Address
	Market  common.Address
	USDC    common.Address
}

// Gateway implements domain.Contracts against a live node. Writes are signed
// by the configured signer; without one the gateway is read-only.
//
// Amounts cross the gateway in USDC base units (6 decimals) and are rescaled
// to the token's own precision on the wire.
type Gateway struct {
	backend  Backend
	chainID  *big.Int
	signer   domain.Signer
	addrs    Addresses
	logger   *slog.Logger
	decimals int

	token   *bind.BoundContract
	vault   *bind.BoundContract
	staking *bind.BoundContract
	market  *bind.BoundContract
}

var _ domain.Contracts = (*Gateway)(nil)

// NewGateway binds the four contracts. signer may be nil.
func NewGateway(backend Backend, chainID *big.Int, signer domain.Signer, addrs Addresses, logger *slog.Logger) (*Gateway, error) {
	g := &Gateway{
		backend:  backend,
		chainID:  chainID,
		signer:   signer,
		addrs:    addrs,
		logger:   logger.With(slog.String("component", "chain_gateway")),
		decimals: money.USDCDecimals,
	}
	for _, b := range []struct {
		name string
		def  string
		addr common.Address
		dst  **bind.BoundContract
	}{
		{"erc20", ERC20ABI, addrs.USDC, &g.token},
		{"vault", VaultABI, addrs.Vault, &g.vault},
		{"staking", StakingABI, addrs.Staking, &g.staking},
		{"market", MarketABI, addrs.Market, &g.market},
	} {
		parsed, err := parseABI(b.name, b.def)
		if err != nil {
			return nil, err
		}
		*b.dst = bind.NewBoundContract(b.addr, parsed, backend, backend, backend)
	}
	return g, nil
}

// Account returns the signer address, or the zero address when read-only.
func (g *Gateway) Account() common.Address {
	if g.signer == nil {
		return common.Address{}
	}
	return g.signer.Address()
}

// LoadDecimals reads the token precision and uses it for every later call,
// falling back to 6. Call it once before the gateway is shared.
func (g *Gateway) LoadDecimals(ctx context.Context) int {
	g.decimals = money.USDCDecimals
	var out []any
	if err := g.token.Call(&bind.CallOpts{Context: ctx}, &out, "decimals"); err == nil && len(out) > 0 {
		if d, ok := out[0].(uint8); ok {
			g.decimals = int(d)
			return g.decimals
		}
	}
	g.logger.WarnContext(ctx, "could not read token decimals, assuming default",
		slog.Int("decimals", money.USDCDecimals))
	return g.decimals
}

// Decimals is the token precision in use.
func (g *Gateway) Decimals() int { return g.decimals }

func (g *Gateway) toToken(v *big.Int) *big.Int {
	return money.Rescale(v, money.USDCDecimals, g.decimals)
}

func (g *Gateway) fromToken(v *big.Int, err error) (*big.Int, error) {
	if err != nil {
		return nil, err
	}
	return money.Rescale(v, g.decimals, money.USDCDecimals), nil
}

// ── reads ──

func (g *Gateway) WalletBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return g.fromToken(callUint(ctx, g.token, "balanceOf", addr))
}

func (g *Gateway) VaultBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return g.fromToken(callUint(ctx, g.vault, "getBalance", addr, VaultAsset))
}

func (g *Gateway) Staked(ctx context.Context, addr common.Address) (*big.Int, error) {
	return g.fromToken(callUint(ctx, g.staking, "getStaked", addr))
}

func (g *Gateway) PendingRewards(ctx context.Context, addr common.Address) (*big.Int, error) {
	return g.fromToken(callUint(ctx, g.staking, "pendingRewards", addr))
}

// PendingUnstake reads the (amount, unlockTime) pair of addr.
func (g *Gateway) PendingUnstake(ctx context.Context, addr common.Address) (domain.PendingUnstake, error) {
	var out []any
	if err := g.staking.Call(&bind.CallOpts{Context: ctx}, &out, "getPendingUnstake", addr); err != nil {
		return domain.PendingUnstake{}, fmt.Errorf("%w: getPendingUnstake: %v", domain.ErrChain, err)
	}
	p, err := decodePendingUnstake(out)
	if err != nil {
		return p, err
	}
	p.Amount = money.Rescale(p.Amount, g.decimals, money.USDCDecimals)
	return p, nil
}

func decodePendingUnstake(out []any) (domain.PendingUnstake, error) {
	if len(out) < 2 {
		return domain.PendingUnstake{}, fmt.Errorf("%w: getPendingUnstake: %d outputs", domain.ErrChain, len(out))
	}
	amount, ok1 := out[0].(*big.Int)
	unlock, ok2 := out[1].(*big.Int)
	if !ok1 || !ok2 {
		return domain.PendingUnstake{}, fmt.Errorf("%w: getPendingUnstake: unexpected output types", domain.ErrChain)
	}
	if !unlock.IsInt64() || unlock.Sign() < 0 {
		return domain.PendingUnstake{}, fmt.Errorf("%w: getPendingUnstake: unlock time %s out of range", domain.ErrChain, unlock)
	}
	return domain.PendingUnstake{Amount: amount, UnlockTime: unlock.Int64()}, nil
}

func callUint(ctx context.Context, c *bind.BoundContract, method string, args ...any) (*big.Int, error) {
	var out []any
	if err := c.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrChain, method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s: empty result", domain.ErrChain, method)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: %s: unexpected output type %T", domain.ErrChain, method, out[0])
	}
	return v, nil
}

// ── writes ──

// Deposit approves the vault and deposits amount.
func (g *Gateway) Deposit(ctx context.Context, amount *big.Int) (domain.TxResult, error) {
	amt := g.toToken(amount)
	return g.approveAndCall(ctx, g.addrs.Vault, amt, g.vault, "deposit", amt)
}

// Withdraw pulls amount of USDC out of the vault.
func (g *Gateway) Withdraw(ctx context.Context, amount *big.Int) (domain.TxResult, error) {
	return g.transact(ctx, g.vault, "withdraw", VaultAsset, g.toToken(amount))
}

// BuyShares approves the market and buys outcome shares for amount.
func (g *Gateway) BuyShares(ctx context.Context, marketID *big.Int, outcome domain.Outcome, amount *big.Int) (domain.TxResult, error) {
	amt := g.toToken(amount)
	return g.approveAndCall(ctx, g.addrs.Market, amt, g.market, "buyShares", marketID, outcome.IsNo(), amt)
}

// Stake approves the staking pool and stakes amount.
func (g *Gateway) Stake(ctx context.Context, amount *big.Int) (domain.TxResult, error) {
	amt := g.toToken(amount)
	return g.approveAndCall(ctx, g.addrs.Staking, amt, g.staking, "stake", amt)
}

// RequestUnstake starts the lock on amount.
func (g *Gateway) RequestUnstake(ctx context.Context, amount *big.Int) (domain.TxResult, error) {
	return g.transact(ctx, g.staking, "requestUnstake", g.toToken(amount))
}

// CompleteUnstake releases an unlocked request.
func (g *Gateway) CompleteUnstake(ctx context.Context) (domain.TxResult, error) {
	return g.transact(ctx, g.staking, "completeUnstake")
}

// ClaimRewards pays out accrued staking rewards.
func (g *Gateway) ClaimRewards(ctx context.Context) (domain.TxResult, error) {
	return g.transact(ctx, g.staking, "claimRewards")
}

func (g *Gateway) approveAndCall(ctx context.Context, spender common.Address, amount *big.Int, c *bind.BoundContract, method string, args ...any) (domain.TxResult, error) {
	if _, err := g.transact(ctx, g.token, "approve", spender, amount); err != nil {
		return domain.TxResult{}, fmt.Errorf("approve %s: %w", method, err)
	}
	return g.transact(ctx, c, method, args...)
}

func (g *Gateway) transact(ctx context.Context, c *bind.BoundContract, method string, args ...any) (domain.TxResult, error) {
	if g.signer == nil {
		return domain.TxResult{}, domain.ErrWalletUnavailable
	}
	opts := &bind.TransactOpts{
		From:    g.signer.Address(),
		Context: ctx,
		Signer: func(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
			if addr != g.signer.Address() {
				return nil, fmt.Errorf("%w: %s is not the operator account", domain.ErrSigningFailed, addr.Hex())
			}
			return g.signer.SignTx(tx, g.chainID)
		},
	}

	tx, err := c.Transact(opts, method, args...)
	if err != nil {
		return domain.TxResult{}, fmt.Errorf("%w: %s: %v", domain.ErrChain, method, err)
	}
	g.logger.InfoContext(ctx, "transaction sent",
		slog.String("method", method),
		slog.String("tx", tx.Hash().Hex()),
	)

	receipt, err := bind.WaitMined(ctx, g.backend, tx)
	if err != nil {
		return domain.TxResult{}, fmt.Errorf("%w: wait %s: %v", domain.ErrChain, method, err)
	}
	res := receiptResult(receipt)
	if res.Status != domain.TxSuccess {
		return res, fmt.Errorf("%w: %s reverted in tx %s", domain.ErrChain, method, res.Hash.Hex())
	}
	return res, nil
}

func receiptResult(r *types.Receipt) domain.TxResult {
	status := domain.TxReverted
	if r.Status == types.ReceiptStatusSuccessful {
		status = domain.TxSuccess
	}
	var block uint64
	if r.BlockNumber != nil {
		block = r.BlockNumber.Uint64()
	}
	return domain.TxResult{Hash: r.TxHash, BlockNumber: block, Status: status}
}
