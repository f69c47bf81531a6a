package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aegistech/base-markets/internal/domain"
	"github.com/aegistech/base-markets/internal/money"
)

// AccountService reads balances and moves USDC between the wallet and the
// vault.
type AccountService struct {
	ledger    domain.Ledger
	contracts domain.Contracts
	cache     domain.BalanceCache // optional
	activity  domain.ActivityStore
	runner    *ActionRunner
	logger    *slog.Logger
}

// NewAccountService creates an AccountService. cache may be nil.
func NewAccountService(
	contracts domain.Contracts,
	cache domain.BalanceCache,
	activity domain.ActivityStore,
	runner *ActionRunner,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		ledger:    contracts,
		contracts: contracts,
		cache:     cache,
		activity:  activity,
		runner:    runner,
		logger:    logger.With(slog.String("component", "account_service")),
	}
}

// Operator returns the wallet that actions are signed for.
func (s *AccountService) Operator() common.Address { return s.runner.Account() }

// Balances returns the balances of addr, served from the cache when fresh.
func (s *AccountService) Balances(ctx context.Context, addr common.Address) (domain.Balances, error) {
	if s.cache != nil {
		if b, err := s.cache.Get(ctx, addr); err == nil {
			return b, nil
		}
	}
	b, err := readBalances(ctx, s.ledger, addr)
	if err != nil {
		return domain.Balances{}, fmt.Errorf("account_service: balances %s: %w", addr.Hex(), err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, b); err != nil {
			s.logger.WarnContext(ctx, "balance cache set failed",
				slog.String("address", addr.Hex()),
				slog.String("error", err.Error()),
			)
		}
	}
	return b, nil
}

// readBalances queries every balance of addr from the chain.
func readBalances(ctx context.Context, l domain.Ledger, addr common.Address) (domain.Balances, error) {
	b := domain.Balances{Address: addr}
	var err error
	if b.Wallet, err = l.WalletBalance(ctx, addr); err != nil {
		return domain.Balances{}, fmt.Errorf("wallet balance: %w", err)
	}
	if b.Vault, err = l.VaultBalance(ctx, addr); err != nil {
		return domain.Balances{}, fmt.Errorf("vault balance: %w", err)
	}
	if b.Staked, err = l.Staked(ctx, addr); err != nil {
		return domain.Balances{}, fmt.Errorf("staked: %w", err)
	}
	if b.PendingRewards, err = l.PendingRewards(ctx, addr); err != nil {
		return domain.Balances{}, fmt.Errorf("pending rewards: %w", err)
	}
	return b, nil
}

// Deposit moves amount from the wallet into the vault.
func (s *AccountService) Deposit(ctx context.Context, amount *big.Int) (domain.Activity, domain.Balances, error) {
	return s.act(ctx, Action{
		Kind:    domain.ActivityDeposit,
		Event:   domain.EventDeposit,
		Channel: domain.ChannelAccount,
		Amount:  amount,
		Check:   boundBy(s.ledger.WalletBalance, s.runner.Account(), amount),
		Call: func(ctx context.Context) (domain.TxResult, error) {
			return s.contracts.Deposit(ctx, amount)
		},
	})
}

// Withdraw moves amount from the vault back to the wallet.
func (s *AccountService) Withdraw(ctx context.Context, amount *big.Int) (domain.Activity, domain.Balances, error) {
	return s.act(ctx, Action{
		Kind:    domain.ActivityWithdraw,
		Event:   domain.EventWithdraw,
		Channel: domain.ChannelAccount,
		Amount:  amount,
		Check:   boundBy(s.ledger.VaultBalance, s.runner.Account(), amount),
		Call: func(ctx context.Context) (domain.TxResult, error) {
			return s.contracts.Withdraw(ctx, amount)
		},
	})
}

// act runs a and re-queries the operator balances on success.
func (s *AccountService) act(ctx context.Context, a Action) (domain.Activity, domain.Balances, error) {
	act, err := s.runner.Run(ctx, a)
	if err != nil {
		return act, domain.Balances{}, err
	}
	b, err := s.Balances(ctx, s.runner.Account())
	if err != nil {
		// The action itself succeeded; report it with empty balances.
		s.logger.WarnContext(ctx, "balance refresh failed", slog.String("error", err.Error()))
		return act, domain.ZeroBalances(s.runner.Account()), nil
	}
	return act, b, nil
}

// Activity lists recorded actions of addr, newest first.
func (s *AccountService) Activity(ctx context.Context, addr common.Address, opts domain.ListOpts) ([]domain.Activity, error) {
	rows, err := s.activity.ListByWallet(ctx, strings.ToLower(addr.Hex()), opts)
	if err != nil {
		return nil, fmt.Errorf("account_service: activity %s: %w", addr.Hex(), err)
	}
	return rows, nil
}

// boundBy returns a check that amount is positive and within the balance
// read by fn. The balance is read fresh, bypassing the cache.
func boundBy(fn func(context.Context, common.Address) (*big.Int, error), addr common.Address, amount *big.Int) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := money.Validate(amount, nil); err != nil {
			return err
		}
		max, err := fn(ctx, addr)
		if err != nil {
			return fmt.Errorf("read balance: %w", err)
		}
		return money.Validate(amount, max)
	}
}
