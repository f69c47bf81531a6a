package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aegistech/base-markets/internal/domain"
	"github.com/aegistech/base-markets/internal/money"
	"github.com/aegistech/base-markets/internal/unstake"
)

const secondsPerYear = 365 * 24 * 3600

// StakingParams are the display figures of the staking pool.
type StakingParams struct {
	APY         float64
	PoolBaseTVL float64 // USDC
	ProtocolFee float64
	LockPeriod  time.Duration
}

// DefaultStakingParams matches the deployed pool.
func DefaultStakingParams() StakingParams {
	return StakingParams{
		APY:         0.125,
		PoolBaseTVL: 300_000,
		ProtocolFee: 0.003,
		LockPeriod:  unstake.LockPeriod,
	}
}

// TotalStaker is implemented by backends that know the pool-wide stake.
type TotalStaker interface {
	TotalStaked(ctx context.Context) (*big.Int, error)
}

// StakingPosition is the staking view of one address.
type StakingPosition struct {
	Address              common.Address
	Staked               *big.Int
	PendingRewards       *big.Int
	Pending              domain.PendingUnstake
	Lock                 unstake.Status
	ProjectedDailyReward float64 // USDC
	APY                  float64
	PoolTVL              float64 // USDC
	ProtocolFee          float64
	LockPeriod           time.Duration
}

// StakingService reads staking positions and runs the staking actions.
type StakingService struct {
	contracts domain.Contracts
	accounts  *AccountService
	runner    *ActionRunner
	params    StakingParams
	logger    *slog.Logger
	now       func() time.Time
}

// NewStakingService creates a StakingService.
func NewStakingService(
	contracts domain.Contracts,
	accounts *AccountService,
	runner *ActionRunner,
	params StakingParams,
	logger *slog.Logger,
) *StakingService {
	return &StakingService{
		contracts: contracts,
		accounts:  accounts,
		runner:    runner,
		params:    params,
		logger:    logger.With(slog.String("component", "staking_service")),
		now:       time.Now,
	}
}

// Unstake evaluates the pending unstake of addr against fresh contract data.
func (s *StakingService) Unstake(ctx context.Context, addr common.Address) (domain.PendingUnstake, unstake.Status, error) {
	p, err := s.contracts.PendingUnstake(ctx, addr)
	if err != nil {
		return domain.PendingUnstake{}, unstake.Status{}, fmt.Errorf("staking_service: pending unstake %s: %w", addr.Hex(), err)
	}
	return p, unstake.Evaluate(p, s.now()), nil
}

// Position returns the staking view of addr.
func (s *StakingService) Position(ctx context.Context, addr common.Address) (StakingPosition, error) {
	staked, err := s.contracts.Staked(ctx, addr)
	if err != nil {
		return StakingPosition{}, fmt.Errorf("staking_service: staked %s: %w", addr.Hex(), err)
	}
	rewards, err := s.contracts.PendingRewards(ctx, addr)
	if err != nil {
		return StakingPosition{}, fmt.Errorf("staking_service: rewards %s: %w", addr.Hex(), err)
	}
	p, lock, err := s.Unstake(ctx, addr)
	if err != nil {
		return StakingPosition{}, err
	}

	return StakingPosition{
		Address:              addr,
		Staked:               staked,
		PendingRewards:       rewards,
		Pending:              p,
		Lock:                 lock,
		ProjectedDailyReward: DailyReward(staked, s.params.APY),
		APY:                  s.params.APY,
		PoolTVL:              s.poolTVL(ctx, staked),
		ProtocolFee:          s.params.ProtocolFee,
		LockPeriod:           s.params.LockPeriod,
	}, nil
}

// DailyReward projects one day of rewards on staked at apy, in USDC.
func DailyReward(staked *big.Int, apy float64) float64 {
	perSecond := money.USDCFloat(staked) * apy / secondsPerYear
	return perSecond * 86_400
}

func (s *StakingService) poolTVL(ctx context.Context, own *big.Int) float64 {
	if ts, ok := s.contracts.(TotalStaker); ok {
		total, err := ts.TotalStaked(ctx)
		if err == nil {
			return s.params.PoolBaseTVL + money.USDCFloat(total)
		}
		s.logger.WarnContext(ctx, "total staked unavailable", slog.String("error", err.Error()))
	}
	return s.params.PoolBaseTVL + money.USDCFloat(own)
}

// Stake moves amount of wallet USDC into the staking pool.
func (s *StakingService) Stake(ctx context.Context, amount *big.Int) (domain.Activity, domain.Balances, error) {
	return s.accounts.act(ctx, Action{
		Kind:    domain.ActivityStake,
		Event:   domain.EventStake,
		Channel: domain.ChannelStaking,
		Amount:  amount,
		Check:   boundBy(s.contracts.WalletBalance, s.runner.Account(), amount),
		Call: func(ctx context.Context) (domain.TxResult, error) {
			return s.contracts.Stake(ctx, amount)
		},
	})
}

// RequestUnstake starts the lock on amount of staked USDC.
func (s *StakingService) RequestUnstake(ctx context.Context, amount *big.Int) (domain.Activity, domain.Balances, error) {
	return s.accounts.act(ctx, Action{
		Kind:    domain.ActivityRequestUnstake,
		Event:   domain.EventUnstakeRequested,
		Channel: domain.ChannelStaking,
		Amount:  amount,
		Check:   boundBy(s.contracts.Staked, s.runner.Account(), amount),
		Call: func(ctx context.Context) (domain.TxResult, error) {
			return s.contracts.RequestUnstake(ctx, amount)
		},
	})
}

// CompleteUnstake withdraws a pending request once its lock has expired.
func (s *StakingService) CompleteUnstake(ctx context.Context) (domain.Activity, domain.Balances, error) {
	// Filled by the check so the activity records the withdrawn amount.
	amount := new(big.Int)
	return s.accounts.act(ctx, Action{
		Kind:    domain.ActivityCompleteUnstake,
		Event:   domain.EventUnstakeCompleted,
		Channel: domain.ChannelStaking,
		Amount:  amount,
		Check: func(ctx context.Context) error {
			p, st, err := s.Unstake(ctx, s.runner.Account())
			if err != nil {
				return err
			}
			switch {
			case !st.Pending:
				return fmt.Errorf("no unstake request: %w", domain.ErrNothingPending)
			case !st.CanWithdraw:
				return fmt.Errorf("%d hours left: %w", st.HoursLeft, domain.ErrNotClaimable)
			}
			amount.Set(p.Amount)
			return nil
		},
		Call: func(ctx context.Context) (domain.TxResult, error) {
			return s.contracts.CompleteUnstake(ctx)
		},
	})
}

// ClaimRewards collects accrued staking rewards.
func (s *StakingService) ClaimRewards(ctx context.Context) (domain.Activity, domain.Balances, error) {
	amount := new(big.Int)
	return s.accounts.act(ctx, Action{
		Kind:    domain.ActivityClaimRewards,
		Event:   domain.EventRewardsClaimed,
		Channel: domain.ChannelStaking,
		Amount:  amount,
		Check: func(ctx context.Context) error {
			r, err := s.contracts.PendingRewards(ctx, s.runner.Account())
			if err != nil {
				return fmt.Errorf("read rewards: %w", err)
			}
			if r == nil || r.Sign() <= 0 {
				return fmt.Errorf("no rewards accrued: %w", domain.ErrNothingPending)
			}
			amount.Set(r)
			return nil
		},
		Call: func(ctx context.Context) (domain.TxResult, error) {
			return s.contracts.ClaimRewards(ctx)
		},
	})
}
