package domain

import (
	"math/big"
	"time"
)

// ActivityKind names a user action forwarded to the contracts.
type ActivityKind string

const (
	ActivityDeposit         ActivityKind = "deposit"
	ActivityWithdraw        ActivityKind = "withdraw"
	ActivityBuyShares       ActivityKind = "buy_shares"
	ActivityStake           ActivityKind = "stake"
	ActivityRequestUnstake  ActivityKind = "request_unstake"
	ActivityCompleteUnstake ActivityKind = "complete_unstake"
	ActivityClaimRewards    ActivityKind = "claim_rewards"
)

// ActivityStatus is the lifecycle state of an action.
type ActivityStatus string

const (
	ActivityPending   ActivityStatus = "pending"
	ActivityConfirmed ActivityStatus = "confirmed"
	ActivityFailed    ActivityStatus = "failed"
)

// Activity is the off-chain record of one action.
type Activity struct {
	ID        string
	Wallet    string
	Kind      ActivityKind
	MarketID  string
	Outcome   Outcome
	Amount    *big.Int
	TxHash    string
	Status    ActivityStatus
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
