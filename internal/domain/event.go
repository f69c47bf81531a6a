package domain

import "time"

// Bus channels.
const (
	ChannelAccount = "account"
	ChannelTrades  = "trades"
	ChannelStaking = "staking"
	ChannelTicker  = "ticker"

	// StreamActivity is the durable stream of finished actions.
	StreamActivity = "activity"
)

// Event types, shared by the bus and the notifier filter.
const (
	EventDeposit          = "deposit"
	EventWithdraw         = "withdraw"
	EventTrade            = "trade"
	EventStake            = "stake"
	EventUnstakeRequested = "unstake_requested"
	EventUnstakeCompleted = "unstake_completed"
	EventRewardsClaimed   = "rewards_claimed"
	EventUnstakeClaimable = "unstake_claimable"
	EventTicker           = "ticker"
	EventError            = "error"
)

// Event is the envelope published on the bus and pushed to WebSocket clients.
type Event struct {
	Type   string         `json:"type"`
	Wallet string         `json:"wallet,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
	At     time.Time      `json:"at"`
}
