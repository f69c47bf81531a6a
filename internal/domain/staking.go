package domain

import "math/big"

// PendingUnstake is the single outstanding unstake request of an address.
// Amount zero means no request. UnlockTime is a unix timestamp in seconds and
// zero when unknown.
type PendingUnstake struct {
	Amount     *big.Int
	UnlockTime int64
}

// HasRequest reports whether an unstake request is outstanding.
func (p PendingUnstake) HasRequest() bool {
	return p.Amount != nil && p.Amount.Sign() > 0
}
