// Package unstake derives the withdrawability of a pending unstake request
// from its unlock timestamp. It holds no state; callers re-evaluate with fresh
// contract data on every read.
package unstake

import (
	"time"

	"github.com/aegistech/base-markets/internal/domain"
)

// LockPeriod is how long staked funds stay locked after requestUnstake.
const LockPeriod = 72 * time.Hour

// Phase summarizes where a request is in its lifecycle.
type Phase string

const (
	PhaseNone      Phase = "none"
	PhaseLocked    Phase = "locked"
	PhaseClaimable Phase = "claimable"
)

// Status is the evaluated lock state of a pending unstake.
type Status struct {
	Pending       bool
	CanWithdraw   bool
	ShowCountdown bool
	SecondsLeft   int64
	HoursLeft     int64
	DaysLeft      int64
	UnlockAt      time.Time // zero when the unlock time is unknown
	Phase         Phase
}

// Evaluate computes the lock status of p at now.
//
// canWithdraw holds once now reaches a known unlock time. An unlock time of
// zero never allows withdrawal and hides the countdown. Hours round up so any
// remaining fraction of an hour counts as one, and days round up from hours.
func Evaluate(p domain.PendingUnstake, now time.Time) Status {
	unlock := p.UnlockTime
	ts := now.Unix()

	s := Status{
		Pending:     p.HasRequest(),
		CanWithdraw: unlock > 0 && ts >= unlock,
	}
	if unlock > ts {
		s.SecondsLeft = unlock - ts
		s.HoursLeft = ceilDiv(s.SecondsLeft, 3600)
		s.DaysLeft = ceilDiv(s.HoursLeft, 24)
	}
	if unlock > 0 {
		s.UnlockAt = time.Unix(unlock, 0).UTC()
		s.ShowCountdown = !s.CanWithdraw
	}

	switch {
	case !s.Pending || unlock == 0:
		s.Phase = PhaseNone
	case s.CanWithdraw:
		s.Phase = PhaseClaimable
	default:
		s.Phase = PhaseLocked
	}
	return s
}

// UnlockTime is the unlock timestamp of a request made at requestedAt.
func UnlockTime(requestedAt time.Time, lock time.Duration) int64 {
	return requestedAt.Unix() + int64(lock/time.Second)
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
