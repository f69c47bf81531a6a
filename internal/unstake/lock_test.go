package unstake

import (
	"math/big"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/aegistech/base-markets/internal/domain"
)

var now = time.Unix(1_760_000_000, 0)

func pending(amount int64, unlock int64) domain.PendingUnstake {
	return domain.PendingUnstake{Amount: big.NewInt(amount), UnlockTime: unlock}
}

func TestEvaluate(t *testing.T) {
	ts := now.Unix()
	tests := []struct {
		name      string
		p         domain.PendingUnstake
		canWith   bool
		countdown bool
		hours     int64
		days      int64
		phase     Phase
	}{
		{"no request", pending(0, 0), false, false, 0, 0, PhaseNone},
		{"amount but unknown unlock", pending(5_000_000, 0), false, false, 0, 0, PhaseNone},
		{"full lock period ahead", pending(5_000_000, ts+259200), false, true, 72, 3, PhaseLocked},
		{"one second past unlock", pending(5_000_000, ts-1), true, false, 0, 0, PhaseClaimable},
		{"exactly at unlock", pending(5_000_000, ts), true, false, 0, 0, PhaseClaimable},
		{"one second left", pending(5_000_000, ts+1), false, true, 1, 1, PhaseLocked},
		{"just over two days", pending(5_000_000, ts+48*3600+1), false, true, 49, 3, PhaseLocked},
		{"exactly one day", pending(5_000_000, ts+24*3600), false, true, 24, 1, PhaseLocked},
		{"past unlock without amount", pending(0, ts-10), true, false, 0, 0, PhaseNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Evaluate(tt.p, now)
			assert.Equal(t, tt.canWith, s.CanWithdraw, "canWithdraw")
			assert.Equal(t, tt.countdown, s.ShowCountdown, "countdown")
			assert.Equal(t, tt.hours, s.HoursLeft, "hoursLeft")
			assert.Equal(t, tt.days, s.DaysLeft, "daysLeft")
			assert.Equal(t, tt.phase, s.Phase)
		})
	}
}

func TestEvaluateNilAmount(t *testing.T) {
	s := Evaluate(domain.PendingUnstake{UnlockTime: now.Unix() + 60}, now)
	assert.False(t, s.Pending)
	assert.Equal(t, PhaseNone, s.Phase)
	assert.True(t, s.ShowCountdown)
}

func TestEvaluateProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	ts := now.Unix()
	for i := 0; i < 5000; i++ {
		offset := r.Int63n(30*24*3600) + 1

		past := Evaluate(pending(1, ts-offset+1), now)
		assert.True(t, past.CanWithdraw, "unlock <= now must be withdrawable (offset %d)", offset)
		assert.Zero(t, past.HoursLeft)

		future := Evaluate(pending(1, ts+offset), now)
		assert.False(t, future.CanWithdraw, "unlock > now must be locked (offset %d)", offset)
		assert.GreaterOrEqual(t, future.DaysLeft, int64(1))
		assert.GreaterOrEqual(t, future.HoursLeft*3600, future.SecondsLeft)
		assert.Less(t, (future.HoursLeft-1)*3600, future.SecondsLeft)
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	p := pending(7, now.Unix()+1000)
	assert.Equal(t, Evaluate(p, now), Evaluate(p, now))
}

func TestUnlockTime(t *testing.T) {
	got := UnlockTime(now, LockPeriod)
	assert.Equal(t, now.Unix()+259200, got)
	assert.Equal(t, int64(3), Evaluate(pending(1, got), now).DaysLeft)
}

func TestEvaluateLockedStatus(t *testing.T) {
	unlock := now.Unix() + 30*3600 + 5
	want := Status{
		Pending:       true,
		ShowCountdown: true,
		SecondsLeft:   30*3600 + 5,
		HoursLeft:     31,
		DaysLeft:      2,
		UnlockAt:      time.Unix(unlock, 0).UTC(),
		Phase:         PhaseLocked,
	}
	if diff := cmp.Diff(want, Evaluate(pending(5_000_000, unlock), now)); diff != "" {
		t.Errorf("Evaluate mismatch (-want +got):\n%s", diff)
	}
}
