// Package watcher polls the staking pool for tracked wallets and announces
// when a pending unstake becomes claimable.
package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aegistech/base-markets/internal/domain"
	"github.com/aegistech/base-markets/internal/money"
	"github.com/aegistech/base-markets/internal/unstake"
)

// PendingReader reads the pending unstake slot of an address.
type PendingReader interface {
	PendingUnstake(ctx context.Context, addr common.Address) (domain.PendingUnstake, error)
}

// Notifier receives claimable events. *notify.Notifier satisfies it.
type Notifier interface {
	Notify(ctx context.Context, ev domain.Event) error
}

// UnstakeWatcher emits one unstake_claimable event per (wallet, unlock time).
type UnstakeWatcher struct {
	reader   PendingReader
	addrs    []common.Address
	bus      domain.SignalBus // optional
	notifier Notifier         // optional
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	notified map[common.Address]int64 // last unlock time announced
}

// NewUnstakeWatcher creates a watcher over addrs. Duplicate and zero
// addresses are dropped.
func NewUnstakeWatcher(reader PendingReader, addrs []common.Address, bus domain.SignalBus, notifier Notifier, logger *slog.Logger) *UnstakeWatcher {
	seen := make(map[common.Address]bool, len(addrs))
	var tracked []common.Address
	for _, a := range addrs {
		if a == (common.Address{}) || seen[a] {
			continue
		}
		seen[a] = true
		tracked = append(tracked, a)
	}
	return &UnstakeWatcher{
		reader:   reader,
		addrs:    tracked,
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "unstake_watcher")),
		now:      time.Now,
		notified: make(map[common.Address]int64),
	}
}

// Addresses returns the tracked wallets.
func (w *UnstakeWatcher) Addresses() []common.Address {
	return append([]common.Address(nil), w.addrs...)
}

// Run polls every interval until ctx is done.
func (w *UnstakeWatcher) Run(ctx context.Context, interval time.Duration) error {
	w.logger.InfoContext(ctx, "unstake watcher started",
		slog.Int("wallets", len(w.addrs)),
		slog.Duration("interval", interval),
	)
	w.Poll(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "unstake watcher stopped")
			return ctx.Err()
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll checks every tracked wallet once and returns the events emitted.
// Read failures are logged and the wallet is retried on the next poll.
func (w *UnstakeWatcher) Poll(ctx context.Context) []domain.Event {
	var out []domain.Event
	for _, addr := range w.addrs {
		ev, ok, err := w.check(ctx, addr)
		if err != nil {
			w.logger.WarnContext(ctx, "pending unstake read failed",
				slog.String("address", addr.Hex()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if ok {
			out = append(out, ev)
		}
	}
	return out
}

func (w *UnstakeWatcher) check(ctx context.Context, addr common.Address) (domain.Event, bool, error) {
	p, err := w.reader.PendingUnstake(ctx, addr)
	if err != nil {
		return domain.Event{}, false, fmt.Errorf("watcher: %w", err)
	}
	now := w.now()
	st := unstake.Evaluate(p, now)

	w.mu.Lock()
	defer w.mu.Unlock()
	if st.Phase != unstake.PhaseClaimable {
		if !st.Pending {
			delete(w.notified, addr)
		}
		return domain.Event{}, false, nil
	}
	if w.notified[addr] == p.UnlockTime {
		return domain.Event{}, false, nil
	}
	w.notified[addr] = p.UnlockTime

	ev := domain.Event{
		Type:   domain.EventUnstakeClaimable,
		Wallet: strings.ToLower(addr.Hex()),
		Data: map[string]any{
			"amount":    money.FormatUSDC(p.Amount),
			"unlock_at": st.UnlockAt.Format(time.RFC3339),
		},
		At: now.UTC(),
	}
	w.emit(ctx, ev)
	w.logger.InfoContext(ctx, "unstake claimable",
		slog.String("address", addr.Hex()),
		slog.String("amount", money.FormatUSDC(p.Amount)),
	)
	return ev, true, nil
}

func (w *UnstakeWatcher) emit(ctx context.Context, ev domain.Event) {
	if w.bus != nil {
		payload, err := json.Marshal(ev)
		if err == nil {
			err = w.bus.Publish(ctx, domain.ChannelStaking, payload)
		}
		if err != nil {
			w.logger.WarnContext(ctx, "claimable publish failed", slog.String("error", err.Error()))
		}
	}
	if w.notifier != nil {
		if err := w.notifier.Notify(ctx, ev); err != nil {
			w.logger.WarnContext(ctx, "claimable notify failed", slog.String("error", err.Error()))
		}
	}
}
