// Package notify forwards account events to operator channels (Telegram,
// Discord), filtered by event type.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aegistech/base-markets/internal/domain"
)

// Sender is one notification channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier dispatches events to every Sender whose event type is allowed.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier. An empty events list allows every type.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether at least one sender is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && len(n.senders) > 0
}

// Notify formats ev and sends it when its type passes the filter.
func (n *Notifier) Notify(ctx context.Context, ev domain.Event) error {
	if !n.Enabled() {
		return nil
	}
	if len(n.events) > 0 && !n.events[ev.Type] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", ev.Type))
		return nil
	}
	title, message := Format(ev)
	return n.dispatch(ctx, title, message)
}

// dispatch delivers to all senders; one failure does not stop the rest.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

var titles = map[string]string{
	domain.EventDeposit:          "Deposit confirmed",
	domain.EventWithdraw:         "Withdrawal confirmed",
	domain.EventTrade:            "Shares bought",
	domain.EventStake:            "Stake confirmed",
	domain.EventUnstakeRequested: "Unstake requested",
	domain.EventUnstakeCompleted: "Unstake completed",
	domain.EventRewardsClaimed:   "Rewards claimed",
	domain.EventUnstakeClaimable: "Unstake ready to claim",
	domain.EventError:            "Action failed",
}

// Format renders an event as a title and a key=value body.
func Format(ev domain.Event) (string, string) {
	title, ok := titles[ev.Type]
	if !ok {
		title = ev.Type
	}

	var b strings.Builder
	if ev.Wallet != "" {
		fmt.Fprintf(&b, "wallet: %s", ev.Wallet)
	}
	keys := make([]string, 0, len(ev.Data))
	for k := range ev.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %v", k, ev.Data[k])
	}
	return title, b.String()
}
