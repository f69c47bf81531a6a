package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/aegistech/base-markets/internal/domain"
	"github.com/aegistech/base-markets/internal/money"
)

// DefaultActionTimeout bounds one contract action including mining.
const DefaultActionTimeout = 2 * time.Minute

// Notifier receives finished actions. *notify.Notifier satisfies it.
type Notifier interface {
	Notify(ctx context.Context, ev domain.Event) error
}

// Action describes one state-changing contract call.
type Action struct {
	Kind     domain.ActivityKind
	Event    string // bus/notify event type on success
	Channel  string // bus channel
	MarketID string
	Outcome  domain.Outcome
	Amount   *big.Int
	// Check runs under the wallet lock before anything is recorded. A
	// failing check rejects the action without touching the chain.
	Check func(ctx context.Context) error
	Call  func(ctx context.Context) (domain.TxResult, error)
}

// ActionRunner executes actions one at a time per wallet and records their
// outcome. The chain is the source of truth; the activity log, audit entry,
// bus event and notification are best-effort side effects, except that the
// activity row is written before the call.
type ActionRunner struct {
	account  common.Address
	locks    domain.LockManager
	activity domain.ActivityStore
	audit    domain.AuditStore
	balances domain.BalanceCache // optional
	bus      domain.SignalBus    // optional
	notifier Notifier            // optional
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// RunnerDeps groups the collaborators of an ActionRunner.
type RunnerDeps struct {
	Account  common.Address
	Locks    domain.LockManager
	Activity domain.ActivityStore
	Audit    domain.AuditStore
	Balances domain.BalanceCache
	Bus      domain.SignalBus
	Notifier Notifier
	Timeout  time.Duration
}

// NewActionRunner creates an ActionRunner. Account is the operator wallet;
// zero leaves the runner read-only.
func NewActionRunner(deps RunnerDeps, logger *slog.Logger) *ActionRunner {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = DefaultActionTimeout
	}
	return &ActionRunner{
		account:  deps.Account,
		locks:    deps.Locks,
		activity: deps.Activity,
		audit:    deps.Audit,
		balances: deps.Balances,
		bus:      deps.Bus,
		notifier: deps.Notifier,
		timeout:  timeout,
		logger:   logger.With(slog.String("component", "action_runner")),
		now:      time.Now,
	}
}

// Account returns the operator wallet address.
func (r *ActionRunner) Account() common.Address { return r.account }

// Run executes a. Validation errors from Check are returned unwrapped; chain
// failures are recorded as failed activity and returned.
func (r *ActionRunner) Run(ctx context.Context, a Action) (domain.Activity, error) {
	if r.account == (common.Address{}) {
		return domain.Activity{}, domain.ErrWalletUnavailable
	}
	wallet := strings.ToLower(r.account.Hex())

	unlock, err := r.locks.Acquire(ctx, "wallet:"+wallet, r.timeout)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return domain.Activity{}, domain.ErrActionInFlight
		}
		return domain.Activity{}, fmt.Errorf("action_runner: acquire lock: %w", err)
	}
	defer unlock()

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if a.Check != nil {
		if err := a.Check(callCtx); err != nil {
			return domain.Activity{}, err
		}
	}

	now := r.now().UTC()
	act := domain.Activity{
		ID:        uuid.NewString(),
		Wallet:    wallet,
		Kind:      a.Kind,
		MarketID:  a.MarketID,
		Outcome:   a.Outcome,
		Amount:    amountOrZero(a.Amount),
		Status:    domain.ActivityPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.activity.Create(ctx, act); err != nil {
		return domain.Activity{}, fmt.Errorf("action_runner: record activity: %w", err)
	}

	tx, callErr := a.Call(callCtx)

	// Balances changed or may have; drop the cached copy either way.
	r.invalidate(ctx)

	if callErr != nil {
		act.Status = domain.ActivityFailed
		act.Error = callErr.Error()
		r.finish(ctx, act)
		r.logger.ErrorContext(ctx, "action failed",
			slog.String("kind", string(a.Kind)),
			slog.String("activity_id", act.ID),
			slog.String("error", callErr.Error()),
		)
		r.emit(ctx, domain.ChannelAccount, domain.EventError, act)
		return act, fmt.Errorf("action_runner: %s: %w", a.Kind, callErr)
	}

	act.Status = domain.ActivityConfirmed
	act.TxHash = tx.Hash.Hex()
	r.finish(ctx, act)
	r.logger.InfoContext(ctx, "action confirmed",
		slog.String("kind", string(a.Kind)),
		slog.String("activity_id", act.ID),
		slog.String("tx_hash", act.TxHash),
		slog.Uint64("block", tx.BlockNumber),
		slog.String("amount", money.FormatUSDC(act.Amount)),
	)
	r.emit(ctx, a.Channel, a.Event, act)
	return act, nil
}

func (r *ActionRunner) finish(ctx context.Context, act domain.Activity) {
	act.UpdatedAt = r.now().UTC()
	if err := r.activity.Finish(ctx, act.ID, act.Status, act.TxHash, act.Error); err != nil {
		r.logger.WarnContext(ctx, "activity update failed",
			slog.String("activity_id", act.ID),
			slog.String("error", err.Error()),
		)
	}
	if r.audit == nil {
		return
	}
	if err := r.audit.Log(ctx, "action."+string(act.Kind), map[string]any{
		"activity_id": act.ID,
		"wallet":      act.Wallet,
		"status":      string(act.Status),
		"amount":      act.Amount.String(),
		"tx_hash":     act.TxHash,
		"error":       act.Error,
	}); err != nil {
		r.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
	}
}

func (r *ActionRunner) invalidate(ctx context.Context) {
	if r.balances == nil {
		return
	}
	if err := r.balances.Invalidate(ctx, r.account); err != nil {
		r.logger.WarnContext(ctx, "balance cache invalidate failed", slog.String("error", err.Error()))
	}
}

// emit publishes the activity on the bus, appends it to the activity stream
// and notifies operators.
func (r *ActionRunner) emit(ctx context.Context, channel, event string, act domain.Activity) {
	ev := ActivityEvent(event, act, r.now().UTC())

	if r.bus != nil && channel != "" {
		payload, err := json.Marshal(ev)
		if err != nil {
			r.logger.WarnContext(ctx, "event marshal failed", slog.String("error", err.Error()))
			return
		}
		if err := r.bus.Publish(ctx, channel, payload); err != nil {
			r.logger.WarnContext(ctx, "event publish failed",
				slog.String("channel", channel),
				slog.String("error", err.Error()),
			)
		}
		if err := r.bus.StreamAppend(ctx, domain.StreamActivity, payload); err != nil {
			r.logger.WarnContext(ctx, "activity stream append failed", slog.String("error", err.Error()))
		}
	}
	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, ev); err != nil {
			r.logger.WarnContext(ctx, "notify failed", slog.String("error", err.Error()))
		}
	}
}

// ActivityEvent builds the bus envelope for a finished activity.
func ActivityEvent(event string, act domain.Activity, at time.Time) domain.Event {
	data := map[string]any{
		"activity_id": act.ID,
		"kind":        string(act.Kind),
		"status":      string(act.Status),
		"amount":      money.FormatUSDC(act.Amount),
	}
	if act.TxHash != "" {
		data["tx_hash"] = act.TxHash
	}
	if act.MarketID != "" {
		data["market_id"] = act.MarketID
		data["outcome"] = string(act.Outcome)
	}
	if act.Error != "" {
		data["error"] = act.Error
	}
	return domain.Event{Type: event, Wallet: act.Wallet, Data: data, At: at}
}

func amountOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
