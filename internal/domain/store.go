package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// MarketStore persists the market catalog.
type MarketStore interface {
	Upsert(ctx context.Context, market Market) error
	UpsertBatch(ctx context.Context, markets []Market) error
	GetByID(ctx context.Context, id string) (Market, error)
	List(ctx context.Context, opts ListOpts) ([]Market, error)
	Count(ctx context.Context) (int64, error)
}

// ActivityStore persists the per-wallet action log.
type ActivityStore interface {
	Create(ctx context.Context, a Activity) error
	Finish(ctx context.Context, id string, status ActivityStatus, txHash, errText string) error
	GetByID(ctx context.Context, id string) (Activity, error)
	ListByWallet(ctx context.Context, wallet string, opts ListOpts) ([]Activity, error)
	ListBefore(ctx context.Context, before time.Time, limit int) ([]Activity, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// LeaderboardStore persists predictor rankings.
type LeaderboardStore interface {
	UpsertBatch(ctx context.Context, entries []LeaderboardEntry) error
	Top(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}
