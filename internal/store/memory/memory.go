// Package memory keeps activity and audit records in process memory for
// deployments without PostgreSQL.
package memory

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/aegistech/base-markets/internal/domain"
)

var (
	_ domain.ActivityStore = (*ActivityStore)(nil)
	_ domain.AuditStore    = (*AuditStore)(nil)
)

// ActivityStore implements domain.ActivityStore.
type ActivityStore struct {
	mu   sync.RWMutex
	rows map[string]domain.Activity
}

// NewActivityStore creates an empty store.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{rows: make(map[string]domain.Activity)}
}

func (s *ActivityStore) Create(_ context.Context, a domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[a.ID]; ok {
		return domain.ErrAlreadyExists
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = a.CreatedAt
	s.rows[a.ID] = clone(a)
	return nil
}

func (s *ActivityStore) Finish(_ context.Context, id string, status domain.ActivityStatus, txHash, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Status = status
	a.TxHash = txHash
	a.Error = errText
	a.UpdatedAt = time.Now().UTC()
	s.rows[id] = a
	return nil
}

func (s *ActivityStore) GetByID(_ context.Context, id string) (domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.rows[id]
	if !ok {
		return domain.Activity{}, domain.ErrNotFound
	}
	return clone(a), nil
}

// ListByWallet returns newest first, honoring the time window and paging.
func (s *ActivityStore) ListByWallet(_ context.Context, wallet string, opts domain.ListOpts) ([]domain.Activity, error) {
	s.mu.RLock()
	var out []domain.Activity
	for _, a := range s.rows {
		if a.Wallet != wallet {
			continue
		}
		if opts.Since != nil && a.CreatedAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && a.CreatedAt.After(*opts.Until) {
			continue
		}
		out = append(out, clone(a))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, opts.Offset, opts.Limit), nil
}

// ListBefore returns rows created before the cutoff, oldest first.
func (s *ActivityStore) ListBefore(_ context.Context, before time.Time, limit int) ([]domain.Activity, error) {
	s.mu.RLock()
	var out []domain.Activity
	for _, a := range s.rows {
		if a.CreatedAt.Before(before) {
			out = append(out, clone(a))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return page(out, 0, limit), nil
}

func (s *ActivityStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.rows {
		if a.CreatedAt.Before(before) {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

func clone(a domain.Activity) domain.Activity {
	if a.Amount != nil {
		a.Amount = new(big.Int).Set(a.Amount)
	}
	return a
}

func page[T any](in []T, offset, limit int) []T {
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

// AuditStore is an append-only audit log capped at maxEntries.
type AuditStore struct {
	mu         sync.RWMutex
	entries    []domain.AuditEntry
	nextID     int64
	maxEntries int
}

// NewAuditStore keeps at most maxEntries entries (default 10000).
func NewAuditStore(maxEntries int) *AuditStore {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &AuditStore{maxEntries: maxEntries}
}

func (s *AuditStore) Log(_ context.Context, event string, detail map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.entries = append(s.entries, domain.AuditEntry{
		ID:        s.nextID,
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	if len(s.entries) > s.maxEntries {
		s.entries = s.entries[len(s.entries)-s.maxEntries:]
	}
	return nil
}

// List returns newest first.
func (s *AuditStore) List(_ context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	s.mu.RLock()
	out := make([]domain.AuditEntry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if opts.Since != nil && e.CreatedAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && e.CreatedAt.After(*opts.Until) {
			continue
		}
		out = append(out, e)
	}
	s.mu.RUnlock()
	return page(out, opts.Offset, opts.Limit), nil
}
