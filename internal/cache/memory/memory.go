// Package memory provides single-process implementations of the cache-layer
// interfaces for deployments without Redis. State is lost on restart and is
// not shared between replicas.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"

	"github.com/aegistech/base-markets/internal/domain"
)

var (
	_ domain.LockManager = (*LockManager)(nil)
	_ domain.NonceStore  = (*NonceStore)(nil)
	_ domain.RateLimiter = (*RateLimiter)(nil)
	_ domain.SignalBus   = (*SignalBus)(nil)
)

// LockManager is a TTL lock table.
type LockManager struct {
	mu   sync.Mutex
	held map[string]lockEntry
	now  func() time.Time
	seq  uint64
}

type lockEntry struct {
	token   uint64
	expires time.Time
}

// NewLockManager creates an empty lock table.
func NewLockManager() *LockManager {
	return &LockManager{held: make(map[string]lockEntry), now: time.Now}
}

// Acquire returns domain.ErrLockHeld while an unexpired holder exists.
func (lm *LockManager) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	now := lm.now()
	if e, ok := lm.held[key]; ok && now.Before(e.expires) {
		return nil, domain.ErrLockHeld
	}
	lm.seq++
	token := lm.seq
	lm.held[key] = lockEntry{token: token, expires: now.Add(ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			lm.mu.Lock()
			defer lm.mu.Unlock()
			if e, ok := lm.held[key]; ok && e.token == token {
				delete(lm.held, key)
			}
		})
	}, nil
}

// NonceStore keeps one nonce per address with an expiry.
type NonceStore struct {
	mu     sync.Mutex
	nonces map[common.Address]nonceEntry
	now    func() time.Time
}

type nonceEntry struct {
	value   string
	expires time.Time
}

// NewNonceStore creates an empty NonceStore.
func NewNonceStore() *NonceStore {
	return &NonceStore{nonces: make(map[common.Address]nonceEntry), now: time.Now}
}

func (s *NonceStore) Put(_ context.Context, addr common.Address, nonce string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonces[addr] = nonceEntry{value: nonce, expires: s.now().Add(ttl)}
	return nil
}

func (s *NonceStore) Take(_ context.Context, addr common.Address) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.nonces[addr]
	delete(s.nonces, addr)
	if !ok || !s.now().Before(e.expires) {
		return "", domain.ErrNonceExpired
	}
	return e.value, nil
}

// RateLimiter keeps one token bucket per key and limit.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter creates an empty RateLimiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{limiters: make(map[string]*rate.Limiter)}
}

// Allow admits limit events per window with a burst of limit.
func (r *RateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	id := fmt.Sprintf("%s|%d|%s", key, limit, window)

	r.mu.Lock()
	l, ok := r.limiters[id]
	if !ok {
		l = rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)
		r.limiters[id] = l
	}
	r.mu.Unlock()

	return l.Allow(), nil
}

// SignalBus fans published payloads out to subscribers and keeps bounded
// in-memory streams.
type SignalBus struct {
	mu      sync.RWMutex
	subs    map[string]map[chan []byte]struct{}
	streams map[string][]domain.StreamMessage
	seq     uint64
	maxLen  int
}

// NewSignalBus creates a SignalBus whose streams keep at most maxLen entries.
func NewSignalBus(maxLen int) *SignalBus {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &SignalBus{
		subs:    make(map[string]map[chan []byte]struct{}),
		streams: make(map[string][]domain.StreamMessage),
		maxLen:  maxLen,
	}
}

// Publish delivers to every subscriber of channel. Slow subscribers drop
// messages rather than block the publisher.
func (b *SignalBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber; the channel closes when ctx ends.
func (b *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 128)

	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[chan []byte]struct{})
	}
	b.subs[channel][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[channel], ch)
		b.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

func (b *SignalBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	msgs := append(b.streams[stream], domain.StreamMessage{
		ID:      fmt.Sprintf("%d-0", b.seq),
		Payload: payload,
	})
	if len(msgs) > b.maxLen {
		msgs = msgs[len(msgs)-b.maxLen:]
	}
	b.streams[stream] = msgs
	return nil
}

// StreamRead returns up to count entries with an id after lastID. "0" and ""
// read from the start.
func (b *SignalBus) StreamRead(_ context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	after := uint64(0)
	if lastID != "" && lastID != "0" {
		n, err := streamSeq(lastID)
		if err != nil {
			return nil, fmt.Errorf("memory: bad stream id %q", lastID)
		}
		after = n
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []domain.StreamMessage
	for _, m := range b.streams[stream] {
		if id, _ := streamSeq(m.ID); id <= after {
			continue
		}
		out = append(out, m)
		if count > 0 && len(out) == count {
			break
		}
	}
	return out, nil
}

func streamSeq(id string) (uint64, error) {
	seq, _, _ := strings.Cut(id, "-")
	return strconv.ParseUint(seq, 10, 64)
}
