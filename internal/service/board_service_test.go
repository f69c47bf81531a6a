package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegistech/base-markets/internal/catalog"
	"github.com/aegistech/base-markets/internal/domain"
)

type staticAnalyst string

func (a staticAnalyst) Analyze(context.Context, string, float64) string { return string(a) }

type brokenLeaders struct{}

func (brokenLeaders) UpsertBatch(context.Context, []domain.LeaderboardEntry) error { return nil }
func (brokenLeaders) Top(context.Context, int) ([]domain.LeaderboardEntry, error) {
	return nil, errors.New("connection refused")
}

func TestLeaderboardFallsBackToCatalog(t *testing.T) {
	ctx := context.Background()
	markets := NewMarketService(nil, nil, discard())

	for _, leaders := range []domain.LeaderboardStore{nil, brokenLeaders{}} {
		svc := NewBoardService(leaders, nil, staticAnalyst(""), markets, discard())
		rows, err := svc.Leaderboard(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, catalog.Leaderboard()[:3], rows)
	}
}

func TestAnalysis(t *testing.T) {
	ctx := context.Background()
	svc := NewBoardService(nil, nil, staticAnalyst("Looks bullish."), NewMarketService(nil, nil, discard()), discard())

	m, text, err := svc.Analysis(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "3", m.ID)
	assert.Equal(t, "Looks bullish.", text)

	_, _, err = svc.Analysis(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTickerWithoutFeed(t *testing.T) {
	svc := NewBoardService(nil, nil, staticAnalyst(""), NewMarketService(nil, nil, discard()), discard())
	assert.Len(t, svc.Ticker(context.Background()), len(catalog.FallbackCoins(time.Now())))
	assert.Equal(t, catalog.News(), svc.News(context.Background()))
}

type countingArchiver struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (a *countingArchiver) ArchiveActivity(_ context.Context, before time.Time) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cutoffs = append(a.cutoffs, before)
	return 3, a.err
}

func TestArchiveSchedulerRunOnce(t *testing.T) {
	arch := &countingArchiver{}
	s := NewArchiveScheduler(arch, 90*24*time.Hour, time.Hour, discard())
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	assert.Equal(t, int64(3), s.RunOnce(context.Background()))
	require.Len(t, arch.cutoffs, 1)
	assert.Equal(t, now.Add(-90*24*time.Hour), arch.cutoffs[0])

	arch.err = errors.New("s3 down")
	assert.Zero(t, s.RunOnce(context.Background()))
}

func TestArchiveSchedulerStops(t *testing.T) {
	arch := &countingArchiver{}
	s := NewArchiveScheduler(arch, time.Hour, 10*time.Millisecond, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		arch.mu.Lock()
		defer arch.mu.Unlock()
		return len(arch.cutoffs) >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
