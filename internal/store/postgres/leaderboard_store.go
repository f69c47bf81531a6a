package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegistech/base-markets/internal/domain"
)

var _ domain.LeaderboardStore = (*LeaderboardStore)(nil)

// LeaderboardStore implements domain.LeaderboardStore using PostgreSQL.
type LeaderboardStore struct {
	pool *pgxpool.Pool
}

// NewLeaderboardStore creates a new LeaderboardStore.
func NewLeaderboardStore(pool *pgxpool.Pool) *LeaderboardStore {
	return &LeaderboardStore{pool: pool}
}

// UpsertBatch replaces the rows for the given ranks.
func (s *LeaderboardStore) UpsertBatch(ctx context.Context, entries []domain.LeaderboardEntry) error {
	if len(entries) == 0 {
		return nil
	}
	const query = `
		INSERT INTO leaderboard (rank, username, pnl, win_rate, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (rank) DO UPDATE SET
			username   = EXCLUDED.username,
			pnl        = EXCLUDED.pnl,
			win_rate   = EXCLUDED.win_rate,
			updated_at = NOW()`

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(query, e.Rank, e.User, e.PnL, e.WinRate)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert leaderboard item %d: %w", i, err)
		}
	}
	return nil
}

// Top returns the best limit entries by rank. limit <= 0 returns all.
func (s *LeaderboardStore) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	query := `SELECT rank, username, pnl, win_rate FROM leaderboard ORDER BY rank ASC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: top leaderboard: %w", err)
	}
	defer rows.Close()

	var out []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.Rank, &e.User, &e.PnL, &e.WinRate); err != nil {
			return nil, fmt.Errorf("postgres: scan leaderboard: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: top leaderboard: %w", err)
	}
	return out, nil
}
