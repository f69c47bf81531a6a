package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegistech/base-markets/internal/domain"
)

var _ domain.ActivityStore = (*ActivityStore)(nil)

// ActivityStore implements domain.ActivityStore using PostgreSQL. Amounts are
// NUMERIC(78,0) columns exchanged as decimal strings.
type ActivityStore struct {
	pool *pgxpool.Pool
}

// NewActivityStore creates a new ActivityStore backed by the given pool.
func NewActivityStore(pool *pgxpool.Pool) *ActivityStore {
	return &ActivityStore{pool: pool}
}

// Create inserts a new activity row.
func (s *ActivityStore) Create(ctx context.Context, a domain.Activity) error {
	amount := "0"
	if a.Amount != nil {
		amount = a.Amount.String()
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO activity (
			id, wallet, kind, market_id, outcome, amount,
			tx_hash, status, error, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $10)`
	_, err := s.pool.Exec(ctx, query,
		a.ID, a.Wallet, string(a.Kind), a.MarketID, string(a.Outcome), amount,
		a.TxHash, string(a.Status), a.Error, createdAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create activity %s: %w", a.ID, err)
	}
	return nil
}

// Finish moves an activity to its terminal status.
func (s *ActivityStore) Finish(ctx context.Context, id string, status domain.ActivityStatus, txHash, errText string) error {
	const query = `
		UPDATE activity
		SET status = $2, tx_hash = $3, error = $4, updated_at = NOW()
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, string(status), txHash, errText)
	if err != nil {
		return fmt.Errorf("postgres: finish activity %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const activityCols = `id, wallet, kind, market_id, outcome, amount::text,
	tx_hash, status, error, created_at, updated_at`

func scanActivity(row pgx.Row) (domain.Activity, error) {
	var (
		a                             domain.Activity
		kind, outcome, amount, status string
	)
	err := row.Scan(
		&a.ID, &a.Wallet, &kind, &a.MarketID, &outcome, &amount,
		&a.TxHash, &status, &a.Error, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Activity{}, err
	}
	a.Kind = domain.ActivityKind(kind)
	a.Outcome = domain.Outcome(outcome)
	a.Status = domain.ActivityStatus(status)
	v, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return domain.Activity{}, fmt.Errorf("activity %s: bad amount %q", a.ID, amount)
	}
	a.Amount = v
	return a, nil
}

// GetByID retrieves one activity.
func (s *ActivityStore) GetByID(ctx context.Context, id string) (domain.Activity, error) {
	a, err := scanActivity(s.pool.QueryRow(ctx,
		`SELECT `+activityCols+` FROM activity WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Activity{}, domain.ErrNotFound
		}
		return domain.Activity{}, fmt.Errorf("postgres: get activity %s: %w", id, err)
	}
	return a, nil
}

// ListByWallet returns a wallet's activity newest first.
func (s *ActivityStore) ListByWallet(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.Activity, error) {
	query, args := listClause(
		`SELECT `+activityCols+` FROM activity WHERE wallet = $1`,
		[]any{wallet}, "created_at", opts)
	return s.query(ctx, "list activity by wallet", query, args...)
}

// ListBefore returns up to limit rows created before the cutoff, oldest first.
func (s *ActivityStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.Activity, error) {
	query := `SELECT ` + activityCols + ` FROM activity WHERE created_at < $1 ORDER BY created_at ASC`
	args := []any{before}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return s.query(ctx, "list activity before", query, args...)
}

// DeleteBefore removes rows created before the cutoff.
func (s *ActivityStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM activity WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete activity before %s: %w", before.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

func (s *ActivityStore) query(ctx context.Context, op, query string, args ...any) ([]domain.Activity, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan activity: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	return out, nil
}
