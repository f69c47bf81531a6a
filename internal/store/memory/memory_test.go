package memory

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegistech/base-markets/internal/domain"
)

func TestActivityStore(t *testing.T) {
	ctx := context.Background()
	s := NewActivityStore()
	base := time.Unix(1_700_000_000, 0).UTC()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Create(ctx, domain.Activity{
			ID: id, Wallet: "w", Kind: domain.ActivityDeposit,
			Amount: big.NewInt(int64(i + 1)), Status: domain.ActivityPending,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	assert.ErrorIs(t, s.Create(ctx, domain.Activity{ID: "a"}), domain.ErrAlreadyExists)

	require.NoError(t, s.Finish(ctx, "b", domain.ActivityConfirmed, "0xhash", ""))
	assert.ErrorIs(t, s.Finish(ctx, "zz", domain.ActivityFailed, "", ""), domain.ErrNotFound)

	got, err := s.GetByID(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityConfirmed, got.Status)
	got.Amount.SetInt64(999)
	again, _ := s.GetByID(ctx, "b")
	assert.Equal(t, int64(2), again.Amount.Int64())

	list, err := s.ListByWallet(ctx, "w", domain.ListOpts{Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	list, _ = s.ListByWallet(ctx, "w", domain.ListOpts{Offset: 5})
	assert.Empty(t, list)

	old, err := s.ListBefore(ctx, base.Add(90*time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, old, 2)
	assert.Equal(t, "a", old[0].ID)

	n, err := s.DeleteBefore(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	_, err = s.GetByID(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAuditStoreCapsAndOrders(t *testing.T) {
	ctx := context.Background()
	s := NewAuditStore(2)
	for _, e := range []string{"one", "two", "three"} {
		require.NoError(t, s.Log(ctx, e, nil))
	}
	entries, err := s.List(ctx, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "three", entries[0].Event)
	assert.Equal(t, "two", entries[1].Event)
}
