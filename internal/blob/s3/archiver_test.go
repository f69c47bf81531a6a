package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegistech/base-markets/internal/domain"
)

type memWriter struct {
	objects map[string][]byte
	err     error
}

func (w *memWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	if w.err != nil {
		return w.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if w.objects == nil {
		w.objects = map[string][]byte{}
	}
	w.objects[path] = b
	return nil
}

type memSource struct {
	rows    []domain.Activity
	deleted int
}

func (s *memSource) ListBefore(_ context.Context, before time.Time, _ int) ([]domain.Activity, error) {
	var out []domain.Activity
	for _, r := range s.rows {
		if r.CreatedAt.Before(before) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memSource) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	var keep []domain.Activity
	for _, r := range s.rows {
		if !r.CreatedAt.Before(before) {
			keep = append(keep, r)
		}
	}
	n := len(s.rows) - len(keep)
	s.rows = keep
	s.deleted += n
	return int64(n), nil
}

type memAudit struct{ events []string }

func (a *memAudit) Log(_ context.Context, event string, _ map[string]any) error {
	a.events = append(a.events, event)
	return nil
}

func (a *memAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestArchivePath(t *testing.T) {
	before := time.Date(2026, 7, 1, 15, 0, 0, 0, time.UTC)
	run := time.Unix(1782950400, 0)
	assert.Equal(t, "activity/2026/07/01/1782950400.jsonl", ArchivePath(before, run))
}

func TestArchiveActivity(t *testing.T) {
	cutoff := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	src := &memSource{rows: []domain.Activity{
		{ID: "a", Wallet: "0x1", Kind: domain.ActivityStake, Amount: big.NewInt(10), Status: domain.ActivityConfirmed, CreatedAt: cutoff.Add(-48 * time.Hour)},
		{ID: "b", Wallet: "0x1", Kind: domain.ActivityBuyShares, MarketID: "2", Outcome: domain.OutcomeYes, Amount: big.NewInt(5), Status: domain.ActivityFailed, CreatedAt: cutoff.Add(-time.Hour)},
		{ID: "c", Wallet: "0x1", Kind: domain.ActivityDeposit, Amount: big.NewInt(1), CreatedAt: cutoff.Add(time.Hour)},
	}}
	w := &memWriter{}
	audit := &memAudit{}
	arch := NewActivityArchiver(w, src, audit, discard())
	arch.now = func() time.Time { return time.Unix(1782950400, 0) }

	n, err := arch.ArchiveActivity(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 2, src.deleted)
	require.Len(t, src.rows, 1)
	assert.Equal(t, "c", src.rows[0].ID)
	assert.Equal(t, []string{"archive.activity"}, audit.events)

	body, ok := w.objects["activity/2026/07/01/1782950400.jsonl"]
	require.True(t, ok)
	sc := bufio.NewScanner(bytes.NewReader(body))
	var ids []string
	for sc.Scan() {
		var rec activityRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		ids = append(ids, rec.ID)
		if rec.ID == "b" {
			assert.Equal(t, "5", rec.Amount)
			assert.Equal(t, "YES", rec.Outcome)
		}
	}
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestArchiveActivityNothingToDo(t *testing.T) {
	w := &memWriter{}
	arch := NewActivityArchiver(w, &memSource{}, nil, discard())
	n, err := arch.ArchiveActivity(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, w.objects)
}

func TestArchiveActivityUploadFailureKeepsRows(t *testing.T) {
	src := &memSource{rows: []domain.Activity{{ID: "a", CreatedAt: time.Unix(0, 0)}}}
	arch := NewActivityArchiver(&memWriter{err: errors.New("boom")}, src, nil, discard())
	_, err := arch.ArchiveActivity(context.Background(), time.Now())
	require.Error(t, err)
	assert.Len(t, src.rows, 1)
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "https://minio:9000", normaliseEndpoint("minio:9000", true))
	assert.Equal(t, "http://minio:9000", normaliseEndpoint("minio:9000", false))
	assert.Equal(t, "http://x", normaliseEndpoint("http://x", true))
}
