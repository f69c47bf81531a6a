package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aegistech/base-markets/internal/domain"
)

// ActivitySource is the slice of domain.ActivityStore the archiver needs.
type ActivitySource interface {
	ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.Activity, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

var _ domain.Archiver = (*ActivityArchiver)(nil)

// ActivityArchiver exports old activity rows to object storage as JSON lines,
// audits the export and then deletes the rows. Rows are only deleted after
// the upload succeeded.
type ActivityArchiver struct {
	writer domain.BlobWriter
	source ActivitySource
	audit  domain.AuditStore
	logger *slog.Logger
	now    func() time.Time
}

// NewActivityArchiver creates an ActivityArchiver. audit may be nil.
func NewActivityArchiver(writer domain.BlobWriter, source ActivitySource, audit domain.AuditStore, logger *slog.Logger) *ActivityArchiver {
	return &ActivityArchiver{
		writer: writer,
		source: source,
		audit:  audit,
		logger: logger.With(slog.String("component", "archiver")),
		now:    time.Now,
	}
}

// ArchiveActivity moves every row created before the cutoff to
// activity/YYYY/MM/DD/<unix>.jsonl and returns the number of rows archived.
func (a *ActivityArchiver) ArchiveActivity(ctx context.Context, before time.Time) (int64, error) {
	rows, err := a.source.ListBefore(ctx, before, 0)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive activity query: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	records := make([]activityRecord, len(rows))
	for i, r := range rows {
		records[i] = toRecord(r)
	}
	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive activity marshal: %w", err)
	}

	path := ArchivePath(before, a.now())
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive activity upload: %w", err)
	}

	count := int64(len(rows))
	if a.audit != nil {
		if err := a.audit.Log(ctx, "archive.activity", map[string]any{
			"path":   path,
			"count":  count,
			"before": before.UTC().Format(time.RFC3339),
		}); err != nil {
			a.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
		}
	}

	deleted, err := a.source.DeleteBefore(ctx, before)
	if err != nil {
		return count, fmt.Errorf("s3blob: archive activity delete: %w", err)
	}
	if deleted != count {
		a.logger.WarnContext(ctx, "archived and deleted counts differ",
			slog.Int64("archived", count),
			slog.Int64("deleted", deleted),
		)
	}

	a.logger.InfoContext(ctx, "activity archived",
		slog.String("path", path),
		slog.Int64("count", count),
	)
	return count, nil
}

// ArchivePath partitions archives by the cutoff day; the run time keeps
// repeated runs for the same day from overwriting each other.
//
//	activity/2026/07/01/1782950400.jsonl
func ArchivePath(before, runAt time.Time) string {
	return fmt.Sprintf("activity/%s/%d.jsonl", before.UTC().Format("2006/01/02"), runAt.Unix())
}

// activityRecord is the archived JSON form of domain.Activity. Amounts are
// base-unit decimal strings.
type activityRecord struct {
	ID        string    `json:"id"`
	Wallet    string    `json:"wallet"`
	Kind      string    `json:"kind"`
	MarketID  string    `json:"market_id,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	Amount    string    `json:"amount"`
	TxHash    string    `json:"tx_hash,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toRecord(a domain.Activity) activityRecord {
	amount := "0"
	if a.Amount != nil {
		amount = a.Amount.String()
	}
	return activityRecord{
		ID:        a.ID,
		Wallet:    a.Wallet,
		Kind:      string(a.Kind),
		MarketID:  a.MarketID,
		Outcome:   string(a.Outcome),
		Amount:    amount,
		TxHash:    a.TxHash,
		Status:    string(a.Status),
		Error:     a.Error,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// marshalJSONL encodes records one compact JSON object per line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
