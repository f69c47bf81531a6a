package service

import (
	"context"
	"log/slog"
	"time"
)

// Archiver moves activity rows older than before to cold storage.
// *s3blob.ActivityArchiver satisfies it.
type Archiver interface {
	ArchiveActivity(ctx context.Context, before time.Time) (int64, error)
}

// ArchiveScheduler runs the activity archiver on a fixed interval.
type ArchiveScheduler struct {
	archiver  Archiver
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewArchiveScheduler creates an ArchiveScheduler keeping retention worth of
// activity online.
func NewArchiveScheduler(archiver Archiver, retention, interval time.Duration, logger *slog.Logger) *ArchiveScheduler {
	return &ArchiveScheduler{
		archiver:  archiver,
		retention: retention,
		interval:  interval,
		logger:    logger.With(slog.String("component", "archive_scheduler")),
		now:       time.Now,
	}
}

// Run archives once immediately and then every interval until ctx is done.
func (s *ArchiveScheduler) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "archive scheduler started",
		slog.Duration("retention", s.retention),
		slog.Duration("interval", s.interval),
	)
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "archive scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce archives everything older than the retention window. Errors are
// logged; the next run retries.
func (s *ArchiveScheduler) RunOnce(ctx context.Context) int64 {
	before := s.now().UTC().Add(-s.retention)
	n, err := s.archiver.ArchiveActivity(ctx, before)
	if err != nil {
		s.logger.ErrorContext(ctx, "activity archive failed", slog.String("error", err.Error()))
		return 0
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "activity archived",
			slog.Int64("rows", n),
			slog.Time("before", before),
		)
	}
	return n
}
