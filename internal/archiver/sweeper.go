// Package archiver runs the expiry sweep that moves active travelers whose
// travel window has ended into historic.
package archiver

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkordes/travelwatch/internal/domain"
)

// Archiver archives every active traveler whose travel_end is before today.
// *service.TravelerService satisfies it.
type Archiver interface {
	ArchiveExpired(ctx context.Context, today time.Time) (int, error)
}

// Sweeper calls an Archiver once per interval using the current calendar date.
type Sweeper struct {
	archiver Archiver
	interval time.Duration
	log      *slog.Logger
	now      func() time.Time
}

// NewSweeper constructs a Sweeper. A nil logger falls back to slog.Default.
func NewSweeper(a Archiver, interval time.Duration, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{archiver: a, interval: interval, log: log, now: time.Now}
}

// WithClock overrides the clock that supplies the reference date.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// RunOnce performs a single sweep for today's calendar date and logs the outcome.
// A partial failure still reports the number of travelers archived.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	today := domain.Day(s.now())
	start := time.Now()

	n, err := s.archiver.ArchiveExpired(ctx, today)
	attrs := []any{
		"today", today.Format(domain.DateLayout),
		"archived", n,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		s.log.ErrorContext(ctx, "archive sweep failed", append(attrs, "error", err)...)
		return n, err
	}
	s.log.InfoContext(ctx, "archive sweep complete", attrs...)
	return n, nil
}

// Run sweeps immediately, then once per interval until ctx is cancelled.
// Sweep errors are logged and do not stop the loop. Run returns nil when ctx
// is cancelled; a non-positive interval returns immediately.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		s.log.InfoContext(ctx, "archive sweeper disabled")
		return nil
	}

	s.log.InfoContext(ctx, "archive sweeper started", "interval", s.interval.String())
	_, _ = s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.InfoContext(context.WithoutCancel(ctx), "archive sweeper stopped")
			return nil
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		}
	}
}
