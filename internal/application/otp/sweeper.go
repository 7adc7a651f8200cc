package otp

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is used when a Sweeper is built with a non-positive interval.
const DefaultSweepInterval = time.Minute

// Expirer physically removes records whose deadline is at or before now.
type Expirer interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Sweeper periodically removes expired records. Reads already hide expired records,
// so sweep latency only affects storage, never visibility.
type Sweeper struct {
	store    Expirer
	interval time.Duration
	now      func() time.Time
}

func NewSweeper(store Expirer, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{store: store, interval: interval, now: time.Now}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	slog.Info("otp sweeper started", "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.SweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("otp sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single pass and returns the number of records removed.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("otp sweep failed", "err", err)
		}
		return n
	}
	if n > 0 {
		slog.Info("expired otp records removed", "count", n)
	}
	return n
}
