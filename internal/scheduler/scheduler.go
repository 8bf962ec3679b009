package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Loader runs Load once at startup and then repeatedly until the context is done.
// Passes never overlap.
type Loader struct {
	Load          func(ctx context.Context) error
	Interval      time.Duration // 0 runs a single pass
	AlignMidnight bool          // wait for the next UTC midnight before repeating
	Logger        *zap.Logger

	now func() time.Time
}

// NextMidnight returns the first UTC midnight strictly after t.
func NextMidnight(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
}

// Start blocks until the schedule ends. With a zero Interval it returns the
// error of the single pass; otherwise failed passes are logged and the
// schedule continues until ctx is cancelled.
func (l *Loader) Start(ctx context.Context) error {
	// Run immediately once at startup
	err := l.runOnce(ctx)
	if l.Interval <= 0 {
		return err
	}

	if l.AlignMidnight {
		now := time.Now
		if l.now != nil {
			now = l.now
		}
		wait := NextMidnight(now()).Sub(now())
		l.Logger.Info("waiting for UTC midnight", zap.Duration("wait", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		l.runOnce(ctx)
	}

	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.runOnce(ctx)
		}
	}
}

func (l *Loader) runOnce(ctx context.Context) error {
	if err := l.Load(ctx); err != nil {
		l.Logger.Error("scheduled run failed", zap.Error(err))
		return err
	}
	return nil
}
