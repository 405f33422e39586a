package scheduler

import (
	"context"
	"time"

	"github.com/Bhavy-official/RevLens/internal/ports"
)

// TickerScheduler triggers the refresh job on a fixed interval.
type TickerScheduler struct {
	interval time.Duration
	stop     chan struct{}
}

var _ ports.Scheduler = (*TickerScheduler)(nil)

// NewTickerScheduler builds a scheduler firing every interval.
func NewTickerScheduler(interval time.Duration) *TickerScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &TickerScheduler{interval: interval}
}

// Start runs the job once immediately, then on every tick until Stop or
// context cancellation.
func (t *TickerScheduler) Start(ctx context.Context, job func()) error {
	if job == nil {
		return nil
	}

	if t.stop != nil {
		return nil
	}

	t.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		job()
		for {
			select {
			case <-ticker.C:
				job()
			case <-t.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop tears down the ticking goroutine.
func (t *TickerScheduler) Stop(context.Context) error {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	return nil
}
