package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Syncer re-syncs the active attempt with the server, if there is one.
type Syncer interface {
	SyncActive(ctx context.Context) error
}

// ClockSyncWorker periodically refreshes the remaining exam time from the
// server so the local countdown never drifts far from the server's clock.
type ClockSyncWorker struct {
	syncer   Syncer
	interval time.Duration
	timeout  time.Duration
	log      zerolog.Logger
}

// NewClockSyncWorker creates a new ClockSyncWorker.
func NewClockSyncWorker(syncer Syncer, interval time.Duration, log zerolog.Logger) *ClockSyncWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := interval
	if timeout > 10*time.Second {
		timeout = 10 * time.Second
	}
	return &ClockSyncWorker{
		syncer:   syncer,
		interval: interval,
		timeout:  timeout,
		log:      log.With().Str("component", "clock_sync_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine; it returns when ctx is done.
func (w *ClockSyncWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.syncOnce(ctx)
		}
	}
}

func (w *ClockSyncWorker) syncOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.syncer.SyncActive(ctx); err != nil && ctx.Err() == nil {
		w.log.Warn().Err(err).Msg("Clock sync failed")
	}
}
