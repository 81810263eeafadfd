package proctor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/clock"
	"github.com/stemsi/exstem-client/internal/model"
)

const (
	DefaultBatchSize     = 10
	DefaultBatchInterval = 30 * time.Second
	// MaxEventsPerRequest is the server-side cap on one upload.
	MaxEventsPerRequest = 100
	sendTimeout         = 10 * time.Second
)

// Sender uploads a batch of events to the Proctoring Service.
type Sender interface {
	LogEvents(ctx context.Context, attemptID, batchID string, events []model.ViolationEvent) (*model.BatchReceipt, error)
}

// DropSink keeps batches that could not be delivered, for later inspection.
type DropSink interface {
	ArchiveDroppedBatch(ctx context.Context, attemptID string, events []model.ViolationEvent, cause error) error
}

// BatcherConfig tunes the flush triggers.
type BatcherConfig struct {
	Size     int
	Interval time.Duration
}

// BatcherStats counts what happened to enqueued events.
type BatcherStats struct {
	Flushes   int `json:"flushes"`
	Delivered int `json:"delivered"`
	Dropped   int `json:"dropped"`
	Pending   int `json:"pending"`
}

// Batcher buffers events and uploads them when Size events are queued or
// Interval passes after the last enqueue without a flush. Delivery is best
// effort: a failed batch is dropped, never retried.
type Batcher struct {
	attemptID string
	sender    Sender
	sink      DropSink
	clock     clock.Clock
	log       zerolog.Logger
	size      int
	interval  time.Duration

	mu       sync.Mutex
	queue    []model.ViolationEvent
	timer    clock.Timer
	closed   bool
	stats    BatcherStats
	inflight sync.WaitGroup
}

// NewBatcher creates a Batcher for one attempt. sink may be nil.
func NewBatcher(attemptID string, sender Sender, sink DropSink, clk clock.Clock, cfg BatcherConfig, log zerolog.Logger) *Batcher {
	if clk == nil {
		clk = clock.Real()
	}
	if cfg.Size <= 0 {
		cfg.Size = DefaultBatchSize
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultBatchInterval
	}
	return &Batcher{
		attemptID: attemptID,
		sender:    sender,
		sink:      sink,
		clock:     clk,
		size:      cfg.Size,
		interval:  cfg.Interval,
		log: log.With().
			Str("component", "event_batcher").
			Str("attempt_id", attemptID).
			Logger(),
	}
}

// Enqueue appends an event. Reaching the size threshold flushes in the
// background; otherwise the single pending timer is reset.
func (b *Batcher) Enqueue(ev model.ViolationEvent) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.log.Debug().Str("event_type", string(ev.Type)).Msg("Batcher closed, event discarded")
		return
	}

	b.queue = append(b.queue, ev)
	if len(b.queue) >= b.size {
		b.stopTimerLocked()
		batch := b.takeLocked()
		b.inflight.Add(1)
		b.mu.Unlock()
		go b.upload(batch)
		return
	}

	b.stopTimerLocked()
	b.timer = b.clock.AfterFunc(b.interval, b.onInterval)
	b.mu.Unlock()
}

// Flush uploads everything queued and waits for the result. The returned
// error is informational; the events are gone either way.
func (b *Batcher) Flush(ctx context.Context) error {
	b.mu.Lock()
	b.stopTimerLocked()
	batch := b.takeLocked()
	b.mu.Unlock()

	return b.send(ctx, batch)
}

// Close stops accepting events, forces a final flush and waits for any
// background uploads.
func (b *Batcher) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.stopTimerLocked()
	batch := b.takeLocked()
	b.mu.Unlock()

	err := b.send(ctx, batch)
	b.inflight.Wait()
	return err
}

// Wait blocks until background uploads started so far have finished.
func (b *Batcher) Wait() {
	b.inflight.Wait()
}

// Stats returns delivery counters.
func (b *Batcher) Stats() BatcherStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.stats
	s.Pending = len(b.queue)
	return s
}

func (b *Batcher) onInterval() {
	b.mu.Lock()
	b.timer = nil
	batch := b.takeLocked()
	if b.closed || len(batch) == 0 {
		b.mu.Unlock()
		return
	}
	b.inflight.Add(1)
	b.mu.Unlock()

	b.upload(batch)
}

// upload sends one background batch. The caller has already counted it in
// inflight while holding mu, so Close never waits on a zero counter that is
// about to grow.
func (b *Batcher) upload(batch []model.ViolationEvent) {
	defer b.inflight.Done()
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	_ = b.send(ctx, batch)
}

// send uploads batch in server-sized chunks. Failures are logged, archived to
// the sink and returned joined.
func (b *Batcher) send(ctx context.Context, batch []model.ViolationEvent) error {
	if len(batch) == 0 {
		return nil
	}

	var errs []error
	for start := 0; start < len(batch); start += MaxEventsPerRequest {
		end := start + MaxEventsPerRequest
		if end > len(batch) {
			end = len(batch)
		}
		chunk := batch[start:end]
		batchID := uuid.NewString()

		receipt, err := b.sender.LogEvents(ctx, b.attemptID, batchID, chunk)
		if err != nil {
			derr := &BatchDeliveryError{AttemptID: b.attemptID, BatchID: batchID, Events: len(chunk), Err: err}
			b.log.Warn().Err(err).Str("batch_id", batchID).Int("count", len(chunk)).Msg("Proctoring batch dropped")
			b.archive(ctx, chunk, derr)
			b.record(0, len(chunk))
			errs = append(errs, derr)
			continue
		}

		created := len(chunk)
		if receipt != nil {
			created = receipt.CreatedCount
		}
		b.log.Debug().Str("batch_id", batchID).Int("count", len(chunk)).Int("created", created).Msg("Proctoring batch delivered")
		b.record(len(chunk), 0)
	}
	return errors.Join(errs...)
}

func (b *Batcher) archive(ctx context.Context, chunk []model.ViolationEvent, cause error) {
	if b.sink == nil {
		return
	}
	if err := b.sink.ArchiveDroppedBatch(ctx, b.attemptID, chunk, cause); err != nil {
		b.log.Error().Err(err).Int("count", len(chunk)).Msg("Failed to archive dropped batch")
	}
}

func (b *Batcher) record(delivered, dropped int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.Flushes++
	b.stats.Delivered += delivered
	b.stats.Dropped += dropped
}

func (b *Batcher) takeLocked() []model.ViolationEvent {
	batch := b.queue
	b.queue = nil
	return batch
}

func (b *Batcher) stopTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
