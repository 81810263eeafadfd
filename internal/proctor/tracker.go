package proctor

import (
	"sync"
	"time"

	"github.com/stemsi/exstem-client/internal/clock"
	"github.com/stemsi/exstem-client/internal/model"
)

const (
	DefaultViolationWindow    = 5 * time.Minute
	DefaultSuspicionThreshold = 3
)

// CountedTypes are the event types that count toward suspicion. Others are
// logged and uploaded but never reach the tracker.
var CountedTypes = map[model.EventType]bool{
	model.EventTabSwitch:   true,
	model.EventCopy:        true,
	model.EventPaste:       true,
	model.EventConsoleOpen: true,
}

// Tracker keeps a true sliding window of recent violations. Entries older
// than the window are discarded on every evaluation, so history stays bounded
// over a long exam.
type Tracker struct {
	mu        sync.Mutex
	clock     clock.Clock
	window    time.Duration
	threshold int
	history   []model.ViolationEvent
}

// NewTracker creates a Tracker. Zero window or threshold select the defaults.
func NewTracker(clk clock.Clock, window time.Duration, threshold int) *Tracker {
	if clk == nil {
		clk = clock.Real()
	}
	if window <= 0 {
		window = DefaultViolationWindow
	}
	if threshold <= 0 {
		threshold = DefaultSuspicionThreshold
	}
	return &Tracker{clock: clk, window: window, threshold: threshold}
}

// Record appends a violation stamped with the current time and returns the
// state of the window after pruning.
func (t *Tracker) Record(typ model.EventType) model.ViolationState {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	t.history = append(t.history, model.ViolationEvent{Type: typ, Timestamp: now})
	return t.evaluateLocked(now)
}

// State re-evaluates the window against the current time.
func (t *Tracker) State() model.ViolationState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.evaluateLocked(t.clock.Now())
}

// History returns the violations currently inside the window, oldest first.
func (t *Tracker) History() []model.ViolationEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.evaluateLocked(t.clock.Now())
	out := make([]model.ViolationEvent, len(t.history))
	copy(out, t.history)
	return out
}

// Reset clears the history. Called on session start, not per violation.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = nil
}

func (t *Tracker) evaluateLocked(now time.Time) model.ViolationState {
	recent := t.history[:0]
	for _, ev := range t.history {
		if now.Sub(ev.Timestamp) < t.window {
			recent = append(recent, ev)
		}
	}
	// Zero the dropped tail so pruned events can be collected.
	for i := len(recent); i < len(t.history); i++ {
		t.history[i] = model.ViolationEvent{}
	}
	t.history = recent

	return model.ViolationState{
		ViolationCount: len(recent),
		IsSuspicious:   len(recent) >= t.threshold,
	}
}
