package proctor

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/clock"
	"github.com/stemsi/exstem-client/internal/model"
)

// Options configures a proctoring Session.
type Options struct {
	Clock              clock.Clock
	Sink               DropSink
	Batch              BatcherConfig
	Monitor            MonitorConfig
	ViolationWindow    time.Duration
	SuspicionThreshold int
}

// Session owns the tracker, batcher and monitor of one proctored attempt.
// It is created when the attempt starts and closed when it ends; nothing is
// shared between attempts.
type Session struct {
	AttemptID string
	Tracker   *Tracker
	Batcher   *Batcher
	Monitor   *Monitor

	log zerolog.Logger
}

// NewSession builds an inert proctoring session for attemptID.
func NewSession(attemptID string, src EnvironmentSignalSource, sender Sender, opts Options, log zerolog.Logger) *Session {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	tracker := NewTracker(clk, opts.ViolationWindow, opts.SuspicionThreshold)
	batcher := NewBatcher(attemptID, sender, opts.Sink, clk, opts.Batch, log)
	monitor := NewMonitor(src, batcher, tracker, clk, opts.Monitor, log.With().Str("attempt_id", attemptID).Logger())

	return &Session{
		AttemptID: attemptID,
		Tracker:   tracker,
		Batcher:   batcher,
		Monitor:   monitor,
		log:       log.With().Str("component", "proctoring_session").Str("attempt_id", attemptID).Logger(),
	}
}

// Start resets the violation window and enables monitoring.
func (s *Session) Start() {
	s.Tracker.Reset()
	s.Monitor.Enable()
}

// Close disables the monitor and drains the batcher. Both steps always run;
// delivery errors are logged and returned joined.
func (s *Session) Close(ctx context.Context) error {
	monErr := s.Monitor.Disable(ctx)
	batchErr := s.Batcher.Close(ctx)
	if err := errors.Join(monErr, batchErr); err != nil {
		s.log.Warn().Err(err).Msg("Proctoring session closed with undelivered events")
		return err
	}
	s.log.Info().Msg("Proctoring session closed")
	return nil
}

// Violations returns the current violation count and suspicion flag.
func (s *Session) Violations() model.ViolationState {
	return s.Tracker.State()
}
