package websocket

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/proctor"
)

// Peer is the write side of a connected UI shell.
type Peer interface {
	Send(v interface{}) error
}

// closer is implemented by peers that can be disconnected when replaced.
type closer interface {
	Close(reason string) error
}

// ErrPeerReplaced is returned for messages from a shell that a newer
// connection has replaced.
var ErrPeerReplaced = errors.New("replaced by a newer shell connection")

// SignalSource is the proctor.EnvironmentSignalSource backed by whichever UI
// shell is connected to the signal stream. At most one shell is attached; a
// newer connection replaces the older one. A fullscreen request made while
// no shell is attached is delivered when one attaches.
type SignalSource struct {
	log zerolog.Logger

	mu          sync.Mutex
	handlers    map[proctor.SignalKind]proctor.SignalHandler
	peer        Peer
	metrics     proctor.WindowMetrics
	haveMetrics bool
	fullscreen  bool
	pending     *Command
}

// NewSignalSource creates a source with no shell attached.
func NewSignalSource(log zerolog.Logger) *SignalSource {
	return &SignalSource{
		log:      log.With().Str("component", "signal_source").Logger(),
		handlers: make(map[proctor.SignalKind]proctor.SignalHandler),
	}
}

// Attach makes p the active shell and returns a function that detaches it.
// The replaced shell, if any, is closed. Detaching forgets window metrics and
// fullscreen state, which belong to that shell.
func (s *SignalSource) Attach(p Peer) (detach func()) {
	s.mu.Lock()
	old := s.peer
	s.peer = p
	s.haveMetrics = false
	s.fullscreen = false
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if old != nil && old != p {
		s.log.Info().Msg("Shell replaced by a newer connection")
		if c, ok := old.(closer); ok {
			if err := c.Close(ErrPeerReplaced.Error()); err != nil {
				s.log.Debug().Err(err).Msg("Closing replaced shell failed")
			}
		}
	}

	if pending != nil {
		if err := p.Send(CommandResponse{Event: EventCommand, Command: *pending}); err != nil {
			s.log.Warn().Err(err).Str("command", string(*pending)).Msg("Failed to deliver queued command")
		}
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.peer == p {
			s.peer = nil
			s.haveMetrics = false
			s.fullscreen = false
		}
	}
}

// Attached reports whether a shell is connected.
func (s *SignalSource) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer != nil
}

// DispatchFrom is Dispatch for a message read from p. Nothing from a shell
// that is no longer attached reaches the monitor; ErrPeerReplaced tells the
// caller to drop the connection.
func (s *SignalSource) DispatchFrom(p Peer, req RequestPayload) (interface{}, error) {
	s.mu.Lock()
	active := s.peer == p
	s.mu.Unlock()
	if !active {
		return nil, ErrPeerReplaced
	}
	return s.Dispatch(req), nil
}

// Dispatch handles one message from the shell and returns the reply to send,
// or nil when none is due.
func (s *SignalSource) Dispatch(req RequestPayload) interface{} {
	switch req.Action {
	case ActionSignal:
		if req.Signal == nil {
			return ErrorResponse{Event: EventError, Error: "signal is required"}
		}
		return DispositionResponse{Event: EventDisposition, Seq: req.Seq, Disposition: s.deliver(*req.Signal)}

	case ActionMetrics:
		if req.Metrics == nil {
			return ErrorResponse{Event: EventError, Error: "metrics are required"}
		}
		s.mu.Lock()
		s.metrics = *req.Metrics
		s.haveMetrics = true
		s.mu.Unlock()
		return nil

	case ActionFullscreen:
		if req.Fullscreen == nil {
			return ErrorResponse{Event: EventError, Error: "fullscreen state is required"}
		}
		s.mu.Lock()
		s.fullscreen = *req.Fullscreen
		s.mu.Unlock()
		return nil

	case ActionPing:
		return PongResponse{Event: EventPong}
	}
	return ErrorResponse{Event: EventError, Error: "unknown action: " + string(req.Action)}
}

func (s *SignalSource) deliver(sig proctor.RawSignal) proctor.Disposition {
	s.mu.Lock()
	h := s.handlers[sig.Kind]
	if sig.Kind == proctor.SignalFullscreenDenied {
		s.fullscreen = false
	}
	s.mu.Unlock()

	if h == nil {
		return proctor.Disposition{}
	}
	return h(sig)
}

// NotifyViolations pushes the current violation state to the shell.
func (s *SignalSource) NotifyViolations(attemptID string, st model.ViolationState) error {
	return s.send(ViolationResponse{
		Event:          EventViolation,
		AttemptID:      attemptID,
		ViolationCount: st.ViolationCount,
		IsSuspicious:   st.IsSuspicious,
	})
}

func (s *SignalSource) send(v interface{}) error {
	s.mu.Lock()
	p := s.peer
	s.mu.Unlock()
	if p == nil {
		return proctor.ErrNoShell
	}
	return p.Send(v)
}

// Subscribe implements proctor.EnvironmentSignalSource.
func (s *SignalSource) Subscribe(kind proctor.SignalKind, h proctor.SignalHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = h
}

// Unsubscribe implements proctor.EnvironmentSignalSource. Once nothing is
// subscribed a queued fullscreen request is dropped.
func (s *SignalSource) Unsubscribe(kind proctor.SignalKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, kind)
	if len(s.handlers) == 0 {
		s.pending = nil
	}
}

// WindowMetrics implements proctor.EnvironmentSignalSource.
func (s *SignalSource) WindowMetrics() (proctor.WindowMetrics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics, s.haveMetrics
}

// RequestFullscreen asks the shell to enter fullscreen. With no shell the
// request is queued. A refusal comes back as a fullscreen_denied signal.
func (s *SignalSource) RequestFullscreen() error {
	s.mu.Lock()
	p := s.peer
	if p == nil {
		cmd := CommandRequestFullscreen
		s.pending = &cmd
		s.mu.Unlock()
		s.log.Debug().Msg("Fullscreen request queued until a shell attaches")
		return nil
	}
	s.mu.Unlock()
	return p.Send(CommandResponse{Event: EventCommand, Command: CommandRequestFullscreen})
}

// ExitFullscreen asks the shell to leave fullscreen and drops any queued request.
func (s *SignalSource) ExitFullscreen() error {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
	return s.send(CommandResponse{Event: EventCommand, Command: CommandExitFullscreen})
}

// IsFullscreen reports the last state the shell reported.
func (s *SignalSource) IsFullscreen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fullscreen
}

var _ proctor.EnvironmentSignalSource = (*SignalSource)(nil)
