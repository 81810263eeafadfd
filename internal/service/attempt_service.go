package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/proctor"
	"github.com/stemsi/exstem-client/internal/session"
)

const teardownTimeout = 15 * time.Second

// ErrNotProctored is returned for proctoring operations outside an exam.
var ErrNotProctored = errors.New("no proctored exam in progress")

// SignalBridge is the environment signal source that can also push violation
// updates back to the UI.
type SignalBridge interface {
	proctor.EnvironmentSignalSource
	NotifyViolations(attemptID string, st model.ViolationState) error
}

// Journal is the optional local mirror of the session.
type Journal interface {
	session.Journal
	proctor.DropSink
	MarkActive(ctx context.Context, attemptID string) error
}

// AttemptOptions configures an AttemptService.
type AttemptOptions struct {
	Controller session.Config
	Proctoring proctor.Options
	// Journal may be nil.
	Journal Journal
}

// Snapshot is the controller view plus live proctoring state.
type Snapshot struct {
	session.View
	Violations *model.ViolationState `json:"violations,omitempty"`
	Telemetry  *proctor.BatcherStats `json:"telemetry,omitempty"`
}

// AttemptService runs one attempt at a time: the session controller plus,
// for exams, a proctoring session created at start and closed when the
// attempt ends or is cleared.
type AttemptService struct {
	ctrl    *session.Controller
	svc     session.AssessmentService
	bridge  SignalBridge
	sender  proctor.Sender
	journal Journal
	popts   proctor.Options
	log     zerolog.Logger

	mu         sync.Mutex
	proctoring *proctor.Session
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(svc session.AssessmentService, sender proctor.Sender, bridge SignalBridge, opts AttemptOptions, log zerolog.Logger) *AttemptService {
	ctrlCfg := opts.Controller
	popts := opts.Proctoring
	if opts.Journal != nil {
		ctrlCfg.Journal = opts.Journal
		popts.Sink = opts.Journal
	}
	if ctrlCfg.Clock == nil {
		ctrlCfg.Clock = popts.Clock
	}

	return &AttemptService{
		ctrl:    session.NewController(svc, ctrlCfg, log),
		svc:     svc,
		bridge:  bridge,
		sender:  sender,
		journal: opts.Journal,
		popts:   popts,
		log:     log.With().Str("component", "attempt_service").Logger(),
	}
}

// Start begins an attempt. Exams also start proctoring.
func (s *AttemptService) Start(ctx context.Context, sel model.Selector) (*session.Handle, error) {
	h, err := s.ctrl.Start(ctx, sel)
	if err != nil {
		return nil, err
	}

	// A previous attempt may have ended without being cleared.
	s.closeProctoring(ctx)

	if h.Mode == model.ModeExam {
		s.openProctoring(h.AttemptID)
	}
	if s.journal != nil {
		if err := s.journal.MarkActive(ctx, h.AttemptID); err != nil {
			s.log.Warn().Err(err).Str("attempt_id", h.AttemptID).Msg("Journal mark active failed")
		}
	}
	return h, nil
}

func (s *AttemptService) openProctoring(attemptID string) {
	opts := s.popts
	bridge := s.bridge
	opts.Monitor.OnViolation = func(st model.ViolationState) {
		if err := bridge.NotifyViolations(attemptID, st); err != nil && !errors.Is(err, proctor.ErrNoShell) {
			s.log.Warn().Err(err).Msg("Violation push failed")
		}
	}

	ps := proctor.NewSession(attemptID, s.bridge, s.sender, opts, s.log)
	s.mu.Lock()
	s.proctoring = ps
	s.mu.Unlock()
	ps.Start()
}

// closeProctoring disables monitoring and drains telemetry. It outlives the
// caller's cancellation so the final flush is not cut short.
func (s *AttemptService) closeProctoring(ctx context.Context) {
	s.mu.Lock()
	ps := s.proctoring
	s.proctoring = nil
	s.mu.Unlock()
	if ps == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()
	_ = ps.Close(ctx)
}

// reconcile tears proctoring down once the attempt is over, however it ended.
func (s *AttemptService) reconcile(ctx context.Context) {
	if sess := s.ctrl.Session(); sess == nil || sess.Status.IsTerminal() {
		s.closeProctoring(ctx)
	}
}

func (s *AttemptService) attemptID() (string, error) {
	sess := s.ctrl.Session()
	if sess == nil {
		return "", session.ErrNoSession
	}
	return sess.AttemptID, nil
}

// LoadQuestions loads the exam set or the next practice page.
func (s *AttemptService) LoadQuestions(ctx context.Context) ([]model.Question, error) {
	id, err := s.attemptID()
	if err != nil {
		return nil, err
	}
	qs, err := s.ctrl.LoadQuestions(ctx, id)
	s.reconcile(ctx)
	return qs, err
}

// Select updates the draft selection of a question.
func (s *AttemptService) Select(questionID, key string) ([]string, error) {
	return s.ctrl.Select(questionID, key)
}

// SubmitAnswer submits explicit keys, or the draft when keys is empty.
func (s *AttemptService) SubmitAnswer(ctx context.Context, questionID string, keys []string) (*model.Feedback, error) {
	var (
		fb  *model.Feedback
		err error
	)
	if len(keys) == 0 {
		fb, err = s.ctrl.SubmitSelection(ctx, questionID)
	} else {
		fb, err = s.ctrl.SubmitAnswer(ctx, questionID, keys)
	}
	s.reconcile(ctx)
	return fb, err
}

// Advance moves through the questions; an exam finished by advancing
// returns its result.
func (s *AttemptService) Advance(ctx context.Context, dir session.Direction) (*model.ExamResult, error) {
	if dir == session.Forward && s.onLastExamQuestion() {
		s.flushTelemetry(ctx)
	}
	res, err := s.ctrl.Advance(ctx, dir)
	s.reconcile(ctx)
	return res, err
}

// GoTo jumps to a loaded question.
func (s *AttemptService) GoTo(index int) error {
	return s.ctrl.GoTo(index)
}

// Finish closes the attempt on the server and stops proctoring.
func (s *AttemptService) Finish(ctx context.Context) (*model.ExamResult, error) {
	s.flushTelemetry(ctx)
	res, err := s.ctrl.Finish(ctx)
	s.reconcile(ctx)
	return res, err
}

// onLastExamQuestion reports whether a forward move would finish the exam.
func (s *AttemptService) onLastExamQuestion() bool {
	v := s.ctrl.Snapshot()
	if v.Session == nil || v.Session.Mode != model.ModeExam || v.Status.IsTerminal() {
		return false
	}
	return v.LoadedQuestions > 0 && v.Session.CurrentIndex >= v.LoadedQuestions-1
}

// flushTelemetry uploads queued proctoring events while the attempt is still
// open on the server; once it is finished the events are rejected.
func (s *AttemptService) flushTelemetry(ctx context.Context) {
	ps := s.current()
	if ps == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()
	if err := ps.Batcher.Flush(ctx); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", ps.AttemptID).Msg("Telemetry flush before finish failed")
	}
}

// Sync refreshes the remaining time from the server.
func (s *AttemptService) Sync(ctx context.Context) (*model.AttemptStatus, error) {
	st, err := s.ctrl.Sync(ctx)
	s.reconcile(ctx)
	return st, err
}

// SyncActive re-syncs only a timed attempt that is still in progress. It is
// what the clock sync worker calls.
func (s *AttemptService) SyncActive(ctx context.Context) error {
	sess := s.ctrl.Session()
	if sess == nil || sess.Mode != model.ModeExam || sess.Status.IsTerminal() {
		return nil
	}
	_, err := s.Sync(ctx)
	return err
}

// Clear abandons the current attempt locally.
func (s *AttemptService) Clear(ctx context.Context) {
	id, _ := s.attemptID()
	s.closeProctoring(ctx)
	s.ctrl.Clear(ctx)
	if f, ok := s.svc.(interface{ Forget(string) }); ok && id != "" {
		f.Forget(id)
	}
}

// BeginModal and EndModal bracket dialogs the session itself opens, so the
// resulting visibility changes are not counted.
func (s *AttemptService) BeginModal() error {
	ps := s.current()
	if ps == nil {
		return ErrNotProctored
	}
	ps.Monitor.BeginModal()
	return nil
}

func (s *AttemptService) EndModal() error {
	ps := s.current()
	if ps == nil {
		return ErrNotProctored
	}
	ps.Monitor.EndModal()
	return nil
}

func (s *AttemptService) current() *proctor.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proctoring
}

// Snapshot returns the session view with violations and telemetry counters.
func (s *AttemptService) Snapshot() Snapshot {
	snap := Snapshot{View: s.ctrl.Snapshot()}
	if ps := s.current(); ps != nil {
		v := ps.Violations()
		st := ps.Batcher.Stats()
		snap.Violations = &v
		snap.Telemetry = &st
	}
	return snap
}

// Shutdown stops proctoring and flushes telemetry; the attempt itself stays
// open on the server.
func (s *AttemptService) Shutdown(ctx context.Context) {
	s.closeProctoring(ctx)
}

// Violations returns the tracker history of the running exam, optionally
// narrowed to one event type.
func (s *AttemptService) Violations(typ model.EventType) ([]model.ViolationEvent, error) {
	ps := s.current()
	if ps == nil {
		return nil, ErrNotProctored
	}
	history := ps.Tracker.History()
	if typ == "" {
		return history, nil
	}
	out := history[:0]
	for _, ev := range history {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out, nil
}
