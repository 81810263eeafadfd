// Package session implements the attempt state machine for exams and
// practice: question sequencing, answer submission, feedback, statistics and
// completion. The ledger and statistics are written only from confirmed
// server responses.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/clock"
	"github.com/stemsi/exstem-client/internal/ledger"
	"github.com/stemsi/exstem-client/internal/model"
)

// DefaultPracticePageSize is the number of practice questions fetched per page.
const DefaultPracticePageSize = 20

// AssessmentService is the remote collaborator every state transition goes through.
type AssessmentService interface {
	StartAttempt(ctx context.Context, sel model.Selector) (*model.AttemptStarted, error)
	// GetQuestions returns the full set for exams (offset and limit ignored)
	// or one page for practice.
	GetQuestions(ctx context.Context, attemptID string, offset, limit int) (*model.QuestionPage, error)
	SubmitAnswer(ctx context.Context, attemptID string, req model.SubmitAnswerRequest) (*model.Feedback, error)
	Finish(ctx context.Context, attemptID string) (*model.ExamResult, error)
	GetStatus(ctx context.Context, attemptID string) (*model.AttemptStatus, error)
}

// Journal mirrors confirmed answers outside the process. Optional; failures
// are logged and never block the session.
type Journal interface {
	SaveAnswer(ctx context.Context, attemptID, questionID string, keys []string) error
	Discard(ctx context.Context, attemptID string) error
}

// Direction is a navigation step.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// Handle is returned by Start.
type Handle struct {
	AttemptID        string     `json:"attempt_id"`
	Mode             model.Mode `json:"mode"`
	TotalQuestions   int        `json:"total_questions"`
	TimeLimitMinutes *int       `json:"time_limit_minutes,omitempty"`
}

// Config tunes a Controller.
type Config struct {
	PracticePageSize int
	Clock            clock.Clock
	Journal          Journal
}

type finishCall struct {
	done   chan struct{}
	result *model.ExamResult
	err    error
}

// Controller drives one attempt at a time. Create it once and call Start for
// each attempt; Clear drops all per-attempt state.
type Controller struct {
	svc      AssessmentService
	journal  Journal
	clock    clock.Clock
	log      zerolog.Logger
	pageSize int

	// submitMu serializes submissions (and the final finish) for the attempt.
	submitMu sync.Mutex

	mu        sync.Mutex
	session   *model.Session
	questions []model.Question
	byID      map[string]int
	hasMore   bool
	ledger    *ledger.Ledger
	drafts    map[string][]string
	feedback  *model.Feedback
	stats     Statistics
	result    *model.ExamResult
	finishing *finishCall
	remaining *time.Duration
	syncedAt  time.Time
}

// NewController creates a Controller with no active session.
func NewController(svc AssessmentService, cfg Config, log zerolog.Logger) *Controller {
	if cfg.PracticePageSize <= 0 {
		cfg.PracticePageSize = DefaultPracticePageSize
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	return &Controller{
		svc:      svc,
		journal:  cfg.Journal,
		clock:    cfg.Clock,
		pageSize: cfg.PracticePageSize,
		log:      log.With().Str("component", "session_controller").Logger(),
		ledger:   ledger.New(),
		byID:     make(map[string]int),
		drafts:   make(map[string][]string),
	}
}

// Start creates an attempt on the server and initializes a fresh session.
func (c *Controller) Start(ctx context.Context, sel model.Selector) (*Handle, error) {
	c.mu.Lock()
	if c.session != nil && !c.session.Status.IsTerminal() {
		c.mu.Unlock()
		return nil, &SessionCreationError{Selector: sel, Err: ErrSessionActive}
	}
	c.mu.Unlock()

	started, err := c.svc.StartAttempt(ctx, sel)
	if err != nil {
		c.log.Error().Err(err).Str("mode", string(sel.Mode)).Msg("Start attempt failed")
		return nil, &SessionCreationError{Selector: sel, Err: err}
	}
	if started.AttemptID == "" {
		return nil, &SessionCreationError{Selector: sel, Err: errors.New("server returned an empty attempt id")}
	}
	mode := started.Mode
	if mode == "" {
		mode = sel.Mode
	}

	c.mu.Lock()
	c.resetLocked()
	c.session = &model.Session{
		AttemptID:        started.AttemptID,
		Mode:             mode,
		Status:           model.SessionStatusInProgress,
		Selector:         sel,
		StartedAt:        started.StartedAt,
		TimeLimitMinutes: started.TimeLimitMinutes,
		TotalQuestions:   started.TotalQuestions,
	}
	if started.TimeLimitMinutes != nil {
		c.setRemainingLocked(time.Duration(*started.TimeLimitMinutes) * time.Minute)
	}
	c.mu.Unlock()

	c.log.Info().
		Str("attempt_id", started.AttemptID).
		Str("mode", string(mode)).
		Int("total_questions", started.TotalQuestions).
		Msg("Session started")

	return &Handle{
		AttemptID:        started.AttemptID,
		Mode:             mode,
		TotalQuestions:   started.TotalQuestions,
		TimeLimitMinutes: started.TimeLimitMinutes,
	}, nil
}

// LoadQuestions fetches the full question set (exam) or the next page
// (practice) and returns what was loaded. On failure nothing changes.
func (c *Controller) LoadQuestions(ctx context.Context, attemptID string) ([]model.Question, error) {
	c.mu.Lock()
	sess, err := c.activeLocked()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if sess.AttemptID != attemptID {
		c.mu.Unlock()
		return nil, ErrNoSession
	}
	offset, limit := 0, 0
	if sess.Mode == model.ModePractice {
		offset, limit = len(c.questions), c.pageSize
	}
	c.mu.Unlock()

	page, err := c.svc.GetQuestions(ctx, attemptID, offset, limit)
	if err == nil {
		err = validateQuestions(page)
	}
	if err != nil {
		c.log.Error().Err(err).Str("attempt_id", attemptID).Int("offset", offset).Msg("Load questions failed")
		if errors.Is(err, model.ErrAttemptNotActive) {
			c.resync(ctx)
		}
		return nil, &LoadError{AttemptID: attemptID, Offset: offset, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.AttemptID != attemptID {
		return nil, ErrNoSession
	}

	var loaded []model.Question
	if c.session.Mode == model.ModeExam {
		c.questions = append([]model.Question(nil), page.Questions...)
		c.byID = make(map[string]int, len(c.questions))
		for i, q := range c.questions {
			c.byID[q.ID] = i
		}
		if c.session.TotalQuestions == 0 {
			c.session.TotalQuestions = len(c.questions)
		}
		loaded = c.questions
	} else {
		for _, q := range page.Questions {
			if _, dup := c.byID[q.ID]; dup {
				continue
			}
			c.byID[q.ID] = len(c.questions)
			c.questions = append(c.questions, q)
			loaded = append(loaded, q)
		}
		c.hasMore = page.HasMore
		if page.Total > 0 {
			c.session.TotalQuestions = page.Total
		}
	}

	c.log.Debug().Str("attempt_id", attemptID).Int("loaded", len(loaded)).Msg("Questions loaded")
	return append([]model.Question(nil), loaded...), nil
}

// Select applies one option pick to the draft selection of a question and
// returns the new draft. Nothing is sent to the server.
func (c *Controller) Select(questionID, key string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.activeLocked(); err != nil {
		return nil, err
	}
	q, ok := c.questionLocked(questionID)
	if !ok {
		return nil, ErrUnknownQuestion
	}
	if !q.HasOption(key) {
		return nil, ErrInvalidSelection
	}

	current, ok := c.drafts[questionID]
	if !ok {
		current, _ = c.ledger.Get(questionID)
	}
	next := applySelection(q.QuestionType, current, key)
	c.drafts[questionID] = next
	return append([]string(nil), next...), nil
}

// SubmitSelection submits the current draft of a question.
func (c *Controller) SubmitSelection(ctx context.Context, questionID string) (*model.Feedback, error) {
	c.mu.Lock()
	keys := append([]string(nil), c.drafts[questionID]...)
	c.mu.Unlock()

	if len(keys) == 0 {
		return nil, ErrEmptySelection
	}
	return c.SubmitAnswer(ctx, questionID, keys)
}

// SubmitAnswer sends the selected keys and, only once the server has
// acknowledged them, records them in the ledger. Submissions for the attempt
// are serialized.
func (c *Controller) SubmitAnswer(ctx context.Context, questionID string, keys []string) (*model.Feedback, error) {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	c.mu.Lock()
	sess, err := c.activeLocked()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	q, ok := c.questionLocked(questionID)
	if !ok {
		c.mu.Unlock()
		return nil, ErrUnknownQuestion
	}
	attemptID, mode := sess.AttemptID, sess.Mode
	c.mu.Unlock()

	keys = ledger.Dedupe(keys)
	if err := validateKeys(q, keys); err != nil {
		return nil, err
	}

	fb, err := c.svc.SubmitAnswer(ctx, attemptID, model.SubmitAnswerRequest{QuestionID: questionID, SelectedKeys: keys})
	if err != nil {
		c.log.Warn().Err(err).Str("attempt_id", attemptID).Str("question_id", questionID).Msg("Answer submission failed")
		if errors.Is(err, model.ErrAttemptNotActive) {
			c.resync(ctx)
		}
		return nil, &SubmissionError{AttemptID: attemptID, QuestionID: questionID, Err: err}
	}

	out := model.Feedback{QuestionID: questionID}
	if fb != nil {
		out = *fb
		if out.QuestionID == "" {
			out.QuestionID = questionID
		}
	}
	if mode == model.ModeExam {
		// Correctness stays hidden until the exam is finished.
		out.IsCorrect = nil
		out.CorrectKeys = nil
		out.Explanation = nil
	}

	c.mu.Lock()
	if c.session == nil || c.session.AttemptID != attemptID {
		c.mu.Unlock()
		return nil, ErrNoSession
	}
	c.ledger.Put(questionID, keys)
	c.session.AnsweredCount = c.ledger.Len()
	delete(c.drafts, questionID)
	fbCopy := out
	c.feedback = &fbCopy
	if mode == model.ModePractice && out.IsCorrect != nil {
		c.stats.Record(*out.IsCorrect)
	}
	answered := c.session.AnsweredCount
	c.mu.Unlock()

	c.log.Debug().Str("attempt_id", attemptID).Str("question_id", questionID).Int("answered", answered).Msg("Answer recorded")

	if c.journal != nil {
		if err := c.journal.SaveAnswer(ctx, attemptID, questionID, keys); err != nil {
			c.log.Warn().Err(err).Str("attempt_id", attemptID).Msg("Journal write failed")
		}
	}
	return &out, nil
}

// Advance moves one question forward or back. In exam mode going back is
// rejected and going past the last question finishes the attempt, in which
// case the result is returned. In practice mode going past the last loaded
// question loads the next page.
func (c *Controller) Advance(ctx context.Context, dir Direction) (*model.ExamResult, error) {
	c.mu.Lock()
	sess, err := c.activeLocked()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if len(c.questions) == 0 {
		c.mu.Unlock()
		return nil, ErrNoQuestions
	}

	if dir == Backward {
		defer c.mu.Unlock()
		if sess.Mode == model.ModeExam {
			return nil, ErrBackwardNavigation
		}
		if sess.CurrentIndex == 0 {
			return nil, ErrOutOfRange
		}
		c.moveLocked(sess.CurrentIndex - 1)
		return nil, nil
	}

	if sess.CurrentIndex < len(c.questions)-1 {
		c.moveLocked(sess.CurrentIndex + 1)
		c.mu.Unlock()
		return nil, nil
	}

	attemptID, mode, hasMore, from := sess.AttemptID, sess.Mode, c.hasMore, len(c.questions)
	c.mu.Unlock()

	if mode == model.ModeExam {
		return c.Finish(ctx)
	}
	if !hasMore {
		return nil, ErrNoMoreQuestions
	}
	if _, err := c.LoadQuestions(ctx, attemptID); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.AttemptID != attemptID {
		return nil, ErrNoSession
	}
	if len(c.questions) <= from {
		return nil, ErrNoMoreQuestions
	}
	c.moveLocked(from)
	return nil, nil
}

// GoTo jumps to a loaded question. Exam mode only allows jumping forward.
func (c *Controller) GoTo(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, err := c.activeLocked()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(c.questions) {
		return ErrOutOfRange
	}
	if sess.Mode == model.ModeExam && index < sess.CurrentIndex {
		return ErrBackwardNavigation
	}
	c.moveLocked(index)
	return nil
}

// Finish closes the attempt on the server. Concurrent and repeated calls
// share one server call; a successful result is cached. A failure is
// reported and not retried; a later explicit call may try again.
func (c *Controller) Finish(ctx context.Context) (*model.ExamResult, error) {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return nil, ErrNoSession
	}
	if c.result != nil {
		res := *c.result
		c.mu.Unlock()
		return &res, nil
	}
	if call := c.finishing; call != nil {
		c.mu.Unlock()
		select {
		case <-call.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if call.err != nil {
			return nil, call.err
		}
		res := *call.result
		return &res, nil
	}
	if c.session.Status.IsTerminal() {
		err := &SessionTerminatedError{AttemptID: c.session.AttemptID, Status: c.session.Status}
		c.mu.Unlock()
		return nil, err
	}
	call := &finishCall{done: make(chan struct{})}
	c.finishing = call
	attemptID := c.session.AttemptID
	c.mu.Unlock()

	defer close(call.done)

	// Let any in-flight submission land before closing the attempt, and keep
	// later ones out until the terminal status is recorded.
	c.submitMu.Lock()
	res, err := c.svc.Finish(ctx, attemptID)

	if err != nil {
		c.log.Error().Err(err).Str("attempt_id", attemptID).Msg("Finish failed")
		call.err = &FinishError{AttemptID: attemptID, Err: err}
		c.mu.Lock()
		if c.finishing == call {
			c.finishing = nil
		}
		c.mu.Unlock()
		c.submitMu.Unlock()
		if errors.Is(err, model.ErrAttemptNotActive) {
			c.resync(ctx)
		}
		return nil, call.err
	}
	if res == nil {
		res = &model.ExamResult{AttemptID: attemptID}
	}
	if res.Status == "" || !res.Status.IsTerminal() {
		res.Status = model.SessionStatusCompleted
	}
	call.result = res

	c.mu.Lock()
	if c.session != nil && c.session.AttemptID == attemptID {
		stored := *res
		c.result = &stored
		c.session.Status = res.Status
		c.finishing = nil
	}
	c.mu.Unlock()
	c.submitMu.Unlock()

	c.log.Info().
		Str("attempt_id", attemptID).
		Str("status", string(res.Status)).
		Float64("score", res.ScorePercentage).
		Bool("suspicious", res.ProctoringSuspicious).
		Msg("Session finished")

	out := *res
	return &out, nil
}

// Clear drops the session, ledger, drafts, feedback and statistics.
func (c *Controller) Clear(ctx context.Context) {
	c.mu.Lock()
	var attemptID string
	if c.session != nil {
		attemptID = c.session.AttemptID
	}
	c.resetLocked()
	c.mu.Unlock()

	if attemptID == "" {
		return
	}
	c.log.Info().Str("attempt_id", attemptID).Msg("Session cleared")
	if c.journal != nil {
		if err := c.journal.Discard(ctx, attemptID); err != nil {
			c.log.Warn().Err(err).Str("attempt_id", attemptID).Msg("Journal discard failed")
		}
	}
}

// Sync fetches the server's view of the attempt, refreshing the countdown and
// adopting a terminal status decided by the server. Practice attempts have
// nothing to sync.
func (c *Controller) Sync(ctx context.Context) (*model.AttemptStatus, error) {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return nil, ErrNoSession
	}
	attemptID, mode := c.session.AttemptID, c.session.Mode
	c.mu.Unlock()

	if mode != model.ModeExam {
		return nil, nil
	}

	st, err := c.svc.GetStatus(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.AttemptID != attemptID {
		return nil, ErrNoSession
	}
	if st.TimeRemainingSeconds != nil {
		c.setRemainingLocked(time.Duration(*st.TimeRemainingSeconds) * time.Second)
	}
	if st.Status.IsTerminal() && !c.session.Status.IsTerminal() {
		c.log.Warn().Str("attempt_id", attemptID).Str("status", string(st.Status)).Msg("Server closed the attempt")
		c.session.Status = st.Status
	}
	return st, nil
}

// RemainingTime is the last server-reported remaining time minus the time
// elapsed since that report. ok is false for untimed attempts.
func (c *Controller) RemainingTime() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingLocked()
}

// Session returns a copy of the active session, or nil.
func (c *Controller) Session() *model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// Answers returns a copy of the ledger.
func (c *Controller) Answers() map[string][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Snapshot()
}

// Statistics returns the practice counters.
func (c *Controller) Statistics() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Controller) activeLocked() (*model.Session, error) {
	if c.session == nil {
		return nil, ErrNoSession
	}
	if c.session.Status.IsTerminal() {
		return nil, &SessionTerminatedError{AttemptID: c.session.AttemptID, Status: c.session.Status}
	}
	return c.session, nil
}

func (c *Controller) questionLocked(id string) (*model.Question, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return &c.questions[i], true
}

func (c *Controller) moveLocked(index int) {
	c.session.CurrentIndex = index
	c.feedback = nil
}

func (c *Controller) setRemainingLocked(d time.Duration) {
	c.remaining = &d
	c.syncedAt = c.clock.Now()
}

func (c *Controller) remainingLocked() (time.Duration, bool) {
	if c.remaining == nil {
		return 0, false
	}
	left := *c.remaining - clock.Since(c.clock, c.syncedAt)
	if left < 0 {
		left = 0
	}
	return left, true
}

func (c *Controller) resetLocked() {
	c.session = nil
	c.questions = nil
	c.byID = make(map[string]int)
	c.hasMore = false
	c.ledger.Reset()
	c.drafts = make(map[string][]string)
	c.feedback = nil
	c.stats = Statistics{}
	c.result = nil
	c.finishing = nil
	c.remaining = nil
	c.syncedAt = time.Time{}
}

// resync adopts the server status after a call was refused for an inactive attempt.
func (c *Controller) resync(ctx context.Context) {
	if _, err := c.Sync(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Status re-sync failed")
	}
}

func validateKeys(q *model.Question, keys []string) error {
	if len(keys) == 0 {
		return ErrEmptySelection
	}
	if q.QuestionType != model.QuestionTypeMultiple && len(keys) > 1 {
		return ErrInvalidSelection
	}
	for _, k := range keys {
		if !q.HasOption(k) {
			return ErrInvalidSelection
		}
	}
	return nil
}

func validateQuestions(page *model.QuestionPage) error {
	if page == nil {
		return errors.New("empty question response")
	}
	for _, q := range page.Questions {
		if q.ID == "" || len(q.Options) == 0 {
			return errors.New("malformed question in response")
		}
	}
	return nil
}
