package session

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/clock"
	"github.com/stemsi/exstem-client/internal/model"
)

type fakeService struct {
	mu sync.Mutex

	started   *model.AttemptStarted
	startErr  error
	pages     [][]model.Question
	loadErr   error
	submitErr error
	correct   map[string]bool
	finishErr error
	status    *model.AttemptStatus

	submits     []model.SubmitAnswerRequest
	finishCalls int
	// finishGate, when set, blocks Finish until closed; finishEntered is
	// signalled on entry.
	finishGate    chan struct{}
	finishEntered chan struct{}
	// submitGate and submitEntered do the same for SubmitAnswer.
	submitGate    chan struct{}
	submitEntered chan struct{}
}


func (f *fakeService) StartAttempt(_ context.Context, sel model.Selector) (*model.AttemptStarted, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	if f.started != nil {
		s := *f.started
		return &s, nil
	}
	return &model.AttemptStarted{AttemptID: "att-1", Mode: sel.Mode, TotalQuestions: 3}, nil
}

func (f *fakeService) GetQuestions(_ context.Context, _ string, offset, limit int) (*model.QuestionPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if len(f.pages) == 0 {
		return &model.QuestionPage{}, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return &model.QuestionPage{Questions: page, Offset: offset, Limit: limit, HasMore: len(f.pages) > 0}, nil
}

func (f *fakeService) SubmitAnswer(_ context.Context, _ string, req model.SubmitAnswerRequest) (*model.Feedback, error) {
	f.mu.Lock()
	gate, entered := f.submitGate, f.submitEntered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submits = append(f.submits, req)
	correct := f.correct[req.QuestionID]
	explanation := "because"
	return &model.Feedback{
		QuestionID:  req.QuestionID,
		IsCorrect:   &correct,
		CorrectKeys: []string{"A"},
		Explanation: &explanation,
	}, nil
}

func (f *fakeService) Finish(_ context.Context, attemptID string) (*model.ExamResult, error) {
	f.mu.Lock()
	f.finishCalls++
	gate, entered := f.finishGate, f.finishEntered
	err := f.finishErr
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &model.ExamResult{AttemptID: attemptID, Status: model.SessionStatusCompleted, ScorePercentage: 80}, nil
}

func (f *fakeService) GetStatus(_ context.Context, attemptID string) (*model.AttemptStatus, error) {
	if f.status == nil {
		return nil, errors.New("no status")
	}
	st := *f.status
	st.AttemptID = attemptID
	return &st, nil
}

type fakeJournal struct {
	mu        sync.Mutex
	saved     map[string][]string
	discarded []string
}

func (j *fakeJournal) SaveAnswer(_ context.Context, _, questionID string, keys []string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.saved == nil {
		j.saved = make(map[string][]string)
	}
	j.saved[questionID] = keys
	return nil
}

func (j *fakeJournal) Discard(_ context.Context, attemptID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.discarded = append(j.discarded, attemptID)
	return nil
}

func question(id string, qt model.QuestionType) model.Question {
	return model.Question{
		ID:           id,
		QuestionText: "Question " + id,
		QuestionType: qt,
		Options:      []model.Option{{Key: "A"}, {Key: "B"}, {Key: "C"}, {Key: "D"}},
	}
}

func newTestController(t *testing.T, svc *fakeService) (*Controller, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 10, 25, 10, 0, 0, 0, time.UTC))
	c := NewController(svc, Config{PracticePageSize: 2, Clock: clk}, zerolog.Nop())
	return c, clk
}

func startExam(t *testing.T, c *Controller) string {
	t.Helper()
	h, err := c.Start(context.Background(), model.Selector{Mode: model.ModeExam, MajorCode: "TKJ"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := c.LoadQuestions(context.Background(), h.AttemptID); err != nil {
		t.Fatalf("LoadQuestions: %v", err)
	}
	return h.AttemptID
}

func TestStartRejectsSecondActiveSession(t *testing.T) {
	svc := &fakeService{}
	c, _ := newTestController(t, svc)
	ctx := context.Background()

	if _, err := c.Start(ctx, model.Selector{Mode: model.ModePractice, SubjectCode: "MTK"}); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	_, err := c.Start(ctx, model.Selector{Mode: model.ModePractice, SubjectCode: "MTK"})

	var ce *SessionCreationError
	if !errors.As(err, &ce) || !errors.Is(err, ErrSessionActive) {
		t.Fatalf("second Start error = %v, want SessionCreationError wrapping ErrSessionActive", err)
	}
}

func TestStartFailureLeavesNoSession(t *testing.T) {
	svc := &fakeService{startErr: errors.New("boom")}
	c, _ := newTestController(t, svc)

	_, err := c.Start(context.Background(), model.Selector{Mode: model.ModeExam, MajorCode: "TKJ"})
	var ce *SessionCreationError
	if !errors.As(err, &ce) {
		t.Fatalf("Start error = %v, want SessionCreationError", err)
	}
	if c.Session() != nil {
		t.Error("session created despite failure")
	}
	if v := c.Snapshot(); v.Status != model.SessionStatusNotStarted {
		t.Errorf("status = %s, want not_started", v.Status)
	}
}

func TestSelectSingleReplaces(t *testing.T) {
	svc := &fakeService{pages: [][]model.Question{{question("q1", model.QuestionTypeSingle)}}}
	c, _ := newTestController(t, svc)
	startExam(t, c)

	if _, err := c.Select("q1", "A"); err != nil {
		t.Fatal(err)
	}
	got, err := c.Select("q1", "B")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"B"}) {
		t.Errorf("draft = %v, want [B]", got)
	}
}

func TestSelectMultipleTogglesTwiceAbsent(t *testing.T) {
	svc := &fakeService{pages: [][]model.Question{{question("q1", model.QuestionTypeMultiple)}}}
	c, _ := newTestController(t, svc)
	startExam(t, c)

	c.Select("q1", "A")
	c.Select("q1", "C")
	got, _ := c.Select("q1", "C")
	if !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("draft = %v, want [A]", got)
	}
}

func TestSelectRejectsUnknownOption(t *testing.T) {
	svc := &fakeService{pages: [][]model.Question{{question("q1", model.QuestionTypeSingle)}}}
	c, _ := newTestController(t, svc)
	startExam(t, c)

	if _, err := c.Select("q1", "Z"); !errors.Is(err, ErrInvalidSelection) {
		t.Errorf("Select(Z) error = %v, want ErrInvalidSelection", err)
	}
	if _, err := c.Select("nope", "A"); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("Select(nope) error = %v, want ErrUnknownQuestion", err)
	}
}

func TestSubmitAnswerRecordsOnlyAfterConfirmation(t *testing.T) {
	svc := &fakeService{pages: [][]model.Question{{question("q1", model.QuestionTypeSingle)}}}
	c, _ := newTestController(t, svc)
	startExam(t, c)
	ctx := context.Background()

	svc.submitErr = errors.New("network down")
	_, err := c.SubmitAnswer(ctx, "q1", []string{"A"})
	var se *SubmissionError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want SubmissionError", err)
	}
	if len(c.Answers()) != 0 {
		t.Fatalf("ledger written on failure: %v", c.Answers())
	}

	svc.submitErr = nil
	if _, err := c.SubmitAnswer(ctx, "q1", []string{"B"}); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := c.Answers()["q1"]; !reflect.DeepEqual(got, []string{"B"}) {
		t.Errorf("ledger[q1] = %v, want [B]", got)
	}
	if s := c.Session(); s.AnsweredCount != 1 {
		t.Errorf("AnsweredCount = %d, want 1", s.AnsweredCount)
	}
}

func TestSubmitAnswerValidatesKeys(t *testing.T) {
	svc := &fakeService{pages: [][]model.Question{{question("q1", model.QuestionTypeSingle)}}}
	c, _ := newTestController(t, svc)
	startExam(t, c)
	ctx := context.Background()

	tests := []struct {
		name string
		keys []string
		want error
	}{
		{"empty", nil, ErrEmptySelection},
		{"two keys on single", []string{"A", "B"}, ErrInvalidSelection},
		{"unknown key", []string{"X"}, ErrInvalidSelection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.SubmitAnswer(ctx, "q1", tt.keys); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
	if len(svc.submits) != 0 {
		t.Errorf("service called %d times for invalid input", len(svc.submits))
	}

	// Repeated keys collapse before validation.
	if _, err := c.SubmitAnswer(ctx, "q1", []string{"A", "A"}); err != nil {
		t.Fatalf("duplicate keys: %v", err)
	}
	if got := svc.submits[0].SelectedKeys; !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("sent keys = %v, want [A]", got)
	}
}

func TestExamFeedbackHidesCorrectness(t *testing.T) {
	svc := &fakeService{
		pages:   [][]model.Question{{question("q1", model.QuestionTypeSingle)}},
		correct: map[string]bool{"q1": true},
	}
	c, _ := newTestController(t, svc)
	startExam(t, c)

	fb, err := c.SubmitAnswer(context.Background(), "q1", []string{"A"})
	if err != nil {
		t.Fatal(err)
	}
	if fb.IsCorrect != nil || fb.CorrectKeys != nil || fb.Explanation != nil {
		t.Errorf("exam feedback leaks correctness: %+v", fb)
	}
	if c.Snapshot().Statistics != nil {
		t.Error("exam snapshot carries practice statistics")
	}
}

func TestExamRejectsBackwardNavigation(t *testing.T) {
	svc := &fakeService{pages: [][]model.Question{{
		question("q1", model.QuestionTypeSingle),
		question("q2", model.QuestionTypeSingle),
	}}}
	c, _ := newTestController(t, svc)
	startExam(t, c)
	ctx := context.Background()

	if _, err := c.Advance(ctx, Forward); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Advance(ctx, Backward); !errors.Is(err, ErrBackwardNavigation) {
		t.Errorf("Advance(backward) error = %v, want ErrBackwardNavigation", err)
	}
	if err := c.GoTo(0); !errors.Is(err, ErrBackwardNavigation) {
		t.Errorf("GoTo(0) error = %v, want ErrBackwardNavigation", err)
	}
	if got := c.Session().CurrentIndex; got != 1 {
		t.Errorf("CurrentIndex = %d, want 1", got)
	}
}

func TestExamAdvancePastLastFinishes(t *testing.T) {
	svc := &fakeService{pages: [][]model.Question{{question("q1", model.QuestionTypeSingle)}}}
	c, _ := newTestController(t, svc)
	startExam(t, c)

	res, err := c.Advance(context.Background(), Forward)
	if err != nil {
		t.Fatal(err)
	}
	if res == nil || res.Status != model.SessionStatusCompleted {
		t.Fatalf("result = %+v, want completed result", res)
	}
	if svc.finishCalls != 1 {
		t.Errorf("finish calls = %d, want 1", svc.finishCalls)
	}

	var te *SessionTerminatedError
	if _, err := c.SubmitAnswer(context.Background(), "q1", []string{"A"}); !errors.As(err, &te) {
		t.Errorf("submit after finish error = %v, want SessionTerminatedError", err)
	}
}

func TestFinishTwiceCallsServiceOnce(t *testing.T) {
	svc := &fakeService{pages: [][]model.Question{{question("q1", model.QuestionTypeSingle)}}}
	c, _ := newTestController(t, svc)
	startExam(t, c)
	ctx := context.Background()

	first, err := c.Finish(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Finish(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if svc.finishCalls != 1 {
		t.Errorf("finish calls = %d, want 1", svc.finishCalls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
}

func TestConcurrentFinishSharesOneCall(t *testing.T) {
	svc := &fakeService{
		pages:         [][]model.Question{{question("q1", model.QuestionTypeSingle)}},
		finishGate:    make(chan struct{}),
		finishEntered: make(chan struct{}, 1),
	}
	c, _ := newTestController(t, svc)
	startExam(t, c)
	ctx := context.Background()

	results := make(chan *model.ExamResult, 2)
	errs := make(chan error, 2)
	run := func() {
		res, err := c.Finish(ctx)
		results <- res
		errs <- err
	}

	go run()
	<-svc.finishEntered
	if !c.Snapshot().Finishing {
		t.Error("snapshot does not report finishing")
	}
	go run()
	close(svc.finishGate)

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("Finish: %v", err)
		}
		if res := <-results; res.ScorePercentage != 80 {
			t.Errorf("result = %+v", res)
		}
	}
	if svc.finishCalls != 1 {
		t.Errorf("finish calls = %d, want 1", svc.finishCalls)
	}
}

func TestConcurrentSubmitsForSameQuestionAreSerialized(t *testing.T) {
	svc := &fakeService{
		pages:         [][]model.Question{{question("q1", model.QuestionTypeSingle)}},
		submitGate:    make(chan struct{}),
		submitEntered: make(chan struct{}, 2),
	}
	c, _ := newTestController(t, svc)
	startExam(t, c)
	ctx := context.Background()

	errs := make(chan error, 2)
	go func() {
		_, err := c.SubmitAnswer(ctx, "q1", []string{"A"})
		errs <- err
	}()
	<-svc.submitEntered

	go func() {
		_, err := c.SubmitAnswer(ctx, "q1", []string{"B"})
		errs <- err
	}()
	select {
	case <-svc.submitEntered:
		t.Fatal("second submission reached the service before the first returned")
	case <-time.After(50 * time.Millisecond):
	}

	close(svc.submitGate)
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("SubmitAnswer: %v", err)
		}
	}

	if len(svc.submits) != 2 || svc.submits[0].SelectedKeys[0] != "A" || svc.submits[1].SelectedKeys[0] != "B" {
		t.Errorf("service saw %+v, want A then B", svc.submits)
	}
	if got := c.Answers()["q1"]; !reflect.DeepEqual(got, []string{"B"}) {
		t.Errorf("ledger q1 = %v, want the later submission [B]", got)
	}
}

func TestSubmitQueuedBehindFinishIsRejected(t *testing.T) {
	svc := &fakeService{
		pages:         [][]model.Question{{question("q1", model.QuestionTypeSingle)}},
		finishGate:    make(chan struct{}),
		finishEntered: make(chan struct{}, 1),
	}
	c, _ := newTestController(t, svc)
	startExam(t, c)
	ctx := context.Background()

	finished := make(chan error, 1)
	go func() {
		_, err := c.Finish(ctx)
		finished <- err
	}()
	<-svc.finishEntered

	submitted := make(chan error, 1)
	go func() {
		_, err := c.SubmitAnswer(ctx, "q1", []string{"A"})
		submitted <- err
	}()
	select {
	case err := <-submitted:
		t.Fatalf("submission returned while finish was in flight: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(svc.finishGate)
	if err := <-finished; err != nil {
		t.Fatalf("Finish: %v", err)
	}

	var terminated *SessionTerminatedError
	if err := <-submitted; !errors.As(err, &terminated) {
		t.Fatalf("queued submit error = %v, want SessionTerminatedError", err)
	}
	if len(svc.submits) != 0 {
		t.Errorf("service received %d submissions after finish", len(svc.submits))
	}
	if n := len(c.Answers()); n != 0 {
		t.Errorf("ledger has %d answers, want 0", n)
	}
}

func TestFinishFailureCanBeRetried(t *testing.T) {
	svc := &fakeService{
		pages:     [][]model.Question{{question("q1", model.QuestionTypeSingle)}},
		finishErr: errors.New("server unavailable"),
	}
	c, _ := newTestController(t, svc)
	startExam(t, c)
	ctx := context.Background()

	var fe *FinishError
	if _, err := c.Finish(ctx); !errors.As(err, &fe) {
		t.Fatalf("error = %v, want FinishError", err)
	}
	if c.Session().Status != model.SessionStatusInProgress {
		t.Errorf("status = %s after failed finish", c.Session().Status)
	}

	svc.finishErr = nil
	if _, err := c.Finish(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if svc.finishCalls != 2 {
		t.Errorf("finish calls = %d, want 2", svc.finishCalls)
	}
}

func TestPracticeStatisticsAndPaging(t *testing.T) {
	svc := &fakeService{
		pages: [][]model.Question{
			{question("q1", model.QuestionTypeSingle), question("q2", model.QuestionTypeSingle)},
			{question("q3", model.QuestionTypeSingle), question("q4", model.QuestionTypeSingle)},
		},
		correct: map[string]bool{"q1": true, "q2": true, "q3": false, "q4": true},
	}
	c, _ := newTestController(t, svc)
	ctx := context.Background()

	h, err := c.Start(ctx, model.Selector{Mode: model.ModePractice, SubjectCode: "MTK"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.LoadQuestions(ctx, h.AttemptID); err != nil {
		t.Fatal(err)
	}

	for i, id := range []string{"q1", "q2", "q3", "q4"} {
		fb, err := c.SubmitAnswer(ctx, id, []string{"A"})
		if err != nil {
			t.Fatalf("submit %s: %v", id, err)
		}
		if fb.IsCorrect == nil {
			t.Fatalf("practice feedback for %s has no correctness", id)
		}
		if i < 3 {
			if _, err := c.Advance(ctx, Forward); err != nil {
				t.Fatalf("advance after %s: %v", id, err)
			}
		}
	}

	want := Statistics{TotalAnswered: 4, CorrectAnswers: 3, Accuracy: 75, CurrentStreak: 1, BestStreak: 2}
	if got := c.Statistics(); got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}
	v := c.Snapshot()
	if v.LoadedQuestions != 4 || v.Session.CurrentIndex != 3 {
		t.Errorf("loaded=%d index=%d, want 4 and 3", v.LoadedQuestions, v.Session.CurrentIndex)
	}
	if _, err := c.Advance(ctx, Forward); !errors.Is(err, ErrNoMoreQuestions) {
		t.Errorf("advance past end error = %v, want ErrNoMoreQuestions", err)
	}

	if _, err := c.Advance(ctx, Backward); err != nil {
		t.Errorf("practice backward: %v", err)
	}
	if err := c.GoTo(0); err != nil {
		t.Errorf("practice GoTo(0): %v", err)
	}
	if err := c.GoTo(9); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("GoTo(9) error = %v, want ErrOutOfRange", err)
	}
}

func TestLoadFailureKeepsState(t *testing.T) {
	svc := &fakeService{pages: [][]model.Question{
		{question("q1", model.QuestionTypeSingle)},
		{question("q2", model.QuestionTypeSingle)},
	}}
	c, _ := newTestController(t, svc)
	ctx := context.Background()

	h, _ := c.Start(ctx, model.Selector{Mode: model.ModePractice, SubjectCode: "MTK"})
	if _, err := c.LoadQuestions(ctx, h.AttemptID); err != nil {
		t.Fatal(err)
	}

	svc.loadErr = errors.New("timeout")
	_, err := c.Advance(ctx, Forward)
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("error = %v, want LoadError", err)
	}
	v := c.Snapshot()
	if v.LoadedQuestions != 1 || v.Session.CurrentIndex != 0 {
		t.Errorf("state changed after failed load: loaded=%d index=%d", v.LoadedQuestions, v.Session.CurrentIndex)
	}
}

func TestSyncAdoptsServerExpiry(t *testing.T) {
	limit := 60
	remaining := 120
	svc := &fakeService{
		started: &model.AttemptStarted{AttemptID: "att-9", Mode: model.ModeExam, TimeLimitMinutes: &limit, TotalQuestions: 1},
		pages:   [][]model.Question{{question("q1", model.QuestionTypeSingle)}},
		status:  &model.AttemptStatus{Status: model.SessionStatusInProgress, TimeRemainingSeconds: &remaining},
	}
	c, clk := newTestController(t, svc)
	startExam(t, c)

	if left, ok := c.RemainingTime(); !ok || left != time.Hour {
		t.Fatalf("RemainingTime() = %v, %v; want 1h", left, ok)
	}
	if _, err := c.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	clk.Advance(30 * time.Second)
	if left, _ := c.RemainingTime(); left != 90*time.Second {
		t.Errorf("RemainingTime() = %v, want 90s", left)
	}
	clk.Advance(5 * time.Minute)
	if left, _ := c.RemainingTime(); left != 0 {
		t.Errorf("RemainingTime() = %v, want 0", left)
	}
	// Local countdown reaching zero never ends the attempt by itself.
	if s := c.Session().Status; s != model.SessionStatusInProgress {
		t.Errorf("status = %s, want in_progress", s)
	}

	zero := 0
	svc.status = &model.AttemptStatus{Status: model.SessionStatusExpired, TimeRemainingSeconds: &zero}
	if _, err := c.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	var te *SessionTerminatedError
	if _, err := c.Advance(context.Background(), Forward); !errors.As(err, &te) || te.Status != model.SessionStatusExpired {
		t.Errorf("advance after expiry error = %v, want SessionTerminatedError(expired)", err)
	}
}

func TestSubmitOnInactiveAttemptResyncs(t *testing.T) {
	svc := &fakeService{
		pages:     [][]model.Question{{question("q1", model.QuestionTypeSingle)}},
		submitErr: fmt.Errorf("submit: %w", model.ErrAttemptNotActive),
		status:    &model.AttemptStatus{Status: model.SessionStatusExpired},
	}
	c, _ := newTestController(t, svc)
	startExam(t, c)

	if _, err := c.SubmitAnswer(context.Background(), "q1", []string{"A"}); !errors.Is(err, model.ErrAttemptNotActive) {
		t.Fatalf("error = %v, want ErrAttemptNotActive", err)
	}
	if s := c.Session().Status; s != model.SessionStatusExpired {
		t.Errorf("status = %s, want expired", s)
	}
}

func TestSubmitSelectionUsesDraftAndJournal(t *testing.T) {
	svc := &fakeService{pages: [][]model.Question{{question("q1", model.QuestionTypeMultiple)}}}
	j := &fakeJournal{}
	clk := clock.NewFake(time.Date(2025, 10, 25, 10, 0, 0, 0, time.UTC))
	c := NewController(svc, Config{Clock: clk, Journal: j}, zerolog.Nop())
	ctx := context.Background()
	startExam(t, c)

	if _, err := c.SubmitSelection(ctx, "q1"); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("empty draft error = %v, want ErrEmptySelection", err)
	}
	c.Select("q1", "B")
	c.Select("q1", "D")
	if _, err := c.SubmitSelection(ctx, "q1"); err != nil {
		t.Fatal(err)
	}
	if got := j.saved["q1"]; !reflect.DeepEqual(got, []string{"B", "D"}) {
		t.Errorf("journal q1 = %v, want [B D]", got)
	}
	if v := c.Snapshot(); v.Draft != nil || !reflect.DeepEqual(v.SubmittedKeys, []string{"B", "D"}) {
		t.Errorf("snapshot draft=%v submitted=%v", v.Draft, v.SubmittedKeys)
	}

	c.Clear(ctx)
	if c.Session() != nil || len(c.Answers()) != 0 {
		t.Error("state left after Clear")
	}
	if !reflect.DeepEqual(j.discarded, []string{"att-1"}) {
		t.Errorf("journal discarded = %v", j.discarded)
	}
}
