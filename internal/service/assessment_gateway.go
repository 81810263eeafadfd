package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/stemsi/exstem-client/internal/model"
)

// AssessmentAPI is the part of the remote API the gateway routes to.
type AssessmentAPI interface {
	StartExam(ctx context.Context, majorCode string) (*model.AttemptStarted, error)
	ExamStatus(ctx context.Context, attemptID string) (*model.AttemptStatus, error)
	ExamQuestions(ctx context.Context, attemptID string) ([]model.Question, error)
	SubmitExamAnswer(ctx context.Context, attemptID string, req model.SubmitAnswerRequest) (*model.Feedback, error)
	FinishExam(ctx context.Context, attemptID string) (*model.ExamResult, error)

	StartPractice(ctx context.Context, subjectCode string) (*model.AttemptStarted, error)
	PracticeQuestions(ctx context.Context, subjectCode string, offset, limit int) (*model.QuestionPage, error)
	SubmitPracticeAnswer(ctx context.Context, subjectCode string, req model.SubmitAnswerRequest) (*model.Feedback, error)
	FinishPractice(ctx context.Context, subjectCode string) (*model.PracticeSummary, error)
}

// AssessmentGateway presents exam and practice routes as one attempt-keyed
// service. Practice routes are addressed by subject, so the gateway remembers
// the subject of every practice attempt it started.
type AssessmentGateway struct {
	api AssessmentAPI

	mu       sync.Mutex
	subjects map[string]string
}

// NewAssessmentGateway creates a new AssessmentGateway.
func NewAssessmentGateway(api AssessmentAPI) *AssessmentGateway {
	return &AssessmentGateway{api: api, subjects: make(map[string]string)}
}

func (g *AssessmentGateway) subject(attemptID string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.subjects[attemptID]
	return s, ok
}

// StartAttempt starts an exam (by major) or a practice (by subject).
func (g *AssessmentGateway) StartAttempt(ctx context.Context, sel model.Selector) (*model.AttemptStarted, error) {
	switch sel.Mode {
	case model.ModeExam:
		started, err := g.api.StartExam(ctx, sel.MajorCode)
		if err != nil {
			return nil, err
		}
		started.Mode = model.ModeExam
		return started, nil

	case model.ModePractice:
		started, err := g.api.StartPractice(ctx, sel.SubjectCode)
		if err != nil {
			return nil, err
		}
		started.Mode = model.ModePractice
		g.mu.Lock()
		g.subjects[started.AttemptID] = sel.SubjectCode
		g.mu.Unlock()
		return started, nil
	}
	return nil, fmt.Errorf("unknown mode %q", sel.Mode)
}

// GetQuestions returns one practice page, or the whole exam set as a single page.
func (g *AssessmentGateway) GetQuestions(ctx context.Context, attemptID string, offset, limit int) (*model.QuestionPage, error) {
	if subject, ok := g.subject(attemptID); ok {
		return g.api.PracticeQuestions(ctx, subject, offset, limit)
	}

	qs, err := g.api.ExamQuestions(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	return &model.QuestionPage{Questions: qs, Total: len(qs), Limit: len(qs)}, nil
}

// SubmitAnswer routes the answer to the exam or practice endpoint.
func (g *AssessmentGateway) SubmitAnswer(ctx context.Context, attemptID string, req model.SubmitAnswerRequest) (*model.Feedback, error) {
	if subject, ok := g.subject(attemptID); ok {
		return g.api.SubmitPracticeAnswer(ctx, subject, req)
	}
	return g.api.SubmitExamAnswer(ctx, attemptID, req)
}

// Finish closes the attempt. A practice summary is reported as a result with
// the accuracy as score.
func (g *AssessmentGateway) Finish(ctx context.Context, attemptID string) (*model.ExamResult, error) {
	subject, ok := g.subject(attemptID)
	if !ok {
		return g.api.FinishExam(ctx, attemptID)
	}

	sum, err := g.api.FinishPractice(ctx, subject)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	delete(g.subjects, attemptID)
	g.mu.Unlock()

	return &model.ExamResult{
		AttemptID:         attemptID,
		Mode:              model.ModePractice,
		Status:            model.SessionStatusCompleted,
		AnsweredQuestions: sum.AnsweredQuestions,
		CorrectAnswers:    sum.CorrectCount,
		ScorePercentage:   sum.AccuracyPercentage,
	}, nil
}

// GetStatus returns the server's view of an exam attempt. Practice has no
// status endpoint and is always reported in progress.
func (g *AssessmentGateway) GetStatus(ctx context.Context, attemptID string) (*model.AttemptStatus, error) {
	if _, ok := g.subject(attemptID); ok {
		return &model.AttemptStatus{AttemptID: attemptID, Mode: model.ModePractice, Status: model.SessionStatusInProgress}, nil
	}
	return g.api.ExamStatus(ctx, attemptID)
}

// Forget drops routing state for an attempt that was abandoned.
func (g *AssessmentGateway) Forget(attemptID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.subjects, attemptID)
}
