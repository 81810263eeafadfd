package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/stemsi/exstem-client/internal/model"
)

// StartExam creates an exam attempt for a major.
func (c *Client) StartExam(ctx context.Context, majorCode string) (*model.AttemptStarted, error) {
	var out model.AttemptStarted
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/exam/start",
		body:   map[string]string{"major_code": majorCode},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ExamStatus returns the server's view of an attempt, including remaining time.
func (c *Client) ExamStatus(ctx context.Context, attemptID string) (*model.AttemptStatus, error) {
	var out model.AttemptStatus
	if err := c.do(ctx, call{method: http.MethodGet, path: "/exam/" + url.PathEscape(attemptID)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExamQuestions returns the full ordered question set of an active attempt.
func (c *Client) ExamQuestions(ctx context.Context, attemptID string) ([]model.Question, error) {
	var out []model.Question
	err := c.do(ctx, call{
		method:       http.MethodGet,
		path:         "/exam/" + url.PathEscape(attemptID) + "/questions",
		attemptRoute: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitExamAnswer records an answer; the response carries no correctness.
func (c *Client) SubmitExamAnswer(ctx context.Context, attemptID string, req model.SubmitAnswerRequest) (*model.Feedback, error) {
	var out model.Feedback
	err := c.do(ctx, call{
		method:       http.MethodPost,
		path:         "/exam/" + url.PathEscape(attemptID) + "/answer",
		body:         req,
		attemptRoute: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FinishExam closes the attempt and returns the graded result.
func (c *Client) FinishExam(ctx context.Context, attemptID string) (*model.ExamResult, error) {
	var out model.ExamResult
	err := c.do(ctx, call{
		method:       http.MethodPost,
		path:         "/exam/" + url.PathEscape(attemptID) + "/submit",
		attemptRoute: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
