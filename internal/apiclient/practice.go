package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/stemsi/exstem-client/internal/model"
)

// StartPractice opens a practice attempt for a subject.
func (c *Client) StartPractice(ctx context.Context, subjectCode string) (*model.AttemptStarted, error) {
	var out model.AttemptStarted
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/practice/start",
		body:   map[string]string{"subject_code": subjectCode},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PracticeQuestions returns one page of a subject's questions.
func (c *Client) PracticeQuestions(ctx context.Context, subjectCode string, offset, limit int) (*model.QuestionPage, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	var out model.QuestionPage
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/practice/" + url.PathEscape(subjectCode) + "/questions",
		query:  q,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitPracticeAnswer checks an answer and returns immediate feedback.
func (c *Client) SubmitPracticeAnswer(ctx context.Context, subjectCode string, req model.SubmitAnswerRequest) (*model.Feedback, error) {
	var out model.Feedback
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/practice/" + url.PathEscape(subjectCode) + "/submit-answer",
		body:   req,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FinishPractice ends practice on a subject and returns the summary.
func (c *Client) FinishPractice(ctx context.Context, subjectCode string) (*model.PracticeSummary, error) {
	var out model.PracticeSummary
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/practice/" + url.PathEscape(subjectCode) + "/finish",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
