package session

import (
	"math"

	"github.com/stemsi/exstem-client/internal/model"
)

// View is a read-only picture of the controller for the UI surface.
type View struct {
	Status           model.SessionStatus `json:"status"`
	Session          *model.Session      `json:"session,omitempty"`
	Question         *model.Question     `json:"current_question,omitempty"`
	Draft            []string            `json:"draft,omitempty"`
	SubmittedKeys    []string            `json:"submitted_keys,omitempty"`
	Feedback         *model.Feedback     `json:"feedback,omitempty"`
	Statistics       *Statistics         `json:"statistics,omitempty"`
	RemainingSeconds *int                `json:"remaining_seconds,omitempty"`
	LoadedQuestions  int                 `json:"loaded_questions"`
	HasMore          bool                `json:"has_more"`
	Finishing        bool                `json:"finishing"`
	Result           *model.ExamResult   `json:"result,omitempty"`
}

// Snapshot returns the current view. Everything in it is a copy.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return View{Status: model.SessionStatusNotStarted}
	}

	sess := *c.session
	v := View{
		Status:          sess.Status,
		Session:         &sess,
		LoadedQuestions: len(c.questions),
		HasMore:         c.hasMore,
		Finishing:       c.finishing != nil,
	}
	if sess.CurrentIndex < len(c.questions) {
		q := c.questions[sess.CurrentIndex]
		v.Question = &q
		if d, ok := c.drafts[q.ID]; ok {
			v.Draft = append([]string(nil), d...)
		}
		v.SubmittedKeys, _ = c.ledger.Get(q.ID)
	}
	if c.feedback != nil {
		fb := *c.feedback
		v.Feedback = &fb
	}
	if sess.Mode == model.ModePractice {
		st := c.stats
		v.Statistics = &st
	}
	if left, ok := c.remainingLocked(); ok {
		secs := int(math.Ceil(left.Seconds()))
		v.RemainingSeconds = &secs
	}
	if c.result != nil {
		res := *c.result
		v.Result = &res
	}
	return v
}
