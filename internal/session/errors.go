package session

import (
	"errors"
	"fmt"

	"github.com/stemsi/exstem-client/internal/model"
)

// Local precondition failures.
var (
	ErrNoSession          = errors.New("no active session")
	ErrSessionActive      = errors.New("a session is already in progress")
	ErrBackwardNavigation = errors.New("backward navigation is not allowed in exam mode")
	ErrUnknownQuestion    = errors.New("question is not loaded in this session")
	ErrEmptySelection     = errors.New("at least one option must be selected")
	ErrInvalidSelection   = errors.New("selection does not match the question options")
	ErrNoMoreQuestions    = errors.New("no more questions")
	ErrOutOfRange         = errors.New("question index out of range")
	ErrNoQuestions        = errors.New("questions have not been loaded")
)

// SessionCreationError wraps a failed attempt start.
type SessionCreationError struct {
	Selector model.Selector
	Err      error
}

func (e *SessionCreationError) Error() string {
	return fmt.Sprintf("start %s attempt: %v", e.Selector.Mode, e.Err)
}

func (e *SessionCreationError) Unwrap() error { return e.Err }

// LoadError wraps a failed question fetch. Prior state is untouched.
type LoadError struct {
	AttemptID string
	Offset    int
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load questions for attempt %s at offset %d: %v", e.AttemptID, e.Offset, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SubmissionError wraps a failed answer submission. The ledger entry is left
// as it was and the call may be retried.
type SubmissionError struct {
	AttemptID  string
	QuestionID string
	Err        error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit answer to %s for attempt %s: %v", e.QuestionID, e.AttemptID, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// FinishError wraps a failed finish. It is never retried automatically.
type FinishError struct {
	AttemptID string
	Err       error
}

func (e *FinishError) Error() string {
	return fmt.Sprintf("finish attempt %s: %v", e.AttemptID, e.Err)
}

func (e *FinishError) Unwrap() error { return e.Err }

// SessionTerminatedError rejects operations on a completed, expired or
// cancelled session.
type SessionTerminatedError struct {
	AttemptID string
	Status    model.SessionStatus
}

func (e *SessionTerminatedError) Error() string {
	return fmt.Sprintf("attempt %s is %s", e.AttemptID, e.Status)
}
