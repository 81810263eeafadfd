package model

import "time"

// Mode distinguishes timed proctored exams from untimed practice.
type Mode string

const (
	ModePractice Mode = "practice"
	ModeExam     Mode = "exam"
)

// SessionStatus enumerates attempt states. NotStarted is client-only.
type SessionStatus string

const (
	SessionStatusNotStarted SessionStatus = "not_started"
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusExpired    SessionStatus = "expired"
	SessionStatusCancelled  SessionStatus = "cancelled"
)

// IsTerminal reports whether no further answers or navigation are valid.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionStatusCompleted, SessionStatusExpired, SessionStatusCancelled:
		return true
	}
	return false
}

// Selector picks what an attempt is about: a major for exams, a subject for practice.
type Selector struct {
	Mode        Mode   `json:"mode" binding:"required,oneof=practice exam"`
	MajorCode   string `json:"major_code" binding:"required_if=Mode exam,max=10"`
	SubjectCode string `json:"subject_code" binding:"required_if=Mode practice,max=50"`
}

// AttemptStarted is the server's answer to a start request.
type AttemptStarted struct {
	AttemptID        string    `json:"attempt_id"`
	Mode             Mode      `json:"mode"`
	StartedAt        time.Time `json:"started_at"`
	TimeLimitMinutes *int      `json:"time_limit_minutes,omitempty"`
	TotalQuestions   int       `json:"total_questions"`
}

// AttemptStatus is the server's view of an attempt, used to re-sync the countdown.
type AttemptStatus struct {
	AttemptID            string        `json:"attempt_id"`
	Mode                 Mode          `json:"mode"`
	Status               SessionStatus `json:"status"`
	StartedAt            time.Time     `json:"started_at"`
	CompletedAt          *time.Time    `json:"completed_at,omitempty"`
	TimeLimitMinutes     *int          `json:"time_limit_minutes,omitempty"`
	TimeRemainingSeconds *int          `json:"time_remaining_seconds,omitempty"`
	TotalQuestions       int           `json:"total_questions"`
	AnsweredQuestions    int           `json:"answered_questions"`
	CurrentQuestionIndex int           `json:"current_question_index"`
}

// Session identifies one attempt on the client.
type Session struct {
	AttemptID        string        `json:"attempt_id"`
	Mode             Mode          `json:"mode"`
	Status           SessionStatus `json:"status"`
	Selector         Selector      `json:"selector"`
	StartedAt        time.Time     `json:"started_at"`
	TimeLimitMinutes *int          `json:"time_limit_minutes,omitempty"`
	TotalQuestions   int           `json:"total_questions"`
	CurrentIndex     int           `json:"current_index"`
	AnsweredCount    int           `json:"answered_count"`
}
