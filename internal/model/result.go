package model

import "time"

// ExamResult is returned when an attempt is closed server-side.
type ExamResult struct {
	AttemptID                   string        `json:"attempt_id"`
	Mode                        Mode          `json:"mode"`
	Status                      SessionStatus `json:"status"`
	StartedAt                   time.Time     `json:"started_at"`
	CompletedAt                 *time.Time    `json:"completed_at,omitempty"`
	TotalQuestions              int           `json:"total_questions"`
	AnsweredQuestions           int           `json:"answered_questions"`
	CorrectAnswers              int           `json:"correct_answers"`
	ScorePercentage             float64       `json:"score_percentage"`
	Passed                      bool          `json:"passed"`
	ProctoringCopyPasteCount    int           `json:"proctoring_copy_paste_count"`
	ProctoringTabSwitchesCount  int           `json:"proctoring_tab_switches_count"`
	ProctoringConsoleOpensCount int           `json:"proctoring_console_opens_count"`
	ProctoringSuspicious        bool          `json:"proctoring_suspicious"`
}

// PracticeSummary is what the server returns when practice on a subject ends.
type PracticeSummary struct {
	AnsweredQuestions  int     `json:"answered_questions"`
	CorrectCount       int     `json:"correct_count"`
	AccuracyPercentage float64 `json:"accuracy_percentage"`
}
