package model

// SubmitAnswerRequest is the payload sent for one answer submission.
type SubmitAnswerRequest struct {
	QuestionID   string   `json:"question_id" binding:"required,max=64"`
	SelectedKeys []string `json:"selected_keys" binding:"required,min=1,max=26,dive,required,max=8"`
}

// Feedback is the ephemeral result of one submission. IsCorrect is absent in
// exam mode; CorrectKeys is set only when incorrect and disclosure is allowed.
type Feedback struct {
	QuestionID  string   `json:"question_id,omitempty"`
	IsCorrect   *bool    `json:"is_correct,omitempty"`
	CorrectKeys []string `json:"correct_keys,omitempty"`
	Explanation *string  `json:"explanation,omitempty"`
}

// SelectKeyRequest toggles or replaces one key in the draft selection.
type SelectKeyRequest struct {
	QuestionID string `json:"question_id" binding:"required,max=64"`
	Key        string `json:"key" binding:"required,max=8"`
}
