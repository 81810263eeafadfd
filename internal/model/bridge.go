package model

// AnswerRequest submits explicit keys, or the current draft when SelectedKeys is empty.
type AnswerRequest struct {
	QuestionID   string   `json:"question_id" binding:"required,max=64"`
	SelectedKeys []string `json:"selected_keys" binding:"omitempty,max=26,dive,required,max=8"`
}

// AdvanceRequest moves one question forward or backward.
type AdvanceRequest struct {
	Direction string `json:"direction" binding:"required,nav_direction"`
}

// GoToRequest jumps to a loaded question by index.
type GoToRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}

// ModalRequest brackets a dialog opened by the session itself.
type ModalRequest struct {
	Action string `json:"action" binding:"required,oneof=begin end"`
}

// ViolationQuery filters the violation history.
type ViolationQuery struct {
	Type string `form:"type" binding:"omitempty,violation_type"`
}
