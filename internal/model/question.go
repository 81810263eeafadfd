package model

// QuestionType enumerates how many option keys a question accepts.
type QuestionType string

const (
	QuestionTypeSingle   QuestionType = "single"
	QuestionTypeMultiple QuestionType = "multiple"
)

// Difficulty is the server-assigned difficulty band (A easiest, C hardest).
type Difficulty string

const (
	DifficultyA Difficulty = "A"
	DifficultyB Difficulty = "B"
	DifficultyC Difficulty = "C"
)

// Option is one selectable answer of a question.
type Option struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Question is a question as served to the examinee (no correct keys).
// Immutable once loaded; identity is ID.
type Question struct {
	ID           string       `json:"id"`
	SubjectCode  string       `json:"subject_code"`
	QuestionText string       `json:"question_text"`
	QuestionType QuestionType `json:"question_type"`
	Difficulty   Difficulty   `json:"difficulty,omitempty"`
	Points       int          `json:"points,omitempty"`
	TimeSeconds  int          `json:"time_seconds,omitempty"`
	Explanation  *string      `json:"explanation,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	Options      []Option     `json:"options"`
}

// HasOption reports whether key is one of the question's option keys.
func (q *Question) HasOption(key string) bool {
	for _, o := range q.Options {
		if o.Key == key {
			return true
		}
	}
	return false
}

// QuestionPage is one page of practice questions.
type QuestionPage struct {
	Questions []Question `json:"questions"`
	Total     int        `json:"total"`
	Offset    int        `json:"offset"`
	Limit     int        `json:"limit"`
	HasMore   bool       `json:"has_more"`
}
