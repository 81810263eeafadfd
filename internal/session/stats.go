package session

import "math"

// Statistics are the running practice-mode counters.
type Statistics struct {
	TotalAnswered  int `json:"total_answered"`
	CorrectAnswers int `json:"correct_answers"`
	Accuracy       int `json:"accuracy"`
	CurrentStreak  int `json:"current_streak"`
	BestStreak     int `json:"best_streak"`
}

// Record folds one graded answer into the statistics.
func (s *Statistics) Record(correct bool) {
	s.TotalAnswered++
	if correct {
		s.CorrectAnswers++
		s.CurrentStreak++
	} else {
		s.CurrentStreak = 0
	}
	if s.CurrentStreak > s.BestStreak {
		s.BestStreak = s.CurrentStreak
	}
	s.Accuracy = accuracy(s.CorrectAnswers, s.TotalAnswered)
}

func accuracy(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}
