package session

import "github.com/stemsi/exstem-client/internal/model"

// applySelection is the UI-input policy for picking an option: single-choice
// replaces the selection, multiple-choice toggles the key.
func applySelection(qt model.QuestionType, current []string, key string) []string {
	if qt != model.QuestionTypeMultiple {
		return []string{key}
	}
	next := make([]string, 0, len(current)+1)
	removed := false
	for _, k := range current {
		if k == key {
			removed = true
			continue
		}
		next = append(next, k)
	}
	if !removed {
		next = append(next, key)
	}
	return next
}
