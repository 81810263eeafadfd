// Package ledger holds the latest confirmed answer per question of the active
// attempt. It performs no I/O; callers write to it only after the server has
// acknowledged a submission.
package ledger

// Ledger maps question ID to the selected option keys of its latest submission.
// Keys are kept in submission order and never contain duplicates.
// A Ledger is not safe for concurrent use; the session controller serializes access.
type Ledger struct {
	entries map[string][]string
	order   []string
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{entries: make(map[string][]string)}
}

// Put records keys as the answer for questionID, overwriting any earlier entry.
func (l *Ledger) Put(questionID string, keys []string) {
	if _, ok := l.entries[questionID]; !ok {
		l.order = append(l.order, questionID)
	}
	l.entries[questionID] = Dedupe(keys)
}

// Get returns a copy of the keys recorded for questionID.
func (l *Ledger) Get(questionID string) ([]string, bool) {
	keys, ok := l.entries[questionID]
	if !ok {
		return nil, false
	}
	out := make([]string, len(keys))
	copy(out, keys)
	return out, true
}

// Has reports whether questionID has been submitted at least once.
func (l *Ledger) Has(questionID string) bool {
	_, ok := l.entries[questionID]
	return ok
}

// Len is the number of answered questions.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// QuestionIDs returns answered question IDs in first-answered order.
func (l *Ledger) QuestionIDs() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Snapshot returns a deep copy of all entries.
func (l *Ledger) Snapshot() map[string][]string {
	out := make(map[string][]string, len(l.entries))
	for id, keys := range l.entries {
		cp := make([]string, len(keys))
		copy(cp, keys)
		out[id] = cp
	}
	return out
}

// Reset drops every entry.
func (l *Ledger) Reset() {
	l.entries = make(map[string][]string)
	l.order = nil
}

// Dedupe returns keys with repeats removed, first occurrence wins.
func Dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
