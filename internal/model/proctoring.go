package model

import "time"

// EventType is the closed set of integrity event kinds.
type EventType string

const (
	EventTabSwitch           EventType = "tab_switch"
	EventCopy                EventType = "copy"
	EventPaste               EventType = "paste"
	EventRightClick          EventType = "right_click"
	EventConsoleOpen         EventType = "console_open"
	EventFullscreenDenied    EventType = "fullscreen_denied"
	EventBeforeUnloadAttempt EventType = "beforeunload_attempt"
)

// EventTypes lists every valid EventType.
var EventTypes = []EventType{
	EventTabSwitch,
	EventCopy,
	EventPaste,
	EventRightClick,
	EventConsoleOpen,
	EventFullscreenDenied,
	EventBeforeUnloadAttempt,
}

// Valid reports whether t belongs to the closed set.
func (t EventType) Valid() bool {
	for _, v := range EventTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ViolationEvent is one classified integrity event. Immutable once created.
type ViolationEvent struct {
	Type      EventType      `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"proctoring_metadata,omitempty"`
}

// TimestampMillis returns the event time in Unix milliseconds.
func (e ViolationEvent) TimestampMillis() int64 {
	return e.Timestamp.UnixMilli()
}

// EventBatch is the body of one proctoring upload.
type EventBatch struct {
	Events []ViolationEvent `json:"events"`
}

// BatchReceipt is the server's acknowledgement of an upload.
type BatchReceipt struct {
	CreatedCount int `json:"created_count"`
}

// ViolationState is what the UI shows about recent violations.
type ViolationState struct {
	ViolationCount int  `json:"violation_count"`
	IsSuspicious   bool `json:"is_suspicious"`
}
