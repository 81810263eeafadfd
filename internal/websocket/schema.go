package websocket

import "github.com/stemsi/exstem-client/internal/proctor"

// ─── Actions (Shell → Client) ───────────────────────────────────────

type Action string

const (
	// ActionSignal carries one raw environment signal; the reply tells the
	// shell whether to suppress the native action.
	ActionSignal Action = "signal"
	// ActionMetrics reports outer/inner window sizes for the devtools heuristic.
	ActionMetrics Action = "metrics"
	// ActionFullscreen reports the current fullscreen state.
	ActionFullscreen Action = "fullscreen"
	ActionPing       Action = "ping"
)

// RequestPayload is every message the shell sends. Fields unused by an
// action are left empty.
type RequestPayload struct {
	Action Action `json:"action"`
	// Seq is echoed back in the disposition so the shell can match replies.
	Seq        int64                  `json:"seq,omitempty"`
	Signal     *proctor.RawSignal     `json:"signal,omitempty"`
	Metrics    *proctor.WindowMetrics `json:"metrics,omitempty"`
	Fullscreen *bool                  `json:"fullscreen,omitempty"`
}

// ─── Events (Client → Shell) ────────────────────────────────────────

type Event string

const (
	EventError       Event = "error"
	EventPong        Event = "pong"
	EventDisposition Event = "disposition"
	EventViolation   Event = "violation"
	EventCommand     Event = "command"
)

// Command is an instruction the shell must carry out.
type Command string

const (
	CommandRequestFullscreen Command = "request_fullscreen"
	CommandExitFullscreen    Command = "exit_fullscreen"
)

type DispositionResponse struct {
	Event       Event               `json:"event"`
	Seq         int64               `json:"seq,omitempty"`
	Disposition proctor.Disposition `json:"disposition"`
}

type ViolationResponse struct {
	Event          Event  `json:"event"`
	ViolationCount int    `json:"violation_count"`
	IsSuspicious   bool   `json:"is_suspicious"`
	AttemptID      string `json:"attempt_id,omitempty"`
}

type CommandResponse struct {
	Event   Event   `json:"event"`
	Command Command `json:"command"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
