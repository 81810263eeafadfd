package proctor

import "strings"

// SignalKind names a raw environment signal a UI shell can report.
type SignalKind string

const (
	SignalVisibilityHidden SignalKind = "visibility_hidden"
	SignalCopy             SignalKind = "copy"
	SignalPaste            SignalKind = "paste"
	SignalContextMenu      SignalKind = "context_menu"
	SignalKeyDown          SignalKind = "key_down"
	SignalFullscreenDenied SignalKind = "fullscreen_denied"
	SignalBeforeUnload     SignalKind = "before_unload"
)

// SignalKinds lists every kind the monitor subscribes to.
var SignalKinds = []SignalKind{
	SignalVisibilityHidden,
	SignalCopy,
	SignalPaste,
	SignalContextMenu,
	SignalKeyDown,
	SignalFullscreenDenied,
	SignalBeforeUnload,
}

// RawSignal is one unclassified observation from the environment.
type RawSignal struct {
	Kind       SignalKind `json:"kind"`
	Key        string     `json:"key,omitempty"`
	Ctrl       bool       `json:"ctrl,omitempty"`
	Shift      bool       `json:"shift,omitempty"`
	Alt        bool       `json:"alt,omitempty"`
	Meta       bool       `json:"meta,omitempty"`
	TextLength int        `json:"text_length,omitempty"`
	// OwnModal marks visibility changes caused by the session's own dialogs.
	OwnModal bool   `json:"own_modal,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Disposition tells the shell what to do with the native action.
type Disposition struct {
	// Suppress blocks the default action (copy, paste, context menu, key).
	Suppress bool `json:"suppress"`
	// Confirm asks the user to confirm leaving the page.
	Confirm bool `json:"confirm"`
}

// SignalHandler classifies one raw signal.
type SignalHandler func(RawSignal) Disposition

// WindowMetrics are the outer window and inner viewport sizes in CSS pixels.
type WindowMetrics struct {
	OuterWidth  int `json:"outer_width"`
	OuterHeight int `json:"outer_height"`
	InnerWidth  int `json:"inner_width"`
	InnerHeight int `json:"inner_height"`
}

// Gaps returns the width and height discrepancy between window and viewport.
func (m WindowMetrics) Gaps() (width, height int) {
	return m.OuterWidth - m.InnerWidth, m.OuterHeight - m.InnerHeight
}

// EnvironmentSignalSource is the capability the monitor attaches to. A real
// implementation bridges a UI runtime; tests inject synthetic signals.
type EnvironmentSignalSource interface {
	Subscribe(kind SignalKind, h SignalHandler)
	Unsubscribe(kind SignalKind)
	// WindowMetrics reports the latest known sizes; ok is false when unknown.
	WindowMetrics() (m WindowMetrics, ok bool)
	// RequestFullscreen asks for fullscreen. Denial is reported either as an
	// error or later as a SignalFullscreenDenied signal.
	RequestFullscreen() error
	ExitFullscreen() error
	IsFullscreen() bool
}

// isDevtoolsShortcut matches F12 and the platform devtools chords
// (Ctrl+Shift+I/J/C, Cmd+Alt+I/J/C).
func isDevtoolsShortcut(s RawSignal) bool {
	key := strings.ToUpper(s.Key)
	if key == "F12" {
		return true
	}
	switch key {
	case "I", "J", "C":
	default:
		return false
	}
	return (s.Ctrl && s.Shift) || (s.Meta && s.Alt)
}
