package proctor

import (
	"errors"
	"fmt"
)

// ErrNoShell is returned by a signal source that has no UI shell attached.
var ErrNoShell = errors.New("no ui shell attached")

// BatchDeliveryError reports a telemetry batch the Proctoring Service did not
// accept. It is logged and swallowed; the batch is not retried.
type BatchDeliveryError struct {
	AttemptID string
	BatchID   string
	Events    int
	Err       error
}

func (e *BatchDeliveryError) Error() string {
	return fmt.Sprintf("deliver %d proctoring events for attempt %s: %v", e.Events, e.AttemptID, e.Err)
}

func (e *BatchDeliveryError) Unwrap() error { return e.Err }
