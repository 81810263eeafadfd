package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Session ───────────────────────────────────────────────────────
	ErrNoActiveSession    ErrCode = "NO_ACTIVE_SESSION"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionTerminated  ErrCode = "SESSION_TERMINATED"
	ErrBackwardNavigation ErrCode = "BACKWARD_NAVIGATION"
	ErrUnknownQuestion    ErrCode = "UNKNOWN_QUESTION"
	ErrEmptySelection     ErrCode = "EMPTY_SELECTION"
	ErrInvalidSelection   ErrCode = "INVALID_SELECTION"
	ErrNoMoreQuestions    ErrCode = "NO_MORE_QUESTIONS"
	ErrIndexOutOfRange    ErrCode = "INDEX_OUT_OF_RANGE"
	ErrNoQuestions        ErrCode = "NO_QUESTIONS"
	ErrNotProctored       ErrCode = "NOT_PROCTORED"

	// ─── Upstream API ──────────────────────────────────────────────────
	ErrAttemptNotActive ErrCode = "ATTEMPT_NOT_ACTIVE"
	ErrUpstreamRejected ErrCode = "UPSTREAM_REJECTED"
	ErrUpstream         ErrCode = "UPSTREAM_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Session ───────────────────────────────────────────────────────
	case ErrNoActiveSession:
		return "No session is active."
	case ErrSessionActive:
		return "A session is already in progress."
	case ErrSessionTerminated:
		return "This session has ended."
	case ErrBackwardNavigation:
		return "Going back is not allowed during an exam."
	case ErrUnknownQuestion:
		return "The question is not part of this session."
	case ErrEmptySelection:
		return "Select at least one option."
	case ErrInvalidSelection:
		return "The selection does not match the question options."
	case ErrNoMoreQuestions:
		return "There are no more questions."
	case ErrIndexOutOfRange:
		return "Question index out of range."
	case ErrNoQuestions:
		return "Questions have not been loaded yet."
	case ErrNotProctored:
		return "No proctored exam is in progress."

	// ─── Upstream API ──────────────────────────────────────────────────
	case ErrAttemptNotActive:
		return "The server no longer considers this attempt active."
	case ErrUpstreamRejected:
		return "The exam server rejected the request."
	case ErrUpstream:
		return "The exam server is unavailable. Please try again."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal error occurred."
	default:
		return "An unexpected error occurred."
	}
}
