package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/stemsi/exstem-client/internal/model"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	// Detail is the server's "detail" message, or the raw body when absent.
	Detail string

	notActive bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Detail)
}

// Unwrap exposes model.ErrAttemptNotActive for 404s on attempt routes.
func (e *APIError) Unwrap() error {
	if e.notActive {
		return model.ErrAttemptNotActive
	}
	return nil
}

// Temporary reports whether retrying the same request could succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func newAPIError(r call, status int, body []byte) *APIError {
	return &APIError{
		Method:     r.method,
		Path:       r.path,
		StatusCode: status,
		Detail:     parseDetail(body, status),
		notActive:  r.attemptRoute && status == http.StatusNotFound,
	}
}

// parseDetail reads FastAPI's {"detail": ...}, which is a string for
// HTTPException and a list of {loc,msg} objects for validation failures.
func parseDetail(body []byte, status int) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		if s := strings.TrimSpace(string(body)); s != "" {
			return s
		}
		return http.StatusText(status)
	}

	var msg string
	if err := json.Unmarshal(env.Detail, &msg); err == nil {
		return msg
	}

	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(env.Detail, &items); err == nil && len(items) > 0 {
		parts := make([]string, 0, len(items))
		for _, it := range items {
			loc := make([]string, 0, len(it.Loc))
			for _, l := range it.Loc {
				loc = append(loc, fmt.Sprint(l))
			}
			parts = append(parts, strings.Join(loc, ".")+": "+it.Msg)
		}
		return strings.Join(parts, "; ")
	}
	return string(env.Detail)
}
