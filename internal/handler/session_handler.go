package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/response"
	"github.com/stemsi/exstem-client/internal/service"
	"github.com/stemsi/exstem-client/internal/session"
	"github.com/stemsi/exstem-client/internal/validator"
)

// SessionHandler exposes the attempt service to the UI shell.
type SessionHandler struct {
	attempts *service.AttemptService
	log      zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(attempts *service.AttemptService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		attempts: attempts,
		log:      log.With().Str("component", "session_handler").Logger(),
	}
}

// bindJSON binds the body into dst and answers 400 when it does not fit.
func bindJSON(c *gin.Context, dst interface{}) bool {
	fields := validator.Bind(c, dst)
	if fields == nil {
		return true
	}
	code := response.ErrValidation
	if _, malformed := fields["detail"]; malformed && len(fields) == 1 {
		code = response.ErrInvalidPayload
	}
	response.FailWithFields(c, http.StatusBadRequest, code, fields)
	return false
}

func (h *SessionHandler) fail(c *gin.Context, op string, err error) {
	h.log.Warn().Err(err).Str("op", op).Str("request_id", response.RequestID(c)).Msg("Session operation failed")
	fail(c, err)
}

// GetSession godoc
// GET /api/v1/session
// Returns the current view, including violations and telemetry during an exam.
func (h *SessionHandler) GetSession(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"session": h.attempts.Snapshot()})
}

// ClearSession godoc
// DELETE /api/v1/session
// Abandons the current attempt locally. The server is not told.
func (h *SessionHandler) ClearSession(c *gin.Context) {
	h.attempts.Clear(c.Request.Context())
	response.Success(c, http.StatusOK, gin.H{"session": h.attempts.Snapshot()})
}

// StartSession godoc
// POST /api/v1/session/start
// Starts an exam for a major or a practice session for a subject.
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req model.Selector
	if !bindJSON(c, &req) {
		return
	}

	handle, err := h.attempts.Start(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "start", err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"attempt": handle})
}

// LoadQuestions godoc
// POST /api/v1/session/questions/load
// Loads the exam question set, or the next practice page.
func (h *SessionHandler) LoadQuestions(c *gin.Context) {
	qs, err := h.attempts.LoadQuestions(c.Request.Context())
	if err != nil {
		h.fail(c, "load_questions", err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"questions": qs,
		"session":   h.attempts.Snapshot(),
	})
}

// SelectKey godoc
// POST /api/v1/session/select
// Updates the draft: single choice replaces, multiple choice toggles.
func (h *SessionHandler) SelectKey(c *gin.Context) {
	var req model.SelectKeyRequest
	if !bindJSON(c, &req) {
		return
	}

	draft, err := h.attempts.Select(req.QuestionID, req.Key)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"question_id":   req.QuestionID,
		"selected_keys": draft,
	})
}

// SubmitAnswer godoc
// POST /api/v1/session/answer
// Submits explicit keys, or the draft when selected_keys is omitted.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	var req model.AnswerRequest
	if !bindJSON(c, &req) {
		return
	}

	fb, err := h.attempts.SubmitAnswer(c.Request.Context(), req.QuestionID, req.SelectedKeys)
	if err != nil {
		h.fail(c, "submit_answer", err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"feedback": fb})
}

// Advance godoc
// POST /api/v1/session/advance
// Moves one question. Advancing past the last exam question finishes the exam.
func (h *SessionHandler) Advance(c *gin.Context) {
	var req model.AdvanceRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.attempts.Advance(c.Request.Context(), session.Direction(req.Direction))
	if err != nil {
		h.fail(c, "advance", err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"result":  result,
		"session": h.attempts.Snapshot(),
	})
}

// GoTo godoc
// POST /api/v1/session/goto
// Jumps to a loaded question by index.
func (h *SessionHandler) GoTo(c *gin.Context) {
	var req model.GoToRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.attempts.GoTo(*req.Index); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": h.attempts.Snapshot()})
}

// Finish godoc
// POST /api/v1/session/finish
// Finishes the attempt. Concurrent calls share one server request.
func (h *SessionHandler) Finish(c *gin.Context) {
	result, err := h.attempts.Finish(c.Request.Context())
	if err != nil {
		h.fail(c, "finish", err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// Sync godoc
// POST /api/v1/session/sync
// Re-reads the remaining time and status of an exam from the server.
func (h *SessionHandler) Sync(c *gin.Context) {
	st, err := h.attempts.Sync(c.Request.Context())
	if err != nil {
		h.fail(c, "sync", err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"status":  st,
		"session": h.attempts.Snapshot(),
	})
}

// Modal godoc
// POST /api/v1/session/modal
// Brackets a dialog the session opens so its focus loss is not counted.
func (h *SessionHandler) Modal(c *gin.Context) {
	var req model.ModalRequest
	if !bindJSON(c, &req) {
		return
	}

	var err error
	if req.Action == "begin" {
		err = h.attempts.BeginModal()
	} else {
		err = h.attempts.EndModal()
	}
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"action": req.Action})
}

// ListViolations godoc
// GET /api/v1/session/violations?type=tab_switch
// Lists the violations inside the current window.
func (h *SessionHandler) ListViolations(c *gin.Context) {
	var q model.ViolationQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	events, err := h.attempts.Violations(model.EventType(q.Type))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"violations": events})
}
