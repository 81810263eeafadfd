package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-client/internal/apiclient"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/response"
	"github.com/stemsi/exstem-client/internal/service"
	"github.com/stemsi/exstem-client/internal/session"
)

var sentinels = []struct {
	err    error
	status int
	code   response.ErrCode
}{
	{session.ErrNoSession, http.StatusConflict, response.ErrNoActiveSession},
	{session.ErrSessionActive, http.StatusConflict, response.ErrSessionActive},
	{session.ErrBackwardNavigation, http.StatusBadRequest, response.ErrBackwardNavigation},
	{session.ErrUnknownQuestion, http.StatusNotFound, response.ErrUnknownQuestion},
	{session.ErrEmptySelection, http.StatusBadRequest, response.ErrEmptySelection},
	{session.ErrInvalidSelection, http.StatusBadRequest, response.ErrInvalidSelection},
	{session.ErrNoMoreQuestions, http.StatusConflict, response.ErrNoMoreQuestions},
	{session.ErrOutOfRange, http.StatusBadRequest, response.ErrIndexOutOfRange},
	{session.ErrNoQuestions, http.StatusConflict, response.ErrNoQuestions},
	{service.ErrNotProctored, http.StatusConflict, response.ErrNotProctored},
	{model.ErrAttemptNotActive, http.StatusConflict, response.ErrAttemptNotActive},
}

// fail maps a service error onto the bridge error envelope.
func fail(c *gin.Context, err error) {
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			response.Fail(c, s.status, s.code)
			return
		}
	}

	var terminated *session.SessionTerminatedError
	if errors.As(err, &terminated) {
		response.FailWithDetail(c, http.StatusConflict, response.ErrSessionTerminated, string(terminated.Status))
		return
	}

	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Temporary() {
			response.FailWithDetail(c, http.StatusBadGateway, response.ErrUpstream, apiErr.Detail)
		} else {
			response.FailWithDetail(c, http.StatusUnprocessableEntity, response.ErrUpstreamRejected, apiErr.Detail)
		}
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		response.Fail(c, http.StatusGatewayTimeout, response.ErrUpstream)
		return
	}

	// The remaining wrapped failures come from reaching the API at all.
	var (
		createErr *session.SessionCreationError
		loadErr   *session.LoadError
		submitErr *session.SubmissionError
		finishErr *session.FinishError
	)
	if errors.As(err, &createErr) || errors.As(err, &loadErr) || errors.As(err, &submitErr) || errors.As(err, &finishErr) {
		response.Fail(c, http.StatusBadGateway, response.ErrUpstream)
		return
	}

	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}
