package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/response"
	ws "github.com/stemsi/exstem-client/internal/websocket"
)

const healthPingTimeout = 2 * time.Second

// SystemHandler reports process health to the shell.
type SystemHandler struct {
	rdb       redis.Cmdable
	src       *ws.SignalSource
	version   string
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a SystemHandler. rdb is nil when the journal is off.
func NewSystemHandler(rdb redis.Cmdable, src *ws.SignalSource, version string, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		rdb:       rdb,
		src:       src,
		version:   version,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type healthReport struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	GoVersion     string `json:"go_version"`
	Uptime        string `json:"uptime"`
	Journal       string `json:"journal"`
	ShellAttached bool   `json:"shell_attached"`
}

// Health godoc
// GET /health
// The journal being down degrades the report but does not fail it.
func (h *SystemHandler) Health(c *gin.Context) {
	report := healthReport{
		Status:        "ok",
		Version:       h.version,
		GoVersion:     runtime.Version(),
		Uptime:        time.Since(h.startTime).Round(time.Second).String(),
		Journal:       "disabled",
		ShellAttached: h.src.Attached(),
	}

	if h.rdb != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			h.log.Warn().Err(err).Msg("Journal ping failed")
			report.Journal = "unreachable"
			report.Status = "degraded"
		} else {
			report.Journal = "ok"
		}
	}

	response.Success(c, http.StatusOK, report)
}
