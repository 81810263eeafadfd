package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/service"
	ws "github.com/stemsi/exstem-client/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler serves the signal stream between the UI shell and the monitor.
type WSHandler struct {
	src      *ws.SignalSource
	attempts *service.AttemptService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(src *ws.SignalSource, attempts *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		src:      src,
		attempts: attempts,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SignalStream godoc
// WS /ws/v1/proctoring
// The shell sends raw environment signals and window metrics; the client
// answers with dispositions and pushes violation updates and commands.
func (h *WSHandler) SignalStream(c *gin.Context) {
	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer raw.Close()

	conn := ws.NewConn(raw)
	detach := h.src.Attach(conn)
	defer detach()

	wsLog := h.log.With().Str("remote", c.ClientIP()).Logger()
	wsLog.Info().Msg("Shell connected")

	// A reconnecting shell needs the state it missed.
	if snap := h.attempts.Snapshot(); snap.Violations != nil && snap.Session != nil {
		if err := h.src.NotifyViolations(snap.Session.AttemptID, *snap.Violations); err != nil {
			wsLog.Warn().Err(err).Msg("Initial violation push failed")
		}
	}

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(raw, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		reply, err := h.src.DispatchFrom(conn, msg)
		if err != nil {
			wsLog.Info().Err(err).Msg("Dropping stale shell")
			return
		}
		if reply == nil {
			continue
		}
		if err := conn.Send(reply); err != nil {
			wsLog.Warn().Err(err).Msg("Reply failed")
			return
		}
	}
}
