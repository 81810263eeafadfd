package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-client/internal/config"
	"github.com/stemsi/exstem-client/internal/handler"
	"github.com/stemsi/exstem-client/internal/middleware"
	"github.com/stemsi/exstem-client/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	WS      *handler.WSHandler
	System  *handler.SystemHandler
}

// SetupRouter configures the loopback bridge the UI shell talks to.
func SetupRouter(handlers *Handlers, limiter *middleware.RateLimiter, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	// ─── 1. Session Group (Rate Limited) ───────────────────────────────
	sessionAPI := router.Group("/api/v1/session")
	if limiter != nil {
		sessionAPI.Use(limiter.Middleware())
	}
	{
		sessionAPI.GET("", handlers.Session.GetSession)
		sessionAPI.DELETE("", handlers.Session.ClearSession)
		sessionAPI.POST("/start", handlers.Session.StartSession)
		sessionAPI.POST("/questions/load", handlers.Session.LoadQuestions)
		sessionAPI.POST("/select", handlers.Session.SelectKey)
		sessionAPI.POST("/answer", handlers.Session.SubmitAnswer)
		sessionAPI.POST("/advance", handlers.Session.Advance)
		sessionAPI.POST("/goto", handlers.Session.GoTo)
		sessionAPI.POST("/finish", handlers.Session.Finish)
		sessionAPI.POST("/sync", handlers.Session.Sync)
		sessionAPI.POST("/modal", handlers.Session.Modal)
		sessionAPI.GET("/violations", handlers.Session.ListViolations)
	}

	// ─── 2. Signal Stream ──────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/proctoring", handlers.WS.SignalStream)
	}

	return router
}
