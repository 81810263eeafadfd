package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-client/internal/apiclient"
	"github.com/stemsi/exstem-client/internal/clock"
	"github.com/stemsi/exstem-client/internal/config"
	"github.com/stemsi/exstem-client/internal/database"
	"github.com/stemsi/exstem-client/internal/handler"
	"github.com/stemsi/exstem-client/internal/journal"
	"github.com/stemsi/exstem-client/internal/logger"
	"github.com/stemsi/exstem-client/internal/middleware"
	"github.com/stemsi/exstem-client/internal/proctor"
	"github.com/stemsi/exstem-client/internal/router"
	"github.com/stemsi/exstem-client/internal/service"
	"github.com/stemsi/exstem-client/internal/session"
	"github.com/stemsi/exstem-client/internal/validator"
	ws "github.com/stemsi/exstem-client/internal/websocket"
	"github.com/stemsi/exstem-client/internal/worker"
)

const shutdownTimeout = 20 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the session bridge for the UI shell",
	Long: `serve connects to the exam API and listens on the loopback bridge.
The UI shell drives sessions over /api/v1/session and streams environment
signals over /ws/v1/proctoring.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("port", "", "Bridge port (overrides SERVER_PORT)")
	serveCmd.Flags().String("api-url", "", "Exam API base URL (overrides API_BASE_URL)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.ServerPort = port
	}
	if apiURL, _ := cmd.Flags().GetString("api-url"); apiURL != "" {
		cfg.APIBaseURL = apiURL
	}

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("api", cfg.APIBaseURL).
		Str("version", version).
		Msg("Starting exam client")

	if cfg.APIToken == "" {
		token, err := promptToken(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		cfg.APIToken = token
	}
	if cfg.APIToken == "" {
		log.Warn().Msg("No API token configured; requests are sent unauthenticated")
	}

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis (optional journal) ───────────────────────────
	var (
		rdb *redis.Client
		jnl service.Journal
	)
	if cfg.JournalEnabled() {
		client, err := database.NewRedisClient(ctx, cfg, log)
		if err != nil {
			log.Warn().Err(err).Msg("Journal unavailable; continuing without it")
		} else {
			rdb = client
			defer rdb.Close()

			j := journal.New(rdb, log)
			if id, err := j.ActiveAttempt(ctx); err == nil && id != "" {
				log.Warn().Str("attempt_id", id).Msg("A previous attempt was not finished or cleared")
			}
			jnl = j
		}
	}

	// ─── Initialize API Client ─────────────────────────────────────────
	api, err := apiclient.New(apiclient.Options{
		BaseURL: cfg.APIBaseURL,
		Token:   cfg.APIToken,
		Timeout: cfg.APITimeout,
		MaxRPS:  cfg.APIMaxRPS,
	}, log)
	if err != nil {
		return err
	}

	// ─── Initialize Services ──────────────────────────────────────────
	clk := clock.Real()
	signals := ws.NewSignalSource(log)
	attempts := service.NewAttemptService(service.NewAssessmentGateway(api), api, signals, service.AttemptOptions{
		Controller: session.Config{
			PracticePageSize: cfg.PracticePageSize,
			Clock:            clk,
		},
		Proctoring: proctor.Options{
			Clock: clk,
			Batch: proctor.BatcherConfig{
				Size:     cfg.BatchSize,
				Interval: cfg.BatchInterval,
			},
			Monitor: proctor.MonitorConfig{
				DevtoolsGap:    cfg.DevtoolsGapPx,
				SampleInterval: cfg.DevtoolsSampleInterval,
				SustainSamples: cfg.DevtoolsSustainSamples,
			},
			ViolationWindow:    cfg.ViolationWindow,
			SuspicionThreshold: cfg.SuspicionThreshold,
		},
		Journal: jnl,
	}, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	var health redis.Cmdable
	if rdb != nil {
		health = rdb
	}
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(attempts, log),
		WS:      handler.NewWSHandler(signals, attempts, log, cfg.AllowedOrigins),
		System:  handler.NewSystemHandler(health, signals, version, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	clockSync := worker.NewClockSyncWorker(attempts, cfg.ClockSyncInterval, log)
	go clockSync.Start(workerCtx)

	limiter := middleware.NewRateLimiter(cfg.BridgeRatePerMinute, time.Minute)
	go limiter.Cleanup(workerCtx.Done())

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, limiter, cfg)

	srv := &http.Server{
		Addr:              "127.0.0.1:" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Bridge listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")
	case err := <-serveErr:
		log.Error().Err(err).Msg("Bridge server error")
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// 1. Stop accepting bridge requests.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Bridge shutdown error")
	}

	// 2. Stop the clock sync worker.
	workerCancel()

	// 3. Stop monitoring and flush pending telemetry. The attempt stays open
	// on the server.
	attempts.Shutdown(shutdownCtx)

	log.Info().Msg("Shutdown complete")
	return nil
}
