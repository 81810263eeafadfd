package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	ServerPort string
	GinMode    string
	LogLevel   string
	LogFormat  string

	// Remote Assessment/Proctoring API.
	APIBaseURL string
	APIToken   string
	APITimeout time.Duration
	APIMaxRPS  float64

	// RedisURL enables the local journal. Empty disables it.
	RedisURL string
	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string

	BatchSize              int
	BatchInterval          time.Duration
	ViolationWindow        time.Duration
	SuspicionThreshold     int
	DevtoolsGapPx          int
	DevtoolsSampleInterval time.Duration
	DevtoolsSustainSamples int
	PracticePageSize       int
	ClockSyncInterval      time.Duration
	BridgeRatePerMinute    int
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		ServerPort:             getEnv("SERVER_PORT", "7420"),
		GinMode:                getEnv("GIN_MODE", "release"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFormat:              getEnv("LOG_FORMAT", "auto"),
		APIBaseURL:             strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000/api/v1"), "/"),
		APIToken:               getEnv("API_TOKEN", ""),
		APITimeout:             time.Duration(getEnvInt("API_TIMEOUT_SECONDS", 15)) * time.Second,
		APIMaxRPS:              getEnvFloat("API_MAX_RPS", 10),
		RedisURL:               getEnv("REDIS_URL", ""),
		AllowedOrigins:         parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
		BatchSize:              getEnvInt("BATCH_SIZE", 10),
		BatchInterval:          getEnvDuration("BATCH_INTERVAL_MS", 30*time.Second),
		ViolationWindow:        getEnvDuration("VIOLATION_WINDOW_MS", 5*time.Minute),
		SuspicionThreshold:     getEnvInt("SUSPICION_THRESHOLD", 3),
		DevtoolsGapPx:          getEnvInt("DEVTOOLS_GAP_PX", 160),
		DevtoolsSampleInterval: getEnvDuration("DEVTOOLS_SAMPLE_MS", time.Second),
		DevtoolsSustainSamples: getEnvInt("DEVTOOLS_SUSTAIN_SAMPLES", 2),
		PracticePageSize:       getEnvInt("PRACTICE_PAGE_SIZE", 20),
		ClockSyncInterval:      time.Duration(getEnvInt("CLOCK_SYNC_SECONDS", 60)) * time.Second,
		BridgeRatePerMinute:    getEnvInt("BRIDGE_RATE_PER_MINUTE", 600),
	}
}

// JournalEnabled reports whether a Redis journal is configured.
func (c *Config) JournalEnabled() bool {
	return c.RedisURL != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}

// getEnvDuration reads a millisecond count.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	ms := getEnvInt(key, -1)
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
