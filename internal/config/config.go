package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings. Values come from the environment with
// sensible defaults for local development; cmd/server loads a .env file
// before calling Load.
type Config struct {
	Port         string
	Environment  string
	DatabasePath string
	JWTSecret    string

	// Upstream gateway
	UpstreamMode    string // "simulated" or "live"
	UpstreamBaseURL string
	UpstreamAPIKey  string
	UpstreamTimeout time.Duration

	// Refresh scheduling
	RefreshInterval      time.Duration
	StartupDelay         time.Duration
	CallTimeout          time.Duration
	MaxRetryAttempts     int
	BaseBackoff          time.Duration
	MaxBackoff           time.Duration
	MaxRequestsPerMinute int
	MaxCacheAge          time.Duration

	// Circuit breaker
	MaxConsecutiveFailures int
	CircuitCooldown        time.Duration

	// History persistence
	TopOpportunities int
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		Environment:  getEnv("ENV", "development"),
		DatabasePath: getEnv("DATABASE_PATH", "startrader.db"),
		JWTSecret:    getEnv("JWT_SECRET", "startrader-secret-key"),

		UpstreamMode:    getEnv("UPSTREAM_MODE", "simulated"),
		UpstreamBaseURL: getEnv("UPSTREAM_BASE_URL", "http://localhost:9000"),
		UpstreamAPIKey:  getEnv("UPSTREAM_API_KEY", ""),
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),

		RefreshInterval:      getEnvDuration("REFRESH_INTERVAL", 5*time.Minute),
		StartupDelay:         getEnvDuration("STARTUP_DELAY", 5*time.Second),
		CallTimeout:          getEnvDuration("CALL_TIMEOUT", 30*time.Second),
		MaxRetryAttempts:     getEnvInt("MAX_RETRY_ATTEMPTS", 3),
		BaseBackoff:          getEnvDuration("BASE_BACKOFF", 30*time.Second),
		MaxBackoff:           getEnvDuration("MAX_BACKOFF", 30*time.Minute),
		MaxRequestsPerMinute: getEnvInt("MAX_REQUESTS_PER_MINUTE", 30),
		MaxCacheAge:          getEnvDuration("MAX_CACHE_AGE", 10*time.Minute),

		MaxConsecutiveFailures: getEnvInt("MAX_CONSECUTIVE_FAILURES", 5),
		CircuitCooldown:        getEnvDuration("CIRCUIT_COOLDOWN", 15*time.Minute),

		TopOpportunities: getEnvInt("TOP_OPPORTUNITIES", 10),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
