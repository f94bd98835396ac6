// Package config provides configuration management for the pulsemon engine.
// It handles loading and validation of environment variables and configuration settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default configuration values
const (
	DefaultPort                = "8080"
	DefaultLogLevel            = "info"
	DefaultMetricCapacity      = 1000
	DefaultMetricMaxAgeHours   = 24
	DefaultSweepIntervalMin    = 10
	DefaultEvaluationIntervalS = 60
	DefaultCollectIntervalS    = 30
	DefaultAlertHistorySize    = 500
	DefaultCacheMirrorTTLMin   = 5
	DefaultWebhookRatePerMin   = 30
	DefaultRateLimitPerSecond  = 10.0
	DefaultRateLimitBurst      = 20
	DefaultTraceSampleRate     = 0.1
)

// Config holds all configuration for the engine
type Config struct {
	Port           string
	PrometheusPort string
	LogLevel       string

	MetricCapacity     int
	MetricMaxAge       time.Duration
	SweepInterval      time.Duration
	EvaluationInterval time.Duration
	CollectInterval    time.Duration
	AlertHistorySize   int

	CacheMirrorEnabled bool
	CacheMirrorTTL     time.Duration

	WebhookURL        string
	WebhookType       string // slack, teams or http
	WebhookRatePerMin int

	RateLimitPerSecond float64
	RateLimitBurst     int

	TracingEnabled  bool
	OTLPEndpoint    string
	TraceSampleRate float64
	Environment     string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// It's okay if .env file doesn't exist - we'll use environment variables
		_ = err // explicitly ignore the error
	}

	cfg := &Config{
		Port:           getEnv("PORT", DefaultPort),
		PrometheusPort: getEnv("PROMETHEUS_PORT", ""),
		LogLevel:       getEnv("LOG_LEVEL", DefaultLogLevel),

		MetricCapacity:     parseIntEnv("METRIC_CAPACITY", DefaultMetricCapacity),
		MetricMaxAge:       time.Duration(parseIntEnv("METRIC_MAX_AGE_HOURS", DefaultMetricMaxAgeHours)) * time.Hour,
		SweepInterval:      time.Duration(parseIntEnv("SWEEP_INTERVAL_MINUTES", DefaultSweepIntervalMin)) * time.Minute,
		EvaluationInterval: time.Duration(parseIntEnv("EVALUATION_INTERVAL_SECONDS", DefaultEvaluationIntervalS)) * time.Second,
		CollectInterval:    time.Duration(parseIntEnv("COLLECT_INTERVAL_SECONDS", DefaultCollectIntervalS)) * time.Second,
		AlertHistorySize:   parseIntEnv("ALERT_HISTORY_SIZE", DefaultAlertHistorySize),

		CacheMirrorEnabled: parseBoolEnv("CACHE_MIRROR_ENABLED", false),
		CacheMirrorTTL:     time.Duration(parseIntEnv("CACHE_MIRROR_TTL_MINUTES", DefaultCacheMirrorTTLMin)) * time.Minute,

		WebhookURL:        getEnv("ALERT_WEBHOOK_URL", ""),
		WebhookType:       getEnv("ALERT_WEBHOOK_TYPE", "http"),
		WebhookRatePerMin: parseIntEnv("ALERT_WEBHOOK_RATE_PER_MINUTE", DefaultWebhookRatePerMin),

		RateLimitPerSecond: parseFloatEnv("RATE_LIMIT_PER_SECOND", DefaultRateLimitPerSecond),
		RateLimitBurst:     parseIntEnv("RATE_LIMIT_BURST", DefaultRateLimitBurst),

		TracingEnabled:  parseBoolEnv("TRACING_ENABLED", false),
		OTLPEndpoint:    getEnv("OTLP_ENDPOINT", ""),
		TraceSampleRate: parseFloatEnv("TRACE_SAMPLE_RATE", DefaultTraceSampleRate),
		Environment:     getEnv("ENVIRONMENT", "development"),
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if all configuration fields are usable
func (c *Config) validate() error {
	// Validate port is a valid number
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}
	if c.PrometheusPort != "" {
		if _, err := strconv.Atoi(c.PrometheusPort); err != nil {
			return fmt.Errorf("PROMETHEUS_PORT must be a valid number: %w", err)
		}
	}

	if c.MetricCapacity <= 0 {
		return fmt.Errorf("METRIC_CAPACITY must be positive, got %d", c.MetricCapacity)
	}
	if c.AlertHistorySize <= 0 {
		return fmt.Errorf("ALERT_HISTORY_SIZE must be positive, got %d", c.AlertHistorySize)
	}
	if c.EvaluationInterval <= 0 {
		return fmt.Errorf("EVALUATION_INTERVAL_SECONDS must be positive")
	}
	if c.CollectInterval <= 0 {
		return fmt.Errorf("COLLECT_INTERVAL_SECONDS must be positive")
	}

	switch c.WebhookType {
	case "slack", "teams", "http":
	default:
		return fmt.Errorf("ALERT_WEBHOOK_TYPE must be one of slack, teams, http; got %q", c.WebhookType)
	}

	if c.TraceSampleRate < 0 || c.TraceSampleRate > 1 {
		return fmt.Errorf("TRACE_SAMPLE_RATE must be between 0 and 1, got %f", c.TraceSampleRate)
	}

	return nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseIntEnv parses an integer environment variable with a fallback value
func parseIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// parseFloatEnv parses a float environment variable with a fallback value
func parseFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// parseBoolEnv parses a boolean environment variable with a fallback value
func parseBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return fallback
}
