// Package config builds runtime configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the full server configuration.
type Config struct {
	Addr          string
	PostgresDSN   string
	RedisURL      string
	JWTSigningKey string

	MatcherURL      string
	SummarizerURL   string
	VisionURL       string
	ProviderTimeout time.Duration

	PipelineTimeout     time.Duration
	EnrichmentLockTTL   time.Duration
	AuditBufferSize     int
	DeepReviewBuffer    int
	ShutdownGracePeriod time.Duration

	SMTP SMTPConfig
}

// SMTPConfig holds the notification relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// FromEnv builds a Config from environment variables with development
// defaults. Empty PostgresDSN or RedisURL selects the in-memory fallbacks.
func FromEnv() Config {
	return Config{
		Addr:          envOr("KYRA_ADDR", ":8080"),
		PostgresDSN:   os.Getenv("KYRA_POSTGRES_DSN"),
		RedisURL:      os.Getenv("KYRA_REDIS_URL"),
		JWTSigningKey: envOr("KYRA_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),

		MatcherURL:      envOr("KYRA_MATCHER_URL", "http://localhost:9090"),
		SummarizerURL:   envOr("KYRA_SUMMARIZER_URL", "http://localhost:9091"),
		VisionURL:       envOr("KYRA_VISION_URL", "http://localhost:9092"),
		ProviderTimeout: durationOr("KYRA_PROVIDER_TIMEOUT", 30*time.Second),

		PipelineTimeout: durationOr("KYRA_PIPELINE_TIMEOUT", 2*time.Minute),
		// Must outlive the pipeline timeout so a slow run keeps its lock.
		EnrichmentLockTTL:   durationOr("KYRA_ENRICHMENT_LOCK_TTL", 3*time.Minute),
		AuditBufferSize:     intOr("KYRA_AUDIT_BUFFER", 256),
		DeepReviewBuffer:    intOr("KYRA_DEEP_REVIEW_BUFFER", 64),
		ShutdownGracePeriod: durationOr("KYRA_SHUTDOWN_GRACE", 15*time.Second),

		SMTP: SMTPConfig{
			Host:     envOr("KYRA_SMTP_HOST", "localhost"),
			Port:     intOr("KYRA_SMTP_PORT", 587),
			Username: os.Getenv("KYRA_SMTP_USERNAME"),
			Password: os.Getenv("KYRA_SMTP_PASSWORD"),
			From:     envOr("KYRA_SMTP_FROM", "noreply@kyra.local"),
		},
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intOr(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
