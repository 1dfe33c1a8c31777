package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the analytics consumer service.
type Config struct {
	LogLevel         string
	NATSURL          string
	PostHogAPIKey    string
	PostHogHost      string // e.g. https://app.posthog.com or self-hosted URL
	FlushInterval    time.Duration
	PostHogBatchSize int // PostHog SDK batch size before flush
	NATSBatchSize    int // NATS fetch batch size
	FetchWait        time.Duration
}

// Load reads Config from environment variables.
func Load() (Config, error) {
	key := strings.TrimSpace(os.Getenv("POSTHOG_API_KEY"))
	if key == "" {
		return Config{}, errors.New("POSTHOG_API_KEY is required")
	}
	return Config{
		LogLevel:         envString("LOG_LEVEL", "info"),
		NATSURL:          envString("NATS_URL", "nats://localhost:4222"),
		PostHogAPIKey:    key,
		PostHogHost:      envString("POSTHOG_HOST", "https://app.posthog.com"),
		FlushInterval:    time.Duration(envPositive("POSTHOG_FLUSH_INTERVAL_SEC", 5)) * time.Second,
		PostHogBatchSize: envPositive("POSTHOG_BATCH_SIZE", 100),
		NATSBatchSize:    envPositive("WORKER_BATCH_SIZE", 200),
		FetchWait:        time.Duration(envPositive("WORKER_BATCH_INTERVAL_MS", 2000)) * time.Millisecond,
	}, nil
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envPositive(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
