// Package config reads the catalog service settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/app-catalog/services/catalog/internal/store"
)

type Config struct {
	// DatabaseURL selects the Postgres store; empty runs on the in-memory store.
	DatabaseURL string
	// RedisURL selects Redis-backed device vote guards; empty keeps them in memory.
	RedisURL string
	VotesTTL time.Duration
	// NATSURL enables the outbox relay and analytics; empty disables both.
	NATSURL string

	JWTSecret      string
	ReviewPageSize int
	SeedFile       string
	OutboxInterval time.Duration
	OutboxBatch    int
}

func Load() Config {
	cfg := Config{
		DatabaseURL:    env("DATABASE_URL"),
		RedisURL:       env("REDIS_URL"),
		VotesTTL:       envDuration("VOTES_TTL", 365*24*time.Hour),
		NATSURL:        env("NATS_URL"),
		JWTSecret:      env("JWT_SECRET"),
		ReviewPageSize: envInt("REVIEW_PAGE_SIZE", store.DefaultReviewLimit),
		SeedFile:       env("CATALOG_SEED_FILE"),
		OutboxInterval: envDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatch:    envInt("OUTBOX_BATCH_SIZE", 100),
	}
	if cfg.ReviewPageSize <= 0 || cfg.ReviewPageSize > store.MaxReviewLimit {
		cfg.ReviewPageSize = store.DefaultReviewLimit
	}
	return cfg
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envInt(key string, fallback int) int {
	v := env(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := env(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
