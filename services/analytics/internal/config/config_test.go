package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresAPIKey(t *testing.T) {
	t.Setenv("POSTHOG_API_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without POSTHOG_API_KEY")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("POSTHOG_API_KEY", "phc_test")
	for _, k := range []string{"LOG_LEVEL", "NATS_URL", "POSTHOG_HOST", "POSTHOG_FLUSH_INTERVAL_SEC", "POSTHOG_BATCH_SIZE", "WORKER_BATCH_SIZE", "WORKER_BATCH_INTERVAL_MS"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.FlushInterval != 5*time.Second || cfg.FetchWait != 2*time.Second || cfg.NATSBatchSize != 200 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_IgnoresNonPositive(t *testing.T) {
	t.Setenv("POSTHOG_API_KEY", "phc_test")
	t.Setenv("POSTHOG_BATCH_SIZE", "-4")
	t.Setenv("WORKER_BATCH_SIZE", "50")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PostHogBatchSize != 100 || cfg.NATSBatchSize != 50 {
		t.Fatalf("unexpected sizes: %+v", cfg)
	}
}
