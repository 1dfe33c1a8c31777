package main

import (
	"context"

	"go.uber.org/zap"

	platformconfig "github.com/example/app-catalog/internal/platform/config"
	"github.com/example/app-catalog/internal/platform/logging"
	"github.com/example/app-catalog/internal/platform/natsconn"
	"github.com/example/app-catalog/internal/platform/run"
	"github.com/example/app-catalog/services/analytics/internal/config"
	"github.com/example/app-catalog/services/analytics/internal/consumer"
	"github.com/example/app-catalog/services/analytics/internal/handler"
	"github.com/example/app-catalog/services/analytics/internal/posthog"
)

func main() {
	if err := platformconfig.LoadDotEnv(); err != nil {
		panic(err)
	}
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logging.New(cfg.LogLevel, "analytics")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ph, err := posthog.New(cfg.PostHogAPIKey, cfg.PostHogHost, cfg.FlushInterval, cfg.PostHogBatchSize, log)
	if err != nil {
		log.Error("posthog init", zap.Error(err))
		run.Exit(1)
	}
	defer func() {
		if err := ph.Close(); err != nil {
			log.Warn("posthog close", zap.Error(err))
		}
	}()

	nc, err := natsconn.Connect(natsconn.Options{URL: cfg.NATSURL, Name: "analytics", Logger: log})
	if err != nil {
		log.Error("nats connect", zap.Error(err))
		run.Exit(1)
	}
	defer nc.Close()

	c, err := consumer.New(nc, handler.New(ph, log), cfg.NATSBatchSize, cfg.FetchWait, log)
	if err != nil {
		log.Error("consumer init", zap.Error(err))
		run.Exit(1)
	}

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		log.Info("analytics consumer started", zap.String("stream", consumer.StreamName))
		c.Run(ctx)
		return nil
	})
	log.Info("analytics consumer stopped", zap.Int("code", code))
}
