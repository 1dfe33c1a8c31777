package main

import (
	"context"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/app-catalog/internal/platform/analytics"
	"github.com/example/app-catalog/internal/platform/auth"
	"github.com/example/app-catalog/internal/platform/config"
	"github.com/example/app-catalog/internal/platform/db"
	"github.com/example/app-catalog/internal/platform/httpserver"
	"github.com/example/app-catalog/internal/platform/logging"
	"github.com/example/app-catalog/internal/platform/natsconn"
	"github.com/example/app-catalog/internal/platform/run"
	catalogconfig "github.com/example/app-catalog/services/catalog/internal/config"
	"github.com/example/app-catalog/services/catalog/internal/handlers"
	"github.com/example/app-catalog/services/catalog/internal/outbox"
	"github.com/example/app-catalog/services/catalog/internal/seed"
	"github.com/example/app-catalog/services/catalog/internal/store"
	"github.com/example/app-catalog/services/catalog/internal/votes"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	if os.Getenv("SERVICE_NAME") == "" {
		_ = os.Setenv("SERVICE_NAME", "catalog")
	}
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	catCfg := catalogconfig.Load()
	isProd := strings.EqualFold(cfg.Env, "production")

	st, pool := initStore(log, catCfg, isProd)
	if pool != nil {
		defer pool.Close()
	}
	if catCfg.SeedFile != "" {
		seedCatalog(log, st, catCfg.SeedFile)
	}

	voteStorage, closeVotes := initVotes(log, catCfg, isProd)
	if closeVotes != nil {
		defer closeVotes()
	}

	var js nats.JetStreamContext
	if catCfg.NATSURL != "" {
		nc, err := natsconn.Connect(natsconn.Options{URL: catCfg.NATSURL, Name: cfg.ServiceName, Logger: log})
		if err != nil {
			log.Error("nats connect", zap.Error(err))
			run.Exit(1)
		}
		defer nc.Close()
		if js, err = nc.JetStream(); err != nil {
			log.Error("jetstream", zap.Error(err))
			run.Exit(1)
		}
	} else {
		log.Warn("NATS_URL not set, analytics and outbox relay disabled")
	}
	events := analytics.New(js, log)

	if catCfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, admin endpoints will reject every token")
	}
	verifier := auth.JWTVerifier{Secret: []byte(catCfg.JWTSecret)}

	deps := handlers.NewDeps(st, voteStorage, events, log)
	deps.ReviewPageSize = catCfg.ReviewPageSize

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		Logger: log,
		ReadyFunc: func() error {
			if pool == nil {
				return nil
			}
			return pool.Ping(context.Background())
		},
	})
	handlers.Mount(r, deps, verifier)

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		if pool != nil && js != nil {
			relay := outbox.NewPublisher(log, pool, js)
			relay.PollInterval = catCfg.OutboxInterval
			relay.BatchSize = catCfg.OutboxBatch
			go func() {
				if err := relay.Run(ctx); err != nil {
					log.Error("outbox relay stopped", zap.Error(err))
				}
			}()
		}

		return srv.Start(log)
	})
	runner.Graceful(srv.Shutdown)

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// initStore selects the catalog backend.
// In production (APP_ENV=production) it requires a working Postgres connection
// and terminates the process otherwise.
func initStore(log *zap.Logger, cfg catalogconfig.Config, isProd bool) (store.Store, *pgxpool.Pool) {
	if cfg.DatabaseURL == "" {
		if isProd {
			log.Error("DATABASE_URL is required in production")
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("DATABASE_URL not set, using in-memory catalog store (development only)")
		return store.NewInMemoryStore(), nil
	}

	pool, err := db.OpenDSN(context.Background(), cfg.DatabaseURL)
	if err != nil {
		if isProd {
			log.Error("postgres is required in production but unavailable", zap.Error(err))
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("postgres unavailable, falling back to in-memory store", zap.Error(err))
		return store.NewInMemoryStore(), nil
	}

	log.Info("catalog store: postgres")
	return store.NewPostgresStore(pool), pool
}

// initVotes selects where per-device like guards live.
func initVotes(log *zap.Logger, cfg catalogconfig.Config, isProd bool) (votes.Storage, func()) {
	if cfg.RedisURL == "" {
		if isProd {
			log.Warn("REDIS_URL not set, device votes are kept in memory and lost on restart")
		}
		return votes.NewMemoryStorage(), nil
	}
	rs, err := votes.NewRedisStorage(cfg.RedisURL, cfg.VotesTTL)
	if err != nil {
		log.Warn("invalid REDIS_URL, using in-memory vote storage", zap.Error(err))
		return votes.NewMemoryStorage(), nil
	}
	if err := rs.Ping(context.Background()); err != nil {
		_ = rs.Close()
		if isProd {
			log.Error("redis is required in production but unavailable", zap.Error(err))
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("redis unavailable, using in-memory vote storage", zap.Error(err))
		return votes.NewMemoryStorage(), nil
	}
	log.Info("vote storage: redis")
	return rs, func() { _ = rs.Close() }
}

func seedCatalog(log *zap.Logger, st store.AppStore, path string) {
	apps, err := seed.LoadFile(path)
	if err != nil {
		log.Error("seed load", zap.String("file", path), zap.Error(err))
		return
	}
	res, err := seed.Apply(context.Background(), st, apps)
	if err != nil {
		log.Error("seed apply", zap.String("file", path), zap.Error(err))
		return
	}
	log.Info("catalog seeded", zap.Int("created", res.Created), zap.Int("skipped", res.Skipped))
}
