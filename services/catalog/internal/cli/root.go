// Package cli implements catalogctl, the operator and device client for the
// catalog. It talks to the store directly and keeps its like guard in the
// local data directory.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	platformconfig "github.com/example/app-catalog/internal/platform/config"
	"github.com/example/app-catalog/internal/platform/db"
	"github.com/example/app-catalog/internal/platform/logging"
	"github.com/example/app-catalog/services/catalog/internal/seed"
	"github.com/example/app-catalog/services/catalog/internal/service"
	"github.com/example/app-catalog/services/catalog/internal/store"
	"github.com/example/app-catalog/services/catalog/internal/votes"
)

var (
	configPath string

	// env is set up by rootCmd's PersistentPreRunE for every command.
	env *environment

	// openStore is replaced in tests.
	openStore = defaultOpenStore
)

type environment struct {
	cfg       *Config
	log       *zap.Logger
	store     store.Store
	guard     *votes.Guard
	ratings   *service.RatingService
	likes     *service.LikeService
	downloads *service.DownloadService
	close     func()
}

var rootCmd = &cobra.Command{
	Use:           "catalogctl",
	Short:         "App catalog client",
	Long:          `Browse the app catalog, rate, like and download apps, and run catalog maintenance.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := platformconfig.LoadDotEnv(); err != nil {
			return err
		}
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		e, err := newEnvironment(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		env = e
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if env != nil && env.close != nil {
			env.close()
		}
	},
}

func init() {
	defaultPath, err := GetConfigPath()
	if err != nil {
		defaultPath = "config.yaml"
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultPath, "config file")
}

func newEnvironment(ctx context.Context, cfg *Config) (*environment, error) {
	log, err := logging.New(cfg.Logging.Level, "catalogctl")
	if err != nil {
		return nil, err
	}
	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	guard := votes.NewGuard(votes.NewFileStorage(cfg.DataDir), votes.Key)
	return &environment{
		cfg:       cfg,
		log:       log,
		store:     st,
		guard:     guard,
		ratings:   service.NewRatingService(st, log, nil),
		likes:     service.NewLikeService(st, log, nil),
		downloads: service.NewDownloadService(st, log, nil),
		close: func() {
			if closeStore != nil {
				closeStore()
			}
			_ = log.Sync()
		},
	}, nil
}

// defaultOpenStore uses Postgres when configured. Without a database the
// catalog lives in memory for the duration of the command, seeded from
// seed_file when set.
func defaultOpenStore(ctx context.Context, cfg *Config, log *zap.Logger) (store.Store, func(), error) {
	if cfg.Database.URL != "" {
		pool, err := db.OpenDSN(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		return store.NewPostgresStore(pool), pool.Close, nil
	}
	log.Info("no database configured, using an in-memory catalog")
	st := store.NewInMemoryStore()
	if cfg.SeedFile != "" {
		apps, err := seed.LoadFile(cfg.SeedFile)
		if err != nil {
			return nil, nil, err
		}
		if _, err := seed.Apply(ctx, st, apps); err != nil {
			return nil, nil, err
		}
	}
	return st, nil, nil
}

// session loads the app by slug and binds it to the local device guard.
func (e *environment) session(ctx context.Context, slug string) (*service.Session, error) {
	app, err := e.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", slug, err)
	}
	return service.NewSession(&app, e.guard, ""), nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(err.Error())
		os.Exit(1)
	}
}

func printError(msg string) {
	fmt.Fprintf(os.Stderr, "✗ %s\n", msg)
}

func printSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", msg)
}
