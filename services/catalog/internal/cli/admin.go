package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/app-catalog/internal/platform/auth"
	"github.com/example/app-catalog/services/catalog/internal/rating"
	"github.com/example/app-catalog/services/catalog/internal/seed"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var seedCmd = &cobra.Command{
	Use:   "seed [file.yaml]",
	Short: "Create apps from a YAML seed file",
	Long:  `Create every app in the file whose slug is not in the catalog yet. Existing apps are skipped.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		apps, err := seed.LoadFile(args[0])
		if err != nil {
			return err
		}
		res, err := seed.Apply(cmd.Context(), env.store, apps)
		if err != nil {
			return err
		}
		printSuccess(cmd, fmt.Sprintf("Seeded %d apps (%d already present)", res.Created, res.Skipped))
		return nil
	},
}

var repairCmd = &cobra.Command{
	Use:   "repair-histogram [slug]",
	Short: "Persist the 5-star fallback for an app counted before histograms existed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := env.session(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !rating.NeedsRepair(sess.App.Aggregate) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s needs no repair\n", sess.App.Name)
			return nil
		}
		agg, err := env.store.RepairHistogram(cmd.Context(), sess.App.ID)
		if err != nil {
			return err
		}
		printSuccess(cmd, fmt.Sprintf("Repaired %s: %d reviews in the 5-star bucket", sess.App.Name, agg.Histogram.Get(rating.MaxStars)))
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin token for the catalog service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tok, err := auth.JWTVerifier{Secret: []byte(env.cfg.Auth.JWTSecret)}.Sign(tokenSubject, auth.RoleAdmin, tokenTTL)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "config-init",
	Short: "Write a default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := SaveConfig(configPath, env.cfg); err != nil {
			return err
		}
		printSuccess(cmd, "Wrote "+configPath)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "catalogctl", "token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(configInitCmd)
}
