package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/app-catalog/services/catalog/internal/rating"
	"github.com/example/app-catalog/services/catalog/internal/service"
)

var (
	reviewStars   int
	reviewComment string
)

var reviewCmd = &cobra.Command{
	Use:   "review [slug]",
	Short: "Rate an app",
	Long:  `Submit a 1-5 star review with a comment of 5 to 280 characters.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := env.session(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		sess.Draft = service.Draft{Stars: reviewStars, Text: reviewComment}
		res, err := env.ratings.SubmitReview(cmd.Context(), sess)
		if err != nil {
			var perr *service.PersistenceError
			if errors.As(err, &perr) {
				return fmt.Errorf("%w (nothing was saved, run the same command again to retry)", err)
			}
			return err
		}
		printSuccess(cmd, fmt.Sprintf("Review saved. %s now rated %s from %d reviews",
			sess.App.Name, rating.FormatAverage(res.Aggregate.Average), res.Aggregate.Count))
		return nil
	},
}

var likeCmd = &cobra.Command{
	Use:   "like [slug]",
	Short: "Like an app once from this device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := env.session(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		n, err := env.likes.Like(cmd.Context(), sess)
		if errors.Is(err, service.ErrAlreadyLiked) {
			fmt.Fprintf(cmd.OutOrStdout(), "You already liked %s (%d likes)\n", sess.App.Name, n)
			return nil
		}
		if err != nil {
			return err
		}
		printSuccess(cmd, fmt.Sprintf("Liked %s (%d likes)", sess.App.Name, n))
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download [slug]",
	Short: "Count a download and print the APK URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := env.session(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		url, err := env.downloads.Download(cmd.Context(), sess)
		if errors.Is(err, service.ErrNoDownload) {
			return fmt.Errorf("%s has no direct download, see its store links", sess.App.Name)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), url)
		return nil
	},
}

func init() {
	reviewCmd.Flags().IntVar(&reviewStars, "stars", 0, "rating from 1 to 5")
	reviewCmd.Flags().StringVar(&reviewComment, "comment", "", "review text")

	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(likeCmd)
	rootCmd.AddCommand(downloadCmd)
}
