package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/app-catalog/services/catalog/internal/rating"
	"github.com/example/app-catalog/services/catalog/internal/store"
)

var (
	listCategory string
	listQuery    string
	reviewsLimit int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List apps",
	Long:  `List apps ranked by rating, optionally filtered by category and a name/description search.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		apps, err := env.store.List(cmd.Context(), store.ListFilter{Category: listCategory, Query: listQuery})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(apps) == 0 {
			fmt.Fprintln(out, "No apps found")
			return nil
		}
		for i, a := range apps {
			fmt.Fprintf(out, "%d. %s (%s)\n", i+1, a.Name, a.Slug)
			fmt.Fprintf(out, "   %s %s (%d) · %d likes · %d downloads · %s\n",
				starRow(a.Aggregate.Average), rating.FormatAverage(a.Aggregate.Average), a.Aggregate.Count,
				a.Likes, a.DownloadCount(), a.Size)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show [slug]",
	Short: "Show app details and rating breakdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := env.session(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		a := sess.App
		view := rating.Summary(a.Aggregate)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", a.Name)
		if a.Category != "" {
			fmt.Fprintf(out, "Category: %s\n", a.Category)
		}
		if a.Description != "" {
			fmt.Fprintf(out, "%s\n", a.Description)
		}
		fmt.Fprintf(out, "Rating: %s %s (%d reviews)\n", starRow(view.Average), view.Label, view.Count)
		for star := rating.MaxStars; star >= rating.MinStars; star-- {
			fmt.Fprintf(out, "  %d ★ %-20s %d\n", star, bar(view.Bars[star-1]), view.Histogram.Get(star))
		}
		if env.likes.HasLiked(cmd.Context(), sess) {
			fmt.Fprintf(out, "Likes: %d (liked)\n", a.Likes)
		} else {
			fmt.Fprintf(out, "Likes: %d\n", a.Likes)
		}
		fmt.Fprintf(out, "Downloads: %d\n", a.DownloadCount())
		return nil
	},
}

var reviewsCmd = &cobra.Command{
	Use:   "reviews [slug]",
	Short: "Show the newest reviews of an app",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := env.session(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		items, err := env.ratings.ListReviews(cmd.Context(), sess.App.ID, reviewsLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(out, "No reviews yet")
			return nil
		}
		for _, r := range items {
			fmt.Fprintf(out, "%s  %s  %s\n", strings.Repeat("★", r.Stars)+strings.Repeat("☆", rating.MaxStars-r.Stars),
				r.Timestamp.Format("2006-01-02"), r.Comment)
		}
		return nil
	},
}

func starRow(avg float64) string {
	s := rating.StarsFor(avg)
	return strings.Repeat("★", s.Full) + strings.Repeat("½", s.Half) + strings.Repeat("☆", s.Empty)
}

func bar(pct float64) string {
	n := int(pct / 5)
	return strings.Repeat("█", n)
}

func init() {
	listCmd.Flags().StringVar(&listCategory, "category", "", "only apps in this category")
	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "search name and description")
	reviewsCmd.Flags().IntVar(&reviewsLimit, "limit", store.DefaultReviewLimit, "max reviews to show")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(reviewsCmd)
}
