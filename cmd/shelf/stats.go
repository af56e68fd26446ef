package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/shelfmark/shelfmark/internal/tracker"
	"github.com/shelfmark/shelfmark/internal/usecase"
)

func newStatsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count statuses against the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			return withTracker(cmd, func(ctx context.Context, t *usecase.Tracker, _ *slog.Logger) error {
				stats, err := t.GetStats(ctx)
				if err != nil {
					return err
				}
				if format == formatJSON {
					return outputJSON(cmd, stats)
				}
				outputStatsTable(cmd, stats)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")

	return cmd
}

func outputStatsTable(cmd *cobra.Command, stats tracker.Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Status", "Count"})
	t.AppendRows([]table.Row{
		{"watched", stats.Watched},
		{"wishlist", stats.Wishlist},
		{"skipped", stats.Skipped},
		{"unmarked", stats.Unmarked},
	})
	t.AppendFooter(table.Row{"Total", stats.Total})
	t.Render()

	if stats.Rated > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Average rating: %.2f (%d rated)\n", stats.AverageRating, stats.Rated)
	}

	if len(stats.TopTags) == 0 {
		return
	}
	tags := table.NewWriter()
	tags.SetOutputMirror(cmd.OutOrStdout())
	tags.SetStyle(table.StyleLight)
	tags.SetTitle("Top tags (watched)")
	tags.AppendHeader(table.Row{"Tag", "Count"})
	for _, tc := range stats.TopTags {
		tags.AppendRow(table.Row{tc.Tag, tc.Count})
	}
	tags.Render()
}
