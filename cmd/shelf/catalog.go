package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/shelfmark/shelfmark/internal/catalog"
	"github.com/shelfmark/shelfmark/internal/tracker"
	"github.com/shelfmark/shelfmark/internal/usecase"
)

func newCatalogCmd() *cobra.Command {
	var (
		input  usecase.ListInput
		format string
	)

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List catalog items",
		Long:  "List catalog items, optionally filtered by year, rating, tags, status, collections or title.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			return withTracker(cmd, func(ctx context.Context, t *usecase.Tracker, _ *slog.Logger) error {
				items, err := t.ListCatalog(ctx, input)
				if err != nil {
					return err
				}

				if format == formatJSON {
					return outputJSON(cmd, items)
				}

				records, err := t.ListStatuses(ctx)
				if err != nil {
					return err
				}
				statusOf := make(map[int64]tracker.Status, len(records))
				for _, rec := range records {
					statusOf[rec.SubjectID] = rec.Status
				}
				outputCatalogTable(cmd, items, statusOf)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&input.YearFrom, "year-from", 0, "Earliest year (inclusive)")
	cmd.Flags().IntVar(&input.YearTo, "year-to", 0, "Latest year (inclusive)")
	cmd.Flags().Float64Var(&input.RatingMin, "rating-min", 0, "Minimum average rating")
	cmd.Flags().Float64Var(&input.RatingMax, "rating-max", 0, "Maximum average rating")
	cmd.Flags().StringSliceVar(&input.Tags, "tag", nil, "Require a tag (repeatable; any match passes)")
	cmd.Flags().StringVar(&input.Status, "status", "", "Status: all, unmarked, watched, wishlist or skipped")
	cmd.Flags().Float64Var(&input.MinCollections, "min-collections", 0, "Minimum collection count")
	cmd.Flags().StringVarP(&input.Query, "query", "q", "", "Match title or alternative title")
	cmd.Flags().IntVar(&input.Limit, "limit", 0, "Maximum number of items (0 for all)")
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")

	return cmd
}

func outputCatalogTable(cmd *cobra.Command, items []catalog.Item, statusOf map[int64]tracker.Status) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)

	titles := make([]string, 0, len(items))
	for _, item := range items {
		titles = append(titles, item.Title)
	}

	// ID, Year, Rating and Status have predictable widths; the rest is split
	// between Title and Tags.
	available := getTerminalWidth() - 6*3 - 8 - 4 - 6 - 8
	titleWidth := maxWidth(titles, 10, max(available/2, 10))
	tagsWidth := max(available-titleWidth, 10)

	t.AppendHeader(table.Row{"ID", "Title", "Year", "Rating", "Status", "Tags"})
	for _, item := range items {
		status := "-"
		if s, ok := statusOf[item.SubjectID]; ok {
			status = string(s)
		}
		t.AppendRow(table.Row{
			strconv.FormatInt(item.SubjectID, 10),
			wrapString(item.Title, titleWidth),
			item.Year,
			optionalFloat(item.AvgRating),
			status,
			runewidth.Truncate(item.Tags, tagsWidth, "..."),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "Total", len(items)})

	t.Render()
}
