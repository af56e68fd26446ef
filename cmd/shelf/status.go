package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/shelfmark/shelfmark/internal/errors"
	"github.com/shelfmark/shelfmark/internal/tracker"
	"github.com/shelfmark/shelfmark/internal/usecase"
)

func newStatusCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status <subject-id>",
		Short: "Show the stored status of a catalog item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			id, err := parseSubjectID(args[0])
			if err != nil {
				return err
			}

			return withTracker(cmd, func(ctx context.Context, t *usecase.Tracker, _ *slog.Logger) error {
				rec, err := t.GetStatus(ctx, id)
				if err != nil {
					return err
				}
				if rec == nil {
					return errors.NotFound(fmt.Sprintf("no status stored for %d", id))
				}
				if format == formatJSON {
					return outputJSON(cmd, rec)
				}
				outputStatusTable(cmd, []tracker.UserStatus{*rec})
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")

	return cmd
}

func newStatusesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "statuses",
		Short: "List every stored status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			return withTracker(cmd, func(ctx context.Context, t *usecase.Tracker, _ *slog.Logger) error {
				records, err := t.ListStatuses(ctx)
				if err != nil {
					return err
				}
				if format == formatJSON {
					return outputJSON(cmd, records)
				}
				outputStatusTable(cmd, records)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")

	return cmd
}

func outputStatusTable(cmd *cobra.Command, records []tracker.UserStatus) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)

	// ID, Status, Rating and the date are fixed; Tags gets the rest.
	tagsWidth := max(getTerminalWidth()-5*3-10-8-6-19, 15)

	t.AppendHeader(table.Row{"ID", "Status", "Rating", "Marked", "Tags"})
	for _, rec := range records {
		t.AppendRow(table.Row{
			strconv.FormatInt(rec.SubjectID, 10),
			string(rec.Status),
			optionalInt(rec.Rating),
			rec.MarkedAt.Local().Format("2006-01-02 15:04:05"),
			runewidth.Truncate(optionalString(rec.Tags), tagsWidth, "..."),
		})
	}

	t.Render()
}
