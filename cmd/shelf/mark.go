package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shelfmark/shelfmark/internal/errors"
	"github.com/shelfmark/shelfmark/internal/usecase"
)

func newMarkCmd() *cobra.Command {
	var (
		rating int
		tags   string
	)

	cmd := &cobra.Command{
		Use:   "mark <subject-id> <watched|wishlist|skipped>",
		Short: "Set the status of a catalog item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSubjectID(args[0])
			if err != nil {
				return err
			}

			input := usecase.MarkInput{SubjectID: id, Status: args[1]}
			if cmd.Flags().Changed("rating") {
				r := rating
				input.Rating = &r
			}
			if strings.TrimSpace(tags) != "" {
				t := tags
				input.Tags = &t
			}

			return withTracker(cmd, func(ctx context.Context, t *usecase.Tracker, _ *slog.Logger) error {
				rec, err := t.Mark(ctx, input)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Marked %d as %s\n", rec.SubjectID, rec.Status)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&rating, "rating", "r", 0, "Personal rating from 1 to 10")
	cmd.Flags().StringVarP(&tags, "tags", "t", "", "Personal tags")

	return cmd
}

func newBatchMarkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch-mark <watched|wishlist|skipped> <subject-id>...",
		Short: "Set the same status on several catalog items",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args)-1)
			for _, arg := range args[1:] {
				id, err := parseSubjectID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			return withTracker(cmd, func(ctx context.Context, t *usecase.Tracker, _ *slog.Logger) error {
				n, err := t.BatchMark(ctx, usecase.BatchMarkInput{SubjectIDs: ids, Status: args[0]})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Marked %d items as %s\n", n, args[0])
				return nil
			})
		},
	}

	return cmd
}

func newUnmarkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unmark <subject-id>",
		Short: "Remove the stored status of a catalog item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSubjectID(args[0])
			if err != nil {
				return err
			}

			return withTracker(cmd, func(ctx context.Context, t *usecase.Tracker, _ *slog.Logger) error {
				removed, err := t.Unmark(ctx, id)
				if err != nil {
					return err
				}
				if !removed {
					return errors.NotFound(fmt.Sprintf("no status stored for %d", id))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Unmarked %d\n", id)
				return nil
			})
		},
	}

	return cmd
}

func parseSubjectID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Validationf("invalid subject id: %q", s)
	}
	return id, nil
}
