package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shelfmark/shelfmark/internal/errors"
	"github.com/shelfmark/shelfmark/internal/tracker"
	"github.com/shelfmark/shelfmark/internal/usecase"
)

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Work with the flat action log",
	}

	cmd.AddCommand(newLogAppendCmd())
	cmd.AddCommand(newLogLoadCmd())
	cmd.AddCommand(newLogDeleteCmd())
	cmd.AddCommand(newLogClearCmd())

	return cmd
}

func newLogAppendCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "append <watched|wishlist|skipped> <subject-id>...",
		Short: "Append actions to the log",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input usecase.LogAppendInput
			for _, arg := range args[1:] {
				id, err := parseSubjectID(arg)
				if err != nil {
					return err
				}
				input.Actions = append(input.Actions, usecase.LogActionInput{SubjectID: id, Status: args[0]})
			}
			if at != "" {
				ts, err := tracker.ParseTime(at)
				if err != nil {
					return errors.Validationf("invalid --at %q: expected RFC3339", at)
				}
				for i := range input.Actions {
					input.Actions[i].Timestamp = ts
				}
			}

			return withTracker(cmd, func(_ context.Context, t *usecase.Tracker, _ *slog.Logger) error {
				if err := t.LogAppend(input); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Appended %d actions\n", len(input.Actions))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "RFC3339 time of the actions (default now)")

	return cmd
}

func newLogLoadCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Show every action in the log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			return withTracker(cmd, func(_ context.Context, t *usecase.Tracker, _ *slog.Logger) error {
				result, err := t.LogLoad()
				if err != nil {
					return err
				}
				if format == formatJSON {
					return outputJSON(cmd, result)
				}
				outputStatusTable(cmd, result.Records)
				if result.Skipped > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "Skipped %d malformed rows\n", result.Skipped)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")

	return cmd
}

func newLogDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <subject-id>",
		Short: "Remove the most recent action for a catalog item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSubjectID(args[0])
			if err != nil {
				return err
			}

			return withTracker(cmd, func(_ context.Context, t *usecase.Tracker, _ *slog.Logger) error {
				removed, err := t.LogDelete(id)
				if err != nil {
					return err
				}
				if !removed {
					fmt.Fprintf(cmd.OutOrStdout(), "No action logged for %d\n", id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed last action for %d\n", id)
				return nil
			})
		},
	}

	return cmd
}

func newLogClearCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every action from the log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				reader := bufio.NewReader(cmd.InOrStdin())
				fmt.Fprint(cmd.ErrOrStderr(), "Remove every logged action? (y/N) ")
				answer, err := reader.ReadString('\n')
				if err != nil && answer == "" {
					return err
				}

				answer = strings.TrimSpace(strings.ToLower(answer))
				if answer != "y" {
					fmt.Fprintln(cmd.OutOrStdout(), "Clear cancelled")
					return nil
				}
			}

			return withTracker(cmd, func(_ context.Context, t *usecase.Tracker, _ *slog.Logger) error {
				if err := t.LogClear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Action log cleared")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}
