package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shelfmark/shelfmark/internal/mcp"
	"github.com/shelfmark/shelfmark/internal/usecase"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server",
		Long:  "Serve the shelf commands as Model Context Protocol tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return withTracker(cmd, func(ctx context.Context, t *usecase.Tracker, log *slog.Logger) error {
				log.Info("mcp server starting", "version", version)
				return mcp.NewServer(t, log, version).Run(ctx)
			})
		},
	}

	return cmd
}
