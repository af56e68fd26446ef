package main

import (
	"context"
	"log/slog"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/shelfmark/shelfmark/internal/application"
	"github.com/shelfmark/shelfmark/internal/usecase"
)

var (
	catalogPath string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:           "shelf",
	Short:         "shelf - track what you have watched",
	Long:          "shelf keeps a personal status (watched, wishlist, skipped) for every item of a media catalog.",
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Path to the catalog CSV (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(newCatalogCmd())
	rootCmd.AddCommand(newMarkCmd())
	rootCmd.AddCommand(newBatchMarkCmd())
	rootCmd.AddCommand(newUnmarkCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newStatusesCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newLogCmd())
	rootCmd.AddCommand(newMCPCmd())
}

// withTracker opens everything the command surface needs, runs fn and
// closes the stores again.
func withTracker(cmd *cobra.Command, fn func(ctx context.Context, t *usecase.Tracker, log *slog.Logger) error) error {
	injector := application.NewContainer(application.Overrides{
		CatalogPath: catalogPath,
		LogLevel:    logLevel,
	})
	defer func() {
		_ = injector.Shutdown()
	}()

	t, err := application.Tracker(injector)
	if err != nil {
		return err
	}
	log := do.MustInvoke[*slog.Logger](injector)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, t, log)
}
