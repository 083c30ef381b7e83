package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"factoryqc/internal/bootstrap/logging"
	"factoryqc/internal/errs"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "factoryqc",
	Short:        "Factory quality KPI and Andon escalation engine",
	Long:         "Records inspection and production results, tracks scrap streaks per machine, raises Andon alerts and reports quality KPIs.",
	SilenceUsage: true,
}

// Execute runs the root command. Called once from main.
func Execute(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	logger := slog.New(slog.NewTextHandler(rootCmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	ctx = logging.WithLogger(ctx, logger)
	ctx = logging.WithAttrs(ctx, slog.String("app", "factoryqc"))

	rootCmd.SetContext(ctx)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.Error(ctx, "command execution failed", slog.Any("err", errs.Loggable(err)))
		return errs.Wrap(err, "execute root command")
	}

	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file path (default ./configs/config.yaml when present)")
}
