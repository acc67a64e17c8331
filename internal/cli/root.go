// Package cli holds the newsrisk command tree.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/deusflow/newsrisk/internal/app"
	"github.com/deusflow/newsrisk/internal/config"
	"github.com/deusflow/newsrisk/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "newsrisk",
	Short:         "Turkish news risk scoring and alerting",
	Long:          "Reads RSS news, analyzes each item, scores its risk, stores the result and alerts on high-risk items.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and installs the process logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, logger.Init(cfg.Debug), nil
}

// buildApp loads configuration, lets mutate adjust it, and wires the application.
func buildApp(ctx context.Context, mutate func(*config.Config)) (*app.App, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(cfg)
	}
	return app.New(ctx, cfg, log)
}
