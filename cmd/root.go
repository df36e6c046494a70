// Package cmd defines and implements the CLI commands for the merchantfeed
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feedforge/merchantfeed/internal/config"
	"github.com/feedforge/merchantfeed/internal/logging"
	"github.com/feedforge/merchantfeed/internal/metrics"
)

var cfgFile string

// cfgKeyType is the key for storing the loaded Config in the context.
type cfgKeyType string

const cfgKey cfgKeyType = "config"

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merchantfeed",
		Short: "Scrapes store products into a Google Merchant Center feed.",
		Long: `merchantfeed collects product links from the store's category pages,
scrapes product details concurrently, exports TSV and JSON feeds in the
Merchant Center format, and uploads the TSV feed over SFTP.`,

		SilenceUsage:  true,
		SilenceErrors: true,

		// Runs BEFORE the subcommand's RunE: load configuration, set up the
		// shared logger, and inject the config into the command context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if err := logging.Init(cfg.Logging.Development, cfg.Logging.Dir); err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}
			metrics.Init()

			cmd.SetContext(context.WithValue(cmd.Context(), cfgKey, cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")

	cmd.AddCommand(
		newScrapeCmd(),
		newLinksCmd(),
		newUploadCmd(),
		newHealthCmd(),
		newOpsCmd(),
	)

	return cmd
}

// resolveConfig retrieves the Config injected by the root PersistentPreRunE.
func resolveConfig(ctx context.Context) (config.Config, error) {
	cfg, ok := ctx.Value(cfgKey).(config.Config)
	if !ok {
		return config.Config{}, errors.New("configuration not initialized")
	}
	return cfg, nil
}

// rootLogger returns the shared application logger.
func rootLogger() *zap.Logger {
	return logging.L
}

// Execute is the main entry point. Interrupts cancel the command context so
// in-flight work shuts down gracefully.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.L.Error("Command execution failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		_ = logging.L.Sync()
		os.Exit(exitCode(err))
	}
	_ = logging.L.Sync()
}

// exitCode maps a command error to the process exit status. When a wrapped
// child process failure carries an exit code, that code is propagated;
// everything else exits 1.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
	}
	return 1
}
