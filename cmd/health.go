package cmd

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/feedforge/merchantfeed/internal/health"
)

// newHealthCmd creates the 'health' subcommand, used as the container health
// check. It exits non-zero when any check fails.
func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Runs the container health checks",

		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd.Context())
			if err != nil {
				return err
			}

			runner := health.NewRunner(
				cfg.Feed.OutputDir,
				cfg.Scraper.BaseURL,
				cfg.Feed.UploadToSFTP,
				cfg.SFTP.Username,
				cfg.SFTP.Password,
				&http.Client{Timeout: 10 * time.Second},
				rootLogger(),
			)
			return runner.Run(cmd.Context())
		},
	}
}
