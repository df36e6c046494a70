package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feedforge/merchantfeed/internal/scraper"
)

// newLinksCmd creates the 'links' subcommand, which runs only the
// link-collection stage.
func newLinksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "links",
		Short: "Collects product links from the category pages",

		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd.Context())
			if err != nil {
				return err
			}
			logger := rootLogger()

			fetcher, err := buildFetcher(cfg, logger)
			if err != nil {
				return err
			}

			collector := scraper.NewLinkCollector(fetcher, cfg.Scraper.BaseURL, cfg.PageDelay(), logger)
			links, err := collector.Collect(cmd.Context(), cfg.CategoryPageURL, cfg.Scraper.TotalPages)
			if err != nil {
				return fmt.Errorf("collect links: %w", err)
			}
			if len(links) == 0 {
				return errors.New("no product links found")
			}

			if err := scraper.SaveLinks(cfg.Feed.LinksFile, links); err != nil {
				return err
			}
			logger.Info("Saved product links",
				zap.Int("links", len(links)),
				zap.String("path", cfg.Feed.LinksFile),
			)
			return nil
		},
	}
}
