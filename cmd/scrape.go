package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feedforge/merchantfeed/internal/api"
	"github.com/feedforge/merchantfeed/internal/config"
	"github.com/feedforge/merchantfeed/internal/feed"
	"github.com/feedforge/merchantfeed/internal/id/uuid"
	"github.com/feedforge/merchantfeed/internal/ratelimit"
	"github.com/feedforge/merchantfeed/internal/scraper"
	"github.com/feedforge/merchantfeed/internal/uploader"
	"github.com/feedforge/merchantfeed/internal/worker"

	systemclock "github.com/feedforge/merchantfeed/internal/clock/system"
)

// newScrapeCmd creates the 'scrape' subcommand, which runs the complete
// pipeline: link collection, product scraping, feed export, and SFTP upload.
func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Runs the complete feed generation pipeline",
		Long: `Collects product links from the category pages (or loads a previously
saved link list), scrapes every product concurrently, writes the Merchant
Center TSV and JSON feeds, and uploads the TSV feed over SFTP.`,

		RunE: runScrapeCommand,
	}
}

func runScrapeCommand(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := resolveConfig(ctx)
	if err != nil {
		return err
	}

	runID, err := uuid.NewUUIDGenerator().NewID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}
	logger := rootLogger().With(zap.String("run_id", runID))

	server := api.NewServer(cfg.Server.Port, logger)
	if cfg.Server.Port > 0 {
		go func() {
			if serveErr := server.Start(); serveErr != nil {
				logger.Warn("Metrics server stopped", zap.Error(serveErr))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if shutErr := server.Shutdown(shutdownCtx); shutErr != nil {
				logger.Warn("Failed to shut down metrics server", zap.Error(shutErr))
			}
		}()
	}

	logger.Info("Starting feed generation run")
	start := time.Now()

	links, err := gatherLinks(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if len(links) == 0 {
		return errors.New("no product links found to scrape")
	}

	products, stats, runErr := scrapeProducts(ctx, cfg, links, logger)
	if len(products) == 0 {
		if runErr != nil {
			return fmt.Errorf("scrape products: %w", runErr)
		}
		return errors.New("no products were scraped")
	}

	sink := feed.NewFileSystemSink(logger)
	if err := sink.WriteTSV(context.WithoutCancel(ctx), cfg.Feed.TSVFile, products); err != nil {
		return fmt.Errorf("export TSV feed: %w", err)
	}
	if err := sink.WriteJSON(context.WithoutCancel(ctx), cfg.Feed.JSONFile, products); err != nil {
		return fmt.Errorf("export JSON feed: %w", err)
	}

	if cfg.Feed.UploadToSFTP {
		uploadFeed(ctx, cfg, cfg.Feed.TSVFile, logger)
	}

	logger.Info("Feed generation complete",
		zap.Duration("total_time", time.Since(start)),
		zap.Int("links", len(links)),
		zap.Int("scraped", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Float64("success_rate_pct", stats.SuccessRate()),
		zap.String("tsv_output", cfg.Feed.TSVFile),
		zap.String("json_output", cfg.Feed.JSONFile),
	)

	return runErr
}

// gatherLinks collects fresh links from the category pages or loads the
// previously saved list, depending on scraper.scrape_links.
func gatherLinks(ctx context.Context, cfg config.Config, logger *zap.Logger) ([]string, error) {
	if !cfg.Scraper.ScrapeLinks {
		logger.Info("Loading existing product links", zap.String("path", cfg.Feed.LinksFile))
		links, err := scraper.LoadLinks(cfg.Feed.LinksFile)
		if err != nil {
			return nil, fmt.Errorf("load links (set SCRAPE_LINKS=true to collect them): %w", err)
		}
		return links, nil
	}

	logger.Info("Collecting product links from category pages")
	fetcher, err := buildFetcher(cfg, logger)
	if err != nil {
		return nil, err
	}

	collector := scraper.NewLinkCollector(fetcher, cfg.Scraper.BaseURL, cfg.PageDelay(), logger)
	links, err := collector.Collect(ctx, cfg.CategoryPageURL, cfg.Scraper.TotalPages)
	if err != nil {
		return links, fmt.Errorf("collect links: %w", err)
	}

	if err := scraper.SaveLinks(cfg.Feed.LinksFile, links); err != nil {
		return links, err
	}
	logger.Info("Saved product links",
		zap.Int("links", len(links)),
		zap.String("path", cfg.Feed.LinksFile),
	)
	return links, nil
}

func scrapeProducts(
	ctx context.Context,
	cfg config.Config,
	links []string,
	logger *zap.Logger,
) ([]feed.Product, worker.Stats, error) {
	fetcher, err := buildFetcher(cfg, logger)
	if err != nil {
		return nil, worker.Stats{}, err
	}
	parser, err := scraper.NewParser(cfg.Scraper.BaseURL)
	if err != nil {
		return nil, worker.Stats{}, err
	}

	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.Scraper.RateLimitPerDomain,
		DefaultBurst: cfg.Scraper.MaxWorkers,
	})

	pool := worker.New(fetcher, parser, limiter, systemclock.New(), worker.Config{
		Workers:     cfg.Scraper.MaxWorkers,
		SubmitDelay: cfg.SubmitDelay(),
		EnableRetry: cfg.Scraper.EnableRetry,
	}, logger)

	return pool.Run(ctx, links)
}

// uploadFeed pushes the TSV feed to the SFTP endpoint. Upload failures are
// logged but do not fail the run; the local feed files remain available.
func uploadFeed(ctx context.Context, cfg config.Config, path string, logger *zap.Logger) {
	client, err := uploader.New(uploader.Config{
		Host:     cfg.SFTP.Host,
		Port:     cfg.SFTP.Port,
		Username: cfg.SFTP.Username,
		Password: cfg.SFTP.Password,
		Timeout:  cfg.SFTPTimeout(),
	}, logger)
	if err != nil {
		logger.Warn("Skipping SFTP upload", zap.Error(err))
		return
	}
	if err := client.Upload(context.WithoutCancel(ctx), path, ""); err != nil {
		logger.Warn("SFTP upload failed, local feed files are still available", zap.Error(err))
	}
}

func buildFetcher(cfg config.Config, logger *zap.Logger) (*scraper.CollyFetcher, error) {
	fetcher, err := scraper.NewCollyFetcher(scraper.Config{
		BaseURL:            cfg.Scraper.BaseURL,
		UserAgent:          cfg.Scraper.UserAgent,
		RequestTimeout:     cfg.HTTPTimeout(),
		Concurrency:        cfg.Scraper.MaxWorkers,
		RateLimitPerDomain: cfg.Scraper.RateLimitPerDomain,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}
	return fetcher, nil
}
