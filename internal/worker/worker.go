// Package worker implements the concurrent product scrape pipeline.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/feedforge/merchantfeed/internal/feed"
	"github.com/feedforge/merchantfeed/internal/metrics"
	"github.com/feedforge/merchantfeed/internal/scraper"
)

// Parser turns a fetched product page into a feed entry.
type Parser interface {
	Parse(body []byte, pageURL string) (feed.Product, error)
}

// Waiter throttles fetches per domain.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Config controls Pool behavior.
type Config struct {
	Workers          int
	SubmitDelay      time.Duration
	EnableRetry      bool
	MaxRetryRounds   int
	RetryWorkersMax  int
	RetryBackoffBase time.Duration
}

// Stats summarizes a scrape run.
type Stats struct {
	TotalURLs int
	Succeeded int
	Failed    int
	Retried   int
	Duration  time.Duration
}

// SuccessRate returns the share of URLs scraped successfully, in percent.
func (s Stats) SuccessRate() float64 {
	if s.TotalURLs == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.TotalURLs) * 100
}

// Pool scrapes product URLs concurrently and retries failures in rounds.
type Pool struct {
	fetcher scraper.Fetcher
	parser  Parser
	limiter Waiter
	clock   Clock
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Pool.
func New(
	fetcher scraper.Fetcher,
	parser Parser,
	limiter Waiter,
	clock Clock,
	cfg Config,
	logger *zap.Logger,
) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxRetryRounds <= 0 {
		cfg.MaxRetryRounds = 2
	}
	if cfg.RetryWorkersMax <= 0 {
		cfg.RetryWorkersMax = 5
	}
	if cfg.RetryBackoffBase <= 0 {
		cfg.RetryBackoffBase = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		fetcher: fetcher,
		parser:  parser,
		limiter: limiter,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run scrapes all URLs and returns the products plus run statistics. Failed
// URLs are retried in up to MaxRetryRounds rounds with exponential backoff
// between rounds and a reduced worker count. Cancellation stops the pipeline
// but the products scraped so far are still returned.
func (p *Pool) Run(ctx context.Context, urls []string) ([]feed.Product, Stats, error) {
	start := p.clock.Now()
	stats := Stats{TotalURLs: len(urls)}

	p.logger.Info("Starting product scrape",
		zap.Int("urls", len(urls)),
		zap.Int("workers", p.cfg.Workers),
	)

	products, failed := p.scrapeRound(ctx, urls, p.cfg.Workers, p.cfg.SubmitDelay, len(urls))

	if p.cfg.EnableRetry {
		retryWorkers := minInt(p.cfg.RetryWorkersMax, p.cfg.Workers)
		for round := 0; round < p.cfg.MaxRetryRounds && len(failed) > 0 && ctx.Err() == nil; round++ {
			p.logger.Info("Retrying failed URLs",
				zap.Int("round", round+1),
				zap.Int("max_rounds", p.cfg.MaxRetryRounds),
				zap.Int("urls", len(failed)),
			)
			stats.Retried += len(failed)
			for range failed {
				metrics.ObserveRetry()
			}

			pause(ctx, p.cfg.RetryBackoffBase<<round)

			var recovered []feed.Product
			recovered, failed = p.scrapeRound(ctx, failed, retryWorkers, 0, len(failed))
			products = append(products, recovered...)
		}
	}

	stats.Succeeded = len(products)
	stats.Failed = len(failed)
	stats.Duration = p.clock.Now().Sub(start)
	metrics.ObserveScrapeDuration(stats.Duration)

	if len(failed) > 0 {
		p.logger.Warn("Some URLs failed after retries", zap.Int("failed", len(failed)))
	}
	p.logger.Info("Product scrape finished",
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Duration("duration", stats.Duration),
	)

	return products, stats, ctx.Err()
}

// scrapeRound runs one worker-pool pass over the URLs and returns the scraped
// products and the URLs that failed.
func (p *Pool) scrapeRound(
	ctx context.Context,
	urls []string,
	workers int,
	submitDelay time.Duration,
	total int,
) ([]feed.Product, []string) {
	if len(urls) == 0 {
		return nil, nil
	}
	if workers > len(urls) {
		workers = len(urls)
	}

	var (
		mu       sync.Mutex
		products []feed.Product
		failed   []string
		scraped  int
	)

	jobs := make(chan string)
	go func() {
		defer close(jobs)
		for i, u := range urls {
			select {
			case jobs <- u:
			case <-ctx.Done():
				// URLs never handed to a worker still count as failed,
				// so the stats always add up to the total.
				mu.Lock()
				failed = append(failed, urls[i:]...)
				mu.Unlock()
				return
			}
			if submitDelay > 0 && i < len(urls)-1 {
				pause(ctx, submitDelay)
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				if ctx.Err() != nil {
					mu.Lock()
					failed = append(failed, u)
					mu.Unlock()
					continue
				}
				product, err := p.scrapeOne(ctx, u)
				mu.Lock()
				if err != nil {
					failed = append(failed, u)
					mu.Unlock()
					metrics.ObserveProduct("error")
					p.logger.Error("Failed to scrape product", zap.String("url", u), zap.Error(err))
					continue
				}
				scraped++
				count := scraped
				products = append(products, product)
				mu.Unlock()
				metrics.ObserveProduct("ok")
				p.logger.Info("Scraped product",
					zap.Int("scraped", count),
					zap.Int("total", total),
					zap.String("url", u),
				)
			}
		}()
	}
	wg.Wait()

	return products, failed
}

func (p *Pool) scrapeOne(ctx context.Context, rawURL string) (feed.Product, error) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, rawURL); err != nil {
			return feed.Product{}, err
		}
	}

	page, err := p.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return feed.Product{}, err
	}
	if page.StatusCode != http.StatusOK {
		return feed.Product{}, fmt.Errorf("fetch %s: unexpected status %d", rawURL, page.StatusCode)
	}
	return p.parser.Parse(page.Body, rawURL)
}

func pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
