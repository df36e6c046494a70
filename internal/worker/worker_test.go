package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/feedforge/merchantfeed/internal/feed"
	"github.com/feedforge/merchantfeed/internal/scraper"
)

// countingFetcher fails each URL a configured number of times before
// succeeding, and counts every attempt.
type countingFetcher struct {
	mu       sync.Mutex
	failures map[string]int
	attempts map[string]int
}

func newCountingFetcher(failures map[string]int) *countingFetcher {
	return &countingFetcher{
		failures: failures,
		attempts: make(map[string]int),
	}
}

func (f *countingFetcher) Fetch(_ context.Context, rawURL string) (scraper.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[rawURL]++
	if f.attempts[rawURL] <= f.failures[rawURL] {
		return scraper.Page{}, fmt.Errorf("fetch %s: connection reset", rawURL)
	}
	return scraper.Page{
		URL:        rawURL,
		StatusCode: http.StatusOK,
		Body:       []byte("<html></html>"),
	}, nil
}

func (f *countingFetcher) attemptCount(rawURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[rawURL]
}

// urlParser returns a product keyed by the page URL so tests can check which
// URLs made it through the pipeline.
type urlParser struct{}

func (urlParser) Parse(_ []byte, pageURL string) (feed.Product, error) {
	return feed.Product{ID: pageURL, Link: pageURL}, nil
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func testURLs(n int) []string {
	urls := make([]string, 0, n)
	for i := 0; i < n; i++ {
		urls = append(urls, fmt.Sprintf("https://www.utkuoptik.com/urun/gozluk-%d", i))
	}
	return urls
}

func newTestPool(fetcher scraper.Fetcher, cfg Config) *Pool {
	return New(fetcher, urlParser{}, nil, &fixedClock{now: time.Unix(0, 0)}, cfg, zap.NewNop())
}

func productLinks(products []feed.Product) []string {
	links := make([]string, 0, len(products))
	for _, p := range products {
		links = append(links, p.Link)
	}
	sort.Strings(links)
	return links
}

func TestPoolRunAllSucceed(t *testing.T) {
	t.Parallel()

	urls := testURLs(6)
	fetcher := newCountingFetcher(nil)
	pool := newTestPool(fetcher, Config{Workers: 3, EnableRetry: true})

	products, stats, err := pool.Run(context.Background(), urls)
	require.NoError(t, err)

	assert.Equal(t, urls, productLinks(products))
	assert.Equal(t, 6, stats.TotalURLs)
	assert.Equal(t, 6, stats.Succeeded)
	assert.Zero(t, stats.Failed)
	assert.Zero(t, stats.Retried)
	assert.InDelta(t, 100.0, stats.SuccessRate(), 0.001)
}

func TestPoolRunRetryRecoversFailures(t *testing.T) {
	t.Parallel()

	urls := testURLs(4)
	// One URL fails once and recovers on the first retry round.
	fetcher := newCountingFetcher(map[string]int{urls[1]: 1})
	pool := newTestPool(fetcher, Config{
		Workers:          2,
		EnableRetry:      true,
		RetryBackoffBase: time.Millisecond,
	})

	products, stats, err := pool.Run(context.Background(), urls)
	require.NoError(t, err)

	assert.Equal(t, urls, productLinks(products))
	assert.Equal(t, 4, stats.Succeeded)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, 1, stats.Retried)
	assert.Equal(t, 2, fetcher.attemptCount(urls[1]))
}

func TestPoolRunRetryExhausted(t *testing.T) {
	t.Parallel()

	urls := testURLs(3)
	// This URL fails more often than the rounds allow.
	fetcher := newCountingFetcher(map[string]int{urls[0]: 10})
	pool := newTestPool(fetcher, Config{
		Workers:          2,
		EnableRetry:      true,
		MaxRetryRounds:   2,
		RetryBackoffBase: time.Millisecond,
	})

	products, stats, err := pool.Run(context.Background(), urls)
	require.NoError(t, err)

	assert.Len(t, products, 2)
	assert.Equal(t, 2, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.Retried, "failed URL counted once per retry round")
	// Initial attempt plus one per retry round.
	assert.Equal(t, 3, fetcher.attemptCount(urls[0]))
}

func TestPoolRunRetryDisabled(t *testing.T) {
	t.Parallel()

	urls := testURLs(3)
	fetcher := newCountingFetcher(map[string]int{urls[2]: 1})
	pool := newTestPool(fetcher, Config{Workers: 2, EnableRetry: false})

	products, stats, err := pool.Run(context.Background(), urls)
	require.NoError(t, err)

	assert.Len(t, products, 2)
	assert.Equal(t, 1, stats.Failed)
	assert.Zero(t, stats.Retried)
	assert.Equal(t, 1, fetcher.attemptCount(urls[2]), "no second attempt with retry disabled")
}

func TestPoolRunCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := newCountingFetcher(nil)
	pool := newTestPool(fetcher, Config{Workers: 2, EnableRetry: true})

	products, stats, err := pool.Run(ctx, testURLs(10))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, products)
	assert.Equal(t, 10, stats.TotalURLs)
	assert.Zero(t, stats.Succeeded)
	// URLs the producer never submitted count as failed too.
	assert.Equal(t, 10, stats.Failed)
	assert.Equal(t, stats.TotalURLs, stats.Succeeded+stats.Failed)
}

// statusFetcher returns a page with a fixed status code and no error.
type statusFetcher struct{ status int }

func (f statusFetcher) Fetch(_ context.Context, rawURL string) (scraper.Page, error) {
	return scraper.Page{URL: rawURL, StatusCode: f.status, Body: []byte("unavailable")}, nil
}

func TestPoolRunNonOKStatusFails(t *testing.T) {
	t.Parallel()

	pool := newTestPool(statusFetcher{status: http.StatusServiceUnavailable},
		Config{Workers: 2, EnableRetry: false})

	products, stats, err := pool.Run(context.Background(), testURLs(3))
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.Equal(t, 3, stats.Failed)
}

type errWaiter struct{ err error }

func (w errWaiter) Wait(context.Context, string) error { return w.err }

func TestPoolRunLimiterErrorFailsURL(t *testing.T) {
	t.Parallel()

	fetcher := newCountingFetcher(nil)
	pool := New(fetcher, urlParser{}, errWaiter{err: errors.New("limiter closed")},
		&fixedClock{now: time.Unix(0, 0)}, Config{Workers: 1, EnableRetry: false}, zap.NewNop())

	products, stats, err := pool.Run(context.Background(), testURLs(2))
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.Equal(t, 2, stats.Failed)
	assert.Zero(t, fetcher.attemptCount(testURLs(2)[0]), "limiter errors must short-circuit the fetch")
}

func TestStatsSuccessRateEmptyRun(t *testing.T) {
	t.Parallel()

	assert.Zero(t, Stats{}.SuccessRate())
}
