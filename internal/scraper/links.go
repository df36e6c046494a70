package scraper

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/feedforge/merchantfeed/internal/metrics"
)

// LinkCollector walks the paginated category listing and collects product
// page URLs.
type LinkCollector struct {
	fetcher   Fetcher
	baseURL   string
	pageDelay time.Duration
	logger    *zap.Logger
}

// NewLinkCollector builds a collector resolving product hrefs against baseURL.
func NewLinkCollector(fetcher Fetcher, baseURL string, pageDelay time.Duration, logger *zap.Logger) *LinkCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkCollector{
		fetcher:   fetcher,
		baseURL:   strings.TrimRight(baseURL, "/"),
		pageDelay: pageDelay,
		logger:    logger,
	}
}

// Collect fetches pages 1..totalPages of the category listing and returns the
// deduplicated, sorted product URLs. Pages that fail to fetch are logged and
// skipped; the walk only aborts when the context is canceled.
func (c *LinkCollector) Collect(ctx context.Context, pageURL func(page int) string, totalPages int) ([]string, error) {
	seen := make(map[string]struct{})

	for page := 1; page <= totalPages; page++ {
		if err := ctx.Err(); err != nil {
			return sortedKeys(seen), err
		}

		u := pageURL(page)
		c.logger.Info("Scraping category page",
			zap.Int("page", page),
			zap.Int("total_pages", totalPages),
			zap.String("url", u),
		)

		result, err := c.fetcher.Fetch(ctx, u)
		if err != nil {
			metrics.ObservePage("category", "error")
			c.logger.Error("Failed to fetch category page", zap.Int("page", page), zap.Error(err))
			continue
		}
		if result.StatusCode != http.StatusOK {
			metrics.ObservePage("category", "skipped")
			c.logger.Warn("Skipping category page",
				zap.Int("page", page),
				zap.Int("status_code", result.StatusCode),
			)
			continue
		}
		metrics.ObservePage("category", "ok")

		links, err := c.extractLinks(result.Body)
		if err != nil {
			c.logger.Error("Failed to parse category page", zap.Int("page", page), zap.Error(err))
			continue
		}
		for _, link := range links {
			seen[link] = struct{}{}
		}

		if page < totalPages {
			pause(ctx, c.pageDelay)
		}
	}

	return sortedKeys(seen), nil
}

// extractLinks pulls product URLs out of one category page. Product tiles are
// div.urun elements whose anchor hrefs start with "urun/".
func (c *LinkCollector) extractLinks(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse category html: %w", err)
	}

	var links []string
	doc.Find("div.urun a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.HasPrefix(href, "urun/") {
			return
		}
		links = append(links, c.baseURL+"/"+strings.TrimLeft(href, "/"))
	})
	return links, nil
}

// SaveLinks writes one URL per line.
func SaveLinks(path string, links []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating links dir for %s: %w", path, err)
	}
	var b strings.Builder
	for _, link := range links {
		b.WriteString(link)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("write links file %s: %w", path, err)
	}
	return nil
}

// LoadLinks reads a links file, skipping blank lines and '#' comments.
func LoadLinks(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open links file %s: %w", path, err)
	}
	defer f.Close()

	var links []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		links = append(links, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read links file %s: %w", path, err)
	}
	return links, nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// pause sleeps for delay unless the context finishes first.
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
