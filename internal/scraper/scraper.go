// Package scraper fetches store pages and extracts Merchant Center product
// data from them.
package scraper

import (
	"context"
	"net/http"
	"time"
)

// Page is the raw result of fetching a single URL.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// ContentLength returns the body size in bytes.
func (p Page) ContentLength() int {
	return len(p.Body)
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// Config holds the settings for fetching store pages.
// This struct is decoupled from Viper, making the scraper and its
// configuration easier to test independently.
type Config struct {
	BaseURL            string
	UserAgent          string
	RequestTimeout     time.Duration
	Concurrency        int
	RateLimitPerDomain float64
}
