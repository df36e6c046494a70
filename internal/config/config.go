// Package config loads and validates feed scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Scraper ScraperConfig `mapstructure:"scraper"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Feed    FeedConfig    `mapstructure:"feed"`
	SFTP    SFTPConfig    `mapstructure:"sftp"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ScraperConfig governs link collection and product scraping behavior.
type ScraperConfig struct {
	BaseURL            string  `mapstructure:"base_url"`
	CategoryURL        string  `mapstructure:"category_url"`
	TotalPages         int     `mapstructure:"total_pages"`
	MaxWorkers         int     `mapstructure:"max_workers"`
	DelaySeconds       float64 `mapstructure:"delay_seconds"`
	PageDelaySeconds   float64 `mapstructure:"page_delay_seconds"`
	ScrapeLinks        bool    `mapstructure:"scrape_links"`
	EnableRetry        bool    `mapstructure:"enable_retry"`
	UserAgent          string  `mapstructure:"user_agent"`
	RateLimitPerDomain float64 `mapstructure:"rate_limit_per_domain"`
}

// HTTPConfig configures HTTP client timeout and retry behavior.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	MaxRetries     int `mapstructure:"max_retries"`
}

// FeedConfig sets output paths and upload behavior for the generated feeds.
type FeedConfig struct {
	OutputDir    string `mapstructure:"output_dir"`
	LinksFile    string `mapstructure:"links_file"`
	TSVFile      string `mapstructure:"tsv_file"`
	JSONFile     string `mapstructure:"json_file"`
	UploadToSFTP bool   `mapstructure:"upload_to_sftp"`
}

// SFTPConfig holds Merchant Center SFTP endpoint credentials.
type SFTPConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ServerConfig controls the metrics/health HTTP listener.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Dir         string `mapstructure:"dir"`
}

// envBindings maps config keys to the environment variables documented in the
// operator README. The names are bound verbatim, without a prefix.
var envBindings = map[string]string{
	"scraper.base_url":      "BASE_URL",
	"scraper.category_url":  "CATEGORY_URL",
	"scraper.total_pages":   "TOTAL_PAGES",
	"scraper.max_workers":   "MAX_WORKERS",
	"scraper.delay_seconds": "DELAY",
	"scraper.scrape_links":  "SCRAPE_LINKS",
	"scraper.enable_retry":  "ENABLE_RETRY",
	"feed.upload_to_sftp":   "UPLOAD_TO_SFTP",
	"sftp.host":             "SFTP_HOST",
	"sftp.port":             "SFTP_PORT",
	"sftp.username":         "SFTP_USERNAME",
	"sftp.password":         "SFTP_PASSWORD",
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()

	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scraper.base_url", "https://www.utkuoptik.com")
	v.SetDefault("scraper.category_url", "")
	v.SetDefault("scraper.total_pages", 25)
	v.SetDefault("scraper.max_workers", 8)
	v.SetDefault("scraper.delay_seconds", 0.1)
	v.SetDefault("scraper.page_delay_seconds", 0.5)
	v.SetDefault("scraper.scrape_links", true)
	v.SetDefault("scraper.enable_retry", true)
	v.SetDefault("scraper.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("scraper.rate_limit_per_domain", 4)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("feed.output_dir", ".data")
	v.SetDefault("feed.links_file", ".data/product_links.txt")
	v.SetDefault("feed.tsv_file", ".data/google_merchant_products.tsv")
	v.SetDefault("feed.json_file", ".data/google_merchant_products.json")
	v.SetDefault("feed.upload_to_sftp", true)
	v.SetDefault("sftp.host", "partnerupload.google.com")
	v.SetDefault("sftp.port", 19321)
	v.SetDefault("sftp.timeout_seconds", 30)
	v.SetDefault("server.port", 9090)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.dir", "logs")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Scraper.BaseURL) == "" {
		return fmt.Errorf("scraper.base_url must be set")
	}
	if c.Scraper.TotalPages <= 0 {
		return fmt.Errorf("scraper.total_pages must be > 0")
	}
	if c.Scraper.MaxWorkers <= 0 {
		return fmt.Errorf("scraper.max_workers must be > 0")
	}
	if c.Scraper.DelaySeconds < 0 {
		return fmt.Errorf("scraper.delay_seconds must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.SFTP.Port <= 0 {
		return fmt.Errorf("sftp.port must be > 0")
	}
	return nil
}

// CategoryURL returns the configured category listing URL, deriving it from
// the base URL when unset.
func (c Config) CategoryURL() string {
	if c.Scraper.CategoryURL != "" {
		return c.Scraper.CategoryURL
	}
	return strings.TrimRight(c.Scraper.BaseURL, "/") + "/kategori/gunes-gozlukleri-54/"
}

// CategoryPageURL returns the URL for one page of the category listing.
// Pagination appends the page number directly to the category URL.
func (c Config) CategoryPageURL(page int) string {
	return fmt.Sprintf("%s%d", c.CategoryURL(), page)
}

// HTTPTimeout converts the HTTP timeout config into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// SubmitDelay converts the per-URL submission delay into a duration.
func (c Config) SubmitDelay() time.Duration {
	return time.Duration(c.Scraper.DelaySeconds * float64(time.Second))
}

// PageDelay converts the per-category-page delay into a duration.
func (c Config) PageDelay() time.Duration {
	return time.Duration(c.Scraper.PageDelaySeconds * float64(time.Second))
}

// SFTPTimeout converts the SFTP dial timeout into a duration.
func (c Config) SFTPTimeout() time.Duration {
	return time.Duration(c.SFTP.TimeoutSeconds) * time.Second
}
