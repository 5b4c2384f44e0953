package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

var (
	errInvalidPort           = errors.New("config: invalid PORT number")
	errConcurrencyOutOfRange = errors.New("config: CRAWL_CONCURRENCY must be 1-20")
	errMaxPagesOutOfRange    = errors.New("config: CRAWL_MAX_PAGES must be 1-500")
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port             string
	LogLevel         string
	DatabaseURL      string
	CrawlConcurrency int
	CrawlMaxPages    int
	RenderTimeout    time.Duration
	FixAPIURL        string
	FixAPIKey        string
	FixModel         string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "INFO"),
		DatabaseURL:      getEnv("DATABASE_URL", "rankpilot.db"),
		CrawlConcurrency: getEnvAsInt("CRAWL_CONCURRENCY", 3),
		CrawlMaxPages:    getEnvAsInt("CRAWL_MAX_PAGES", 50),
		RenderTimeout:    getEnvAsDuration("RENDER_TIMEOUT", 30*time.Second),
		FixAPIURL:        getEnv("FIX_API_URL", "https://api.anthropic.com/v1/messages"),
		FixAPIKey:        os.Getenv("FIX_API_KEY"),
		FixModel:         getEnv("FIX_MODEL", "claude-sonnet-4-20250514"),
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: %q", errInvalidPort, c.Port)
	}

	if c.CrawlConcurrency < 1 || c.CrawlConcurrency > 20 {
		return fmt.Errorf("%w: got %d", errConcurrencyOutOfRange, c.CrawlConcurrency)
	}

	if c.CrawlMaxPages < 1 || c.CrawlMaxPages > 500 {
		return fmt.Errorf("%w: got %d", errMaxPagesOutOfRange, c.CrawlMaxPages)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return v
}
