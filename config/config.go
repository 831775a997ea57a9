package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const defaultTargetURL = "https://coinmarketcap.com/"

// Config holds every runtime setting. All values come from the environment
// (godotenv loads .env into it before Load runs).
type Config struct {
	DatabaseURL string
	TargetURL   string
	Port        string

	Headless           bool
	PageLoadTimeout    time.Duration
	ElementWaitTimeout time.Duration
	ScrollStep         int
	ScrollPause        time.Duration
	MaxScrollAttempts  int

	ScrapeInterval time.Duration
	RetentionDays  int
}

// Load reads the environment, applies defaults and validates required fields.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		TargetURL:   envOr("TARGET_URL", defaultTargetURL),
		Port:        envOr("PORT", "8080"),
	}

	var err error
	if cfg.Headless, err = envBool("HEADLESS", true); err != nil {
		return nil, err
	}
	if cfg.PageLoadTimeout, err = envDuration("PAGE_LOAD_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ElementWaitTimeout, err = envDuration("ELEMENT_WAIT_TIMEOUT", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.ScrollStep, err = envInt("SCROLL_STEP", 500); err != nil {
		return nil, err
	}
	if cfg.ScrollPause, err = envDuration("SCROLL_PAUSE", 100*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.MaxScrollAttempts, err = envInt("MAX_SCROLL_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if cfg.ScrapeInterval, err = envDuration("SCRAPE_INTERVAL", 1*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RetentionDays, err = envInt("RETENTION_DAYS", 30); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ScrollStep <= 0 {
		return nil, fmt.Errorf("SCROLL_STEP must be positive, got %d", cfg.ScrollStep)
	}
	if cfg.MaxScrollAttempts <= 0 {
		return nil, fmt.Errorf("MAX_SCROLL_ATTEMPTS must be positive, got %d", cfg.MaxScrollAttempts)
	}
	if cfg.RetentionDays <= 0 {
		return nil, fmt.Errorf("RETENTION_DAYS must be positive, got %d", cfg.RetentionDays)
	}
	if cfg.PageLoadTimeout <= 0 {
		return nil, fmt.Errorf("PAGE_LOAD_TIMEOUT must be positive, got %v", cfg.PageLoadTimeout)
	}
	if cfg.ElementWaitTimeout <= 0 {
		return nil, fmt.Errorf("ELEMENT_WAIT_TIMEOUT must be positive, got %v", cfg.ElementWaitTimeout)
	}
	if cfg.ScrollPause < 0 {
		return nil, fmt.Errorf("SCROLL_PAUSE must not be negative, got %v", cfg.ScrollPause)
	}
	// A non-positive interval would panic time.NewTicker in the scrape worker.
	if cfg.ScrapeInterval <= 0 {
		return nil, fmt.Errorf("SCRAPE_INTERVAL must be positive, got %v", cfg.ScrapeInterval)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}
