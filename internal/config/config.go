package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	Analyzer AnalyzerConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ScraperConfig struct {
	Hosts          []string
	RequestTimeout time.Duration
	RetryAttempts  int
	UserAgents     []string
}

type AnalyzerConfig struct {
	RawListingLimit int
	SelectTop       int
	RowDelayMin     time.Duration
	RowDelayMax     time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Scraper: ScraperConfig{
			Hosts:          getStringSliceOrDefault("SCRAPER_HOSTS", defaultHosts()),
			RequestTimeout: getDurationOrDefault("SCRAPER_REQUEST_TIMEOUT", 20*time.Second),
			RetryAttempts:  getIntOrDefault("SCRAPER_RETRY_ATTEMPTS", 4),
			UserAgents:     getStringSliceOrDefault("SCRAPER_USER_AGENTS", defaultUserAgents()),
		},
		Analyzer: AnalyzerConfig{
			RawListingLimit: getIntOrDefault("ANALYZER_RAW_LISTING_LIMIT", 120),
			SelectTop:       getIntOrDefault("ANALYZER_SELECT_TOP", 40),
			RowDelayMin:     getDurationOrDefault("ANALYZER_ROW_DELAY_MIN", 800*time.Millisecond),
			RowDelayMax:     getDurationOrDefault("ANALYZER_ROW_DELAY_MAX", 1600*time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Scraper.Hosts) == 0 {
		return fmt.Errorf("SCRAPER_HOSTS must list at least one host")
	}

	if c.Scraper.RetryAttempts < 1 {
		return fmt.Errorf("SCRAPER_RETRY_ATTEMPTS must be at least 1")
	}

	if len(c.Scraper.UserAgents) == 0 {
		return fmt.Errorf("SCRAPER_USER_AGENTS must list at least one user agent")
	}

	if c.Analyzer.SelectTop < 1 || c.Analyzer.RawListingLimit < c.Analyzer.SelectTop {
		return fmt.Errorf("ANALYZER_RAW_LISTING_LIMIT must be at least ANALYZER_SELECT_TOP")
	}

	if c.Analyzer.RowDelayMin > c.Analyzer.RowDelayMax {
		return fmt.Errorf("ANALYZER_ROW_DELAY_MIN cannot be greater than ANALYZER_ROW_DELAY_MAX")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func defaultHosts() []string {
	return []string{
		"https://www.avito.ru",
		"https://m.avito.ru",
	}
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	}
}
