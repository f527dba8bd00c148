// Package envconfig loads cmd/pdf2md's process-level configuration from
// the environment: logging, Axiom forwarding, provider credentials, the
// Redis breaker, and the conversion defaults the CLI applies when a flag is
// not given. This is deliberately separate from model.ConversionConfig,
// which is the library's per-call, in-process configuration; envconfig is
// only ever read once, at process start.
package envconfig

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig controls obslog.Init.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig controls optional log forwarding to Axiom.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ProvidersConfig selects which VLM backend(s) the CLI wires up.
type ProvidersConfig struct {
	Engine          string // "openai" | "anthropic"
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	AnthropicModel  string
	AnthropicBaseURL string
}

// BreakerConfig controls the Redis-backed circuit breaker.
type BreakerConfig struct {
	RedisURL    string
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultsConfig seeds ConversionConfigBuilder when a CLI flag is omitted.
type DefaultsConfig struct {
	DPI                 int
	MaxRenderedPixels   int
	Concurrency         int
	Temperature         float64
	MaxTokens           int
	MaxRetries          int
	RetryBackoffMS      int64
	DownloadTimeoutSecs int
	APITimeoutSecs      int
}

// Config is the top-level process configuration.
type Config struct {
	Logging   LoggingConfig
	Axiom     AxiomConfig
	Providers ProvidersConfig
	Breaker   BreakerConfig
	Defaults  DefaultsConfig
	MetricsAddr string
}

// FromEnv loads Config from the environment, applying the same defaults a
// developer running the CLI without any .env file would get.
func FromEnv() Config {
	var cfg Config

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/pdf2md.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       getEnv("AXIOM_DATASET", "dev") + "_pdf2md",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Providers = ProvidersConfig{
		Engine:           getEnv("PDF2MD_ENGINE", "openai"),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:   getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", ""),
	}

	cfg.Breaker = BreakerConfig{
		RedisURL:    getEnv("REDIS_URL", ""),
		BaseBackoff: parseDuration(getEnv("BREAKER_BASE_BACKOFF", "30s"), 30*time.Second),
		MaxBackoff:  parseDuration(getEnv("BREAKER_MAX_BACKOFF", "5m"), 5*time.Minute),
	}

	cfg.Defaults = DefaultsConfig{
		DPI:                 parseInt(getEnv("PDF2MD_DPI", "150"), 150),
		MaxRenderedPixels:   parseInt(getEnv("PDF2MD_MAX_RENDERED_PIXELS", "2000"), 2000),
		Concurrency:         parseInt(getEnv("PDF2MD_CONCURRENCY", "10"), 10),
		Temperature:         parseFloat(getEnv("PDF2MD_TEMPERATURE", "0.1"), 0.1),
		MaxTokens:           parseInt(getEnv("PDF2MD_MAX_TOKENS", "4096"), 4096),
		MaxRetries:          parseInt(getEnv("PDF2MD_MAX_RETRIES", "3"), 3),
		RetryBackoffMS:      int64(parseInt(getEnv("PDF2MD_RETRY_BACKOFF_MS", "500"), 500)),
		DownloadTimeoutSecs: parseInt(getEnv("PDF2MD_DOWNLOAD_TIMEOUT_SECS", "120"), 120),
		APITimeoutSecs:      parseInt(getEnv("PDF2MD_API_TIMEOUT_SECS", "60"), 60),
	}

	cfg.MetricsAddr = getEnv("METRICS_ADDR", ":9090")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "production" || env == "prod" {
		return "false"
	}
	return "true"
}
