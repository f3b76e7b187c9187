// Package config collects every environment-driven setting into a single
// explicit value instead of package-level globals, per the rule that
// process lifetime state belongs to a Runtime, not a singleton.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full set of environment-configurable knobs for both the
// API process and the worker process. One value is built at startup and
// threaded through explicitly.
type Config struct {
	Environment string // development | staging | production

	DatabaseURL string
	CacheURL    string

	LLMAPIKey      string
	LLMBaseURL     string
	ChatModel      string
	EmbeddingModel string
	EmbeddingDims  int

	DailyBudgetUSD float64

	OCRCredentials string
	OCRBaseURL     string
	FrontendOrigin string

	ObjectStoreEndpoint  string
	ObjectStoreAccessKey string
	ObjectStoreSecretKey string
	ObjectStoreUseSSL    bool

	HTTPAddr    string
	MetricsAddr string

	AskRateLimitPerMinute  int
	AskRateLimitPerHour    int
	IngestRateLimitPerHour int
	IngestConcurrentCap    int

	ChunkMaxTokens      int
	ChunkOverlapFrac    float64
	ChunkExpiry         time.Duration
	QueryEmbeddingCacheTTL time.Duration
	AnswerCacheTTL      time.Duration
	JobStatusTTL        time.Duration

	TraceSampleRatio float64
}

// Load builds a Config from the process environment, applying the
// defaults named in the service's documented configuration surface.
func Load() (Config, error) {
	cfg := Config{
		Environment:    getenv("ENVIRONMENT", "development"),
		DatabaseURL:    getenv("DATABASE_URL", "postgres://localhost:5432/ruleoracle?sslmode=disable"),
		CacheURL:       getenv("CACHE_URL", "redis://localhost:6379/0"),
		LLMAPIKey:      os.Getenv("LLM_API_KEY"),
		LLMBaseURL:     getenv("LLM_BASE_URL", "https://api.openai.com/v1"),
		ChatModel:      getenv("CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingModel: getenv("EMBEDDING_MODEL", "text-embedding-3-small"),
		OCRCredentials: os.Getenv("OCR_CREDENTIALS"),
		OCRBaseURL:     getenv("OCR_BASE_URL", ""),
		FrontendOrigin: getenv("FRONTEND_ORIGIN", "*"),
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		MetricsAddr:    getenv("METRICS_ADDR", ":9109"),

		ObjectStoreEndpoint:  getenv("OBJECT_STORE_ENDPOINT", "localhost:9000"),
		ObjectStoreAccessKey: os.Getenv("OBJECT_STORE_ACCESS_KEY"),
		ObjectStoreSecretKey: os.Getenv("OBJECT_STORE_SECRET_KEY"),

		AskRateLimitPerHour:    100,
		IngestRateLimitPerHour: 3,
		IngestConcurrentCap:    50,

		ChunkMaxTokens:         400,
		ChunkOverlapFrac:       0.5,
		ChunkExpiry:            30 * 24 * time.Hour,
		QueryEmbeddingCacheTTL: 5 * time.Minute,
		AnswerCacheTTL:         5 * time.Minute,
		JobStatusTTL:           time.Hour,
	}

	var err error
	if cfg.EmbeddingDims, err = getenvInt("EMBEDDING_DIMENSIONS", 1536); err != nil {
		return cfg, err
	}
	if cfg.DailyBudgetUSD, err = getenvFloat("DAILY_BUDGET_USD", 10.00); err != nil {
		return cfg, err
	}
	if cfg.AskRateLimitPerMinute, err = getenvInt("ASK_RATE_LIMIT_PER_MINUTE", 10); err != nil {
		return cfg, err
	}
	cfg.ObjectStoreUseSSL = getenv("OBJECT_STORE_USE_SSL", "false") == "true"
	if cfg.TraceSampleRatio, err = getenvFloat("TRACE_SAMPLE_RATIO", 0.1); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) IsProduction() bool { return c.Environment == "production" }

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a number: %w", key, err)
	}
	return f, nil
}
