// Package config builds the runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Alerting
	AlertThreshold int

	// Storage
	DBURL string

	// Analysis provider: mock | gemini | openai
	Provider            string
	GeminiAPIKey        string
	GeminiModel         string
	OpenAIAPIKey        string
	OpenAIModel         string
	OpenAIBaseURL       string
	MaxProviderRequests int // per day, 0 = unlimited
	AnalysisCacheTTL    time.Duration

	// Email channel
	AlertEmailTo string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPass     string

	// Chat channels
	SlackWebhookURL string
	TelegramToken   string
	TelegramChatID  string

	// Kafka channel
	KafkaBrokers    []string
	KafkaAlertTopic string

	// RSS settings
	FeedsConfigPath   string
	DefaultMaxNews    int
	DefaultFast       bool
	EnrichConcurrency int

	// Scheduler and HTTP
	CronHour       int
	APIPort        int
	RateLimitRPS   float64
	RateLimitBurst int
	RequestTimeout time.Duration

	Debug bool
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		AlertThreshold:    7,
		DBURL:             "sqlite://news.db",
		Provider:          "mock",
		GeminiModel:       "gemini-1.5-flash",
		OpenAIModel:       "gpt-4o-mini",
		AnalysisCacheTTL:  60 * time.Minute,
		SMTPPort:          587,
		KafkaAlertTopic:   "news-alerts",
		FeedsConfigPath:   "configs/feeds.yaml",
		DefaultMaxNews:    8,
		DefaultFast:       true,
		EnrichConcurrency: 4,
		CronHour:          6,
		APIPort:           5001,
		RateLimitRPS:      5,
		RateLimitBurst:    10,
		RequestTimeout:    30 * time.Second,
	}

	cfg.AlertThreshold = getEnvIntOrDefault("ALERT_THRESHOLD", cfg.AlertThreshold)
	cfg.DBURL = getEnvOrDefault("DB_URL", cfg.DBURL)

	cfg.Provider = strings.ToLower(getEnvOrDefault("PROVIDER", cfg.Provider))
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.GeminiModel = getEnvOrDefault("GEMINI_MODEL", cfg.GeminiModel)
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")

	if v := os.Getenv("MAX_PROVIDER_REQUESTS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 0 {
			cfg.MaxProviderRequests = val
		}
	}
	if v := os.Getenv("ANALYSIS_CACHE_TTL_MINUTES"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 0 {
			cfg.AnalysisCacheTTL = time.Duration(val) * time.Minute
		}
	}

	cfg.AlertEmailTo = os.Getenv("ALERT_EMAIL_TO")
	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.SMTPPort = getEnvIntOrDefault("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUser = os.Getenv("SMTP_USER")
	cfg.SMTPPass = os.Getenv("SMTP_PASS")

	cfg.SlackWebhookURL = os.Getenv("SLACK_WEBHOOK_URL")
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")

	cfg.KafkaBrokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.KafkaAlertTopic = getEnvOrDefault("KAFKA_ALERT_TOPIC", cfg.KafkaAlertTopic)

	cfg.FeedsConfigPath = getEnvOrDefault("FEEDS_CONFIG_PATH", cfg.FeedsConfigPath)
	if v := os.Getenv("DEFAULT_MAX_NEWS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.DefaultMaxNews = val
		}
	}
	cfg.DefaultFast = getEnvBoolOrDefault("DEFAULT_FAST", cfg.DefaultFast)
	cfg.EnrichConcurrency = getEnvIntOrDefault("ENRICH_CONCURRENCY", cfg.EnrichConcurrency)

	cfg.CronHour = getEnvIntOrDefault("CRON_HOUR", cfg.CronHour)
	cfg.APIPort = getEnvIntOrDefault("API_PORT", cfg.APIPort)
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil && val > 0 {
			cfg.RateLimitRPS = val
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.RateLimitBurst = val
		}
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	switch c.Provider {
	case "mock":
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when PROVIDER=gemini")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when PROVIDER=openai")
		}
	default:
		return fmt.Errorf("PROVIDER must be 'mock', 'gemini' or 'openai', got %q", c.Provider)
	}
	if c.CronHour < 0 || c.CronHour > 23 {
		return fmt.Errorf("CRON_HOUR must be between 0 and 23, got %d", c.CronHour)
	}
	if c.EnrichConcurrency < 1 {
		return fmt.Errorf("ENRICH_CONCURRENCY must be at least 1")
	}
	if c.DBURL == "" {
		return fmt.Errorf("DB_URL is required")
	}
	return nil
}

// EmailEnabled reports whether every SMTP setting needed by the e-mail channel is present.
func (c *Config) EmailEnabled() bool {
	return c.AlertEmailTo != "" && c.SMTPHost != "" && c.SMTPUser != "" && c.SMTPPass != ""
}
