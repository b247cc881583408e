package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Every environment variable is read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External services
	Reasoning  ReasoningConfig
	Telegram   TelegramConfig
	MarketData MarketDataConfig

	// Pipeline
	Pipeline PipelineConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// ReasoningConfig holds the reasoning backend (chat-completions API) configuration.
type ReasoningConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	DebugDir   string // failing prompt/response pairs are dumped here
}

// TelegramConfig holds Telegram bot configuration.
type TelegramConfig struct {
	BotToken     string
	ChatID       string
	PollInterval time.Duration
	Enabled      bool
}

// MarketDataConfig holds market data provider configuration.
type MarketDataConfig struct {
	BaseURL      string
	SentimentURL string
	HistoryDays  int
}

// PipelineConfig holds orchestrator configuration.
type PipelineConfig struct {
	ReportsDir    string
	ResultLogDir  string
	EventLogDir   string
	JournalEvents bool
	StrategyFile  string
	PollTimeout   time.Duration
	MinRating     float64
	MinConfidence int
	ScanTopN      int
	ScanInterval  time.Duration
}

// Load reads configuration from environment variables.
// This function is the only caller of os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		Reasoning: ReasoningConfig{
			APIKey:     getEnv("REASONING_API_KEY", ""),
			BaseURL:    getEnv("REASONING_BASE_URL", "https://api.openai.com/v1"),
			Model:      getEnv("REASONING_MODEL", "gpt-4o"),
			Timeout:    getEnvAsDuration("REASONING_TIMEOUT", "90s"),
			MaxRetries: getEnvAsInt("REASONING_MAX_RETRIES", 3),
			BaseDelay:  getEnvAsDuration("REASONING_BASE_DELAY", "2s"),
			MaxDelay:   getEnvAsDuration("REASONING_MAX_DELAY", "30s"),
			DebugDir:   getEnv("REASONING_DEBUG_DIR", "data/debug"),
		},

		Telegram: TelegramConfig{
			BotToken:     getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:       getEnv("TELEGRAM_CHAT_ID", ""),
			PollInterval: getEnvAsDuration("TELEGRAM_POLL_INTERVAL", "3s"),
			Enabled:      getEnvAsBool("TELEGRAM_ENABLED", true),
		},

		MarketData: MarketDataConfig{
			BaseURL:      getEnv("MARKETDATA_BASE_URL", "https://query1.finance.example.com"),
			SentimentURL: getEnv("SENTIMENT_BASE_URL", "https://stocks.sentiment.example.com"),
			HistoryDays:  getEnvAsInt("MARKETDATA_HISTORY_DAYS", 180),
		},

		Pipeline: PipelineConfig{
			ReportsDir:    getEnv("REPORTS_DIR", "data/reports"),
			ResultLogDir:  getEnv("RESULT_LOG_DIR", "data/results"),
			EventLogDir:   getEnv("EVENT_LOG_DIR", "data/events"),
			JournalEvents: getEnvAsBool("EVENT_JOURNAL_ENABLED", true),
			StrategyFile:  getEnv("STRATEGY_FILE", "configs/strategy.yaml"),
			PollTimeout:   getEnvAsDuration("PIPELINE_POLL_TIMEOUT", "250ms"),
			MinRating:     getEnvAsFloat("QUALITY_MIN_RATING", 70),
			MinConfidence: getEnvAsInt("QUALITY_MIN_CONFIDENCE", 8),
			ScanTopN:      getEnvAsInt("SCAN_TOP_N", 5),
			ScanInterval:  getEnvAsDuration("SCAN_INTERVAL", "6h"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Reasoning.APIKey == "" {
		return fmt.Errorf("REASONING_API_KEY is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Reasoning.MaxRetries < 0 {
		return fmt.Errorf("REASONING_MAX_RETRIES must be >= 0")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
