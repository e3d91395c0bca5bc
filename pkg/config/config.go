package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"github.com/joho/godotenv"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Persistence
	StoreDriver string // postgres, sqlite
	Database    DatabaseConfig
	SQLite      SQLiteConfig

	// Redis
	Redis RedisConfig

	// Market data
	Source    SourceConfig
	Crawler   CrawlerConfig
	Scheduler SchedulerConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// SQLiteConfig holds the embedded store configuration
type SQLiteConfig struct {
	Path string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// SourceConfig holds market data provider settings
type SourceConfig struct {
	AKToolsBaseURL string
	ProfileBaseURL string // 회사 개요 페이지 (sina)
	Timeout        time.Duration
	RateLimit      float64 // requests per second
	Burst          int
	QuoteCacheTTL  time.Duration
}

// CrawlerConfig holds crawler defaults
type CrawlerConfig struct {
	Workers    int
	MaxWorkers int // upper bound for pool sizes requested at run time
}

// SchedulerConfig holds cron settings
type SchedulerConfig struct {
	Timezone   string // trading calendar zone, IANA name
	MaxRetries int
	RetryDelay time.Duration
}

// Location resolves the trading calendar zone
func (c SchedulerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		StoreDriver: getEnv("STORE_DRIVER", StoreDriverPostgres),
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "./data/stocklens.db"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Source: SourceConfig{
			AKToolsBaseURL: getEnv("AKTOOLS_BASE_URL", "http://127.0.0.1:8080"),
			ProfileBaseURL: getEnv("PROFILE_BASE_URL", "https://vip.stock.finance.sina.com.cn"),
			Timeout:        getEnvAsDuration("SOURCE_TIMEOUT", "10s"),
			RateLimit:      getEnvAsFloat("SOURCE_RATE_LIMIT", 5),
			Burst:          getEnvAsInt("SOURCE_BURST", 5),
			QuoteCacheTTL:  getEnvAsDuration("QUOTE_CACHE_TTL", "30s"),
		},
		Crawler: CrawlerConfig{
			Workers:    getEnvAsInt("CRAWLER_WORKERS", 5),
			MaxWorkers: getEnvAsInt("CRAWLER_MAX_WORKERS", 20),
		},
		Scheduler: SchedulerConfig{
			Timezone:   getEnv("MARKET_TIMEZONE", "Asia/Shanghai"),
			MaxRetries: getEnvAsInt("SCHEDULER_MAX_RETRIES", 2),
			RetryDelay: getEnvAsDuration("SCHEDULER_RETRY_DELAY", "1m"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case StoreDriverSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be one of: postgres, sqlite")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Source.Timeout <= 0 {
		return fmt.Errorf("SOURCE_TIMEOUT must be positive")
	}

	if c.Crawler.Workers < 1 {
		return fmt.Errorf("CRAWLER_WORKERS must be at least 1")
	}

	if c.Crawler.MaxWorkers < c.Crawler.Workers {
		return fmt.Errorf("CRAWLER_MAX_WORKERS must be at least CRAWLER_WORKERS")
	}

	if _, err := c.Scheduler.Location(); err != nil {
		return fmt.Errorf("MARKET_TIMEZONE is not a known zone: %w", err)
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

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
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
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
