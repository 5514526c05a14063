// Package config загружает конфигурацию сервиса из окружения
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var (
	errInvalidDriver  = errors.New("unsupported DB_DRIVER")
	errInvalidWindow  = errors.New("MAX_WINDOW_DAYS must be positive")
	errInvalidLimit   = errors.New("LIST_LIMIT must be between 10 and 500")
	errInvalidRanking = errors.New("RANKING_LIMIT must be between 1 and 500")
	errInvalidSeries  = errors.New("SERIES_LIMIT must be between 10 and 500")
	errInvalidDetail  = errors.New("READINGS_DETAIL must be between 1 and 500")
	errEmptyCacheDir  = errors.New("CHART_CACHE_DIR must not be empty")
	errInvalidSession = errors.New("SESSION_TTL must be positive")
)

// Config содержит конфигурацию сервиса
type Config struct {
	ServerAddr string

	DBDriver string
	DBDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionTTL time.Duration

	ChartCacheDir  string
	ChartCacheTTL  time.Duration
	ChartTheme     string
	ChartQuality   string
	MaxWindowDays  int
	ListLimit      int
	RankingLimit   int
	SeriesLimit    int
	ReadingsDetail int

	LogLevel  string
	LogFormat string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Файл .env необязателен.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddr:     getEnv("SERVER_ADDR", ":8080"),
		DBDriver:       getEnv("DB_DRIVER", "sqlite3"),
		DBDSN:          getEnv("DB_DSN", "machinery.db"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		SessionTTL:     getEnvDuration("SESSION_TTL", 12*time.Hour),
		ChartCacheDir:  getEnv("CHART_CACHE_DIR", "charts-cache"),
		ChartCacheTTL:  getEnvDuration("CHART_CACHE_TTL", 5*time.Minute),
		ChartTheme:     getEnv("CHART_THEME", "belize-light"),
		ChartQuality:   getEnv("CHART_QUALITY", "normal"),
		MaxWindowDays:  getEnvInt("MAX_WINDOW_DAYS", 365),
		ListLimit:      getEnvInt("LIST_LIMIT", 100),
		RankingLimit:   getEnvInt("RANKING_LIMIT", 20),
		SeriesLimit:    getEnvInt("SERIES_LIMIT", 500),
		ReadingsDetail: getEnvInt("READINGS_DETAIL", 20),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		ReadTimeout:    getEnvDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getEnvDuration("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:    getEnvDuration("IDLE_TIMEOUT", 60*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default возвращает конфигурацию по умолчанию без чтения окружения
func Default() *Config {
	return &Config{
		ServerAddr:     ":8080",
		DBDriver:       "sqlite3",
		DBDSN:          ":memory:",
		SessionTTL:     12 * time.Hour,
		ChartCacheDir:  "charts-cache",
		ChartCacheTTL:  5 * time.Minute,
		ChartTheme:     "belize-light",
		ChartQuality:   "normal",
		MaxWindowDays:  365,
		ListLimit:      100,
		RankingLimit:   20,
		SeriesLimit:    500,
		ReadingsDetail: 20,
		LogLevel:       "info",
		LogFormat:      "text",
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
	}
}

// Validate проверяет значения конфигурации
func (c *Config) Validate() error {
	if c.DBDriver != "sqlite3" && c.DBDriver != "mysql" {
		return fmt.Errorf("%w: %q", errInvalidDriver, c.DBDriver)
	}
	if c.MaxWindowDays <= 0 {
		return errInvalidWindow
	}
	if c.ListLimit < 10 || c.ListLimit > 500 {
		return errInvalidLimit
	}
	if c.RankingLimit < 1 || c.RankingLimit > 500 {
		return errInvalidRanking
	}
	if c.SeriesLimit < 10 || c.SeriesLimit > 500 {
		return errInvalidSeries
	}
	if c.ReadingsDetail < 1 || c.ReadingsDetail > 500 {
		return errInvalidDetail
	}
	if c.ChartCacheDir == "" {
		return errEmptyCacheDir
	}
	if c.SessionTTL <= 0 {
		return errInvalidSession
	}
	return nil
}

// getEnv получает переменную окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленную переменную окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvDuration получает длительность в формате time.ParseDuration
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
