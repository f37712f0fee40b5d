package config

import (
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the explicit configuration passed into each component at
// construction. There is no package-level mutable state.
type Config struct {
	// Database connection parameters.
	DBHost     string `validate:"required"`
	DBPort     int    `validate:"min=1,max=65535"`
	DBName     string `validate:"required"`
	DBUser     string `validate:"required"`
	DBPassword string
	DBSchema   string

	// Weather provider.
	APIKey  string `validate:"required"`
	BaseURL string

	// Cities tracked by the scheduled run.
	Cities []string

	// ScheduleAt is the local wall-clock time of the daily trigger.
	ScheduleAt string `validate:"required"`

	// Bounded timeouts for the fetch and persistence stages.
	HTTPTimeout time.Duration
	DBTimeout   time.Duration

	// ChartDir is where trend artifacts are written.
	ChartDir string

	Port     string
	AppEnv   string
	LogLevel slog.Level
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &Config{
		DBHost:     getenvDefault("DB_HOST", "localhost"),
		DBPort:     getenvInt("DB_PORT", 5432),
		DBName:     getenvDefault("DB_NAME", "weather_database"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBSchema:   getenvDefault("DB_SCHEMA", "weather"),

		APIKey:  os.Getenv("OWM_API_KEY"),
		BaseURL: os.Getenv("OWM_BASE_URL"),

		ScheduleAt: getenvDefault("SCHEDULE_AT", "08:00"),
		ChartDir:   getenvDefault("CHART_DIR", "."),
		Port:       getenvDefault("PORT", "8080"),
		AppEnv:     getenvDefault("APP_ENV", "dev"),
		LogLevel:   parseLevel(getenvDefault("LOG_LEVEL", "info")),
	}

	if cities := os.Getenv("CITIES"); cities != "" {
		for _, c := range strings.Split(cities, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cfg.Cities = append(cfg.Cities, c)
			}
		}
	}

	httpTimeoutStr := getenvDefault("HTTP_TIMEOUT", "10s")
	httpTimeout, err := time.ParseDuration(httpTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = httpTimeout

	dbTimeoutStr := getenvDefault("DB_TIMEOUT", "15s")
	dbTimeout, err := time.ParseDuration(dbTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_TIMEOUT: %w", err)
	}
	cfg.DBTimeout = dbTimeout

	if _, err := time.Parse("15:04", cfg.ScheduleAt); err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_AT (want HH:MM): %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword), c.DBHost, c.DBPort, c.DBName)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
