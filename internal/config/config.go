package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Kafka      KafkaConfig
	Redis      RedisConfig
	MarketData MarketDataConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	Host            string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MigrationsDir string
}

// KafkaConfig holds Kafka configuration. Kafka is disabled when no brokers
// are configured.
type KafkaConfig struct {
	Brokers      []string
	PriceTopic   string
	RefreshTopic string
	GroupID      string
}

// RedisConfig holds Redis configuration. The cache is disabled when Addr is
// empty.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MarketDataConfig holds provider and refresh settings
type MarketDataConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	RateLimit      int // requests per second
	Concurrency    int
	FetchTimeout   time.Duration
	HistoryTTL     time.Duration
	InfoTTL        time.Duration
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables, after loading an
// optional .env file
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", "postgres"),
			DBName:        getEnv("DB_NAME", "virfolio"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			MigrationsDir: getEnv("DB_MIGRATIONS_DIR", "db/migrations"),
		},
		Kafka: KafkaConfig{
			Brokers:      getEnvAsList("KAFKA_BROKERS", nil),
			PriceTopic:   getEnv("KAFKA_PRICE_TOPIC", "virfolio-prices"),
			RefreshTopic: getEnv("KAFKA_REFRESH_TOPIC", "virfolio-refresh"),
			GroupID:      getEnv("KAFKA_GROUP_ID", "virfolio"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		MarketData: MarketDataConfig{
			BaseURL:        getEnv("MARKETDATA_BASE_URL", "https://query1.finance.yahoo.com"),
			RequestTimeout: getEnvAsDuration("MARKETDATA_REQUEST_TIMEOUT", 10*time.Second),
			RateLimit:      getEnvAsInt("MARKETDATA_RATE_LIMIT", 5),
			Concurrency:    getEnvAsInt("MARKETDATA_CONCURRENCY", 4),
			FetchTimeout:   getEnvAsDuration("MARKETDATA_FETCH_TIMEOUT", 10*time.Second),
			HistoryTTL:     getEnvAsDuration("MARKETDATA_HISTORY_TTL", 5*time.Minute),
			InfoTTL:        getEnvAsDuration("MARKETDATA_INFO_TTL", 24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that have no usable default
func (c *Config) Validate() error {
	if c.Database.Host == "" || c.Database.DBName == "" {
		return fmt.Errorf("DB_HOST and DB_NAME are required")
	}
	if c.MarketData.Concurrency < 1 {
		return fmt.Errorf("MARKETDATA_CONCURRENCY must be at least 1, got %d", c.MarketData.Concurrency)
	}
	if c.MarketData.RateLimit <= 0 {
		return fmt.Errorf("MARKETDATA_RATE_LIMIT must be positive")
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Enabled reports whether Kafka brokers are configured
func (k *KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping empty entries
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
