package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Archive    ArchiveConfig
	Enrichment EnrichmentConfig
	Seed       SeedConfig
	S3         S3Config
	Metrics    MetricsConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Name           string
	Host           string
	Port           int
	RequestTimeout time.Duration
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
	LockTimeout     time.Duration

	// StatementTimeout bounds every statement on pool connections; zero disables it.
	StatementTimeout time.Duration
	// ApplicationName is reported to PostgreSQL in pg_stat_activity.
	ApplicationName string
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string
}

// RedisConfig holds configuration for the report cache.
type RedisConfig struct {
	Enabled   bool
	Addr      string
	Password  string
	DB        int
	ReportTTL time.Duration
}

// KafkaConfig holds configuration for domain event publishing.
type KafkaConfig struct {
	Enabled   bool
	Brokers   []string
	Topic     string
	QueueSize int
}

// ArchiveConfig holds configuration for the periodic archiver.
type ArchiveConfig struct {
	Enabled  bool
	Interval time.Duration
	MaxAge   time.Duration
}

// EnrichmentConfig holds configuration for the random product source.
type EnrichmentConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SeedConfig lists the catalogue files loaded by the seeder.
type SeedConfig struct {
	Files []string
}

// S3Config holds AWS S3 configuration for catalogue seed files.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "catalog/")
}

// MetricsConfig holds Prometheus configuration.
type MetricsConfig struct {
	Namespace string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Name:           getEnv("SERVICE_NAME", "stockroom"),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:             getEnv("DB_HOST", "localhost"),
			Port:             getEnvAsInt("DB_PORT", 5432),
			User:             getEnv("DB_USER", "postgres"),
			Password:         getEnv("DB_PASSWORD", ""),
			Database:         getEnv("DB_NAME", "stockroom"),
			MaxConnections:   getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:   getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime:  getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
			LockTimeout:      getEnvAsDuration("DB_LOCK_TIMEOUT", 5*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 30*time.Second),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		Redis: RedisConfig{
			Enabled:   getEnvAsBool("REDIS_ENABLED", false),
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			ReportTTL: getEnvAsDuration("REDIS_REPORT_TTL", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:   getEnvAsBool("KAFKA_ENABLED", false),
			Brokers:   getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:     getEnv("KAFKA_TOPIC", "stockroom.events"),
			QueueSize: getEnvAsInt("KAFKA_QUEUE_SIZE", 1000),
		},
		Archive: ArchiveConfig{
			Enabled:  getEnvAsBool("ARCHIVE_ENABLED", true),
			Interval: getEnvAsDuration("ARCHIVE_INTERVAL", time.Minute),
			MaxAge:   getEnvAsDuration("ARCHIVE_MAX_AGE", 30*time.Minute),
		},
		Enrichment: EnrichmentConfig{
			BaseURL: getEnv("ENRICHMENT_BASE_URL", "https://pokeapi.co/api/v2"),
			Timeout: getEnvAsDuration("ENRICHMENT_TIMEOUT", 5*time.Second),
		},
		Seed: SeedConfig{
			Files: getEnvAsSlice("SEED_FILES", []string{"data/catalog/products.jsonl.gz"}),
		},
		S3: S3Config{
			Enabled: getEnvAsBool("S3_ENABLED", false),
			Bucket:  getEnv("S3_BUCKET", ""),
			Region:  getEnv("S3_REGION", "us-east-1"),
			Prefix:  getEnv("S3_PREFIX", "catalog/"),
		},
		Metrics: MetricsConfig{
			Namespace: getEnv("METRICS_NAMESPACE", "stockroom"),
		},
	}

	cfg.Database.ApplicationName = getEnv("DB_APPLICATION_NAME", cfg.Server.Name)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Database.LockTimeout < 0 {
		return fmt.Errorf("database lock timeout cannot be negative")
	}

	if c.Database.StatementTimeout < 0 {
		return fmt.Errorf("database statement timeout cannot be negative")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required when kafka is enabled")
		}
		if c.Kafka.QueueSize < 1 {
			return fmt.Errorf("kafka queue size must be at least 1")
		}
	}

	if c.Archive.Enabled {
		if c.Archive.Interval <= 0 {
			return fmt.Errorf("archive interval must be positive")
		}
		if c.Archive.MaxAge <= 0 {
			return fmt.Errorf("archive max age must be positive")
		}
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsSlice retrieves a comma-separated environment variable or returns a default value.
func getEnvAsSlice(key string, defaultValue []string) []string {
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
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
