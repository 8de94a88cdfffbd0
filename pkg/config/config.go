// Package config loads service configuration from a YAML file and applies
// TS_* environment-variable overrides on top of built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Index    IndexConfig    `yaml:"index"`
	Search   SearchConfig   `yaml:"search"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// StorageConfig controls where uploaded files are kept and how large they
// may be.
type StorageConfig struct {
	Location          string `yaml:"location"`
	MaxFileSize       int64  `yaml:"maxFileSize"`
	MaxRequestSize    int64  `yaml:"maxRequestSize"`
	CleanupOnShutdown bool   `yaml:"cleanupOnShutdown"`
}

// IndexConfig sizes the in-memory index.
type IndexConfig struct {
	Stripes int `yaml:"stripes"`
}

// SearchConfig bounds ranked result lists.
type SearchConfig struct {
	DefaultLimit int `yaml:"defaultLimit"`
	MaxResults   int `yaml:"maxResults"`
}

// PostgresConfig holds the document registry connection.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

type KafkaTopics struct {
	DocumentIngest string `yaml:"documentIngest"`
	IndexComplete  string `yaml:"indexComplete"`
}

// RedisConfig holds the query cache connection.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads the YAML file at path, if any, over the defaults and then
// applies environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate reports every setting the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be positive, got %d", c.Server.Port))
	}
	if c.Storage.Location == "" {
		errs = append(errs, errors.New("storage.location is required"))
	}
	if c.Storage.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("storage.maxFileSize must be positive, got %d", c.Storage.MaxFileSize))
	}
	if c.Storage.MaxRequestSize < c.Storage.MaxFileSize {
		errs = append(errs, errors.New("storage.maxRequestSize must be at least storage.maxFileSize"))
	}
	if c.Index.Stripes <= 0 {
		errs = append(errs, fmt.Errorf("index.stripes must be positive, got %d", c.Index.Stripes))
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxResults < c.Search.DefaultLimit {
		errs = append(errs, errors.New("search.defaultLimit must be positive and not above search.maxResults"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers is required when kafka is enabled"))
	}
	if c.Metrics.Enabled && c.Metrics.Port <= 0 {
		errs = append(errs, fmt.Errorf("metrics.port must be positive, got %d", c.Metrics.Port))
	}
	return errors.Join(errs...)
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Location:          "upload-dir",
			MaxFileSize:       1 << 20,
			MaxRequestSize:    10 << 20,
			CleanupOnShutdown: true,
		},
		Index: IndexConfig{
			Stripes: 64,
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			MaxResults:   100,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "textsearch",
			User:            "textsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "textsearch-group",
			Topics: KafkaTopics{
				DocumentIngest: "document-ingest",
				IndexComplete:  "index.complete",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	envInt("TS_SERVER_PORT", &cfg.Server.Port)
	envString("TS_STORAGE_LOCATION", &cfg.Storage.Location)
	envInt64("TS_STORAGE_MAX_FILE_SIZE", &cfg.Storage.MaxFileSize)
	envInt64("TS_STORAGE_MAX_REQUEST_SIZE", &cfg.Storage.MaxRequestSize)
	envBool("TS_STORAGE_CLEANUP_ON_SHUTDOWN", &cfg.Storage.CleanupOnShutdown)
	envInt("TS_INDEX_STRIPES", &cfg.Index.Stripes)
	envBool("TS_POSTGRES_ENABLED", &cfg.Postgres.Enabled)
	envString("TS_POSTGRES_HOST", &cfg.Postgres.Host)
	envInt("TS_POSTGRES_PORT", &cfg.Postgres.Port)
	envString("TS_POSTGRES_DATABASE", &cfg.Postgres.Database)
	envString("TS_POSTGRES_USER", &cfg.Postgres.User)
	envString("TS_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	envString("TS_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	envBool("TS_KAFKA_ENABLED", &cfg.Kafka.Enabled)
	if v := os.Getenv("TS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	envBool("TS_REDIS_ENABLED", &cfg.Redis.Enabled)
	envString("TS_REDIS_ADDR", &cfg.Redis.Addr)
	envString("TS_REDIS_PASSWORD", &cfg.Redis.Password)
	envString("TS_LOGGING_LEVEL", &cfg.Logging.Level)
	envString("TS_LOGGING_FORMAT", &cfg.Logging.Format)
	envBool("TS_METRICS_ENABLED", &cfg.Metrics.Enabled)
	envInt("TS_METRICS_PORT", &cfg.Metrics.Port)
}

// Malformed numeric and boolean values are ignored and the current value
// is kept.

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envInt64(key string, dst *int64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
