// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for the batch
// computation, its input source, its output sinks and the backing services
// (Postgres, Redis, Kafka).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/related-posts/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Source and sink names accepted in the config.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"

	SinkFile     = "file"
	SinkRedis    = "redis"
	SinkPostgres = "postgres"
	SinkKafka    = "kafka"
)

// Config is the top-level application configuration.
type Config struct {
	Compute  ComputeConfig  `yaml:"compute"`
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ComputeConfig controls the related-posts computation.
type ComputeConfig struct {
	TopK             int  `yaml:"topK"`
	Workers          int  `yaml:"workers"`
	TrimPlaceholders bool `yaml:"trimPlaceholders"`
}

// InputConfig selects where posts are loaded from.
type InputConfig struct {
	Source string `yaml:"source"`
	Path   string `yaml:"path"`
	Strict bool   `yaml:"strict"`
}

// OutputConfig selects where results are written.
type OutputConfig struct {
	Sinks   []string      `yaml:"sinks"`
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
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

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers   []string    `yaml:"brokers"`
	BatchSize int         `yaml:"batchSize"`
	Topics    KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	RelatedPosts string `yaml:"relatedPosts"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"poolSize"`
	CacheTTL  time.Duration `yaml:"cacheTTL"`
	KeyPrefix string        `yaml:"keyPrefix"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig toggles span logging for the batch stages.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a validated Config populated with defaults for any
// missing values.
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
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and names.
func (c *Config) Validate() error {
	if c.Compute.TopK < 1 {
		return fmt.Errorf("%w: compute.topK must be at least 1, got %d", apperrors.ErrInvalidConfig, c.Compute.TopK)
	}
	if c.Compute.Workers < -1 {
		return fmt.Errorf("%w: compute.workers must be -1, 0 or positive, got %d", apperrors.ErrInvalidConfig, c.Compute.Workers)
	}
	switch c.Input.Source {
	case SourceFile:
		if c.Input.Path == "" {
			return fmt.Errorf("%w: input.path is required for the file source", apperrors.ErrInvalidConfig)
		}
	case SourcePostgres:
	default:
		return fmt.Errorf("%w: unknown input.source %q", apperrors.ErrInvalidConfig, c.Input.Source)
	}
	if len(c.Output.Sinks) == 0 {
		return fmt.Errorf("%w: output.sinks must name at least one sink", apperrors.ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Output.Sinks))
	for _, name := range c.Output.Sinks {
		switch name {
		case SinkFile:
			if c.Output.Path == "" {
				return fmt.Errorf("%w: output.path is required for the file sink", apperrors.ErrInvalidConfig)
			}
		case SinkRedis, SinkPostgres:
		case SinkKafka:
			if len(c.Kafka.Brokers) == 0 || c.Kafka.Topics.RelatedPosts == "" {
				return fmt.Errorf("%w: kafka sink needs brokers and topics.relatedPosts", apperrors.ErrInvalidConfig)
			}
		default:
			return fmt.Errorf("%w: unknown output sink %q", apperrors.ErrInvalidConfig, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: output sink %q listed twice", apperrors.ErrInvalidConfig, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// HasSink reports whether the named sink is enabled.
func (c *Config) HasSink(name string) bool {
	for _, s := range c.Output.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

// defaultConfig reads posts.json, writes related_posts.json and keeps
// five related posts per item.
func defaultConfig() *Config {
	return &Config{
		Compute: ComputeConfig{
			TopK: 5,
		},
		Input: InputConfig{
			Source: SourceFile,
			Path:   "posts.json",
		},
		Output: OutputConfig{
			Sinks:   []string{SinkFile},
			Path:    "related_posts.json",
			Timeout: 2 * time.Minute,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "relatedposts",
			User:            "relatedposts",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:   []string{"localhost:9092"},
			BatchSize: 500,
			Topics: KafkaTopics{
				RelatedPosts: "related-posts",
			},
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			DB:        0,
			PoolSize:  10,
			CacheTTL:  24 * time.Hour,
			KeyPrefix: "related:",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads RP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RP_COMPUTE_TOPK"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			cfg.Compute.TopK = k
		}
	}
	if v := os.Getenv("RP_COMPUTE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Compute.Workers = n
		}
	}
	if v := os.Getenv("RP_COMPUTE_TRIM_PLACEHOLDERS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Compute.TrimPlaceholders = b
		}
	}
	if v := os.Getenv("RP_INPUT_SOURCE"); v != "" {
		cfg.Input.Source = v
	}
	if v := os.Getenv("RP_INPUT_PATH"); v != "" {
		cfg.Input.Path = v
	}
	if v := os.Getenv("RP_OUTPUT_SINKS"); v != "" {
		cfg.Output.Sinks = strings.Split(v, ",")
	}
	if v := os.Getenv("RP_OUTPUT_PATH"); v != "" {
		cfg.Output.Path = v
	}
	if v := os.Getenv("RP_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("RP_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("RP_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("RP_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("RP_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("RP_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("RP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("RP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("RP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("RP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("RP_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
}
