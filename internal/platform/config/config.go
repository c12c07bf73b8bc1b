package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Event sinks.
const (
	SinkMemory   = "memory"
	SinkPostgres = "postgres"
	SinkKafka    = "kafka"
)

// Server captures process level configuration.
type Server struct {
	Addr      string
	LogLevel  slog.Level
	JWT       JWTConfig
	Backend   string
	Sink      string
	TxTimeout time.Duration
	Redis     RedisConfig
	Postgres  PostgresConfig
	Kafka     KafkaConfig
	RateLimit RateLimitConfig
}

type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
}

// RedisConfig holds connection and pool settings for the Redis backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type PostgresConfig struct {
	URL string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RateLimitConfig bounds registry mutations per caller. Limit 0 disables it.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	level, err := parseLevel(getEnv("ROSTER_LOG_LEVEL", "info"))
	if err != nil {
		return Server{}, err
	}
	txTimeout, err := getDuration("TX_TIMEOUT", 5*time.Second)
	if err != nil {
		return Server{}, err
	}
	poolSize, err := getInt("REDIS_POOL_SIZE", 10)
	if err != nil {
		return Server{}, err
	}
	minIdle, err := getInt("REDIS_MIN_IDLE_CONNS", 2)
	if err != nil {
		return Server{}, err
	}
	rateLimit, err := getInt("RATE_LIMIT_PER_WINDOW", 600)
	if err != nil {
		return Server{}, err
	}
	rateWindow, err := getDuration("RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return Server{}, err
	}

	cfg := Server{
		Addr:     getEnv("ROSTER_ADDR", ":8080"),
		LogLevel: level,
		JWT: JWTConfig{
			// Use a default for development - should be overridden in production
			SigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     getEnv("JWT_ISSUER", "roster"),
			Audience:   getEnv("JWT_AUDIENCE", "roster-api"),
		},
		Backend:   getEnv("STORE_BACKEND", BackendMemory),
		Sink:      getEnv("EVENT_SINK", SinkMemory),
		TxTimeout: txTimeout,
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     poolSize,
			MinIdleConns: minIdle,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Postgres: PostgresConfig{URL: os.Getenv("DATABASE_URL")},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "roster.members"),
		},
		RateLimit: RateLimitConfig{Limit: rateLimit, Window: rateWindow},
	}
	return cfg, cfg.Validate()
}

// Validate checks that the selected backend and sink have what they need.
func (c Server) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis backend")
		}
	case BackendPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Backend)
	}

	switch c.Sink {
	case SinkMemory:
	case SinkPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres event sink")
		}
	case SinkKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required for the kafka event sink")
		}
	default:
		return fmt.Errorf("unknown EVENT_SINK %q", c.Sink)
	}

	if c.TxTimeout <= 0 {
		return fmt.Errorf("TX_TIMEOUT must be positive")
	}
	if c.RateLimit.Limit < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_WINDOW must not be negative")
	}
	if c.RateLimit.Limit > 0 && c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("parse ROSTER_LOG_LEVEL: %w", err)
	}
	return level, nil
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
