package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"ROSTER_ADDR", "ROSTER_LOG_LEVEL", "STORE_BACKEND", "EVENT_SINK", "TX_TIMEOUT",
		"REDIS_URL", "DATABASE_URL", "KAFKA_BROKERS", "KAFKA_TOPIC",
		"RATE_LIMIT_PER_WINDOW", "RATE_LIMIT_WINDOW",
	} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, SinkMemory, cfg.Sink)
	assert.Equal(t, 5*time.Second, cfg.TxTimeout)
	assert.Equal(t, "roster.members", cfg.Kafka.Topic)
	assert.Equal(t, 600, cfg.RateLimit.Limit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ROSTER_LOG_LEVEL", "debug")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("EVENT_SINK", "kafka")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("TX_TIMEOUT", "250ms")
	t.Setenv("RATE_LIMIT_PER_WINDOW", "0")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 250*time.Millisecond, cfg.TxTimeout)
	assert.Zero(t, cfg.RateLimit.Limit)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown backend":       {"STORE_BACKEND": "etcd"},
		"redis without url":     {"STORE_BACKEND": "redis", "REDIS_URL": ""},
		"postgres without url":  {"STORE_BACKEND": "postgres", "DATABASE_URL": ""},
		"kafka without brokers": {"EVENT_SINK": "kafka", "KAFKA_BROKERS": ""},
		"bad timeout":           {"TX_TIMEOUT": "soon"},
		"bad level":             {"ROSTER_LOG_LEVEL": "loud"},
		"negative rate limit":   {"RATE_LIMIT_PER_WINDOW": "-1"},
		"zero rate window":      {"RATE_LIMIT_WINDOW": "0s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
