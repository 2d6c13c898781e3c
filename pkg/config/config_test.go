package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow/pkg/logger"
)

var keys = []string{
	"PORT", "STORE", "DATABASE_URL", "SQLITE_PATH", "REDIS_ADDR", "LOCK_TTL",
	"KAFKA_BROKERS", "KAFKA_TOPIC", "OTEL_HOST", "OTEL_SAMPLE_RATIO", "OTEL_STDOUT",
	"LOG_LEVEL", "SHUTDOWN_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "orderflow.db", cfg.SQLitePath)
	assert.Equal(t, 10*time.Second, cfg.LockTTL)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "orders.events", cfg.KafkaTopic)
	assert.Equal(t, 1.0, cfg.OTelSampleRatio)
	assert.False(t, cfg.OTelStdout)
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("STORE", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/orders")
	t.Setenv("LOCK_TTL", "3s")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("OTEL_SAMPLE_RATIO", "0.25")
	t.Setenv("OTEL_STDOUT", "yes")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, 3*time.Second, cfg.LockTTL)
	assert.Equal(t, "k1:9092,k2:9092", cfg.KafkaBrokers)
	assert.Equal(t, 0.25, cfg.OTelSampleRatio)
	assert.True(t, cfg.OTelStdout)
	assert.Equal(t, logger.LevelDebug, cfg.LogLevel)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port", "PORT", "http"},
		{"store", "STORE", "mongo"},
		{"postgres without dsn", "STORE", "postgres"},
		{"lock ttl", "LOCK_TTL", "soon"},
		{"negative shutdown", "SHUTDOWN_TIMEOUT", "-1s"},
		{"ratio", "OTEL_SAMPLE_RATIO", "2"},
		{"log level", "LOG_LEVEL", "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
