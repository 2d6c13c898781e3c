// Package config loads process settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"orderflow/pkg/logger"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config carries environment-driven settings for the API process.
type Config struct {
	Port            string
	Store           string
	DatabaseURL     string
	SQLitePath      string
	RedisAddr       string
	LockTTL         time.Duration
	KafkaBrokers    string
	KafkaTopic      string
	OTelHost        string
	OTelSampleRatio float64
	OTelStdout      bool
	LogLevel        logger.Level
	ShutdownTimeout time.Duration
}

// Addr is the listen address derived from Port.
func (c Config) Addr() string {
	return ":" + c.Port
}

// Load reads environment variables, applies defaults, and validates them.
func Load() (Config, error) {
	cfg := Config{
		Port:         envDefault("PORT", "8080"),
		Store:        strings.ToLower(envDefault("STORE", StoreMemory)),
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:   envDefault("SQLITE_PATH", "orderflow.db"),
		RedisAddr:    strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		KafkaBrokers: strings.TrimSpace(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envDefault("KAFKA_TOPIC", "orders.events"),
		OTelHost:     strings.TrimSpace(os.Getenv("OTEL_HOST")),
		OTelStdout:   isTruthy(os.Getenv("OTEL_STDOUT")),
	}

	if p, err := strconv.Atoi(cfg.Port); err != nil || p <= 0 || p > 65535 {
		return Config{}, fmt.Errorf("PORT must be a port number, got %q", cfg.Port)
	}

	switch cfg.Store {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required when STORE=postgres")
		}
	default:
		return Config{}, fmt.Errorf("STORE must be one of memory, postgres, sqlite, got %q", cfg.Store)
	}

	var err error
	if cfg.LockTTL, err = durationEnv("LOCK_TTL", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}

	cfg.OTelSampleRatio = 1.0
	if raw := strings.TrimSpace(os.Getenv("OTEL_SAMPLE_RATIO")); raw != "" {
		ratio, err := strconv.ParseFloat(raw, 64)
		if err != nil || ratio < 0 || ratio > 1 {
			return Config{}, fmt.Errorf("OTEL_SAMPLE_RATIO must be a number between 0 and 1")
		}
		cfg.OTelSampleRatio = ratio
	}

	if cfg.LogLevel, err = logger.ParseLevel(envDefault("LOG_LEVEL", "info")); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return cfg, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration", key)
	}
	return d, nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
