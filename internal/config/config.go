// Package config reads runtime settings from the environment, after loading
// an optional .env file.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Port        string
	Storage     string
	DatabaseURL string
	RedisURL    string

	KafkaBrokers string
	KafkaTopic   string

	JWTSecret  string
	SessionTTL time.Duration

	// Location defines the calendar day used by the daily gate, the feed
	// window and the capture countdown.
	Location *time.Location

	MetricsUser string
	MetricsPass string

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults for unset keys.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Port:         get("PORT", "3333"),
		Storage:      strings.ToLower(get("STORAGE", StorageMemory)),
		DatabaseURL:  get("DATABASE_URL", ""),
		RedisURL:     get("REDIS_URL", ""),
		KafkaBrokers: get("KAFKA_BROKERS", ""),
		KafkaTopic:   get("KAFKA_TOPIC", "dailyduo.events"),
		JWTSecret:    get("JWT_SECRET", ""),
		MetricsUser:  get("METRICS_USER", ""),
		MetricsPass:  get("METRICS_PASS", ""),
	}

	var err error
	if cfg.SessionTTL, err = time.ParseDuration(get("SESSION_TTL", "720h")); err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}

	if cfg.Location, err = time.LoadLocation(get("APP_TIMEZONE", "Local")); err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}

	if cfg.RateLimitRPS, err = strconv.ParseFloat(get("RATE_LIMIT_RPS", "5"), 64); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(get("RATE_LIMIT_BURST", "30")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is not set")
		}
	default:
		return fmt.Errorf("unknown STORAGE %q (want memory or postgres)", c.Storage)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	return nil
}
