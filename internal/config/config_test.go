package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{"JWT_SECRET": "s"}))
	require.NoError(t, err)

	assert.Equal(t, "3333", cfg.Port)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, 720*time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.Local, cfg.Location)
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
	assert.Equal(t, 30, cfg.RateLimitBurst)
	assert.Equal(t, "dailyduo.events", cfg.KafkaTopic)
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"JWT_SECRET":       "s",
		"STORAGE":          "Postgres",
		"DATABASE_URL":     "postgres://localhost/dailyduo",
		"APP_TIMEZONE":     "UTC",
		"SESSION_TTL":      "1h",
		"RATE_LIMIT_RPS":   "0.5",
		"RATE_LIMIT_BURST": "2",
	}))
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 0.5, cfg.RateLimitRPS)
	assert.Equal(t, 2, cfg.RateLimitBurst)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":   {},
		"postgres w/o url": {"JWT_SECRET": "s", "STORAGE": "postgres"},
		"unknown storage":  {"JWT_SECRET": "s", "STORAGE": "sqlite"},
		"bad timezone":     {"JWT_SECRET": "s", "APP_TIMEZONE": "Mars/Olympus"},
		"bad ttl":          {"JWT_SECRET": "s", "SESSION_TTL": "forever"},
		"negative ttl":     {"JWT_SECRET": "s", "SESSION_TTL": "-1h"},
		"bad burst":        {"JWT_SECRET": "s", "RATE_LIMIT_BURST": "lots"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(envOf(env))
			assert.Error(t, err)
		})
	}
}
