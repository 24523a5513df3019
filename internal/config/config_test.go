package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"DB_PATH", "HTTP_HOST", "HTTP_PORT", "CACHE_BACKEND", "CACHE_TTL",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_NAMESPACE", "RESOLVER_SOURCES",
	"SOURCE_TIMEOUT", "SOURCE_RETRIES", "PROGRESS_CAP", "TIMEZONE",
	"LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv blanks every key Load reads; empty values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8011, cfg.Port)
	assert.Equal(t, CacheSQLite, cfg.Cache.Backend)
	assert.Equal(t, 7*24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, []string{"openfoodfacts", "usda_fdc"}, cfg.Resolver.Sources)
	assert.Equal(t, 5*time.Second, cfg.Resolver.Timeout)
	assert.Equal(t, 2.0, cfg.ProgressCap)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "prenatal-log", cfg.Redis.Namespace)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("CACHE_TTL", "12h")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("RESOLVER_SOURCES", " usda_fdc , estimate,")
	t.Setenv("SOURCE_TIMEOUT", "750ms")
	t.Setenv("PROGRESS_CAP", "1.5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, 12*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, []string{"usda_fdc", "estimate"}, cfg.Resolver.Sources)
	assert.Equal(t, 750*time.Millisecond, cfg.Resolver.Timeout)
	assert.Equal(t, 1.5, cfg.ProgressCap)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"HTTP_PORT":      "eighty",
		"CACHE_BACKEND":  "memcached",
		"CACHE_TTL":      "forever",
		"SOURCE_TIMEOUT": "5",
		"PROGRESS_CAP":   "-1",
		"TIMEZONE":       "Mars/Olympus_Mons",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
