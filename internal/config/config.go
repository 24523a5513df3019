// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
)

type Config struct {
	Host   string
	Port   int
	DBPath string

	Cache struct {
		Backend string
		TTL     time.Duration
	}

	Redis struct {
		Addr     string
		Password string
		DB       int

		// Namespace prefixes every cache key.
		Namespace string
	}

	Resolver struct {
		// Sources in priority order.
		Sources []string
		Timeout time.Duration
		Retries int
	}

	OpenFoodFacts struct {
		BaseURL string
	}

	USDA struct {
		BaseURL string
		APIKey  string
	}

	Edamam struct {
		BaseURL string
		AppID   string
		AppKey  string
	}

	Estimator struct {
		URL    string
		APIKey string
		Model  string
	}

	ProgressCap float64
	Timezone    string

	Log struct {
		Level  string
		Format string
	}
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{}
	var err error

	cfg.Host = getEnv("HTTP_HOST", "0.0.0.0")
	if cfg.Port, err = getInt("HTTP_PORT", 8011); err != nil {
		return nil, err
	}
	cfg.DBPath = getEnv("DB_PATH", "/data/prenatal-log.db")

	cfg.Cache.Backend = strings.ToLower(getEnv("CACHE_BACKEND", CacheSQLite))
	if cfg.Cache.Backend != CacheSQLite && cfg.Cache.Backend != CacheRedis {
		return nil, fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q", CacheSQLite, CacheRedis, cfg.Cache.Backend)
	}
	if cfg.Cache.TTL, err = getDuration("CACHE_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.Namespace = getEnv("REDIS_NAMESPACE", "prenatal-log")
	if cfg.Redis.DB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	for _, s := range strings.Split(getEnv("RESOLVER_SOURCES", "openfoodfacts,usda_fdc"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			cfg.Resolver.Sources = append(cfg.Resolver.Sources, s)
		}
	}
	if len(cfg.Resolver.Sources) == 0 {
		return nil, errors.New("RESOLVER_SOURCES must name at least one source")
	}
	if cfg.Resolver.Timeout, err = getDuration("SOURCE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Resolver.Retries, err = getInt("SOURCE_RETRIES", 1); err != nil {
		return nil, err
	}

	cfg.OpenFoodFacts.BaseURL = getEnv("OFF_BASE_URL", "https://world.openfoodfacts.org")
	cfg.USDA.BaseURL = getEnv("USDA_BASE_URL", "https://api.nal.usda.gov/fdc")
	cfg.USDA.APIKey = getEnv("USDA_API_KEY", "DEMO_KEY")
	cfg.Edamam.BaseURL = getEnv("EDAMAM_BASE_URL", "https://api.edamam.com")
	cfg.Edamam.AppID = getEnv("EDAMAM_APP_ID", "")
	cfg.Edamam.AppKey = getEnv("EDAMAM_APP_KEY", "")
	cfg.Estimator.URL = getEnv("ESTIMATOR_URL", "http://mcp-openrouter-gateway:8012")
	cfg.Estimator.APIKey = getEnv("ESTIMATOR_API_KEY", "")
	cfg.Estimator.Model = getEnv("ESTIMATOR_MODEL", "")

	if cfg.ProgressCap, err = getFloat("PROGRESS_CAP", 2.0); err != nil {
		return nil, err
	}
	if cfg.ProgressCap <= 0 {
		return nil, fmt.Errorf("PROGRESS_CAP must be positive, got %v", cfg.ProgressCap)
	}
	cfg.Timezone = getEnv("TIMEZONE", "UTC")
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
