package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Item cache backends accepted in CACHE_BACKEND.
const (
	CacheBigCache = "bigcache"
	CacheRedis    = "redis"
)

// Config holds the process settings read from the environment.
type Config struct {
	Port               string
	HistoryDBPath      string
	LogDir             string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	SentryDSN          string
	CacheBackend       string
	CacheTTL           time.Duration
	ViewFlushInterval  time.Duration
	ViewFlushThreshold int
	RateLimitPerMinute int
}

// Load loads environment variables from a .env file if one exists.
func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}
}

// FromEnv builds a Config from the environment, applying defaults.
func FromEnv() Config {
	return Config{
		Port:               GetString("PORT", "8080"),
		HistoryDBPath:      GetString("HISTORY_DB_PATH", "history.db"),
		LogDir:             GetString("LOG_DIR", "logs"),
		RedisAddr:          GetString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      GetString("REDIS_PASSWORD", ""),
		RedisDB:            GetInt("REDIS_DB", 0),
		SentryDSN:          GetString("SENTRY_DSN", ""),
		CacheBackend:       GetString("CACHE_BACKEND", CacheBigCache),
		CacheTTL:           GetDuration("CACHE_TTL", 5*time.Minute),
		ViewFlushInterval:  GetDuration("VIEW_FLUSH_INTERVAL", 30*time.Second),
		ViewFlushThreshold: GetInt("VIEW_FLUSH_THRESHOLD", 50),
		RateLimitPerMinute: GetInt("RATE_LIMIT_PER_MINUTE", 120),
	}
}

func GetString(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return val
}

func GetInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

// GetDuration parses values like "30s" or "2m".
func GetDuration(key string, fallback time.Duration) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return d
}
