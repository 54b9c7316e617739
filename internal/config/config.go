package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all server configuration, read once at startup
type Config struct {
	Port        string
	Environment string

	DatabaseURL string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	JWTSecret string

	LogLevel string
	LogFile  string

	// Retention sweep for read notifications
	NotificationMaxAge        time.Duration
	NotificationSweepInterval time.Duration

	// HTTP rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads configuration from the environment
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", "server.log"),

		NotificationMaxAge:        time.Duration(getEnvInt("NOTIFICATION_MAX_AGE_DAYS", 30)) * 24 * time.Hour,
		NotificationSweepInterval: time.Duration(getEnvInt("NOTIFICATION_SWEEP_HOURS", 24)) * time.Hour,

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
