// Package config defines runtime configuration for the Parley gateway,
// loaded from the environment with sensible defaults and validation.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds all runtime settings for the gateway process.
type Config struct {
	Port           string
	AllowedOrigins []string
	MaxMessageSize int64
	RateLimit      RateLimitConfig

	// External collaborators.
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NATSURL       string

	// Backplane selects the cross-instance fan-out transport:
	// "redis", "nats", or "memory" (single-instance).
	Backplane string

	JWTSecret string
	TokenTTL  time.Duration

	LogLevel string
}

// Default returns a Config populated with default values for all settings.
func Default() *Config {
	return &Config{
		Port:           ":8080",
		AllowedOrigins: []string{"http://localhost:5173"},
		MaxMessageSize: 4096,
		RateLimit: RateLimitConfig{
			Burst:          10,
			RefillInterval: time.Second,
		},
		RedisAddr: "127.0.0.1:6379",
		NATSURL:   "nats://127.0.0.1:4222",
		Backplane: "redis",
		JWTSecret: "dev-secret-change-me",
		TokenTTL:  24 * time.Hour,
		LogLevel:  "info",
	}
}

// FromEnv builds a Config from environment variables, falling back to
// defaults for anything unset or unparseable.
func FromEnv() *Config {
	cfg := Default()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseList(origins)
	}
	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseInt64(maxSize, cfg.MaxMessageSize)
	}
	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseInt(burst, cfg.RateLimit.Burst)
	}
	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSeconds(interval, cfg.RateLimit.RefillInterval)
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.DatabaseURL = url
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.RedisPassword = pw
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		cfg.RedisDB = parseInt(db, cfg.RedisDB)
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		cfg.NATSURL = url
	}
	if bp := os.Getenv("BACKPLANE"); bp != "" {
		cfg.Backplane = strings.ToLower(strings.TrimSpace(bp))
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWTSecret = secret
	}
	if ttl := os.Getenv("TOKEN_TTL_HOURS"); ttl != "" {
		if hours := parseInt(ttl, 0); hours > 0 {
			cfg.TokenTTL = time.Duration(hours) * time.Hour
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	cfg.Sanitize()
	return cfg
}

// Sanitize clamps out-of-range values back to defaults.
func (c *Config) Sanitize() {
	if c.Port == "" {
		c.Port = ":8080"
	}
	if !strings.HasPrefix(c.Port, ":") {
		c.Port = ":" + c.Port
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 4096
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = time.Second
	}
	switch c.Backplane {
	case "redis", "nats", "memory":
	default:
		c.Backplane = "redis"
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = 24 * time.Hour
	}
}

func parseList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseInt64(value string, fallback int64) int64 {
	if parsed, err := strconv.ParseInt(value, 10, 64); err == nil && parsed > 0 {
		return parsed
	}
	return fallback
}

func parseInt(value string, fallback int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return fallback
}

func parseSeconds(value string, fallback time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
