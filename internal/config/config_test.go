package config

import (
	"testing"
	"time"
)

func TestFromEnvOverridesDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")
	t.Setenv("MAX_MESSAGE_SIZE", "8192")
	t.Setenv("RATE_LIMIT_BURST", "25")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2")
	t.Setenv("DATABASE_URL", "postgres://parley:pw@db:5432/parley")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("NATS_URL", "nats://broker:4222")
	t.Setenv("BACKPLANE", "NATS")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("TOKEN_TTL_HOURS", "2")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := FromEnv()

	if cfg.Port != ":9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://staging.example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.MaxMessageSize != 8192 {
		t.Errorf("MaxMessageSize = %d", cfg.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != 25 || cfg.RateLimit.RefillInterval != 2*time.Second {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.DatabaseURL != "postgres://parley:pw@db:5432/parley" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.RedisAddr != "redis:6379" || cfg.NATSURL != "nats://broker:4222" {
		t.Errorf("backplane addrs = %q %q", cfg.RedisAddr, cfg.NATSURL)
	}
	if cfg.Backplane != "nats" {
		t.Errorf("Backplane = %q", cfg.Backplane)
	}
	if cfg.JWTSecret != "env-secret" || cfg.TokenTTL != 2*time.Hour {
		t.Errorf("token settings = %q %v", cfg.JWTSecret, cfg.TokenTTL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestFromEnvIgnoresUnparseableValues(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "lots")
	t.Setenv("RATE_LIMIT_BURST", "-3")
	t.Setenv("TOKEN_TTL_HOURS", "0")
	t.Setenv("BACKPLANE", "carrier-pigeon")

	cfg := FromEnv()
	def := Default()

	if cfg.MaxMessageSize != def.MaxMessageSize {
		t.Errorf("MaxMessageSize = %d, want default %d", cfg.MaxMessageSize, def.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != def.RateLimit.Burst {
		t.Errorf("Burst = %d, want default %d", cfg.RateLimit.Burst, def.RateLimit.Burst)
	}
	if cfg.TokenTTL != def.TokenTTL {
		t.Errorf("TokenTTL = %v, want default %v", cfg.TokenTTL, def.TokenTTL)
	}
	if cfg.Backplane != "redis" {
		t.Errorf("Backplane = %q, want redis", cfg.Backplane)
	}
}

func TestSanitizeNormalizesPort(t *testing.T) {
	cfg := Default()
	cfg.Port = "8081"
	cfg.Sanitize()
	if cfg.Port != ":8081" {
		t.Errorf("Port = %q, want :8081", cfg.Port)
	}

	cfg.Port = ""
	cfg.Sanitize()
	if cfg.Port != ":8080" {
		t.Errorf("Port = %q, want :8080", cfg.Port)
	}
}
