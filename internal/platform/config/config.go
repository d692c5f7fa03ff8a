package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	KafkaBrokers  string
	EventTopic    string
	JWTSigningKey string

	// ExternalCallTimeout bounds key resolution, secret store and DB calls.
	ExternalCallTimeout time.Duration

	// WatchdogInterval controls how often the expiry watchdog scans for
	// credentials past their expiry time. Zero disables the watchdog.
	WatchdogInterval time.Duration
	WatchdogBatch    int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:                envOr("IDHUB_ADDR", ":8080"),
		DatabaseURL:         os.Getenv("IDHUB_DATABASE_URL"),
		RedisURL:            os.Getenv("IDHUB_REDIS_URL"),
		KafkaBrokers:        os.Getenv("IDHUB_KAFKA_BROKERS"),
		EventTopic:          envOr("IDHUB_EVENT_TOPIC", "idhub.lifecycle.events"),
		JWTSigningKey:       os.Getenv("IDHUB_JWT_SIGNING_KEY"),
		ExternalCallTimeout: envDurationOr("IDHUB_EXTERNAL_CALL_TIMEOUT", 5*time.Second),
		WatchdogInterval:    envDurationOr("IDHUB_WATCHDOG_INTERVAL", time.Minute),
		WatchdogBatch:       envIntOr("IDHUB_WATCHDOG_BATCH", 100),
	}
	if cfg.JWTSigningKey == "" {
		// Use a default for development - should be overridden in production
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
