// Package config loads storefront configuration from environment variables,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the storefront binaries read from the environment.
type Config struct {
	// APIBaseURL is the backend the client talks to.
	APIBaseURL string `env:"STOREFRONT_API_URL" envDefault:"http://localhost:8080"`

	// StateFile is where the file-backed client state lives. Ignored when
	// RedisAddr is set.
	StateFile string `env:"STOREFRONT_STATE_FILE" envDefault:".storefront/state.json"`

	// RedisAddr switches client state persistence to Redis when non-empty.
	RedisAddr string `env:"REDIS_ADDR"`
	// RedisNamespace isolates one terminal's state from another's.
	RedisNamespace string `env:"REDIS_NAMESPACE" envDefault:"default"`

	// Session lifetimes, measured from login.
	UserSessionTTL  time.Duration `env:"USER_SESSION_TTL" envDefault:"5h"`
	AdminSessionTTL time.Duration `env:"ADMIN_SESSION_TTL" envDefault:"12h"`

	// Backend (shopd) settings.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	JWTSecret  string `env:"JWT_SECRET"`

	// KafkaBrokers enables order-event publishing from shopd when set.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"storefront-orders"`

	// DatabaseURL enables the Postgres order log in shopd when set.
	DatabaseURL string `env:"DATABASE_URL"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first if present; real environment variables win.
func Load() (Config, error) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.sanitize()
	return cfg, nil
}

// sanitize applies guardrails to values that arrived from the environment.
func (c *Config) sanitize() {
	if c.UserSessionTTL <= 0 {
		c.UserSessionTTL = 5 * time.Hour
	}
	if c.AdminSessionTTL <= 0 {
		c.AdminSessionTTL = 12 * time.Hour
	}
}
