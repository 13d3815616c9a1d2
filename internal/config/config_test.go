package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.APIBaseURL)
	assert.Equal(t, ".storefront/state.json", cfg.StateFile)
	assert.Equal(t, 5*time.Hour, cfg.UserSessionTTL)
	assert.Equal(t, 12*time.Hour, cfg.AdminSessionTTL)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("STOREFRONT_API_URL", "https://shop.example.com")
	t.Setenv("USER_SESSION_TTL", "90m")
	t.Setenv("ADMIN_SESSION_TTL", "24h")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com", cfg.APIBaseURL)
	assert.Equal(t, 90*time.Minute, cfg.UserSessionTTL)
	assert.Equal(t, 24*time.Hour, cfg.AdminSessionTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_SanitizesNonPositiveTTLs(t *testing.T) {
	t.Setenv("USER_SESSION_TTL", "-1h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Hour, cfg.UserSessionTTL)
}
