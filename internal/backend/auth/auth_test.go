package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars-long"

func TestTokenService_GenerateAndValidate(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour, 2*time.Hour)

	token, expiresAt, err := svc.Generate(7, "grace@example.com", false)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 2*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "grace@example.com", claims.Email)
	assert.False(t, claims.IsAdmin)
}

func TestTokenService_AdminWindowIsLonger(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour, 2*time.Hour)

	_, userExpiry, err := svc.Generate(7, "user@example.com", false)
	require.NoError(t, err)
	_, adminExpiry, err := svc.Generate(1, "admin@example.com", true)
	require.NoError(t, err)

	assert.True(t, adminExpiry.After(userExpiry))
}

func TestTokenService_RejectsExpiredToken(t *testing.T) {
	svc := NewTokenService(testSecret, -time.Minute, -time.Minute)

	token, _, err := svc.Generate(7, "grace@example.com", false)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenService_RejectsForeignToken(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour, time.Hour)
	other := NewTokenService("another-secret-key-that-is-also-long", time.Hour, time.Hour)

	token, _, err := other.Generate(7, "grace@example.com", false)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("electrical123")
	require.NoError(t, err)
	assert.True(t, CheckPassword("electrical123", hash))
	assert.False(t, CheckPassword("wrong-password", hash))
}

func TestHashPassword_TooShort(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}
