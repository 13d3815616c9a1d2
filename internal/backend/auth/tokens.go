// Package auth issues and validates the bearer tokens the storefront
// backend hands out at login.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims carried inside a storefront bearer token.
type Claims struct {
	UserID  int    `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// TokenService mints and validates bearer tokens. Administrators get a
// longer window than ordinary shoppers, mirroring the client's session
// lifetimes.
type TokenService struct {
	secretKey []byte
	userTTL   time.Duration
	adminTTL  time.Duration
}

func NewTokenService(secretKey string, userTTL, adminTTL time.Duration) *TokenService {
	return &TokenService{
		secretKey: []byte(secretKey),
		userTTL:   userTTL,
		adminTTL:  adminTTL,
	}
}

// Generate creates a signed token for the user.
func (s *TokenService) Generate(userID int, email string, isAdmin bool) (string, time.Time, error) {
	ttl := s.userTTL
	if isAdmin {
		ttl = s.adminTTL
	}
	expiresAt := time.Now().Add(ttl)

	claims := Claims{
		UserID:  userID,
		Email:   email,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   strconv.Itoa(userID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate checks a token and returns its claims.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
