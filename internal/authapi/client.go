// Package authapi is the client for the backend's authentication endpoints.
// It returns the identity and bearer token that SessionManager records; it
// holds no state of its own.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/voltworks/storefront/internal/session"
)

// ErrBadCredentials means the backend refused the email/password pair.
var ErrBadCredentials = errors.New("authapi: invalid credentials")

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  session.Identity `json:"user"`
	Token string           `json:"token"`
}

// Login exchanges credentials for an identity and bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (session.Identity, string, error) {
	return c.post(ctx, "/api/auth/login", loginPayload{Email: email, Password: password})
}

type registerPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Register creates an account and returns its first session.
func (c *Client) Register(ctx context.Context, name, email, phone, password string) (session.Identity, string, error) {
	return c.post(ctx, "/api/auth/register", registerPayload{Name: name, Email: email, Phone: phone, Password: password})
}

func (c *Client) post(ctx context.Context, path string, payload any) (session.Identity, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return session.Identity{}, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return session.Identity{}, "", fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return session.Identity{}, "", fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return session.Identity{}, "", ErrBadCredentials
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return session.Identity{}, "", fmt.Errorf("auth request %s failed: %s", path, apiErr.Error)
	}

	var out authResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return session.Identity{}, "", fmt.Errorf("failed to decode auth response: %w", err)
	}
	return out.User, out.Token, nil
}
