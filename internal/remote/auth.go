package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// TokenPair is what the auth endpoints issue: a short-lived access
// token and a longer-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthClient talks to the server's account endpoints. Unlike the sync
// gateway it needs no session; it is how a session gets created.
type AuthClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewAuthClient creates a client for the auth endpoints at baseURL.
// If logger is nil, a default logger will be used.
func NewAuthClient(baseURL string, timeout time.Duration, logger *slog.Logger) *AuthClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With(slog.String("component", "auth_client")),
	}
}

// Register creates an account and returns its first token pair.
func (c *AuthClient) Register(ctx context.Context, email, password string) (*TokenPair, error) {
	return c.post(ctx, "/v1/auth/register", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Login authenticates an existing account.
func (c *AuthClient) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	return c.post(ctx, "/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Refresh exchanges a refresh token for a fresh pair.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return c.post(ctx, "/v1/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})
}

func (c *AuthClient) post(ctx context.Context, path string, payload map[string]string) (*TokenPair, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close response body", slog.String("error", err.Error()))
		}
	}()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var pair TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if pair.AccessToken == "" {
		return nil, fmt.Errorf("server response missing access token")
	}
	return &pair, nil
}
