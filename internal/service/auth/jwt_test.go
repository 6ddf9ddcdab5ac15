package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordvault/wordvault/internal/config"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:            strings.Repeat("k", 32),
		TokenLifetime:        time.Hour,
		RefreshTokenLifetime: 30 * 24 * time.Hour,
	}
}

func TestNewTokenService_RejectsShortSecret(t *testing.T) {
	t.Parallel() // Enable parallel testing

	cfg := testAuthConfig()
	cfg.JWTSecret = "too-short"

	_, err := NewTokenService(cfg)
	require.Error(t, err, "a secret under 32 characters should be rejected")
	assert.Contains(t, err.Error(), "32 characters")
}

func TestTokenService_IssuePairAndValidate(t *testing.T) {
	t.Parallel() // Enable parallel testing

	svc, err := NewTokenService(testAuthConfig())
	require.NoError(t, err)

	ctx := context.Background()
	userID := uuid.New()

	pair, err := svc.IssuePair(ctx, userID)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken, "the two tokens should be distinct")
	assert.WithinDuration(t, time.Now().Add(time.Hour), pair.ExpiresAt, 5*time.Second,
		"access expiry should follow the configured lifetime")

	access, err := svc.ValidateAccess(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, access.UserID)
	assert.Equal(t, "access", access.TokenType)
	assert.NotEmpty(t, access.ID, "every token should carry a unique ID")

	refresh, err := svc.ValidateRefresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, userID, refresh.UserID)
	assert.Equal(t, "refresh", refresh.TokenType)
	assert.True(t, refresh.ExpiresAt.After(access.ExpiresAt),
		"refresh tokens should outlive access tokens")
}

func TestTokenService_RejectsWrongTokenType(t *testing.T) {
	t.Parallel() // Enable parallel testing

	svc, err := NewTokenService(testAuthConfig())
	require.NoError(t, err)

	ctx := context.Background()
	pair, err := svc.IssuePair(ctx, uuid.New())
	require.NoError(t, err)

	_, err = svc.ValidateAccess(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrWrongTokenType, "a refresh token must not pass as an access token")

	_, err = svc.ValidateRefresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenType, "an access token must not pass as a refresh token")
}

func TestTokenService_RejectsGarbage(t *testing.T) {
	t.Parallel() // Enable parallel testing

	svc, err := NewTokenService(testAuthConfig())
	require.NoError(t, err)

	ctx := context.Background()

	_, err = svc.ValidateAccess(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateAccess(ctx, "")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestTokenService_RejectsForeignSignature(t *testing.T) {
	t.Parallel() // Enable parallel testing

	svc, err := NewTokenService(testAuthConfig())
	require.NoError(t, err)

	otherCfg := testAuthConfig()
	otherCfg.JWTSecret = strings.Repeat("x", 32)
	other, err := NewTokenService(otherCfg)
	require.NoError(t, err)

	ctx := context.Background()
	pair, err := other.IssuePair(ctx, uuid.New())
	require.NoError(t, err)

	_, err = svc.ValidateAccess(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "tokens signed with another secret should fail")
}

func TestTokenService_ExpiredToken(t *testing.T) {
	t.Parallel() // Enable parallel testing

	svc, err := NewTokenService(testAuthConfig())
	require.NoError(t, err)

	impl, ok := svc.(*hmacTokenService)
	require.True(t, ok)

	ctx := context.Background()
	issued := time.Now()
	impl.timeFunc = func() time.Time { return issued }

	pair, err := svc.IssuePair(ctx, uuid.New())
	require.NoError(t, err)

	// Just inside the clock skew window the token still validates.
	impl.timeFunc = func() time.Time { return issued.Add(time.Hour + time.Minute) }
	_, err = svc.ValidateAccess(ctx, pair.AccessToken)
	assert.NoError(t, err, "expiry within the skew allowance should be tolerated")

	// Past the skew window it does not.
	impl.timeFunc = func() time.Time { return issued.Add(time.Hour + 5*time.Minute) }
	_, err = svc.ValidateAccess(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)

	// The refresh token keeps working long after the access token died.
	impl.timeFunc = func() time.Time { return issued.Add(48 * time.Hour) }
	_, err = svc.ValidateRefresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}
