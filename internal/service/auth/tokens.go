// Package auth provides the sync server's credential machinery: signed
// token pairs for API access and bcrypt password handling. Devices hold
// the access token for sync calls and trade the refresh token in for a
// new pair when it expires.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Token type discriminators embedded in the signed claims so a refresh
// token can never pass where an access token is required.
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenPair is the unit the auth endpoints hand out: a short-lived
// access token plus the refresh token that renews it.
type TokenPair struct {
	AccessToken  string
	RefreshToken string

	// ExpiresAt is when the access token stops working. The refresh
	// token outlives it.
	ExpiresAt time.Time
}

// Claims carries the verified contents of a validated token.
type Claims struct {
	// UserID is the user the token was issued for.
	UserID uuid.UUID

	// TokenType is "access" or "refresh".
	TokenType string

	ExpiresAt time.Time
	IssuedAt  time.Time

	// ID is the unique token identifier (jti claim).
	ID string
}

// TokenService defines operations for issuing and validating the
// tokens the sync API runs on.
type TokenService interface {
	// IssuePair mints a fresh access/refresh token pair for the user.
	IssuePair(ctx context.Context, userID uuid.UUID) (*TokenPair, error)

	// ValidateAccess checks an access token and extracts its claims.
	// Returns ErrExpiredToken, ErrWrongTokenType or ErrInvalidToken
	// when the token cannot be accepted.
	ValidateAccess(ctx context.Context, tokenString string) (*Claims, error)

	// ValidateRefresh checks a refresh token and extracts its claims,
	// with the same error contract as ValidateAccess.
	ValidateRefresh(ctx context.Context, tokenString string) (*Claims, error)
}
