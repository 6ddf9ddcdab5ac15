package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/wordvault/wordvault/internal/store"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// RefreshRequest defines the payload for the token refresh endpoint.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse defines the successful response for the authentication
// endpoints. Register, login and refresh all answer with a fresh pair.
type AuthResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`

	// ExpiresAt is when the access token stops working.
	ExpiresAt time.Time `json:"expires_at"`
}

// SyncResponse defines the response of the collection fetch endpoint:
// the records plus the newest updated_at among them, which clients use
// as their next incremental watermark. LatestUpdatedAt is the zero
// time when no records matched.
type SyncResponse struct {
	Records         []store.SyncRecord `json:"records"`
	LatestUpdatedAt time.Time          `json:"latest_updated_at"`
}

// BatchRequest defines the payload of the record upload endpoint.
type BatchRequest struct {
	Records []store.SyncRecord `json:"records" validate:"required"`
}

// BatchResponse reports the server timestamp assigned to an accepted
// batch.
type BatchResponse struct {
	LatestUpdatedAt time.Time `json:"latest_updated_at"`
}

// CountResponse reports how many records a collection holds.
type CountResponse struct {
	Count int64 `json:"count"`
}
