package remote

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wordvault/wordvault/internal/domain"
)

// SessionHolder is the single place the current login lives. The
// gateway reads it on every call; the engine replaces it on login and
// clears it on logout.
type SessionHolder struct {
	mu      sync.RWMutex
	session *domain.Session
}

// NewSessionHolder creates an empty holder (signed out).
func NewSessionHolder() *SessionHolder {
	return &SessionHolder{}
}

// Set replaces the current session.
func (h *SessionHolder) Set(session *domain.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session = session
}

// Clear signs the holder out.
func (h *SessionHolder) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session = nil
}

// Current returns a copy of the session, or nil when signed out.
func (h *SessionHolder) Current() *domain.Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.session == nil {
		return nil
	}
	copied := *h.session
	return &copied
}

// Authenticated reports whether a session exists and its token has not
// expired at the given instant.
func (h *SessionHolder) Authenticated(now time.Time) bool {
	session := h.Current()
	return session != nil && !session.Expired(now)
}

// SessionFromToken builds a session around a freshly issued JWT. The
// expiry claim is read without verifying the signature; the server
// verifies for real on every request. Tokens without a readable expiry
// yield a zero ExpiresAt and are trusted until the server rejects them.
func SessionFromToken(email, token, deviceID string, now time.Time) *domain.Session {
	session := &domain.Session{
		Email:     email,
		Token:     token,
		DeviceID:  deviceID,
		UpdatedAt: now.UTC(),
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return session
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		session.ExpiresAt = exp.Time.UTC()
	}
	return session
}
