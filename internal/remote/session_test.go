package remote

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordvault/wordvault/internal/domain"
)

// signedToken builds a real JWT for expiry-extraction tests. The
// signing key is irrelevant; the client never verifies it.
func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   "learner@example.com",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-key"))
	require.NoError(t, err)
	return signed
}

func TestSessionFromToken(t *testing.T) {
	t.Parallel() // Enable parallel testing

	now := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Reads expiry from the token", func(t *testing.T) {
		t.Parallel() // Enable parallel subtests

		expiry := now.Add(24 * time.Hour)
		session := SessionFromToken("learner@example.com", signedToken(t, expiry), "device-1", now)

		assert.Equal(t, "learner@example.com", session.Email)
		assert.Equal(t, "device-1", session.DeviceID)
		assert.True(t, session.ExpiresAt.Equal(expiry.Truncate(time.Second)),
			"expiry should come from the exp claim")
		assert.False(t, session.Expired(now))
		assert.True(t, session.Expired(expiry.Add(time.Minute)))
	})

	t.Run("Opaque token yields zero expiry", func(t *testing.T) {
		t.Parallel() // Enable parallel subtests

		session := SessionFromToken("learner@example.com", "not-a-jwt", "device-1", now)

		assert.Equal(t, "not-a-jwt", session.Token)
		assert.True(t, session.ExpiresAt.IsZero())
		assert.False(t, session.Expired(now.Add(1000*time.Hour)),
			"sessions without expiry are trusted until the server rejects them")
	})
}

func TestSessionHolder(t *testing.T) {
	t.Parallel() // Enable parallel testing

	now := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Starts signed out", func(t *testing.T) {
		t.Parallel() // Enable parallel subtests

		holder := NewSessionHolder()
		assert.Nil(t, holder.Current())
		assert.False(t, holder.Authenticated(now))
	})

	t.Run("Current returns a copy", func(t *testing.T) {
		t.Parallel() // Enable parallel subtests

		holder := NewSessionHolder()
		holder.Set(&domain.Session{Email: "a@example.com", Token: "tok"})

		got := holder.Current()
		require.NotNil(t, got)
		got.Token = "mutated"

		assert.Equal(t, "tok", holder.Current().Token, "mutating the copy must not affect the holder")
	})

	t.Run("Clear signs out", func(t *testing.T) {
		t.Parallel() // Enable parallel subtests

		holder := NewSessionHolder()
		holder.Set(&domain.Session{Email: "a@example.com", Token: "tok"})
		require.True(t, holder.Authenticated(now))

		holder.Clear()
		assert.Nil(t, holder.Current())
		assert.False(t, holder.Authenticated(now))
	})

	t.Run("Expired session is not authenticated", func(t *testing.T) {
		t.Parallel() // Enable parallel subtests

		holder := NewSessionHolder()
		holder.Set(&domain.Session{
			Email:     "a@example.com",
			Token:     "tok",
			ExpiresAt: now.Add(-time.Minute),
		})
		assert.False(t, holder.Authenticated(now))
	})
}
