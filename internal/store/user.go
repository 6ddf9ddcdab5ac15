package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/wordvault/wordvault/internal/domain"
)

// UserStore defines the interface for sync server account persistence.
type UserStore interface {
	// Create saves a new user to the store.
	// The caller must have hashed the password already; a user arriving
	// here with only a plaintext password is a programming error.
	// Returns ErrEmailExists if the email is already taken.
	// Returns validation errors from the domain User if data is invalid.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Delete removes a user and, through cascading deletes, every synced
	// record they own. Returns ErrUserNotFound if the user does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}
