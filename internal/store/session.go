package store

import (
	"context"

	"github.com/wordvault/wordvault/internal/domain"
)

// SessionStore persists the device's sync server session. At most one
// session exists at a time; logging in replaces it, logging out clears
// it.
type SessionStore interface {
	// Get retrieves the current session.
	// Returns ErrNotFound when the device is signed out.
	Get(ctx context.Context) (*domain.Session, error)

	// Put replaces the current session.
	Put(ctx context.Context, session *domain.Session) error

	// Clear removes the session.
	Clear(ctx context.Context) error
}

// DeckSessionStore persists the in-progress practice deck. Like
// SessionStore it holds at most one record.
type DeckSessionStore interface {
	// Get retrieves the saved deck.
	// Returns ErrNotFound when no deck is in progress.
	Get(ctx context.Context) (*domain.DeckSession, error)

	// Put replaces the saved deck.
	Put(ctx context.Context, session *domain.DeckSession) error

	// Clear removes the saved deck.
	Clear(ctx context.Context) error
}

// BlacklistStore persists the words the learner opted out of tracking.
type BlacklistStore interface {
	// Get retrieves the blacklist entry for a word.
	// Returns ErrNotFound if the word is not blacklisted.
	Get(ctx context.Context, word string) (*domain.BlacklistEntry, error)

	// GetAll retrieves every blacklisted word.
	GetAll(ctx context.Context) ([]*domain.BlacklistEntry, error)

	// Put upserts the entry keyed by its Word.
	Put(ctx context.Context, entry *domain.BlacklistEntry) error

	// Delete removes the entry for a word.
	// Deleting an absent word is not an error.
	Delete(ctx context.Context, word string) error

	// Clear removes every record in the collection.
	Clear(ctx context.Context) error
}
