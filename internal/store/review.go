package store

import (
	"context"

	"github.com/wordvault/wordvault/internal/domain"
)

// ReviewStore defines the interface for review queue persistence.
// A word appears at most once in the queue regardless of its state.
type ReviewStore interface {
	// Get retrieves the queue entry for a word.
	// Returns ErrReviewNotFound if the word is not queued.
	Get(ctx context.Context, word string) (*domain.ReviewEntry, error)

	// GetAll retrieves every queue entry across all states.
	GetAll(ctx context.Context) ([]*domain.ReviewEntry, error)

	// GetByState retrieves the entries currently in one state.
	GetByState(ctx context.Context, state domain.ReviewState) ([]*domain.ReviewEntry, error)

	// Put upserts the entry keyed by its Word.
	Put(ctx context.Context, entry *domain.ReviewEntry) error

	// Delete removes the entry for a word.
	// Deleting an absent word is not an error.
	Delete(ctx context.Context, word string) error

	// Clear removes every record in the collection.
	Clear(ctx context.Context) error
}
