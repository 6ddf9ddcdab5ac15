package store

import (
	"context"

	"github.com/wordvault/wordvault/internal/domain"
)

// LookupStore defines the interface for word lookup record persistence.
type LookupStore interface {
	// Get retrieves the lookup record for a word.
	// The word must already be normalized (lowercased, trimmed).
	// Returns ErrLookupNotFound if the word has never been looked up.
	Get(ctx context.Context, word string) (*domain.LookupRecord, error)

	// GetAll retrieves every lookup record, in no particular order.
	GetAll(ctx context.Context) ([]*domain.LookupRecord, error)

	// Put upserts the record keyed by its Word. The write is atomic:
	// concurrent puts of the same word serialize, and the last one wins
	// in full, never a torn mix of two records.
	Put(ctx context.Context, record *domain.LookupRecord) error

	// Delete removes the record for a word.
	// Deleting an absent word is not an error.
	Delete(ctx context.Context, word string) error

	// Clear removes every record in the collection.
	Clear(ctx context.Context) error
}
