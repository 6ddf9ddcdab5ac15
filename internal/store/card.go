package store

import (
	"context"

	"github.com/wordvault/wordvault/internal/domain"
)

// CardStore defines the interface for flashcard progress persistence.
type CardStore interface {
	// Get retrieves the progress for a word.
	// Returns ErrCardNotFound if the word has no flashcard yet.
	Get(ctx context.Context, word string) (*domain.CardProgress, error)

	// GetAll retrieves every card's progress, in no particular order.
	GetAll(ctx context.Context) ([]*domain.CardProgress, error)

	// Put upserts the progress keyed by its Word.
	Put(ctx context.Context, progress *domain.CardProgress) error

	// Delete removes the progress for a word.
	// Deleting an absent word is not an error.
	Delete(ctx context.Context, word string) error

	// Clear removes every record in the collection.
	Clear(ctx context.Context) error
}
