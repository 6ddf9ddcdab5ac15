package store

import (
	"context"

	"github.com/wordvault/wordvault/internal/domain"
)

// CheckpointStore defines the interface for sync watermark persistence.
// Checkpoints are keyed by collection name rather than by word.
type CheckpointStore interface {
	// Get retrieves the checkpoint for a collection.
	// Returns ErrCheckpointNotFound if the collection has never synced.
	Get(ctx context.Context, collection string) (*domain.SyncCheckpoint, error)

	// Put upserts the checkpoint keyed by its Collection.
	Put(ctx context.Context, checkpoint *domain.SyncCheckpoint) error

	// Delete removes the checkpoint for a collection, forcing the next
	// sync of that collection to run as a full download.
	Delete(ctx context.Context, collection string) error

	// Clear removes every checkpoint. Used when cloud sync is disabled.
	Clear(ctx context.Context) error
}
