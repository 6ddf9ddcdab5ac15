package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SyncRecord is one synced row as the server stores it: a JSON payload
// keyed by (user, collection, word), stamped with the server's clock on
// every write. Payloads are opaque to the HTTP layer but not to the
// store, which decodes them just enough to apply the same
// non-destructive merge comparisons devices use.
type SyncRecord struct {
	UserID     uuid.UUID       `db:"user_id"     json:"-"`
	Collection string          `db:"collection"  json:"-"`
	Word       string          `db:"word"        json:"word"`
	Payload    json.RawMessage `db:"payload"     json:"payload"`
	UpdatedAt  time.Time       `db:"updated_at"  json:"updated_at"`
}

// RecordStore defines the interface for the server's synced record
// tables.
type RecordStore interface {
	// GetAll retrieves every record a user owns in one collection,
	// ordered by ascending UpdatedAt.
	GetAll(ctx context.Context, userID uuid.UUID, collection string) ([]SyncRecord, error)

	// GetSince retrieves the user's records in one collection whose
	// UpdatedAt is strictly after since, ordered by ascending UpdatedAt.
	GetSince(ctx context.Context, userID uuid.UUID, collection string, since time.Time) ([]SyncRecord, error)

	// Upsert writes a batch of records for one user and collection.
	// Each incoming row is merged against any stored row with the same
	// word: lookup counts never go down, review progress never moves
	// backward. Rows that lose the comparison leave the stored row
	// untouched. The whole batch runs in a single transaction and every
	// written row carries the returned server timestamp.
	Upsert(ctx context.Context, userID uuid.UUID, collection string, records []SyncRecord) (time.Time, error)

	// Delete removes one record. Deleting an absent word is not an
	// error.
	Delete(ctx context.Context, userID uuid.UUID, collection, word string) error

	// Count returns how many records the user has in one collection.
	Count(ctx context.Context, userID uuid.UUID, collection string) (int64, error)
}
