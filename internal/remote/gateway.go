package remote

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Gateway errors. ErrNetwork covers transport failures and server-side
// 5xx responses, which are transient; the caller leaves its checkpoints
// untouched and retries on the next cycle.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNetwork          = errors.New("network error")
)

// Record is one synced entry on the wire: the word key, the
// collection-specific payload, and the server-assigned update instant.
type Record struct {
	Word      string          `json:"word"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Gateway is the sync coordinator's view of the server. All methods
// require a session and return ErrNotAuthenticated without one.
type Gateway interface {
	// FetchAll retrieves every record of a collection.
	FetchAll(ctx context.Context, collection string) ([]Record, error)

	// FetchSince retrieves the records updated strictly after since,
	// along with the newest updated_at the server has for the
	// collection (zero when it returned nothing).
	FetchSince(ctx context.Context, collection string, since time.Time) ([]Record, time.Time, error)

	// UpsertBatch uploads a batch of records. The server assigns
	// updated_at and applies its non-destructive merge rules.
	UpsertBatch(ctx context.Context, collection string, records []Record) error

	// Delete removes one record. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, collection, key string) error

	// Count returns how many records the server holds for the
	// collection.
	Count(ctx context.Context, collection string) (int64, error)
}
