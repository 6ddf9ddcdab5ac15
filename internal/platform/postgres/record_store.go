package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/platform/logger"
	"github.com/wordvault/wordvault/internal/store"
	cloudsync "github.com/wordvault/wordvault/internal/sync"
)

// PostgresRecordStore implements the store.RecordStore interface
// using a PostgreSQL database as the storage backend.
//
// Uploads are merged, not blindly overwritten: a device that has been
// offline for a month may push records far behind what another device
// already synced, and accepting them verbatim would erase progress.
// The comparisons mirror the ones devices apply when pulling.
type PostgresRecordStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresRecordStore creates a new PostgreSQL implementation of the
// RecordStore interface. It accepts a database handle that should be
// initialized and managed by the caller. If logger is nil, a default
// logger will be used.
func NewPostgresRecordStore(db *sqlx.DB, logger *slog.Logger) *PostgresRecordStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresRecordStore{
		db:     db,
		logger: logger.With(slog.String("component", "record_store")),
	}
}

// Ensure PostgresRecordStore implements store.RecordStore interface
var _ store.RecordStore = (*PostgresRecordStore)(nil)

// GetAll implements store.RecordStore.GetAll
func (s *PostgresRecordStore) GetAll(ctx context.Context, userID uuid.UUID, collection string) ([]store.SyncRecord, error) {
	query := `
		SELECT user_id, collection, word, payload, updated_at
		FROM sync_records
		WHERE user_id = $1 AND collection = $2
		ORDER BY updated_at ASC, word ASC
	`

	var records []store.SyncRecord
	if err := s.db.SelectContext(ctx, &records, query, userID, collection); err != nil {
		return nil, MapError(err)
	}
	return records, nil
}

// GetSince implements store.RecordStore.GetSince
func (s *PostgresRecordStore) GetSince(ctx context.Context, userID uuid.UUID, collection string, since time.Time) ([]store.SyncRecord, error) {
	query := `
		SELECT user_id, collection, word, payload, updated_at
		FROM sync_records
		WHERE user_id = $1 AND collection = $2 AND updated_at > $3
		ORDER BY updated_at ASC, word ASC
	`

	var records []store.SyncRecord
	if err := s.db.SelectContext(ctx, &records, query, userID, collection, since); err != nil {
		return nil, MapError(err)
	}
	return records, nil
}

// Upsert implements store.RecordStore.Upsert
// Each row is merged against the stored one inside a single
// transaction; rows that would move learning state backward are
// skipped. Every written row carries the returned timestamp.
func (s *PostgresRecordStore) Upsert(ctx context.Context, userID uuid.UUID, collection string, records []store.SyncRecord) (time.Time, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Postgres keeps microseconds; truncating here keeps the returned
	// stamp identical to what a later read sees.
	now := time.Now().UTC().Truncate(time.Microsecond)
	if len(records) == 0 {
		return now, nil
	}

	written, skipped := 0, 0
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		for _, rec := range records {
			if rec.Word == "" {
				return fmt.Errorf("%w: record has no word key", store.ErrInvalidEntity)
			}

			var existing json.RawMessage
			err := tx.QueryRowxContext(ctx, `
				SELECT payload FROM sync_records
				WHERE user_id = $1 AND collection = $2 AND word = $3
				FOR UPDATE
			`, userID, collection, rec.Word).Scan(&existing)

			payload := rec.Payload
			switch {
			case errors.Is(err, sql.ErrNoRows):
				// First time the server sees this word.
			case err != nil:
				return MapError(err)
			default:
				merged, changed, mergeErr := mergePayload(collection, existing, rec.Payload)
				if mergeErr != nil {
					return mergeErr
				}
				if !changed {
					skipped++
					continue
				}
				payload = merged
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO sync_records (user_id, collection, word, payload, updated_at)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (user_id, collection, word)
				DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
			`, userID, collection, rec.Word, payload, now)
			if err != nil {
				return MapError(err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		log.Error("record batch failed",
			slog.String("error", err.Error()),
			slog.String("collection", collection),
			slog.String("user_id", userID.String()))
		return time.Time{}, err
	}

	log.Info("record batch applied",
		slog.String("collection", collection),
		slog.String("user_id", userID.String()),
		slog.Int("written", written),
		slog.Int("skipped", skipped))
	return now, nil
}

// Delete implements store.RecordStore.Delete
// Deleting an absent word is not an error.
func (s *PostgresRecordStore) Delete(ctx context.Context, userID uuid.UUID, collection, word string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM sync_records
		WHERE user_id = $1 AND collection = $2 AND word = $3
	`, userID, collection, word)
	if err != nil {
		return MapError(err)
	}
	return nil
}

// Count implements store.RecordStore.Count
func (s *PostgresRecordStore) Count(ctx context.Context, userID uuid.UUID, collection string) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, `
		SELECT count(*) FROM sync_records
		WHERE user_id = $1 AND collection = $2
	`, userID, collection)
	if err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

// mergePayload decides what a stored payload becomes when an upload
// arrives for a word that already has a row. A corrupt stored payload
// never blocks an upload; a corrupt incoming one fails the batch so
// the device notices.
func mergePayload(collection string, existing, incoming json.RawMessage) (json.RawMessage, bool, error) {
	switch collection {
	case store.CollectionWords:
		var remote domain.LookupRecord
		if err := json.Unmarshal(incoming, &remote); err != nil {
			return nil, false, fmt.Errorf("%w: decode lookup payload: %v", store.ErrInvalidEntity, err)
		}
		var local domain.LookupRecord
		if err := json.Unmarshal(existing, &local); err != nil {
			return incoming, true, nil
		}
		merged, changed := cloudsync.MergeLookupRecords(&local, &remote, 0)
		if !changed {
			return existing, false, nil
		}
		out, err := json.Marshal(merged)
		if err != nil {
			return nil, false, fmt.Errorf("encode merged lookup payload: %w", err)
		}
		return out, true, nil

	case store.CollectionFlashcard:
		var remote domain.CardProgress
		if err := json.Unmarshal(incoming, &remote); err != nil {
			return nil, false, fmt.Errorf("%w: decode card payload: %v", store.ErrInvalidEntity, err)
		}
		var local domain.CardProgress
		if err := json.Unmarshal(existing, &local); err != nil {
			return incoming, true, nil
		}
		if cloudsync.ShouldAdoptCard(&local, &remote) {
			return incoming, true, nil
		}
		return existing, false, nil

	case store.CollectionReview:
		var remote domain.ReviewEntry
		if err := json.Unmarshal(incoming, &remote); err != nil {
			return nil, false, fmt.Errorf("%w: decode review payload: %v", store.ErrInvalidEntity, err)
		}
		var local domain.ReviewEntry
		if err := json.Unmarshal(existing, &local); err != nil {
			return incoming, true, nil
		}
		if cloudsync.ShouldAdoptReview(&local, &remote) {
			return incoming, true, nil
		}
		return existing, false, nil

	default:
		return nil, false, fmt.Errorf("%w: unknown collection %q", store.ErrInvalidEntity, collection)
	}
}
