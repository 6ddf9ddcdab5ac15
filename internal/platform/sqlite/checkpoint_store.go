package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/platform/logger"
	"github.com/wordvault/wordvault/internal/store"
)

// SQLiteCheckpointStore implements the store.CheckpointStore interface
// using the local SQLite database as the storage backend.
type SQLiteCheckpointStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewSQLiteCheckpointStore creates a new SQLite implementation of the CheckpointStore interface.
// If logger is nil, a default logger will be used.
func NewSQLiteCheckpointStore(db *sqlx.DB, logger *slog.Logger) *SQLiteCheckpointStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SQLiteCheckpointStore{
		db:     db,
		logger: logger.With(slog.String("component", "checkpoint_store")),
	}
}

// Ensure SQLiteCheckpointStore implements store.CheckpointStore interface
var _ store.CheckpointStore = (*SQLiteCheckpointStore)(nil)

// Get implements store.CheckpointStore.Get
// Returns store.ErrCheckpointNotFound if the collection has never synced.
func (s *SQLiteCheckpointStore) Get(ctx context.Context, collection string) (*domain.SyncCheckpoint, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT collection, watermark, updated_at
		FROM sync_checkpoints
		WHERE collection = ?
	`

	var row checkpointRow
	err := s.db.GetContext(ctx, &row, query, collection)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCheckpointNotFound
		}
		log.Error("failed to get sync checkpoint",
			slog.String("error", err.Error()),
			slog.String("collection", collection))
		return nil, err
	}

	return row.toDomain(), nil
}

// Put implements store.CheckpointStore.Put
func (s *SQLiteCheckpointStore) Put(ctx context.Context, checkpoint *domain.SyncCheckpoint) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO sync_checkpoints (collection, watermark, updated_at)
		VALUES (:collection, :watermark, :updated_at)
		ON CONFLICT (collection) DO UPDATE SET
			watermark  = excluded.watermark,
			updated_at = excluded.updated_at
	`

	row := &checkpointRow{
		Collection: checkpoint.Collection,
		Watermark:  toMillis(checkpoint.Watermark),
		UpdatedAt:  toMillis(checkpoint.UpdatedAt),
	}

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		log.Error("failed to put sync checkpoint",
			slog.String("error", err.Error()),
			slog.String("collection", checkpoint.Collection))
		return err
	}

	log.Debug("sync checkpoint stored",
		slog.String("collection", checkpoint.Collection),
		slog.Time("watermark", checkpoint.Watermark))
	return nil
}

// Delete implements store.CheckpointStore.Delete
// Deleting an absent checkpoint is not an error.
func (s *SQLiteCheckpointStore) Delete(ctx context.Context, collection string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.db.ExecContext(ctx, `DELETE FROM sync_checkpoints WHERE collection = ?`, collection); err != nil {
		log.Error("failed to delete sync checkpoint",
			slog.String("error", err.Error()),
			slog.String("collection", collection))
		return err
	}

	return nil
}

// Clear implements store.CheckpointStore.Clear
func (s *SQLiteCheckpointStore) Clear(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.db.ExecContext(ctx, `DELETE FROM sync_checkpoints`); err != nil {
		log.Error("failed to clear sync checkpoints", slog.String("error", err.Error()))
		return err
	}

	log.Debug("sync checkpoints cleared")
	return nil
}

type checkpointRow struct {
	Collection string `db:"collection"`
	Watermark  int64  `db:"watermark"`
	UpdatedAt  int64  `db:"updated_at"`
}

func (r *checkpointRow) toDomain() *domain.SyncCheckpoint {
	return &domain.SyncCheckpoint{
		Collection: r.Collection,
		Watermark:  fromMillis(r.Watermark),
		UpdatedAt:  fromMillis(r.UpdatedAt),
	}
}
