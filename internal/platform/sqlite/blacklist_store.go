package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/platform/logger"
	"github.com/wordvault/wordvault/internal/store"
)

// SQLiteBlacklistStore implements the store.BlacklistStore interface
// using the local SQLite database as the storage backend.
type SQLiteBlacklistStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewSQLiteBlacklistStore creates a new SQLite implementation of the BlacklistStore interface.
// If logger is nil, a default logger will be used.
func NewSQLiteBlacklistStore(db *sqlx.DB, logger *slog.Logger) *SQLiteBlacklistStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SQLiteBlacklistStore{
		db:     db,
		logger: logger.With(slog.String("component", "blacklist_store")),
	}
}

// Ensure SQLiteBlacklistStore implements store.BlacklistStore interface
var _ store.BlacklistStore = (*SQLiteBlacklistStore)(nil)

// Get implements store.BlacklistStore.Get
// Returns store.ErrNotFound if the word is not blacklisted.
func (s *SQLiteBlacklistStore) Get(ctx context.Context, word string) (*domain.BlacklistEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT word, added_at FROM blacklist WHERE word = ?`

	var row blacklistRow
	err := s.db.GetContext(ctx, &row, query, domain.NormalizeWord(word))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: word %q not blacklisted", store.ErrNotFound, word)
		}
		log.Error("failed to get blacklist entry",
			slog.String("error", err.Error()),
			slog.String("word", word))
		return nil, err
	}

	return row.toDomain(), nil
}

// GetAll implements store.BlacklistStore.GetAll
// Returns an empty slice when the blacklist is empty.
func (s *SQLiteBlacklistStore) GetAll(ctx context.Context) ([]*domain.BlacklistEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var rows []blacklistRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT word, added_at FROM blacklist`); err != nil {
		log.Error("failed to list blacklist entries", slog.String("error", err.Error()))
		return nil, err
	}

	entries := make([]*domain.BlacklistEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].toDomain())
	}

	return entries, nil
}

// Put implements store.BlacklistStore.Put
func (s *SQLiteBlacklistStore) Put(ctx context.Context, entry *domain.BlacklistEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if entry.Word == "" {
		return domain.ErrEmptyWord
	}

	query := `
		INSERT INTO blacklist (word, added_at)
		VALUES (?, ?)
		ON CONFLICT (word) DO UPDATE SET added_at = excluded.added_at
	`

	if _, err := s.db.ExecContext(ctx, query, entry.Word, toMillis(entry.AddedAt)); err != nil {
		log.Error("failed to put blacklist entry",
			slog.String("error", err.Error()),
			slog.String("word", entry.Word))
		return err
	}

	log.Debug("blacklist entry stored", slog.String("word", entry.Word))
	return nil
}

// Delete implements store.BlacklistStore.Delete
// Deleting an absent word is not an error.
func (s *SQLiteBlacklistStore) Delete(ctx context.Context, word string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.db.ExecContext(ctx, `DELETE FROM blacklist WHERE word = ?`, domain.NormalizeWord(word)); err != nil {
		log.Error("failed to delete blacklist entry",
			slog.String("error", err.Error()),
			slog.String("word", word))
		return err
	}

	return nil
}

// Clear implements store.BlacklistStore.Clear
func (s *SQLiteBlacklistStore) Clear(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.db.ExecContext(ctx, `DELETE FROM blacklist`); err != nil {
		log.Error("failed to clear blacklist", slog.String("error", err.Error()))
		return err
	}

	return nil
}

type blacklistRow struct {
	Word    string `db:"word"`
	AddedAt int64  `db:"added_at"`
}

func (r *blacklistRow) toDomain() *domain.BlacklistEntry {
	return &domain.BlacklistEntry{
		Word:    r.Word,
		AddedAt: fromMillis(r.AddedAt),
	}
}
