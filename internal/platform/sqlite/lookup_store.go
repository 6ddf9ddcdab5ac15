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

// SQLiteLookupStore implements the store.LookupStore interface
// using the local SQLite database as the storage backend.
type SQLiteLookupStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewSQLiteLookupStore creates a new SQLite implementation of the LookupStore interface.
// It accepts a database handle that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewSQLiteLookupStore(db *sqlx.DB, logger *slog.Logger) *SQLiteLookupStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SQLiteLookupStore{
		db:     db,
		logger: logger.With(slog.String("component", "lookup_store")),
	}
}

// Ensure SQLiteLookupStore implements store.LookupStore interface
var _ store.LookupStore = (*SQLiteLookupStore)(nil)

// Get implements store.LookupStore.Get
// It retrieves the lookup record for a word.
// Returns store.ErrLookupNotFound if the word has never been looked up.
func (s *SQLiteLookupStore) Get(ctx context.Context, word string) (*domain.LookupRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT word, count, lookups, contexts, updated_at
		FROM word_history
		WHERE word = ?
	`

	var row lookupRow
	err := s.db.GetContext(ctx, &row, query, domain.NormalizeWord(word))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrLookupNotFound
		}
		log.Error("failed to get lookup record",
			slog.String("error", err.Error()),
			slog.String("word", word))
		return nil, err
	}

	return row.toDomain()
}

// GetAll implements store.LookupStore.GetAll
// It retrieves every lookup record. Returns an empty slice when the
// collection is empty.
func (s *SQLiteLookupStore) GetAll(ctx context.Context) ([]*domain.LookupRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT word, count, lookups, contexts, updated_at
		FROM word_history
	`

	var rows []lookupRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		log.Error("failed to list lookup records", slog.String("error", err.Error()))
		return nil, err
	}

	records := make([]*domain.LookupRecord, 0, len(rows))
	for i := range rows {
		record, err := rows[i].toDomain()
		if err != nil {
			log.Error("failed to decode lookup record",
				slog.String("error", err.Error()),
				slog.String("word", rows[i].Word))
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

// Put implements store.LookupStore.Put
// It upserts the record keyed by its word. The write is a single
// statement, so concurrent puts of the same word serialize and the last
// writer's record lands whole.
func (s *SQLiteLookupStore) Put(ctx context.Context, record *domain.LookupRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := record.Validate(); err != nil {
		log.Warn("lookup record validation failed during put",
			slog.String("error", err.Error()),
			slog.String("word", record.Word))
		return err
	}

	row, err := lookupRowFromDomain(record)
	if err != nil {
		log.Error("failed to encode lookup record",
			slog.String("error", err.Error()),
			slog.String("word", record.Word))
		return err
	}

	query := `
		INSERT INTO word_history (word, count, lookups, contexts, updated_at)
		VALUES (:word, :count, :lookups, :contexts, :updated_at)
		ON CONFLICT (word) DO UPDATE SET
			count      = excluded.count,
			lookups    = excluded.lookups,
			contexts   = excluded.contexts,
			updated_at = excluded.updated_at
	`

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		log.Error("failed to put lookup record",
			slog.String("error", err.Error()),
			slog.String("word", record.Word))
		return err
	}

	log.Debug("lookup record stored",
		slog.String("word", record.Word),
		slog.Int64("count", record.Count))
	return nil
}

// Delete implements store.LookupStore.Delete
// Deleting an absent word is not an error.
func (s *SQLiteLookupStore) Delete(ctx context.Context, word string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM word_history WHERE word = ?`

	if _, err := s.db.ExecContext(ctx, query, domain.NormalizeWord(word)); err != nil {
		log.Error("failed to delete lookup record",
			slog.String("error", err.Error()),
			slog.String("word", word))
		return err
	}

	return nil
}

// Clear implements store.LookupStore.Clear
func (s *SQLiteLookupStore) Clear(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.db.ExecContext(ctx, `DELETE FROM word_history`); err != nil {
		log.Error("failed to clear lookup records", slog.String("error", err.Error()))
		return err
	}

	log.Debug("lookup records cleared")
	return nil
}

// lookupRow is the database shape of a lookup record. Lookup timestamps
// and contexts are JSON-encoded TEXT columns.
type lookupRow struct {
	Word      string `db:"word"`
	Count     int64  `db:"count"`
	Lookups   string `db:"lookups"`
	Contexts  string `db:"contexts"`
	UpdatedAt int64  `db:"updated_at"`
}

func lookupRowFromDomain(record *domain.LookupRecord) (*lookupRow, error) {
	lookups, err := marshalMillisSlice(record.Lookups)
	if err != nil {
		return nil, err
	}
	contexts, err := marshalStringSlice(record.Contexts)
	if err != nil {
		return nil, err
	}
	return &lookupRow{
		Word:      record.Word,
		Count:     record.Count,
		Lookups:   lookups,
		Contexts:  contexts,
		UpdatedAt: toMillis(record.UpdatedAt),
	}, nil
}

func (r *lookupRow) toDomain() (*domain.LookupRecord, error) {
	lookups, err := unmarshalMillisSlice(r.Lookups)
	if err != nil {
		return nil, err
	}
	contexts, err := unmarshalStringSlice(r.Contexts)
	if err != nil {
		return nil, err
	}
	return &domain.LookupRecord{
		Word:      r.Word,
		Count:     r.Count,
		Lookups:   lookups,
		Contexts:  contexts,
		UpdatedAt: fromMillis(r.UpdatedAt),
	}, nil
}
