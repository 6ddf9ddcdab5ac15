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

// Each review state is backed by its own table. The tables share one
// column set, so moving a word between states is a delete plus an
// insert and no field is lost on the way through.
var reviewTables = map[domain.ReviewState]string{
	domain.ReviewStatePending:   "review_pending",
	domain.ReviewStateReviewing: "review_progress",
	domain.ReviewStateMastered:  "review_mastered",
}

func tableForState(state domain.ReviewState) (string, error) {
	table, ok := reviewTables[state]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidReviewState, state)
	}
	return table, nil
}

// SQLiteReviewStore implements the store.ReviewStore interface
// using the local SQLite database as the storage backend.
type SQLiteReviewStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewSQLiteReviewStore creates a new SQLite implementation of the ReviewStore interface.
// It accepts a database handle that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewSQLiteReviewStore(db *sqlx.DB, logger *slog.Logger) *SQLiteReviewStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SQLiteReviewStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_store")),
	}
}

// Ensure SQLiteReviewStore implements store.ReviewStore interface
var _ store.ReviewStore = (*SQLiteReviewStore)(nil)

// unionQuery selects across all three state tables, tagging each row
// with the state its table represents.
const unionQuery = `
	SELECT word, 'pending' AS state, added_at, stage, next_review_at, last_used_at, mastered_at, updated_at
	FROM review_pending %[1]s
	UNION ALL
	SELECT word, 'reviewing' AS state, added_at, stage, next_review_at, last_used_at, mastered_at, updated_at
	FROM review_progress %[1]s
	UNION ALL
	SELECT word, 'mastered' AS state, added_at, stage, next_review_at, last_used_at, mastered_at, updated_at
	FROM review_mastered %[1]s
`

// Get implements store.ReviewStore.Get
// Returns store.ErrReviewNotFound if the word is not queued in any state.
func (s *SQLiteReviewStore) Get(ctx context.Context, word string) (*domain.ReviewEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := fmt.Sprintf(unionQuery, "WHERE word = ?")
	key := domain.NormalizeWord(word)

	var row reviewRow
	err := s.db.GetContext(ctx, &row, query, key, key, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrReviewNotFound
		}
		log.Error("failed to get review entry",
			slog.String("error", err.Error()),
			slog.String("word", word))
		return nil, err
	}

	return row.toDomain(), nil
}

// GetAll implements store.ReviewStore.GetAll
// It retrieves the entries of all three states. Returns an empty slice
// when the queue is empty.
func (s *SQLiteReviewStore) GetAll(ctx context.Context) ([]*domain.ReviewEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := fmt.Sprintf(unionQuery, "")

	var rows []reviewRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		log.Error("failed to list review entries", slog.String("error", err.Error()))
		return nil, err
	}

	entries := make([]*domain.ReviewEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].toDomain())
	}

	return entries, nil
}

// GetByState implements store.ReviewStore.GetByState
// Returns an empty slice when no entry is in the state.
func (s *SQLiteReviewStore) GetByState(ctx context.Context, state domain.ReviewState) ([]*domain.ReviewEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	table, err := tableForState(state)
	if err != nil {
		log.Warn("invalid review state requested", slog.String("state", string(state)))
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT word, added_at, stage, next_review_at, last_used_at, mastered_at, updated_at
		FROM %s
	`, table)

	var rows []reviewRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		log.Error("failed to list review entries by state",
			slog.String("error", err.Error()),
			slog.String("state", string(state)))
		return nil, err
	}

	entries := make([]*domain.ReviewEntry, 0, len(rows))
	for i := range rows {
		rows[i].State = string(state)
		entries = append(entries, rows[i].toDomain())
	}

	return entries, nil
}

// Put implements store.ReviewStore.Put
// The entry is removed from whichever state table currently holds it and
// inserted into the table matching its State, all in one transaction, so
// a word never appears in two states at once.
func (s *SQLiteReviewStore) Put(ctx context.Context, entry *domain.ReviewEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entry.Validate(); err != nil {
		log.Warn("review entry validation failed during put",
			slog.String("error", err.Error()),
			slog.String("word", entry.Word))
		return err
	}

	table, err := tableForState(entry.State)
	if err != nil {
		return err
	}

	row := reviewRowFromDomain(entry)

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		for _, t := range reviewTables {
			if t == table {
				continue
			}
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE word = ?`, t), entry.Word); err != nil {
				return fmt.Errorf("remove %s from %s: %w", entry.Word, t, err)
			}
		}

		query := fmt.Sprintf(`
			INSERT INTO %s (word, added_at, stage, next_review_at, last_used_at, mastered_at, updated_at)
			VALUES (:word, :added_at, :stage, :next_review_at, :last_used_at, :mastered_at, :updated_at)
			ON CONFLICT (word) DO UPDATE SET
				added_at       = excluded.added_at,
				stage          = excluded.stage,
				next_review_at = excluded.next_review_at,
				last_used_at   = excluded.last_used_at,
				mastered_at    = excluded.mastered_at,
				updated_at     = excluded.updated_at
		`, table)

		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("insert %s into %s: %w", entry.Word, table, err)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to put review entry",
			slog.String("error", err.Error()),
			slog.String("word", entry.Word),
			slog.String("state", string(entry.State)))
		return err
	}

	log.Debug("review entry stored",
		slog.String("word", entry.Word),
		slog.String("state", string(entry.State)),
		slog.Int("stage", entry.Stage))
	return nil
}

// Delete implements store.ReviewStore.Delete
// The word is removed from every state table. Deleting an absent word
// is not an error.
func (s *SQLiteReviewStore) Delete(ctx context.Context, word string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	key := domain.NormalizeWord(word)
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		for _, table := range reviewTables {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE word = ?`, table), key); err != nil {
				return fmt.Errorf("delete from %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to delete review entry",
			slog.String("error", err.Error()),
			slog.String("word", word))
		return err
	}

	return nil
}

// Clear implements store.ReviewStore.Clear
func (s *SQLiteReviewStore) Clear(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		for _, table := range reviewTables {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to clear review entries", slog.String("error", err.Error()))
		return err
	}

	log.Debug("review entries cleared")
	return nil
}

// reviewRow is the database shape of a review queue entry. State is not
// a column of the state tables; union queries synthesize it and
// GetByState fills it in from the table that was read.
type reviewRow struct {
	Word         string        `db:"word"`
	State        string        `db:"state"`
	AddedAt      int64         `db:"added_at"`
	Stage        int           `db:"stage"`
	NextReviewAt sql.NullInt64 `db:"next_review_at"`
	LastUsedAt   sql.NullInt64 `db:"last_used_at"`
	MasteredAt   sql.NullInt64 `db:"mastered_at"`
	UpdatedAt    int64         `db:"updated_at"`
}

func reviewRowFromDomain(entry *domain.ReviewEntry) *reviewRow {
	return &reviewRow{
		Word:         entry.Word,
		State:        string(entry.State),
		AddedAt:      toMillis(entry.AddedAt),
		Stage:        entry.Stage,
		NextReviewAt: toNullMillis(entry.NextReviewAt),
		LastUsedAt:   toNullMillis(entry.LastUsedAt),
		MasteredAt:   toNullMillis(entry.MasteredAt),
		UpdatedAt:    toMillis(entry.UpdatedAt),
	}
}

func (r *reviewRow) toDomain() *domain.ReviewEntry {
	return &domain.ReviewEntry{
		Word:         r.Word,
		State:        domain.ReviewState(r.State),
		AddedAt:      fromMillis(r.AddedAt),
		Stage:        r.Stage,
		NextReviewAt: fromNullMillis(r.NextReviewAt),
		LastUsedAt:   fromNullMillis(r.LastUsedAt),
		MasteredAt:   fromNullMillis(r.MasteredAt),
		UpdatedAt:    fromMillis(r.UpdatedAt),
	}
}
