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

// SQLiteCardStore implements the store.CardStore interface
// using the local SQLite database as the storage backend.
type SQLiteCardStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewSQLiteCardStore creates a new SQLite implementation of the CardStore interface.
// It accepts a database handle that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewSQLiteCardStore(db *sqlx.DB, logger *slog.Logger) *SQLiteCardStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SQLiteCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// Ensure SQLiteCardStore implements store.CardStore interface
var _ store.CardStore = (*SQLiteCardStore)(nil)

// Get implements store.CardStore.Get
// Returns store.ErrCardNotFound if the word has no flashcard yet.
func (s *SQLiteCardStore) Get(ctx context.Context, word string) (*domain.CardProgress, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT word, mastery_level, ease_factor, review_count,
		       last_reviewed_at, next_review_at, context, updated_at
		FROM flashcard_progress
		WHERE word = ?
	`

	var row cardRow
	err := s.db.GetContext(ctx, &row, query, domain.NormalizeWord(word))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCardNotFound
		}
		log.Error("failed to get card progress",
			slog.String("error", err.Error()),
			slog.String("word", word))
		return nil, err
	}

	return row.toDomain(), nil
}

// GetAll implements store.CardStore.GetAll
// Returns an empty slice when no cards exist.
func (s *SQLiteCardStore) GetAll(ctx context.Context) ([]*domain.CardProgress, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT word, mastery_level, ease_factor, review_count,
		       last_reviewed_at, next_review_at, context, updated_at
		FROM flashcard_progress
	`

	var rows []cardRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		log.Error("failed to list card progress", slog.String("error", err.Error()))
		return nil, err
	}

	cards := make([]*domain.CardProgress, 0, len(rows))
	for i := range rows {
		cards = append(cards, rows[i].toDomain())
	}

	return cards, nil
}

// Put implements store.CardStore.Put
func (s *SQLiteCardStore) Put(ctx context.Context, progress *domain.CardProgress) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := progress.Validate(); err != nil {
		log.Warn("card progress validation failed during put",
			slog.String("error", err.Error()),
			slog.String("word", progress.Word))
		return err
	}

	query := `
		INSERT INTO flashcard_progress (word, mastery_level, ease_factor, review_count,
		                                last_reviewed_at, next_review_at, context, updated_at)
		VALUES (:word, :mastery_level, :ease_factor, :review_count,
		        :last_reviewed_at, :next_review_at, :context, :updated_at)
		ON CONFLICT (word) DO UPDATE SET
			mastery_level    = excluded.mastery_level,
			ease_factor      = excluded.ease_factor,
			review_count     = excluded.review_count,
			last_reviewed_at = excluded.last_reviewed_at,
			next_review_at   = excluded.next_review_at,
			context          = excluded.context,
			updated_at       = excluded.updated_at
	`

	if _, err := s.db.NamedExecContext(ctx, query, cardRowFromDomain(progress)); err != nil {
		log.Error("failed to put card progress",
			slog.String("error", err.Error()),
			slog.String("word", progress.Word))
		return err
	}

	log.Debug("card progress stored",
		slog.String("word", progress.Word),
		slog.Int("mastery_level", progress.MasteryLevel))
	return nil
}

// Delete implements store.CardStore.Delete
// Deleting an absent word is not an error.
func (s *SQLiteCardStore) Delete(ctx context.Context, word string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM flashcard_progress WHERE word = ?`

	if _, err := s.db.ExecContext(ctx, query, domain.NormalizeWord(word)); err != nil {
		log.Error("failed to delete card progress",
			slog.String("error", err.Error()),
			slog.String("word", word))
		return err
	}

	return nil
}

// Clear implements store.CardStore.Clear
func (s *SQLiteCardStore) Clear(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.db.ExecContext(ctx, `DELETE FROM flashcard_progress`); err != nil {
		log.Error("failed to clear card progress", slog.String("error", err.Error()))
		return err
	}

	log.Debug("card progress cleared")
	return nil
}

// cardRow is the database shape of a card's scheduling state. A NULL
// last_reviewed_at marks a card that has never been reviewed.
type cardRow struct {
	Word           string        `db:"word"`
	MasteryLevel   int           `db:"mastery_level"`
	EaseFactor     float64       `db:"ease_factor"`
	ReviewCount    int64         `db:"review_count"`
	LastReviewedAt sql.NullInt64 `db:"last_reviewed_at"`
	NextReviewAt   int64         `db:"next_review_at"`
	Context        string        `db:"context"`
	UpdatedAt      int64         `db:"updated_at"`
}

func cardRowFromDomain(progress *domain.CardProgress) *cardRow {
	return &cardRow{
		Word:           progress.Word,
		MasteryLevel:   progress.MasteryLevel,
		EaseFactor:     progress.EaseFactor,
		ReviewCount:    progress.ReviewCount,
		LastReviewedAt: toNullMillis(progress.LastReviewedAt),
		NextReviewAt:   toMillis(progress.NextReviewAt),
		Context:        progress.Context,
		UpdatedAt:      toMillis(progress.UpdatedAt),
	}
}

func (r *cardRow) toDomain() *domain.CardProgress {
	return &domain.CardProgress{
		Word:           r.Word,
		MasteryLevel:   r.MasteryLevel,
		EaseFactor:     r.EaseFactor,
		ReviewCount:    r.ReviewCount,
		LastReviewedAt: fromNullMillis(r.LastReviewedAt),
		NextReviewAt:   fromMillis(r.NextReviewAt),
		Context:        r.Context,
		UpdatedAt:      fromMillis(r.UpdatedAt),
	}
}
