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

// SQLiteDeckSessionStore implements the store.DeckSessionStore
// interface. Like the session store it keeps at most one row.
type SQLiteDeckSessionStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewSQLiteDeckSessionStore creates a new SQLite implementation of the DeckSessionStore interface.
// If logger is nil, a default logger will be used.
func NewSQLiteDeckSessionStore(db *sqlx.DB, logger *slog.Logger) *SQLiteDeckSessionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SQLiteDeckSessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "deck_session_store")),
	}
}

// Ensure SQLiteDeckSessionStore implements store.DeckSessionStore interface
var _ store.DeckSessionStore = (*SQLiteDeckSessionStore)(nil)

// Get implements store.DeckSessionStore.Get
// Returns store.ErrNotFound when no deck is in progress.
func (s *SQLiteDeckSessionStore) Get(ctx context.Context) (*domain.DeckSession, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT words, position, started_at, updated_at
		FROM flashcard_session
		WHERE id = 1
	`

	var row deckSessionRow
	err := s.db.GetContext(ctx, &row, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no deck session", store.ErrNotFound)
		}
		log.Error("failed to get deck session", slog.String("error", err.Error()))
		return nil, err
	}

	return row.toDomain()
}

// Put implements store.DeckSessionStore.Put
func (s *SQLiteDeckSessionStore) Put(ctx context.Context, session *domain.DeckSession) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	words, err := marshalStringSlice(session.Words)
	if err != nil {
		log.Error("failed to encode deck session", slog.String("error", err.Error()))
		return err
	}

	query := `
		INSERT INTO flashcard_session (id, words, position, started_at, updated_at)
		VALUES (1, :words, :position, :started_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			words      = excluded.words,
			position   = excluded.position,
			started_at = excluded.started_at,
			updated_at = excluded.updated_at
	`

	row := &deckSessionRow{
		Words:     words,
		Position:  session.Position,
		StartedAt: toMillis(session.StartedAt),
		UpdatedAt: toMillis(session.UpdatedAt),
	}

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		log.Error("failed to put deck session", slog.String("error", err.Error()))
		return err
	}

	log.Debug("deck session stored",
		slog.Int("words", len(session.Words)),
		slog.Int("position", session.Position))
	return nil
}

// Clear implements store.DeckSessionStore.Clear
func (s *SQLiteDeckSessionStore) Clear(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.db.ExecContext(ctx, `DELETE FROM flashcard_session`); err != nil {
		log.Error("failed to clear deck session", slog.String("error", err.Error()))
		return err
	}

	return nil
}

type deckSessionRow struct {
	Words     string `db:"words"`
	Position  int    `db:"position"`
	StartedAt int64  `db:"started_at"`
	UpdatedAt int64  `db:"updated_at"`
}

func (r *deckSessionRow) toDomain() (*domain.DeckSession, error) {
	words, err := unmarshalStringSlice(r.Words)
	if err != nil {
		return nil, err
	}
	return &domain.DeckSession{
		Words:     words,
		Position:  r.Position,
		StartedAt: fromMillis(r.StartedAt),
		UpdatedAt: fromMillis(r.UpdatedAt),
	}, nil
}
