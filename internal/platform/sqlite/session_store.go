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

// SQLiteSessionStore implements the store.SessionStore interface. The
// backing table holds at most one row; Put replaces it wholesale.
type SQLiteSessionStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewSQLiteSessionStore creates a new SQLite implementation of the SessionStore interface.
// If logger is nil, a default logger will be used.
func NewSQLiteSessionStore(db *sqlx.DB, logger *slog.Logger) *SQLiteSessionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SQLiteSessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

// Ensure SQLiteSessionStore implements store.SessionStore interface
var _ store.SessionStore = (*SQLiteSessionStore)(nil)

// Get implements store.SessionStore.Get
// Returns store.ErrNotFound when the device is signed out.
func (s *SQLiteSessionStore) Get(ctx context.Context) (*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT email, token, refresh_token, device_id, expires_at, updated_at
		FROM session_meta
		WHERE id = 1
	`

	var row sessionRow
	err := s.db.GetContext(ctx, &row, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no session", store.ErrNotFound)
		}
		log.Error("failed to get session", slog.String("error", err.Error()))
		return nil, err
	}

	return row.toDomain(), nil
}

// Put implements store.SessionStore.Put
func (s *SQLiteSessionStore) Put(ctx context.Context, session *domain.Session) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO session_meta (id, email, token, refresh_token, device_id, expires_at, updated_at)
		VALUES (1, :email, :token, :refresh_token, :device_id, :expires_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			email         = excluded.email,
			token         = excluded.token,
			refresh_token = excluded.refresh_token,
			device_id     = excluded.device_id,
			expires_at    = excluded.expires_at,
			updated_at    = excluded.updated_at
	`

	row := &sessionRow{
		Email:        session.Email,
		Token:        session.Token,
		RefreshToken: session.RefreshToken,
		DeviceID:     session.DeviceID,
		ExpiresAt:    toNullMillis(session.ExpiresAt),
		UpdatedAt:    toMillis(session.UpdatedAt),
	}

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		log.Error("failed to put session",
			slog.String("error", err.Error()),
			slog.String("email", session.Email))
		return err
	}

	log.Info("session stored", slog.String("email", session.Email))
	return nil
}

// Clear implements store.SessionStore.Clear
func (s *SQLiteSessionStore) Clear(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_meta`); err != nil {
		log.Error("failed to clear session", slog.String("error", err.Error()))
		return err
	}

	log.Info("session cleared")
	return nil
}

type sessionRow struct {
	Email        string        `db:"email"`
	Token        string        `db:"token"`
	RefreshToken string        `db:"refresh_token"`
	DeviceID     string        `db:"device_id"`
	ExpiresAt    sql.NullInt64 `db:"expires_at"`
	UpdatedAt    int64         `db:"updated_at"`
}

func (r *sessionRow) toDomain() *domain.Session {
	return &domain.Session{
		Email:        r.Email,
		Token:        r.Token,
		RefreshToken: r.RefreshToken,
		DeviceID:     r.DeviceID,
		ExpiresAt:    fromNullMillis(r.ExpiresAt),
		UpdatedAt:    fromMillis(r.UpdatedAt),
	}
}
