// Package postgres implements the sync server's store contracts on
// PostgreSQL. Schema changes ship as embedded goose migrations applied
// on open, the same way the client's local database manages its own.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver for database/sql
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/wordvault/wordvault/internal/store"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Open connects to the database at url, configures the connection
// pool, and brings the schema up to date. Callers own the handle and
// must Close it.
func Open(url string) (*sqlx.DB, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: database URL is empty", store.ErrStoreUnavailable)
	}

	db, err := sqlx.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", store.ErrStoreUnavailable, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping database: %v", store.ErrStoreUnavailable, err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// migrate applies any pending embedded migrations. Goose records the
// applied versions in the database itself, so reconnecting to an
// up-to-date database is a no-op.
func migrate(db *sqlx.DB) error {
	goose.SetBaseFS(embedMigrations)
	defer goose.SetBaseFS(nil)

	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%w: set dialect: %v", store.ErrStoreUnavailable, err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		return fmt.Errorf("%w: apply migrations: %v", store.ErrStoreUnavailable, err)
	}

	return nil
}
