// Package sqlite implements the local store contracts on a single
// SQLite database file. One database holds every collection; schema
// changes ship as embedded goose migrations applied on open.
package sqlite

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/wordvault/wordvault/internal/store"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Open opens (creating if necessary) the local database at path and
// brings its schema up to date. The handle is safe for concurrent use;
// callers own it and must Close it.
//
// WAL journaling keeps readers unblocked during flush bursts, and the
// busy timeout covers the brief writer lock handoffs WAL still has.
func Open(path string) (*sqlx.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: database path is empty", store.ErrStoreUnavailable)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data directory: %v", store.ErrStoreUnavailable, err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_synchronous=NORMAL",
		filepath.Clean(path),
	)

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", store.ErrStoreUnavailable, path, err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// migrate applies any pending embedded migrations. Goose records the
// applied versions in the database itself, so reopening an up-to-date
// file is a no-op.
func migrate(db *sqlx.DB) error {
	goose.SetBaseFS(embedMigrations)
	defer goose.SetBaseFS(nil)

	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("%w: set dialect: %v", store.ErrStoreUnavailable, err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		return fmt.Errorf("%w: apply migrations: %v", store.ErrStoreUnavailable, err)
	}

	return nil
}
