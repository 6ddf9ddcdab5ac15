package engine

import (
	"context"
	"fmt"

	"github.com/wordvault/wordvault/internal/backup"
)

// ExportBackup writes a JSON snapshot of all learning data to path, or
// to the engine's own backup file when path is empty. Pending writes
// are flushed first so the snapshot matches what is in memory.
func (e *Engine) ExportBackup(ctx context.Context, path string) (string, error) {
	if err := e.flusher.Flush(ctx); err != nil {
		return "", fmt.Errorf("flush before export: %w", err)
	}

	m := e.backups
	if path != "" && path != e.backups.Path() {
		m = backup.NewManager(path, e.logger)
	}
	if err := m.Backup(ctx, e.backupStores()); err != nil {
		return "", err
	}
	return m.Path(), nil
}

// RestoreBackup loads the snapshot at path (the engine's own backup
// file when empty) into the local store and reloads the in-memory
// state from it. Existing records are overwritten key by key; records
// the snapshot does not mention stay put. Reports whether anything was
// restored.
//
// Unlike the lenient restore at startup, an unreadable snapshot is an
// error here: the caller asked for this file specifically.
func (e *Engine) RestoreBackup(ctx context.Context, path string) (bool, error) {
	m := e.backups
	if path != "" && path != e.backups.Path() {
		m = backup.NewManager(path, e.logger)
	}

	snap, err := m.Load()
	if err != nil {
		return false, err
	}
	if snap == nil {
		return false, fmt.Errorf("no backup snapshot at %s", m.Path())
	}
	if snap.Empty() {
		return false, nil
	}

	// Flush first so a dirty key cannot clobber a restored row later.
	if err := e.flusher.Flush(ctx); err != nil {
		return false, fmt.Errorf("flush before restore: %w", err)
	}

	restored, err := m.Restore(ctx, e.backupStores())
	if err != nil {
		return restored, err
	}
	if restored {
		if err := e.loadCollections(ctx); err != nil {
			return true, fmt.Errorf("reload after restore: %w", err)
		}
	}
	return restored, nil
}
