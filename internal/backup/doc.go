// Package backup writes and restores a flat JSON snapshot of all
// learning data. The snapshot is a safety net under the database: it
// is rewritten after every successful load and read back on startup
// when the word history is empty, covering a lost or corrupted
// database file. Writes go through a temp file and rename, so a crash
// mid-write leaves the previous snapshot intact.
package backup
