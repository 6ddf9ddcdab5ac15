// Package sync reconciles the local store with the sync server. A
// coordinator runs one cycle per collection: pull remote changes past
// the stored checkpoint, merge them record by record under rules that
// never lose learning progress, then push local records the server has
// not seen. Merges are idempotent, so replaying a window is harmless,
// and never regressive, so a stale device cannot undo newer work.
package sync
