// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying storage mechanism from the
// engine's core logic: the local SQLite-backed collections used on a
// device and the Postgres-backed collections used by the sync server
// both implement contracts declared here.
//
// Local store contracts (LookupStore, CardStore, ReviewStore,
// CheckpointStore) follow one shape per collection: Get, GetAll, Put
// (upsert by word), Delete, Clear. Put is atomic per key; concurrent
// writers to different keys never corrupt each other.
//
// When the backing database cannot be opened or has been closed,
// implementations fail with ErrStoreUnavailable. Callers are expected
// to keep serving their in-memory state rather than crash.
package store
