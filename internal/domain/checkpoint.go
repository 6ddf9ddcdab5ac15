package domain

import "time"

// SyncCheckpoint remembers, per collection, the remote updated_at
// watermark up to which remote changes have been applied locally.
// Incremental pulls request only records newer than the watermark.
type SyncCheckpoint struct {
	Collection string    `json:"collection"`
	Watermark  time.Time `json:"watermark"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewSyncCheckpoint creates a checkpoint for a collection at the given
// watermark.
func NewSyncCheckpoint(collection string, watermark, now time.Time) *SyncCheckpoint {
	return &SyncCheckpoint{
		Collection: collection,
		Watermark:  watermark.UTC(),
		UpdatedAt:  now.UTC(),
	}
}

// Advance moves the watermark forward to candidate if candidate is
// newer. The watermark never moves backwards; re-applying an old batch
// must not reopen an already-synced window.
func (c *SyncCheckpoint) Advance(candidate, now time.Time) bool {
	if !candidate.After(c.Watermark) {
		return false
	}
	c.Watermark = candidate.UTC()
	c.UpdatedAt = now.UTC()
	return true
}
