package store

// Logical collection names. These appear in sync checkpoints, in the
// wire protocol, and in the server's record tables, so they must stay
// stable across releases.
const (
	CollectionWords     = "words"
	CollectionFlashcard = "flashcard"
	CollectionReview    = "review"
)

// SyncedCollections lists every collection that participates in cloud
// sync, in the order collections are processed during a sync pass.
func SyncedCollections() []string {
	return []string{CollectionWords, CollectionFlashcard, CollectionReview}
}

// ValidCollection reports whether name is a known synced collection.
func ValidCollection(name string) bool {
	switch name {
	case CollectionWords, CollectionFlashcard, CollectionReview:
		return true
	default:
		return false
	}
}
