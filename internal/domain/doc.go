// Package domain contains the core entities of the vocabulary learning
// system: lookup records, flashcard progress, and review queue entries.
//
// Entities in this package are persistence-agnostic and carry their own
// validation. They also hold the canonical ordering rules used when local
// and remote copies of the same record disagree (see the sync package),
// so helpers such as ReviewState.Order live here rather than in the sync
// layer.
//
// All timestamps are UTC. The natural key for every learning record is
// the lowercased word itself; the system deliberately has no surrogate
// IDs for learning data so that the same word always collides and merges.
package domain
