package sync

import (
	"slices"
	"time"

	"github.com/wordvault/wordvault/internal/domain"
)

// The merge policy favors accumulated learning over timestamps. Counts
// only grow, contexts and lookup histories union, and scheduling state
// is adopted only when the remote side has demonstrably progressed
// further. Applying the same remote record twice yields the same local
// state, so overlapping sync windows are safe.

// MergeLookupRecords reconciles a local lookup record with its remote
// counterpart and reports whether the local side changed. The inputs
// are not mutated. A nil local adopts the remote record wholesale.
// contextCap bounds the merged context list; zero or less applies the
// default bound.
func MergeLookupRecords(local, remote *domain.LookupRecord, contextCap int) (*domain.LookupRecord, bool) {
	if local == nil {
		return cloneLookupRecord(remote), true
	}

	merged := cloneLookupRecord(local)
	if remote.Count > merged.Count {
		merged.Count = remote.Count
	}
	merged.MergeLookups(remote.Lookups)
	for _, c := range remote.Contexts {
		merged.AddContext(c, contextCap)
	}
	if remote.UpdatedAt.After(merged.UpdatedAt) {
		merged.UpdatedAt = remote.UpdatedAt
	}

	changed := merged.Count != local.Count ||
		len(merged.Lookups) != len(local.Lookups) ||
		!slices.Equal(merged.Contexts, local.Contexts)
	return merged, changed
}

// ShouldAdoptCard reports whether remote flashcard progress supersedes
// local. Remote wins only when it has strictly more reviews or a
// strictly higher mastery level; ties keep the local card, so replaying
// a window never flips state back and forth.
func ShouldAdoptCard(local, remote *domain.CardProgress) bool {
	if local == nil {
		return true
	}
	return remote.ReviewCount > local.ReviewCount ||
		remote.MasteryLevel > local.MasteryLevel
}

// ShouldAdoptReview reports whether a remote review queue entry
// supersedes local. Queue state only moves forward, so remote wins when
// its state is strictly further along, or at the same reviewing state
// with a strictly higher stage.
func ShouldAdoptReview(local, remote *domain.ReviewEntry) bool {
	if local == nil {
		return true
	}
	localOrder, remoteOrder := local.State.Order(), remote.State.Order()
	if remoteOrder != localOrder {
		return remoteOrder > localOrder
	}
	return remote.State == domain.ReviewStateReviewing && remote.Stage > local.Stage
}

// recordVersion captures the fields the merge policy compares, letting
// the coordinator remember what the server last held for a key without
// retaining whole payloads.
type recordVersion struct {
	count       int64 // words
	reviewCount int64 // flashcard
	mastery     int
	stateOrder  int // review
	stage       int
}

// Ahead-of-remote checks for the upload direction. Each mirrors the
// corresponding adopt rule: a local record is pushed only when the
// server adopting it would change the server's state.

func lookupAhead(local, lastRemote recordVersion) bool {
	return local.count > lastRemote.count
}

func cardAhead(local, lastRemote recordVersion) bool {
	return local.reviewCount > lastRemote.reviewCount ||
		local.mastery > lastRemote.mastery
}

func reviewAhead(local, lastRemote recordVersion) bool {
	if local.stateOrder != lastRemote.stateOrder {
		return local.stateOrder > lastRemote.stateOrder
	}
	return local.stateOrder == domain.ReviewStateReviewing.Order() &&
		local.stage > lastRemote.stage
}

func cloneLookupRecord(r *domain.LookupRecord) *domain.LookupRecord {
	clone := *r
	clone.Lookups = append([]time.Time(nil), r.Lookups...)
	clone.Contexts = append([]string(nil), r.Contexts...)
	return &clone
}
