package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/remote"
	"github.com/wordvault/wordvault/internal/store"
)

// errMalformedPayload marks a remote record whose payload cannot be
// decoded into its collection's type. Such records are logged and
// skipped rather than failing the cycle.
var errMalformedPayload = errors.New("malformed payload")

// localRecord is one local record prepared for upload: its wire
// encoding plus the version fields the push comparison needs.
type localRecord struct {
	record  remote.Record
	version recordVersion
}

// collectionSync adapts one local collection to the coordinator's
// generic pull/merge/push cycle. The review queue spans three tables
// locally but is one collection here; the entry's state travels inside
// the payload.
type collectionSync interface {
	name() string

	// snapshotLocal returns every local record encoded for the wire.
	snapshotLocal(ctx context.Context) ([]localRecord, error)

	// clearLocal wipes the local collection ahead of a full download.
	clearLocal(ctx context.Context) error

	// mergeRemote folds one remote record into the local store and
	// reports whether local state changed. Returns errMalformedPayload
	// for records that cannot be decoded.
	mergeRemote(ctx context.Context, rec remote.Record) (bool, error)

	// versionOf extracts the merge-relevant fields from a remote record.
	versionOf(rec remote.Record) (recordVersion, error)

	// ahead reports whether a local record is strictly ahead of the last
	// remote state known for its key.
	ahead(local, lastRemote recordVersion) bool
}

// wordsSync syncs the lookup history collection.
type wordsSync struct {
	lookups    store.LookupStore
	contextCap int
}

func (s *wordsSync) name() string { return store.CollectionWords }

func (s *wordsSync) snapshotLocal(ctx context.Context) ([]localRecord, error) {
	records, err := s.lookups.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]localRecord, 0, len(records))
	for _, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode lookup record %q: %w", r.Word, err)
		}
		out = append(out, localRecord{
			record:  remote.Record{Word: r.Word, Payload: payload, UpdatedAt: r.UpdatedAt},
			version: recordVersion{count: r.Count},
		})
	}
	return out, nil
}

func (s *wordsSync) clearLocal(ctx context.Context) error {
	return s.lookups.Clear(ctx)
}

func (s *wordsSync) mergeRemote(ctx context.Context, rec remote.Record) (bool, error) {
	incoming, err := decodeLookupRecord(rec)
	if err != nil {
		return false, err
	}

	local, err := s.lookups.Get(ctx, incoming.Word)
	if err != nil && !errors.Is(err, store.ErrLookupNotFound) {
		return false, err
	}

	merged, changed := MergeLookupRecords(local, incoming, s.contextCap)
	if !changed {
		return false, nil
	}
	return true, s.lookups.Put(ctx, merged)
}

func (s *wordsSync) versionOf(rec remote.Record) (recordVersion, error) {
	r, err := decodeLookupRecord(rec)
	if err != nil {
		return recordVersion{}, err
	}
	return recordVersion{count: r.Count}, nil
}

func (s *wordsSync) ahead(local, lastRemote recordVersion) bool {
	return lookupAhead(local, lastRemote)
}

// cardsSync syncs the flashcard progress collection.
type cardsSync struct {
	cards store.CardStore
}

func (s *cardsSync) name() string { return store.CollectionFlashcard }

func (s *cardsSync) snapshotLocal(ctx context.Context) ([]localRecord, error) {
	cards, err := s.cards.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]localRecord, 0, len(cards))
	for _, p := range cards {
		payload, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode card progress %q: %w", p.Word, err)
		}
		out = append(out, localRecord{
			record:  remote.Record{Word: p.Word, Payload: payload, UpdatedAt: p.UpdatedAt},
			version: recordVersion{reviewCount: p.ReviewCount, mastery: p.MasteryLevel},
		})
	}
	return out, nil
}

func (s *cardsSync) clearLocal(ctx context.Context) error {
	return s.cards.Clear(ctx)
}

func (s *cardsSync) mergeRemote(ctx context.Context, rec remote.Record) (bool, error) {
	incoming, err := decodeCardProgress(rec)
	if err != nil {
		return false, err
	}

	local, err := s.cards.Get(ctx, incoming.Word)
	switch {
	case errors.Is(err, store.ErrCardNotFound):
		local = nil
	case err != nil:
		return false, err
	}

	if !ShouldAdoptCard(local, incoming) {
		return false, nil
	}
	return true, s.cards.Put(ctx, incoming)
}

func (s *cardsSync) versionOf(rec remote.Record) (recordVersion, error) {
	p, err := decodeCardProgress(rec)
	if err != nil {
		return recordVersion{}, err
	}
	return recordVersion{reviewCount: p.ReviewCount, mastery: p.MasteryLevel}, nil
}

func (s *cardsSync) ahead(local, lastRemote recordVersion) bool {
	return cardAhead(local, lastRemote)
}

// reviewSync syncs the review queue collection.
type reviewSync struct {
	reviews store.ReviewStore
}

func (s *reviewSync) name() string { return store.CollectionReview }

func (s *reviewSync) snapshotLocal(ctx context.Context) ([]localRecord, error) {
	entries, err := s.reviews.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]localRecord, 0, len(entries))
	for _, e := range entries {
		payload, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("encode review entry %q: %w", e.Word, err)
		}
		out = append(out, localRecord{
			record:  remote.Record{Word: e.Word, Payload: payload, UpdatedAt: e.UpdatedAt},
			version: recordVersion{stateOrder: e.State.Order(), stage: e.Stage},
		})
	}
	return out, nil
}

func (s *reviewSync) clearLocal(ctx context.Context) error {
	return s.reviews.Clear(ctx)
}

func (s *reviewSync) mergeRemote(ctx context.Context, rec remote.Record) (bool, error) {
	incoming, err := decodeReviewEntry(rec)
	if err != nil {
		return false, err
	}

	local, err := s.reviews.Get(ctx, incoming.Word)
	switch {
	case errors.Is(err, store.ErrReviewNotFound):
		local = nil
	case err != nil:
		return false, err
	}

	if !ShouldAdoptReview(local, incoming) {
		return false, nil
	}
	return true, s.reviews.Put(ctx, incoming)
}

func (s *reviewSync) versionOf(rec remote.Record) (recordVersion, error) {
	e, err := decodeReviewEntry(rec)
	if err != nil {
		return recordVersion{}, err
	}
	return recordVersion{stateOrder: e.State.Order(), stage: e.Stage}, nil
}

func (s *reviewSync) ahead(local, lastRemote recordVersion) bool {
	return reviewAhead(local, lastRemote)
}

// The wire key, not the payload's word field, is authoritative: decode
// helpers overwrite the decoded word with the normalized record key so
// a payload can never smuggle a record under a different key.

func decodeLookupRecord(rec remote.Record) (*domain.LookupRecord, error) {
	var r domain.LookupRecord
	if err := json.Unmarshal(rec.Payload, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedPayload, err)
	}
	r.Word = domain.NormalizeWord(rec.Word)
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedPayload, err)
	}
	return &r, nil
}

func decodeCardProgress(rec remote.Record) (*domain.CardProgress, error) {
	var p domain.CardProgress
	if err := json.Unmarshal(rec.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedPayload, err)
	}
	p.Word = domain.NormalizeWord(rec.Word)
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedPayload, err)
	}
	return &p, nil
}

func decodeReviewEntry(rec remote.Record) (*domain.ReviewEntry, error) {
	var e domain.ReviewEntry
	if err := json.Unmarshal(rec.Payload, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedPayload, err)
	}
	e.Word = domain.NormalizeWord(rec.Word)
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedPayload, err)
	}
	return &e, nil
}
