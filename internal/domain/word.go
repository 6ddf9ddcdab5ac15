package domain

import (
	"sort"
	"strings"
	"time"
)

// MaxContexts is the default bound on example sentences kept per word.
// When the limit is exceeded the oldest context is dropped first.
const MaxContexts = 10

// NormalizeWord canonicalizes a word for use as a record key. Keys are
// matched case-insensitively across devices, so every entry point must
// normalize before reading or writing.
func NormalizeWord(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// LookupRecord tracks how often and in which contexts a word has been
// looked up. The word itself, lowercased, is the record key.
type LookupRecord struct {
	Word      string      `json:"word"`
	Count     int64       `json:"count"`
	Lookups   []time.Time `json:"lookups"`
	Contexts  []string    `json:"contexts"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewLookupRecord creates a record for the first lookup of a word.
// The word is normalized; an empty context is ignored.
// Returns an error if validation fails.
func NewLookupRecord(word, context string, at time.Time) (*LookupRecord, error) {
	r := &LookupRecord{
		Word:      NormalizeWord(word),
		Count:     1,
		Lookups:   []time.Time{at.UTC()},
		UpdatedAt: at.UTC(),
	}
	if context != "" {
		r.Contexts = []string{context}
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

// Validate checks if the LookupRecord has valid data.
// Returns an error if any field fails validation.
func (r *LookupRecord) Validate() error {
	if r.Word == "" {
		return ErrEmptyWord
	}

	if r.Count < 0 {
		return ErrValidation
	}

	return nil
}

// RecordLookup registers one additional lookup at the given instant.
// The context, when non-empty and not already present, is appended;
// the oldest context is evicted once capacity is exceeded. A capacity
// of zero or less applies MaxContexts.
func (r *LookupRecord) RecordLookup(context string, at time.Time, capacity int) {
	r.Count++
	r.Lookups = append(r.Lookups, at.UTC())
	r.AddContext(context, capacity)
	r.UpdatedAt = at.UTC()
}

// AddContext appends a context sentence if it is non-empty and not
// already recorded, evicting from the front past capacity. A capacity
// of zero or less applies MaxContexts.
func (r *LookupRecord) AddContext(context string, capacity int) {
	if context == "" {
		return
	}
	if capacity <= 0 {
		capacity = MaxContexts
	}
	for _, c := range r.Contexts {
		if c == context {
			return
		}
	}
	r.Contexts = append(r.Contexts, context)
	if len(r.Contexts) > capacity {
		r.Contexts = r.Contexts[len(r.Contexts)-capacity:]
	}
}

// MergeLookups folds a second timestamp sequence into the record's own,
// deduplicating and restoring chronological order. Used when local and
// remote histories of the same word are reconciled.
func (r *LookupRecord) MergeLookups(other []time.Time) {
	if len(other) == 0 {
		return
	}
	seen := make(map[int64]struct{}, len(r.Lookups)+len(other))
	merged := make([]time.Time, 0, len(r.Lookups)+len(other))
	for _, ts := range r.Lookups {
		key := ts.UnixMilli()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, ts.UTC())
	}
	for _, ts := range other {
		key := ts.UnixMilli()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, ts.UTC())
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Before(merged[j]) })
	r.Lookups = merged
}
