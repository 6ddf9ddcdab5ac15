package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/wordvault/wordvault/internal/coalescer"
	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/store"
)

// RecordLookup registers that the learner looked a word up, optionally
// inside an example sentence. The word is normalized before use;
// blacklisted words are ignored and return nil without error. The
// second lookup of a word fires the OnSecondLookup callback, once.
func (e *Engine) RecordLookup(ctx context.Context, word, sentence string) (*domain.LookupRecord, error) {
	key := domain.NormalizeWord(word)
	if key == "" {
		return nil, domain.ErrEmptyWord
	}
	now := e.clock()

	e.mu.Lock()
	if _, banned := e.blocked[key]; banned {
		e.mu.Unlock()
		e.logger.Debug("Lookup ignored for blacklisted word", "word", key)
		return nil, nil
	}

	record, ok := e.words[key]
	fireSecond := false
	if !ok {
		fresh, err := domain.NewLookupRecord(key, sentence, now)
		if err != nil {
			e.mu.Unlock()
			return nil, err
		}
		record = fresh
		e.words[key] = record
	} else {
		fireSecond = record.Count == 1
		record.RecordLookup(sentence, now, e.cfg.ContextCapacity)
	}
	snapshot := cloneLookup(record)
	e.mu.Unlock()

	e.flusher.Mark(coalescer.Key{Collection: store.CollectionWords, Word: key})

	if fireSecond {
		e.emitSecondLookup(ctx, key)
	}
	return snapshot, nil
}

// GetWord returns a copy of the lookup record for a word. Returns
// store.ErrLookupNotFound when the word has never been looked up.
func (e *Engine) GetWord(word string) (*domain.LookupRecord, error) {
	key := domain.NormalizeWord(word)

	e.mu.RLock()
	defer e.mu.RUnlock()

	record, ok := e.words[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrLookupNotFound, key)
	}
	return cloneLookup(record), nil
}

// AllWords returns a copy of every lookup record, sorted by word.
func (e *Engine) AllWords() []*domain.LookupRecord {
	e.mu.RLock()
	records := make([]*domain.LookupRecord, 0, len(e.words))
	for _, record := range e.words {
		records = append(records, cloneLookup(record))
	}
	e.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool { return records[i].Word < records[j].Word })
	return records
}
