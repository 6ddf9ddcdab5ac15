package engine

import (
	"fmt"
	"sort"

	"github.com/wordvault/wordvault/internal/coalescer"
	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/store"
)

// EnqueuePending adds a word to the immersive review queue in the
// pending state. Already queued and blacklisted words are left alone.
func (e *Engine) EnqueuePending(word string) error {
	key := domain.NormalizeWord(word)
	if key == "" {
		return domain.ErrEmptyWord
	}
	now := e.clock()

	e.mu.Lock()
	if _, banned := e.blocked[key]; banned {
		e.mu.Unlock()
		return nil
	}
	if _, ok := e.queue[key]; ok {
		e.mu.Unlock()
		return nil
	}
	entry, err := domain.NewReviewEntry(key, now)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.queue[key] = entry
	e.mu.Unlock()

	e.flusher.Mark(coalescer.Key{Collection: store.CollectionReview, Word: key})
	return nil
}

// MarkUsed records that a queued word was encountered during
// immersion. Pending words start reviewing at stage zero; reviewing
// words advance one stage when due, mastering past the final stage. A
// reviewing word seen before it is due keeps its stage, and mastered
// words stay mastered. Returns store.ErrReviewNotFound for words not
// in the queue.
func (e *Engine) MarkUsed(word string) (*domain.ReviewEntry, error) {
	key := domain.NormalizeWord(word)
	if key == "" {
		return nil, domain.ErrEmptyWord
	}
	now := e.clock()

	e.mu.Lock()
	entry, ok := e.queue[key]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", store.ErrReviewNotFound, key)
	}

	var err error
	switch entry.State {
	case domain.ReviewStatePending:
		err = entry.StartReviewing(e.scheduler.NextQueueReview(0, now), now)

	case domain.ReviewStateReviewing:
		switch {
		case entry.NextReviewAt.After(now):
			// Seen early; note the use without advancing.
			entry.LastUsedAt = now.UTC()
			entry.UpdatedAt = now.UTC()
		case entry.Stage+1 >= e.scheduler.QueueStages():
			err = entry.Master(now)
		default:
			next := entry.Stage + 1
			err = entry.AdvanceStage(next, e.scheduler.NextQueueReview(next, now), now)
		}

	case domain.ReviewStateMastered:
		// Terminal; nothing to advance.
	}
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	snapshot := cloneReview(entry)
	e.mu.Unlock()

	e.flusher.Mark(coalescer.Key{Collection: store.CollectionReview, Word: key})
	return snapshot, nil
}

// GetReview returns a copy of a word's queue entry. Returns
// store.ErrReviewNotFound when the word is not queued.
func (e *Engine) GetReview(word string) (*domain.ReviewEntry, error) {
	key := domain.NormalizeWord(word)

	e.mu.RLock()
	defer e.mu.RUnlock()

	entry, ok := e.queue[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrReviewNotFound, key)
	}
	return cloneReview(entry), nil
}

// PendingReviews returns the queue's pending entries, sorted by word.
func (e *Engine) PendingReviews() []*domain.ReviewEntry {
	return e.reviewsInState(domain.ReviewStatePending)
}

// MasteredReviews returns the queue's mastered entries, sorted by word.
func (e *Engine) MasteredReviews() []*domain.ReviewEntry {
	return e.reviewsInState(domain.ReviewStateMastered)
}

// DueReviews returns the reviewing entries whose next review has come
// due, sorted by word.
func (e *Engine) DueReviews() []*domain.ReviewEntry {
	now := e.clock()

	e.mu.RLock()
	var due []*domain.ReviewEntry
	for _, entry := range e.queue {
		if entry.State == domain.ReviewStateReviewing && !entry.NextReviewAt.After(now) {
			due = append(due, cloneReview(entry))
		}
	}
	e.mu.RUnlock()

	sortReviews(due)
	return due
}

func (e *Engine) reviewsInState(state domain.ReviewState) []*domain.ReviewEntry {
	e.mu.RLock()
	var entries []*domain.ReviewEntry
	for _, entry := range e.queue {
		if entry.State == state {
			entries = append(entries, cloneReview(entry))
		}
	}
	e.mu.RUnlock()

	sortReviews(entries)
	return entries
}

func sortReviews(entries []*domain.ReviewEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Word < entries[j].Word })
}
