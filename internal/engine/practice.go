package engine

import (
	"context"
	"fmt"

	"github.com/wordvault/wordvault/internal/coalescer"
	"github.com/wordvault/wordvault/internal/deck"
	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/store"
)

// SubmitReview grades one flashcard answer and reschedules the card.
// A word reviewed for the first time starts from the initial card
// state, carrying the most recent lookup context if one exists.
func (e *Engine) SubmitReview(ctx context.Context, word string, correct bool) (*domain.CardProgress, error) {
	key := domain.NormalizeWord(word)
	if key == "" {
		return nil, domain.ErrEmptyWord
	}
	quality := domain.ReviewQualityWrong
	if correct {
		quality = domain.ReviewQualityCorrect
	}
	now := e.clock()

	e.mu.Lock()
	card, ok := e.cards[key]
	if !ok {
		var sentence string
		if record, seen := e.words[key]; seen && len(record.Contexts) > 0 {
			sentence = record.Contexts[len(record.Contexts)-1]
		}
		fresh, err := domain.NewCardProgress(key, sentence, now)
		if err != nil {
			e.mu.Unlock()
			return nil, err
		}
		card = fresh
	}
	next, err := e.scheduler.CalculateNextReview(card, quality, now)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.cards[key] = next
	snapshot := cloneCard(next)
	e.mu.Unlock()

	e.flusher.Mark(coalescer.Key{Collection: store.CollectionFlashcard, Word: key})
	return snapshot, nil
}

// BuildDeck draws a practice deck from the words looked up so far,
// skipping blacklisted ones. Zero or negative size falls back to the
// configured deck size; a negative ratio falls back to the configured
// new-word ratio.
func (e *Engine) BuildDeck(ctx context.Context, size int, newRatio float64) []string {
	if size <= 0 {
		size = e.cfg.DeckSize
	}
	if newRatio < 0 {
		newRatio = e.cfg.NewRatio
	}
	now := e.clock()

	e.mu.RLock()
	defer e.mu.RUnlock()

	candidates := deck.Candidates{
		Words:    make([]string, 0, len(e.words)),
		Progress: e.cards,
	}
	for word := range e.words {
		if _, banned := e.blocked[word]; banned {
			continue
		}
		candidates.Words = append(candidates.Words, word)
	}
	return e.builder.Build(candidates, size, newRatio, now)
}

// GetCard returns a copy of a word's flashcard progress. Returns
// store.ErrCardNotFound when the word has never been reviewed.
func (e *Engine) GetCard(word string) (*domain.CardProgress, error) {
	key := domain.NormalizeWord(word)

	e.mu.RLock()
	defer e.mu.RUnlock()

	card, ok := e.cards[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrCardNotFound, key)
	}
	return cloneCard(card), nil
}

// SaveDeckSession persists an in-progress deck so it survives a
// restart instead of being reshuffled away.
func (e *Engine) SaveDeckSession(ctx context.Context, session *domain.DeckSession) error {
	if session == nil {
		return fmt.Errorf("deck session cannot be nil")
	}
	now := e.clock().UTC()

	copied := *session
	copied.Words = append([]string(nil), session.Words...)
	if copied.StartedAt.IsZero() {
		copied.StartedAt = now
	}
	copied.UpdatedAt = now
	return e.stores.decks.Put(ctx, &copied)
}

// LoadDeckSession returns the saved deck, or store.ErrNotFound when no
// deck is in progress.
func (e *Engine) LoadDeckSession(ctx context.Context) (*domain.DeckSession, error) {
	return e.stores.decks.Get(ctx)
}

// ClearDeckSession discards the saved deck.
func (e *Engine) ClearDeckSession(ctx context.Context) error {
	return e.stores.decks.Clear(ctx)
}
