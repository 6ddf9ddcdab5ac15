package engine

import (
	"sort"

	"github.com/wordvault/wordvault/internal/coalescer"
	"github.com/wordvault/wordvault/internal/domain"
)

// Blacklist hides a word from tracking: subsequent lookups are ignored
// and decks never draw it. Existing history is kept but lies dormant.
func (e *Engine) Blacklist(word string) error {
	key := domain.NormalizeWord(word)
	if key == "" {
		return domain.ErrEmptyWord
	}
	now := e.clock()

	e.mu.Lock()
	if _, ok := e.blocked[key]; ok {
		e.mu.Unlock()
		return nil
	}
	e.blocked[key] = &domain.BlacklistEntry{Word: key, AddedAt: now.UTC()}
	e.mu.Unlock()

	e.flusher.MarkLocal(coalescer.Key{Collection: collectionBlacklist, Word: key})
	e.logger.Debug("Word blacklisted", "word", key)
	return nil
}

// Unblacklist lifts the block on a word. Its retained history becomes
// visible again.
func (e *Engine) Unblacklist(word string) error {
	key := domain.NormalizeWord(word)
	if key == "" {
		return domain.ErrEmptyWord
	}

	e.mu.Lock()
	if _, ok := e.blocked[key]; !ok {
		e.mu.Unlock()
		return nil
	}
	delete(e.blocked, key)
	e.mu.Unlock()

	e.flusher.MarkLocal(coalescer.Key{Collection: collectionBlacklist, Word: key})
	e.logger.Debug("Word unblacklisted", "word", key)
	return nil
}

// IsBlacklisted reports whether a word is currently blocked.
func (e *Engine) IsBlacklisted(word string) bool {
	key := domain.NormalizeWord(word)

	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.blocked[key]
	return ok
}

// BlacklistedWords returns the blocked words, sorted.
func (e *Engine) BlacklistedWords() []string {
	e.mu.RLock()
	words := make([]string, 0, len(e.blocked))
	for word := range e.blocked {
		words = append(words, word)
	}
	e.mu.RUnlock()

	sort.Strings(words)
	return words
}
