package deck

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/wordvault/wordvault/internal/domain"
)

// Candidates is the pool a deck draws from: the words eligible for
// practice (looked up at least once, not blacklisted) and whatever
// flashcard state each of them has. A word with no entry in Progress
// has never been practiced.
type Candidates struct {
	Words    []string
	Progress map[string]*domain.CardProgress
}

// Builder draws decks using an injectable random source, so tests can
// seed it deterministically.
type Builder struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewBuilder creates a Builder. If rng is nil a time-seeded source is
// used.
func NewBuilder(rng *rand.Rand) *Builder {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Builder{rng: rng}
}

// Build assembles a deck of up to size words. The deck aims for
// ceil(size*newRatio) never-practiced words, fills the rest with words
// whose review is due, and backfills from the other group when one
// runs short. Each group is shuffled before drawing and the combined
// deck is shuffled again, so neither group clusters at the front. A
// word appears at most once.
func (b *Builder) Build(c Candidates, size int, newRatio float64, now time.Time) []string {
	if size <= 0 || len(c.Words) == 0 {
		return nil
	}
	if newRatio < 0 {
		newRatio = 0
	}
	if newRatio > 1 {
		newRatio = 1
	}

	fresh, due := partition(c, now)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.rng.Shuffle(len(fresh), func(i, j int) { fresh[i], fresh[j] = fresh[j], fresh[i] })
	b.rng.Shuffle(len(due), func(i, j int) { due[i], due[j] = due[j], due[i] })

	newTarget := int(math.Ceil(float64(size) * newRatio))
	if newTarget > size {
		newTarget = size
	}

	deck := make([]string, 0, size)
	deck = append(deck, take(fresh, newTarget)...)
	deck = append(deck, take(due, size-len(deck))...)

	// One group ran short; backfill from the other
	if len(deck) < size {
		deck = append(deck, take(fresh[min(newTarget, len(fresh)):], size-len(deck))...)
	}

	b.rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

// partition splits the candidates into never-practiced words and words
// whose next review has come due. Words with progress that is not yet
// due belong to neither group and cannot be drawn.
func partition(c Candidates, now time.Time) (fresh, due []string) {
	for _, word := range c.Words {
		progress, ok := c.Progress[word]
		switch {
		case !ok || progress == nil:
			fresh = append(fresh, word)
		case progress.Due(now):
			due = append(due, word)
		}
	}
	return fresh, due
}

func take(words []string, n int) []string {
	if n <= 0 {
		return nil
	}
	if n > len(words) {
		n = len(words)
	}
	return words[:n]
}
