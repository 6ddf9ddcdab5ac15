package deck

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/wordvault/wordvault/internal/domain"
)

func testBuilder() *Builder {
	return NewBuilder(rand.New(rand.NewSource(42)))
}

// poolOf builds a candidate pool with the given counts of
// never-practiced, due, and not-yet-due words.
func poolOf(t *testing.T, fresh, due, notDue int, now time.Time) Candidates {
	t.Helper()

	c := Candidates{Progress: make(map[string]*domain.CardProgress)}
	for i := 0; i < fresh; i++ {
		c.Words = append(c.Words, fmt.Sprintf("fresh%d", i))
	}
	for i := 0; i < due; i++ {
		word := fmt.Sprintf("due%d", i)
		c.Words = append(c.Words, word)
		c.Progress[word] = &domain.CardProgress{
			Word:         word,
			EaseFactor:   2.5,
			NextReviewAt: now.Add(-time.Hour),
		}
	}
	for i := 0; i < notDue; i++ {
		word := fmt.Sprintf("later%d", i)
		c.Words = append(c.Words, word)
		c.Progress[word] = &domain.CardProgress{
			Word:         word,
			EaseFactor:   2.5,
			NextReviewAt: now.Add(48 * time.Hour),
		}
	}
	return c
}

// classify counts how many deck members are never-practiced vs due.
func classify(deck []string, c Candidates, now time.Time) (fresh, due int) {
	for _, word := range deck {
		progress, ok := c.Progress[word]
		if !ok {
			fresh++
		} else if progress.Due(now) {
			due++
		}
	}
	return fresh, due
}

func TestBuildRespectsRatio(t *testing.T) {
	t.Parallel() // Enable parallel execution

	now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	c := poolOf(t, 10, 10, 0, now)

	deck := testBuilder().Build(c, 10, 0.3, now)

	if len(deck) != 10 {
		t.Errorf("Expected deck of 10, got %d", len(deck))
	}

	fresh, due := classify(deck, c, now)
	if fresh != 3 {
		t.Errorf("Expected 3 new words, got %d", fresh)
	}
	if due != 7 {
		t.Errorf("Expected 7 due words, got %d", due)
	}
}

func TestBuildRoundsNewCountUp(t *testing.T) {
	t.Parallel() // Enable parallel execution

	now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	c := poolOf(t, 10, 10, 0, now)

	// ceil(10 * 0.25) = 3
	deck := testBuilder().Build(c, 10, 0.25, now)

	fresh, _ := classify(deck, c, now)
	if fresh != 3 {
		t.Errorf("Expected ceil rounding to give 3 new words, got %d", fresh)
	}
}

func TestBuildBackfillsWhenNewRunsShort(t *testing.T) {
	t.Parallel() // Enable parallel execution

	now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	c := poolOf(t, 1, 20, 0, now)

	deck := testBuilder().Build(c, 10, 0.3, now)

	if len(deck) != 10 {
		t.Errorf("Expected deck of 10, got %d", len(deck))
	}

	fresh, due := classify(deck, c, now)
	if fresh != 1 {
		t.Errorf("Expected the single new word, got %d", fresh)
	}
	if due != 9 {
		t.Errorf("Expected 9 due words backfilled, got %d", due)
	}
}

func TestBuildBackfillsWhenDueRunsShort(t *testing.T) {
	t.Parallel() // Enable parallel execution

	now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	c := poolOf(t, 20, 1, 0, now)

	deck := testBuilder().Build(c, 10, 0.3, now)

	if len(deck) != 10 {
		t.Errorf("Expected deck of 10, got %d", len(deck))
	}

	fresh, due := classify(deck, c, now)
	if due != 1 {
		t.Errorf("Expected the single due word, got %d", due)
	}
	if fresh != 9 {
		t.Errorf("Expected 9 new words backfilled, got %d", fresh)
	}
}

func TestBuildExcludesNotYetDueWords(t *testing.T) {
	t.Parallel() // Enable parallel execution

	now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	c := poolOf(t, 2, 2, 10, now)

	deck := testBuilder().Build(c, 10, 0.5, now)

	if len(deck) != 4 {
		t.Errorf("Expected only the 4 eligible words, got %d", len(deck))
	}
	for _, word := range deck {
		if progress, ok := c.Progress[word]; ok && !progress.Due(now) {
			t.Errorf("Deck contains not-yet-due word %q", word)
		}
	}
}

func TestBuildNeverDuplicates(t *testing.T) {
	t.Parallel() // Enable parallel execution

	now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	c := poolOf(t, 30, 30, 0, now)

	deck := testBuilder().Build(c, 40, 0.5, now)

	seen := make(map[string]bool, len(deck))
	for _, word := range deck {
		if seen[word] {
			t.Errorf("Word %q drawn twice", word)
		}
		seen[word] = true
	}
}

func TestBuildEdgeCases(t *testing.T) {
	t.Parallel() // Enable parallel execution

	now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	b := testBuilder()

	t.Run("zero size", func(t *testing.T) {
		deck := b.Build(poolOf(t, 5, 5, 0, now), 0, 0.3, now)
		if len(deck) != 0 {
			t.Errorf("Expected empty deck for size 0, got %d", len(deck))
		}
	})

	t.Run("empty pool", func(t *testing.T) {
		deck := b.Build(Candidates{}, 10, 0.3, now)
		if len(deck) != 0 {
			t.Errorf("Expected empty deck for empty pool, got %d", len(deck))
		}
	})

	t.Run("ratio above one is clamped", func(t *testing.T) {
		c := poolOf(t, 10, 10, 0, now)
		deck := b.Build(c, 10, 2.0, now)
		fresh, _ := classify(deck, c, now)
		if fresh != 10 {
			t.Errorf("Expected all-new deck for ratio above 1, got %d new", fresh)
		}
	})

	t.Run("negative ratio is clamped", func(t *testing.T) {
		c := poolOf(t, 10, 10, 0, now)
		deck := b.Build(c, 10, -0.5, now)
		fresh, due := classify(deck, c, now)
		if fresh != 0 || due != 10 {
			t.Errorf("Expected all-due deck for negative ratio, got %d new %d due", fresh, due)
		}
	})

	t.Run("size larger than pool", func(t *testing.T) {
		c := poolOf(t, 3, 2, 0, now)
		deck := b.Build(c, 100, 0.3, now)
		if len(deck) != 5 {
			t.Errorf("Expected the whole pool of 5, got %d", len(deck))
		}
	})
}
