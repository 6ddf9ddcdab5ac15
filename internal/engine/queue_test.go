package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/store"
)

func TestEngine_QueueLifecycle(t *testing.T) {
	t.Parallel() // Enable parallel testing

	env := newTestEngine(t, nil)
	base := env.clock.Now()

	require.NoError(t, env.engine.EnqueuePending("Ocean"))
	entry, err := env.engine.GetReview("ocean")
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewStatePending, entry.State)
	assert.Equal(t, base, entry.AddedAt)

	// Re-queueing is a no-op.
	require.NoError(t, env.engine.EnqueuePending("ocean"))
	assert.Len(t, env.engine.PendingReviews(), 1)

	// First use starts the schedule at stage zero, one day out.
	entry, err = env.engine.MarkUsed("ocean")
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewStateReviewing, entry.State)
	assert.Equal(t, 0, entry.Stage)
	assert.Equal(t, base.AddDate(0, 0, 1), entry.NextReviewAt)
	assert.Empty(t, env.engine.PendingReviews())

	// Seen again an hour later: too early, the stage holds.
	env.clock.Advance(time.Hour)
	entry, err = env.engine.MarkUsed("ocean")
	require.NoError(t, err)
	assert.Equal(t, 0, entry.Stage, "early sighting must not advance the stage")
	assert.Equal(t, base.AddDate(0, 0, 1), entry.NextReviewAt)
	assert.Equal(t, base.Add(time.Hour), entry.LastUsedAt, "the use itself is still noted")

	// Walk the forgetting curve. Each due sighting bumps the stage and
	// reschedules by the next interval.
	intervals := []int{2, 4, 7, 15, 30}
	for i, days := range intervals {
		env.clock.Set(entry.NextReviewAt)
		due := env.engine.DueReviews()
		require.Len(t, due, 1, "entry should be due at its scheduled time")

		entry, err = env.engine.MarkUsed("ocean")
		require.NoError(t, err)
		assert.Equal(t, i+1, entry.Stage)
		assert.Equal(t, env.clock.Now().AddDate(0, 0, days), entry.NextReviewAt)
	}

	// One more due sighting past the last stage masters the word.
	env.clock.Set(entry.NextReviewAt)
	entry, err = env.engine.MarkUsed("ocean")
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewStateMastered, entry.State)
	assert.Equal(t, env.clock.Now(), entry.MasteredAt)
	assert.Equal(t, []string{"ocean"}, reviewWords(env.engine.MasteredReviews()))
	assert.Empty(t, env.engine.DueReviews())

	// Mastered is terminal.
	env.clock.Advance(365 * 24 * time.Hour)
	entry, err = env.engine.MarkUsed("ocean")
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewStateMastered, entry.State)
}

func TestEngine_MarkUsedUnknownWord(t *testing.T) {
	t.Parallel() // Enable parallel testing

	env := newTestEngine(t, nil)

	_, err := env.engine.MarkUsed("nowhere")
	assert.ErrorIs(t, err, store.ErrReviewNotFound)
}

func TestEngine_EnqueueRespectsBlacklist(t *testing.T) {
	t.Parallel() // Enable parallel testing

	env := newTestEngine(t, nil)

	require.NoError(t, env.engine.Blacklist("spam"))
	require.NoError(t, env.engine.EnqueuePending("spam"))

	_, err := env.engine.GetReview("spam")
	assert.ErrorIs(t, err, store.ErrReviewNotFound, "blacklisted words never enter the queue")
}

func TestEngine_QueuePersistsThroughFlush(t *testing.T) {
	t.Parallel() // Enable parallel testing

	env := newTestEngine(t, nil)
	ctx := context.Background()

	require.NoError(t, env.engine.EnqueuePending("tide"))
	_, err := env.engine.MarkUsed("tide")
	require.NoError(t, err)

	env.flush(t)

	stored, err := env.engine.stores.reviews.Get(ctx, "tide")
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewStateReviewing, stored.State)
	assert.Equal(t, 0, stored.Stage)
}

func reviewWords(entries []*domain.ReviewEntry) []string {
	words := make([]string, 0, len(entries))
	for _, entry := range entries {
		words = append(words, entry.Word)
	}
	return words
}
