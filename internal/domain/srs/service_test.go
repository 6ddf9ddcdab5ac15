package srs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wordvault/wordvault/internal/domain"
)

func TestNewDefaultService(t *testing.T) {
	t.Parallel() // Enable parallel execution
	service := NewDefaultService()
	if service == nil {
		t.Fatal("Expected non-nil service")
	}

	// Check if default params are present
	defaultService, ok := service.(*defaultService)
	if !ok {
		t.Fatal("Expected *defaultService type")
	}

	if defaultService.params == nil {
		t.Fatal("Expected non-nil params")
	}
}

func TestServiceCalculateNextReview(t *testing.T) {
	t.Parallel() // Enable parallel execution
	service := NewDefaultService()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	progress, err := domain.NewCardProgress("apple", "an apple a day", now)
	require.NoError(t, err, "Failed to create initial progress")

	// First-ever review, answered correctly: level 0 -> 1, due in 1 day.
	next, err := service.CalculateNextReview(progress, domain.ReviewQualityCorrect, now)
	require.NoError(t, err)
	require.Equal(t, 1, next.MasteryLevel)
	require.Equal(t, int64(1), next.ReviewCount)
	require.Equal(t, now.AddDate(0, 0, 1), next.NextReviewAt)

	// The ceiling case: a correct answer at max ease factor stays clamped.
	require.Equal(t, 2.5, next.EaseFactor)

	// Invalid inputs are rejected.
	_, err = service.CalculateNextReview(nil, domain.ReviewQualityCorrect, now)
	require.ErrorIs(t, err, ErrNilProgress)

	_, err = service.CalculateNextReview(progress, domain.ReviewQuality(7), now)
	require.ErrorIs(t, err, ErrInvalidQuality)
}

func TestServiceNextQueueReview(t *testing.T) {
	t.Parallel() // Enable parallel execution
	service := NewDefaultService()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.Equal(t, now.AddDate(0, 0, 1), service.NextQueueReview(0, now))
	require.Equal(t, now.AddDate(0, 0, 15), service.NextQueueReview(4, now))

	// Past the end of the table the final offset applies.
	require.Equal(t, now.AddDate(0, 0, 30), service.NextQueueReview(40, now))

	require.Equal(t, 6, service.QueueStages())
}
