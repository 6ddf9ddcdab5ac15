package srs

import (
	"errors"
	"time"

	"github.com/wordvault/wordvault/internal/domain"
)

// Common errors
var (
	ErrNilProgress    = errors.New("card progress cannot be nil")
	ErrInvalidQuality = errors.New("invalid review quality")
)

// Service defines the interface for spaced-repetition scheduling
type Service interface {
	// CalculateNextReview computes new card state based on a graded answer
	CalculateNextReview(
		progress *domain.CardProgress,
		quality domain.ReviewQuality,
		now time.Time,
	) (*domain.CardProgress, error)

	// NextQueueReview computes when a review queue word at the given
	// stage should next be surfaced for immersive use
	NextQueueReview(stage int, now time.Time) time.Time

	// QueueStages returns the number of configured queue stages. A word
	// that advances past the final stage is considered mastered
	QueueStages() int
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new scheduling service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new scheduling service with custom parameters
func NewServiceWithParams(params *Params) Service {
	return &defaultService{
		params: params,
	}
}

// CalculateNextReview implements the Service interface for grading a review
func (s *defaultService) CalculateNextReview(
	progress *domain.CardProgress,
	quality domain.ReviewQuality,
	now time.Time,
) (*domain.CardProgress, error) {
	// Validate inputs
	if progress == nil {
		return nil, ErrNilProgress
	}

	if !quality.Valid() {
		return nil, ErrInvalidQuality
	}

	return calculateNextProgress(progress, quality, now, s.params), nil
}

// NextQueueReview implements the Service interface for queue scheduling
func (s *defaultService) NextQueueReview(stage int, now time.Time) time.Time {
	return now.UTC().AddDate(0, 0, queueIntervalDays(stage, s.params))
}

// QueueStages implements the Service interface
func (s *defaultService) QueueStages() int {
	return len(s.params.QueueIntervals)
}
