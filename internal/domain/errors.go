package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyWord is returned when a record is created for an empty word.
	ErrEmptyWord = errors.New("word cannot be empty")

	// ErrInvalidMasteryLevel is returned when a mastery level falls
	// outside the supported 0..5 range.
	ErrInvalidMasteryLevel = errors.New("mastery level out of range")

	// ErrInvalidEaseFactor is returned when an ease factor falls outside
	// the supported 1.3..2.5 range.
	ErrInvalidEaseFactor = errors.New("ease factor out of range")

	// ErrInvalidReviewState is returned when a review queue state is not
	// one of pending, reviewing, or mastered.
	ErrInvalidReviewState = errors.New("invalid review state")

	// ErrInvalidStage is returned when a review stage index is negative.
	ErrInvalidStage = errors.New("review stage cannot be negative")
)
