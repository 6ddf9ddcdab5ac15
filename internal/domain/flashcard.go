package domain

import (
	"fmt"
	"time"
)

// Bounds for the SM-2 derived scheduling state carried by a flashcard.
const (
	MinMasteryLevel = 0
	MaxMasteryLevel = 5
	MinEaseFactor   = 1.3
	MaxEaseFactor   = 2.5
)

// ReviewQuality grades a flashcard answer. The scheduler only
// distinguishes wrong from correct; the numeric values feed the
// ease-factor formula directly.
type ReviewQuality int

// Possible review qualities.
const (
	ReviewQualityWrong   ReviewQuality = 0
	ReviewQualityCorrect ReviewQuality = 1
)

// Valid reports whether the quality is one of the graded values.
func (q ReviewQuality) Valid() bool {
	return q == ReviewQualityWrong || q == ReviewQualityCorrect
}

// CardProgress is the per-word flashcard scheduling state. The word,
// lowercased, is the record key; a word has at most one card.
type CardProgress struct {
	Word           string    `json:"word"`
	MasteryLevel   int       `json:"mastery_level"`
	EaseFactor     float64   `json:"ease_factor"`
	ReviewCount    int64     `json:"review_count"`
	LastReviewedAt time.Time `json:"last_reviewed_at"`
	NextReviewAt   time.Time `json:"next_review_at"`
	Context        string    `json:"context"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewCardProgress creates the initial scheduling state for a word that
// has never been reviewed: mastery level 0, ease factor 2.5, due
// immediately. Returns an error if validation fails.
func NewCardProgress(word, context string, now time.Time) (*CardProgress, error) {
	p := &CardProgress{
		Word:           NormalizeWord(word),
		MasteryLevel:   MinMasteryLevel,
		EaseFactor:     MaxEaseFactor,
		ReviewCount:    0,
		LastReviewedAt: time.Time{}, // zero time, never reviewed
		NextReviewAt:   now.UTC(),
		Context:        context,
		UpdatedAt:      now.UTC(),
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// Validate checks if the CardProgress has valid data.
// Returns an error if any field fails validation.
func (p *CardProgress) Validate() error {
	if p.Word == "" {
		return ErrEmptyWord
	}

	if p.MasteryLevel < MinMasteryLevel || p.MasteryLevel > MaxMasteryLevel {
		return fmt.Errorf("%w: %d", ErrInvalidMasteryLevel, p.MasteryLevel)
	}

	if p.EaseFactor < MinEaseFactor || p.EaseFactor > MaxEaseFactor {
		return fmt.Errorf("%w: %g", ErrInvalidEaseFactor, p.EaseFactor)
	}

	if p.ReviewCount < 0 {
		return fmt.Errorf("%w: review count cannot be negative", ErrValidation)
	}

	if !p.LastReviewedAt.IsZero() && p.NextReviewAt.Before(p.LastReviewedAt) {
		return fmt.Errorf("%w: next review precedes last review", ErrValidation)
	}

	return nil
}

// Due reports whether the card should be offered for review at the
// given instant.
func (p *CardProgress) Due(now time.Time) bool {
	return !p.NextReviewAt.After(now)
}
