package domain

import (
	"fmt"
	"time"
)

// ReviewState represents where a word sits in the immersive review
// queue. A word is in exactly one state at a time.
type ReviewState string

// Possible review states. Words only ever move forward through them.
const (
	ReviewStatePending   ReviewState = "pending"
	ReviewStateReviewing ReviewState = "reviewing"
	ReviewStateMastered  ReviewState = "mastered"
)

// Order returns the position of the state in the forward-only
// progression pending < reviewing < mastered. Merge logic uses this to
// refuse state regressions. Returns -1 for an unknown state.
func (s ReviewState) Order() int {
	switch s {
	case ReviewStatePending:
		return 0
	case ReviewStateReviewing:
		return 1
	case ReviewStateMastered:
		return 2
	default:
		return -1
	}
}

// ReviewEntry tracks one word's journey through the immersive review
// queue. Which timestamp fields are meaningful depends on State:
// pending entries carry AddedAt, reviewing entries carry Stage,
// NextReviewAt and LastUsedAt, mastered entries carry MasteredAt.
// Earlier-state fields are retained across transitions.
type ReviewEntry struct {
	Word         string      `json:"word"`
	State        ReviewState `json:"state"`
	AddedAt      time.Time   `json:"added_at"`
	Stage        int         `json:"stage"`
	NextReviewAt time.Time   `json:"next_review_at"`
	LastUsedAt   time.Time   `json:"last_used_at"`
	MasteredAt   time.Time   `json:"mastered_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// NewReviewEntry enqueues a word into the review queue in the pending
// state. Returns an error if validation fails.
func NewReviewEntry(word string, now time.Time) (*ReviewEntry, error) {
	e := &ReviewEntry{
		Word:      NormalizeWord(word),
		State:     ReviewStatePending,
		AddedAt:   now.UTC(),
		UpdatedAt: now.UTC(),
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}

	return e, nil
}

// Validate checks if the ReviewEntry has valid data.
// Returns an error if any field fails validation.
func (e *ReviewEntry) Validate() error {
	if e.Word == "" {
		return ErrEmptyWord
	}

	if !isValidReviewState(e.State) {
		return fmt.Errorf("%w: %q", ErrInvalidReviewState, e.State)
	}

	if e.Stage < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidStage, e.Stage)
	}

	return nil
}

// StartReviewing moves a pending entry into the reviewing state at
// stage zero. The next review instant comes from the scheduler; the
// entry does not compute intervals itself.
func (e *ReviewEntry) StartReviewing(nextReview, now time.Time) error {
	if e.State != ReviewStatePending {
		return fmt.Errorf("%w: cannot start reviewing from %q", ErrInvalidReviewState, e.State)
	}

	e.State = ReviewStateReviewing
	e.Stage = 0
	e.NextReviewAt = nextReview.UTC()
	e.LastUsedAt = now.UTC()
	e.UpdatedAt = now.UTC()
	return nil
}

// AdvanceStage records a successful immersive use of a reviewing word,
// bumping its stage and rescheduling it.
func (e *ReviewEntry) AdvanceStage(stage int, nextReview, now time.Time) error {
	if e.State != ReviewStateReviewing {
		return fmt.Errorf("%w: cannot advance from %q", ErrInvalidReviewState, e.State)
	}
	if stage < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidStage, stage)
	}

	e.Stage = stage
	e.NextReviewAt = nextReview.UTC()
	e.LastUsedAt = now.UTC()
	e.UpdatedAt = now.UTC()
	return nil
}

// Master moves a reviewing entry into the terminal mastered state.
func (e *ReviewEntry) Master(now time.Time) error {
	if e.State != ReviewStateReviewing {
		return fmt.Errorf("%w: cannot master from %q", ErrInvalidReviewState, e.State)
	}

	e.State = ReviewStateMastered
	e.MasteredAt = now.UTC()
	e.UpdatedAt = now.UTC()
	return nil
}

// isValidReviewState checks if the given state is a valid ReviewState.
func isValidReviewState(state ReviewState) bool {
	switch state {
	case ReviewStatePending, ReviewStateReviewing, ReviewStateMastered:
		return true
	default:
		return false
	}
}
