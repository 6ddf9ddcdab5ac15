package srs

import (
	"time"

	"github.com/wordvault/wordvault/internal/domain"
)

// calculateNewEaseFactor determines the new ease factor after a review.
//
// The ease factor represents how easy a word is for this learner -
// higher values mean longer gaps between reviews. The adjustment is the
// binary-quality reduction of the classic SM-2 update:
//
//	EF' = EF + (reward - (1-q)*(base + (1-q)*linear))
//
// Parameters:
//   - currentEF: The card's current ease factor, typically between 1.3 and 2.5
//   - quality: The graded answer, 0 (wrong) or 1 (correct)
//   - params: Configuration parameters for the algorithm
//
// Returns:
//   - The new ease factor, clamped between params.MinEaseFactor and params.MaxEaseFactor
//
// Algorithm behavior:
//   - A correct answer adds the full reward (typically +0.1)
//   - A wrong answer's penalty terms cancel the reward exactly, so the
//     ease factor is left unchanged; difficulty is expressed through the
//     mastery level drop instead
//   - The result is always clamped to prevent runaway growth or decay
func calculateNewEaseFactor(
	currentEF float64,
	quality domain.ReviewQuality,
	params *Params,
) float64 {
	q := float64(quality)
	adjustment := params.EaseReward - (1-q)*(params.EasePenaltyBase+(1-q)*params.EasePenaltyLinear)
	newEF := currentEF + adjustment

	// Ensure ease factor stays within configured limits
	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}
	if newEF > params.MaxEaseFactor {
		newEF = params.MaxEaseFactor
	}

	return newEF
}

// calculateNewMasteryLevel moves the mastery level one step in the
// direction of the answer.
//
// Parameters:
//   - currentLevel: The card's current mastery level
//   - quality: The graded answer, 0 (wrong) or 1 (correct)
//   - params: Configuration parameters for the algorithm
//
// Returns:
//   - The new level, clamped between params.MinMastery and params.MaxMastery
func calculateNewMasteryLevel(
	currentLevel int,
	quality domain.ReviewQuality,
	params *Params,
) int {
	level := currentLevel
	if quality == domain.ReviewQualityCorrect {
		level++
	} else {
		level--
	}

	if level > params.MaxMastery {
		level = params.MaxMastery
	}
	if level < params.MinMastery {
		level = params.MinMastery
	}

	return level
}

// reviewIntervalDays looks up how many days to wait before the next
// review of a card that just reached the given mastery level.
//
// The lookup is indexed by the NEW level, not the old one, so a word
// answered correctly at level 2 is scheduled with the level-3 offset.
// Levels past the end of the table use the fallback offset.
func reviewIntervalDays(newLevel int, params *Params) int {
	if newLevel < 0 || newLevel >= len(params.ReviewIntervals) {
		return params.FallbackIntervalDays
	}
	return params.ReviewIntervals[newLevel]
}

// queueIntervalDays looks up the immersive review queue offset for a
// stage. Stages beyond the table reuse the final, longest offset.
func queueIntervalDays(stage int, params *Params) int {
	if len(params.QueueIntervals) == 0 {
		return 0
	}
	if stage < 0 {
		stage = 0
	}
	if stage >= len(params.QueueIntervals) {
		stage = len(params.QueueIntervals) - 1
	}
	return params.QueueIntervals[stage]
}

// calculateNextProgress creates a new CardProgress with updated values
// after a graded review.
//
// This is a pure function: it copies the input rather than mutating it,
// which keeps the scheduling step trivially testable and lets callers
// compare old and new state when deciding what to persist.
//
// Parameters:
//   - progress: The card's current scheduling state
//   - quality: The graded answer, 0 (wrong) or 1 (correct)
//   - now: The instant the review happened
//   - params: Configuration parameters for the algorithm
//
// Returns:
//   - A new CardProgress with updated values
//
// Algorithm behavior:
//   - Increments review count and stamps LastReviewedAt
//   - Recomputes the ease factor (see calculateNewEaseFactor)
//   - Moves the mastery level one step up or down, clamped
//   - Schedules the next review from the NEW level's interval table entry
func calculateNextProgress(
	progress *domain.CardProgress,
	quality domain.ReviewQuality,
	now time.Time,
	params *Params,
) *domain.CardProgress {
	next := &domain.CardProgress{
		Word:           progress.Word,
		MasteryLevel:   progress.MasteryLevel,
		EaseFactor:     progress.EaseFactor,
		ReviewCount:    progress.ReviewCount,
		LastReviewedAt: progress.LastReviewedAt,
		NextReviewAt:   progress.NextReviewAt,
		Context:        progress.Context,
		UpdatedAt:      progress.UpdatedAt,
	}

	next.ReviewCount++
	next.LastReviewedAt = now.UTC()
	next.EaseFactor = calculateNewEaseFactor(progress.EaseFactor, quality, params)
	next.MasteryLevel = calculateNewMasteryLevel(progress.MasteryLevel, quality, params)

	days := reviewIntervalDays(next.MasteryLevel, params)
	next.NextReviewAt = now.UTC().AddDate(0, 0, days)
	next.UpdatedAt = now.UTC()

	return next
}
