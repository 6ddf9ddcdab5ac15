package srs

// Params defines all configurable parameters for the scheduling algorithm
type Params struct {
	// Core limits
	MinEaseFactor float64
	MaxEaseFactor float64
	MinMastery    int
	MaxMastery    int

	// Ease factor adjustment terms. The penalty terms only apply to
	// wrong answers; a correct answer always earns the full reward.
	EaseReward        float64
	EasePenaltyBase   float64
	EasePenaltyLinear float64

	// Flashcard review offsets in days, indexed by the new mastery
	// level. Levels beyond the table fall back to FallbackIntervalDays.
	ReviewIntervals      []int
	FallbackIntervalDays int

	// Immersive review queue offsets in days, indexed by stage.
	// Stages beyond the table reuse the last entry.
	QueueIntervals []int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance
type ParamsConfig struct {
	// Core limits
	MinEaseFactor float64
	MaxEaseFactor float64

	// Interval tables
	ReviewIntervals      []int
	FallbackIntervalDays int
	QueueIntervals       []int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		MinEaseFactor: 1.3,
		MaxEaseFactor: 2.5,
		MinMastery:    0,
		MaxMastery:    5,

		// EF' = EF + (reward - (1-q)*(base + (1-q)*linear))
		EaseReward:        0.1,
		EasePenaltyBase:   0.08,
		EasePenaltyLinear: 0.02,

		// Indexed by the new mastery level after a review.
		ReviewIntervals:      []int{0, 1, 3, 7, 14, 30},
		FallbackIntervalDays: 30,

		// Ebbinghaus-style forgetting curve steps for queue stages.
		QueueIntervals: []int{1, 2, 4, 7, 15, 30},
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	// Override core limits if provided
	if config.MinEaseFactor > 0 {
		params.MinEaseFactor = config.MinEaseFactor
	}
	if config.MaxEaseFactor > 0 {
		params.MaxEaseFactor = config.MaxEaseFactor
	}

	// Override interval tables if provided
	if len(config.ReviewIntervals) > 0 {
		params.ReviewIntervals = config.ReviewIntervals
	}
	if config.FallbackIntervalDays > 0 {
		params.FallbackIntervalDays = config.FallbackIntervalDays
	}
	if len(config.QueueIntervals) > 0 {
		params.QueueIntervals = config.QueueIntervals
	}

	return params
}
