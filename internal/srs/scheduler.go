// Package srs implements the SM-2 style spaced-repetition scheduler used for
// glossary flashcards.
package srs

import (
	"math"
	"time"

	"stock-academy/internal/models"
)

const (
	// DefaultEaseFactor is the ease factor of a card that has never been reviewed.
	DefaultEaseFactor = 2.5
	// MinEaseFactor is the lower bound of the ease factor.
	MinEaseFactor = 1.3

	// MinQuality and MaxQuality bound the recall grade.
	MinQuality = 0
	MaxQuality = 5
	// PassingQuality is the lowest grade counted as a successful recall.
	PassingQuality = 3

	firstInterval  = 1
	secondInterval = 6

	// MasteryEaseFactor is the ease factor a card needs to count as mastered.
	MasteryEaseFactor = 2.3
	// MasteryRepetitions is the repetition count a card needs to count as mastered.
	MasteryRepetitions = 5

	day = 24 * time.Hour
)

// Scheduler computes review outcomes. The zero value is not usable; use NewScheduler.
type Scheduler struct {
	now func() time.Time
}

// NewScheduler creates a scheduler reading the wall clock.
func NewScheduler() *Scheduler {
	return &Scheduler{now: time.Now}
}

// WithClock returns a scheduler that reads the current time from now.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	return &Scheduler{now: now}
}

var defaultScheduler = NewScheduler()

// NextReview grades a review using the wall clock. See Scheduler.NextReview.
func NextReview(quality float64, prior *models.CardState) models.ReviewOutcome {
	return defaultScheduler.NextReview(quality, prior)
}

// NextReview computes the new card state and due time after a review graded
// quality. A nil prior means the card has never been seen. Out-of-range input is
// sanitized rather than rejected.
func (s *Scheduler) NextReview(quality float64, prior *models.CardState) models.ReviewOutcome {
	q := ClampQuality(quality)
	state := sanitizeState(prior)

	ease := nextEaseFactor(state.EaseFactor, q)

	var interval, repetitions int
	if q < PassingQuality {
		repetitions = 0
		interval = firstInterval
	} else {
		repetitions = state.Repetitions + 1
		switch repetitions {
		case 1:
			interval = firstInterval
		case 2:
			interval = secondInterval
		default:
			interval = int(math.Round(float64(state.Interval) * ease))
			if interval < firstInterval {
				interval = firstInterval
			}
		}
	}

	return models.ReviewOutcome{
		EaseFactor:   ease,
		Interval:     interval,
		Repetitions:  repetitions,
		NextReviewAt: s.now().Add(time.Duration(interval) * day),
	}
}

// ClampQuality rounds quality to the nearest integer in [MinQuality, MaxQuality].
// NaN is treated as MinQuality.
func ClampQuality(quality float64) int {
	if math.IsNaN(quality) {
		return MinQuality
	}
	q := math.Round(quality)
	if q < MinQuality {
		return MinQuality
	}
	if q > MaxQuality {
		return MaxQuality
	}
	return int(q)
}

func nextEaseFactor(ease float64, q int) float64 {
	miss := float64(MaxQuality - q)
	next := ease + (0.1 - miss*(0.08+miss*0.02))
	return math.Max(MinEaseFactor, next)
}

func sanitizeState(prior *models.CardState) models.CardState {
	if prior == nil {
		return models.CardState{EaseFactor: DefaultEaseFactor}
	}
	state := *prior
	switch {
	case math.IsNaN(state.EaseFactor) || math.IsInf(state.EaseFactor, 0):
		state.EaseFactor = DefaultEaseFactor
	case state.EaseFactor < MinEaseFactor:
		state.EaseFactor = MinEaseFactor
	}
	if state.Interval < 0 {
		state.Interval = 0
	}
	if state.Repetitions < 0 {
		state.Repetitions = 0
	}
	return state
}

// QualityFromBinaryOutcome maps a "knew it / didn't know it" answer onto the
// quality scale.
func QualityFromBinaryOutcome(correct, confident bool) int {
	switch {
	case !correct:
		return 1
	case confident:
		return 5
	default:
		return 4
	}
}

// ConfidenceLevelFor classifies a card for display. It plays no part in scheduling.
func ConfidenceLevelFor(easeFactor float64, repetitions int) models.ConfidenceLevel {
	switch {
	case repetitions <= 0:
		return models.ConfidenceNew
	case repetitions == 1:
		return models.ConfidenceLearning
	case repetitions == 2:
		return models.ConfidenceFamiliar
	case repetitions < MasteryRepetitions:
		return models.ConfidenceConfident
	case easeFactor >= MasteryEaseFactor:
		return models.ConfidenceMastered
	default:
		return models.ConfidenceAlmostMastered
	}
}
