package srs

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"stock-academy/internal/models"
)

// Property: a failed recall always resets the card to one repetition-free day.
func TestProperty_FailureResetsCard(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	s := fixedScheduler()

	properties.Property("quality < 3 gives repetitions 0, interval 1, due in one day", prop.ForAll(
		func(quality float64, ease float64, interval int, reps int) bool {
			out := s.NextReview(quality, &models.CardState{EaseFactor: ease, Interval: interval, Repetitions: reps})
			return out.Repetitions == 0 &&
				out.Interval == 1 &&
				out.NextReviewAt.Equal(fixedNow.Add(24*time.Hour))
		},
		gen.Float64Range(-10, 2.49),
		gen.Float64Range(MinEaseFactor, 4.0),
		gen.IntRange(0, 365),
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}

// Property: successful recalls progress through the 1 / 6 / round(interval*ease) tiers.
func TestProperty_SuccessTiers(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	s := fixedScheduler()

	properties.Property("interval follows the repetition tier", prop.ForAll(
		func(quality int, ease float64, interval int, reps int) bool {
			out := s.NextReview(float64(quality), &models.CardState{EaseFactor: ease, Interval: interval, Repetitions: reps})
			if out.Repetitions != reps+1 {
				return false
			}
			switch reps {
			case 0:
				return out.Interval == 1
			case 1:
				return out.Interval == 6
			default:
				return out.Interval == int(math.Round(float64(interval)*out.EaseFactor))
			}
		},
		gen.IntRange(PassingQuality, MaxQuality),
		gen.Float64Range(MinEaseFactor, 4.0),
		gen.IntRange(1, 365),
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}

// Property: no sequence of grades pushes the ease factor below its floor.
func TestProperty_EaseFactorFloor(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	s := fixedScheduler()

	properties.Property("ease factor stays >= 1.3 and interval >= 1", prop.ForAll(
		func(grades []int) bool {
			var state *models.CardState
			for _, g := range grades {
				out := s.NextReview(float64(g), state)
				if out.EaseFactor < MinEaseFactor || out.Interval < 1 {
					return false
				}
				next := out.State()
				state = &next
			}
			return true
		},
		gen.SliceOf(gen.IntRange(-2, 7)),
	))

	properties.Property("repeated blackouts pin the ease factor at the floor", prop.ForAll(
		func(n int) bool {
			var state *models.CardState
			var out models.ReviewOutcome
			for i := 0; i < n; i++ {
				out = s.NextReview(0, state)
				next := out.State()
				state = &next
			}
			return math.Abs(out.EaseFactor-MinEaseFactor) < 1e-9
		},
		gen.IntRange(3, 30),
	))

	properties.TestingRun(t)
}
