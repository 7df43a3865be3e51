package models

import "time"

// CardState holds the scheduling parameters of one flashcard.
type CardState struct {
	EaseFactor  float64 `json:"easeFactor"`
	Interval    int     `json:"interval"` // days
	Repetitions int     `json:"repetitions"`
}

// ReviewOutcome is the result of grading one review.
type ReviewOutcome struct {
	EaseFactor   float64
	Interval     int
	Repetitions  int
	NextReviewAt time.Time
}

// State returns the card state carried by the outcome.
func (o ReviewOutcome) State() CardState {
	return CardState{
		EaseFactor:  o.EaseFactor,
		Interval:    o.Interval,
		Repetitions: o.Repetitions,
	}
}

// ReviewProgress is the persisted review history of a glossary term.
type ReviewProgress struct {
	TermID         string
	EaseFactor     float64
	Interval       int
	Repetitions    int
	NextReviewAt   time.Time
	ReviewCount    int
	LastQuality    int
	LastReviewedAt time.Time
}

// State returns the card state of the progress record.
func (p ReviewProgress) State() CardState {
	return CardState{
		EaseFactor:  p.EaseFactor,
		Interval:    p.Interval,
		Repetitions: p.Repetitions,
	}
}

// ConfidenceLevel is a display classification of how well a term is known.
type ConfidenceLevel int

const (
	ConfidenceNew ConfidenceLevel = iota
	ConfidenceLearning
	ConfidenceFamiliar
	ConfidenceConfident
	ConfidenceAlmostMastered
	ConfidenceMastered
)

func (l ConfidenceLevel) String() string {
	switch l {
	case ConfidenceNew:
		return "New"
	case ConfidenceLearning:
		return "Learning"
	case ConfidenceFamiliar:
		return "Familiar"
	case ConfidenceConfident:
		return "Confident"
	case ConfidenceAlmostMastered:
		return "Almost mastered"
	case ConfidenceMastered:
		return "Mastered"
	}
	return "Unknown"
}
