package srs

import (
	"sort"
	"time"

	"stock-academy/internal/models"
)

// NewProgress returns the progress record of a term that has never been reviewed.
// A new term is due immediately.
func NewProgress(termID string, now time.Time) models.ReviewProgress {
	return models.ReviewProgress{
		TermID:       termID,
		EaseFactor:   DefaultEaseFactor,
		NextReviewAt: now,
	}
}

// ApplyReview folds one graded review into a progress record.
func (s *Scheduler) ApplyReview(progress models.ReviewProgress, quality float64) models.ReviewProgress {
	var prior *models.CardState
	if progress.ReviewCount > 0 {
		state := progress.State()
		prior = &state
	}
	outcome := s.NextReview(quality, prior)

	progress.EaseFactor = outcome.EaseFactor
	progress.Interval = outcome.Interval
	progress.Repetitions = outcome.Repetitions
	progress.NextReviewAt = outcome.NextReviewAt
	progress.ReviewCount++
	progress.LastQuality = ClampQuality(quality)
	progress.LastReviewedAt = s.now()
	return progress
}

// IsDue reports whether the term should be reviewed at now.
func IsDue(progress models.ReviewProgress, now time.Time) bool {
	return !progress.NextReviewAt.After(now)
}

// DueTerms returns the records due at now, earliest next review first. Ties
// are ordered by term id.
func DueTerms(progress []models.ReviewProgress, now time.Time) []models.ReviewProgress {
	due := make([]models.ReviewProgress, 0, len(progress))
	for _, p := range progress {
		if IsDue(p, now) {
			due = append(due, p)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].NextReviewAt.Equal(due[j].NextReviewAt) {
			return due[i].NextReviewAt.Before(due[j].NextReviewAt)
		}
		return due[i].TermID < due[j].TermID
	})
	return due
}

// DeckStats summarizes a set of progress records.
type DeckStats struct {
	TotalTerms    int
	TotalReviews  int
	DueNow        int
	AvgEaseFactor float64
	ByLevel       map[models.ConfidenceLevel]int
}

// Summarize computes deck statistics at now.
func Summarize(progress []models.ReviewProgress, now time.Time) DeckStats {
	stats := DeckStats{
		TotalTerms: len(progress),
		ByLevel:    make(map[models.ConfidenceLevel]int),
	}
	var easeSum float64
	for _, p := range progress {
		stats.TotalReviews += p.ReviewCount
		if IsDue(p, now) {
			stats.DueNow++
		}
		easeSum += p.EaseFactor
		stats.ByLevel[ConfidenceLevelFor(p.EaseFactor, p.Repetitions)]++
	}
	if len(progress) > 0 {
		stats.AvgEaseFactor = easeSum / float64(len(progress))
	}
	return stats
}
