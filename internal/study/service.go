// Package study grades glossary flashcards and tracks review progress.
package study

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "stock-academy/internal/errors"
	"stock-academy/internal/logging"
	"stock-academy/internal/models"
	"stock-academy/internal/security"
	"stock-academy/internal/srs"
	"stock-academy/internal/store"
)

// ServiceConfig wires a Service. Store is required.
type ServiceConfig struct {
	Store     store.ProgressStore
	Clock     func() time.Time
	Audit     *security.AuditLogger
	Access    *security.AccessController
	Validator *security.InputValidator
	Logger    zerolog.Logger
}

// Service grades reviews with the SM-2 scheduler and persists the result.
type Service struct {
	store     store.ProgressStore
	scheduler *srs.Scheduler
	now       func() time.Time
	audit     *security.AuditLogger
	access    *security.AccessController
	validator *security.InputValidator
	logger    zerolog.Logger

	// serializes read-modify-write of a term's progress
	mu sync.Mutex
}

// NewService creates a study service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("study service requires a store")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Validator == nil {
		cfg.Validator = security.NewInputValidator(true)
	}

	return &Service{
		store:     cfg.Store,
		scheduler: srs.NewScheduler().WithClock(cfg.Clock),
		now:       cfg.Clock,
		audit:     cfg.Audit,
		access:    cfg.Access,
		validator: cfg.Validator,
		logger:    cfg.Logger.With().Str("component", "study").Logger(),
	}, nil
}

// NormalizeTermID returns the canonical form of a glossary term id.
func NormalizeTermID(termID string) string {
	return strings.ToLower(strings.TrimSpace(termID))
}

// Grade records a review of termID graded quality on the 0-5 scale.
// Out-of-range quality is clamped.
func (s *Service) Grade(ctx context.Context, termID string, quality float64) (models.ReviewProgress, error) {
	if s.access != nil {
		if err := s.access.CheckPermission(ctx, security.OpGrade); err != nil {
			return models.ReviewProgress{}, err
		}
	}

	termID = NormalizeTermID(termID)
	if err := s.validator.ValidateTermID(termID); err != nil {
		if s.audit != nil {
			s.audit.LogInputValidation(ctx, "term", termID, err.Error())
		}
		return models.ReviewProgress{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx, termID)
	if err != nil {
		return models.ReviewProgress{}, err
	}

	next := s.scheduler.ApplyReview(current, quality)
	if err := s.store.SaveProgress(ctx, next); err != nil {
		return models.ReviewProgress{}, apperrors.Wrapf(err, "saving progress for %s", termID)
	}

	logging.LogReview(logging.WithTerm(s.logger, termID), next.LastQuality, next.Interval, next.EaseFactor, next.NextReviewAt)
	if s.audit != nil {
		s.audit.LogReview(ctx, termID, next.LastQuality, next.Interval, next.EaseFactor)
	}
	return next, nil
}

// GradeBinary records a right/wrong answer, mapping it to a quality grade.
func (s *Service) GradeBinary(ctx context.Context, termID string, correct, confident bool) (models.ReviewProgress, error) {
	return s.Grade(ctx, termID, float64(srs.QualityFromBinaryOutcome(correct, confident)))
}

// Progress returns the progress of termID. A term that was never reviewed
// reports a new card that is due now.
func (s *Service) Progress(ctx context.Context, termID string) (models.ReviewProgress, error) {
	termID = NormalizeTermID(termID)
	if err := s.validator.ValidateTermID(termID); err != nil {
		return models.ReviewProgress{}, err
	}
	return s.load(ctx, termID)
}

// Due returns terms due within window from now, most overdue first.
// A limit of zero or less returns every due term.
func (s *Service) Due(ctx context.Context, window time.Duration, limit int) ([]models.ReviewProgress, error) {
	cutoff := s.now().Add(window)
	due, err := s.store.ListProgress(ctx, store.ProgressFilter{DueBefore: cutoff, Limit: limit})
	if err != nil {
		return nil, apperrors.Wrap(err, "listing due terms")
	}
	return srs.DueTerms(due, cutoff), nil
}

// Stats summarizes every reviewed term.
func (s *Service) Stats(ctx context.Context) (srs.DeckStats, error) {
	all, err := s.store.ListProgress(ctx, store.ProgressFilter{})
	if err != nil {
		return srs.DeckStats{}, apperrors.Wrap(err, "listing progress")
	}
	return srs.Summarize(all, s.now()), nil
}

// Level returns the confidence level of a progress record.
func Level(p models.ReviewProgress) models.ConfidenceLevel {
	return srs.ConfidenceLevelFor(p.EaseFactor, p.Repetitions)
}

func (s *Service) load(ctx context.Context, termID string) (models.ReviewProgress, error) {
	p, err := s.store.GetProgress(ctx, termID)
	if apperrors.Is(err, apperrors.ErrDataNotFound) {
		return srs.NewProgress(termID, s.now()), nil
	}
	if err != nil {
		return models.ReviewProgress{}, apperrors.Wrapf(err, "loading progress for %s", termID)
	}
	return p, nil
}
