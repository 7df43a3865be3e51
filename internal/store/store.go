// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"stock-academy/internal/models"
)

// PortfolioKey is the key of the single learner portfolio snapshot.
const PortfolioKey = "portfolio"

// SnapshotStore persists versioned portfolio snapshots.
type SnapshotStore interface {
	SavePortfolio(ctx context.Context, key string, snap *models.PortfolioSnapshot) error
	// LoadPortfolio returns ErrDataNotFound when nothing was saved under key.
	LoadPortfolio(ctx context.Context, key string) (*models.PortfolioSnapshot, error)
}

// ProgressStore persists flashcard review progress per glossary term.
type ProgressStore interface {
	SaveProgress(ctx context.Context, progress models.ReviewProgress) error
	// GetProgress returns ErrDataNotFound when the term was never reviewed.
	GetProgress(ctx context.Context, termID string) (models.ReviewProgress, error)
	ListProgress(ctx context.Context, filter ProgressFilter) ([]models.ReviewProgress, error)
}

// TradeArchive keeps every executed trade, beyond the in-memory history cap.
type TradeArchive interface {
	LogTrade(ctx context.Context, trade models.Trade) error
	GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error)
}

// DataStore defines the interface for data persistence.
type DataStore interface {
	SnapshotStore
	ProgressStore
	TradeArchive

	// Lifecycle
	Close() error
}

// TradeFilter represents filters for querying archived trades.
// Results are ordered newest first.
type TradeFilter struct {
	Symbol    string
	Type      models.TradeType
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// ProgressFilter represents filters for querying review progress.
// Results are ordered by next review time, earliest first.
type ProgressFilter struct {
	DueBefore time.Time // zero means no due filter
	Limit     int
}

func (f TradeFilter) matches(t models.Trade) bool {
	if f.Symbol != "" && t.Symbol != f.Symbol {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if !f.StartDate.IsZero() && t.Timestamp.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsZero() && t.Timestamp.After(f.EndDate) {
		return false
	}
	return true
}

func (f ProgressFilter) matches(p models.ReviewProgress) bool {
	return f.DueBefore.IsZero() || !p.NextReviewAt.After(f.DueBefore)
}
