package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	apperrors "stock-academy/internal/errors"
	"stock-academy/internal/models"
)

// MemoryStore implements DataStore in process memory. Snapshots are kept as
// encoded JSON so callers never share state with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
	progress  map[string]models.ReviewProgress
	trades    []models.Trade
	tradeIDs  map[string]struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string][]byte),
		progress:  make(map[string]models.ReviewProgress),
		tradeIDs:  make(map[string]struct{}),
	}
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) SavePortfolio(ctx context.Context, key string, snap *models.PortfolioSnapshot) error {
	if snap == nil {
		return fmt.Errorf("nil snapshot for %q", key)
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	m.mu.Lock()
	m.snapshots[key] = payload
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) LoadPortfolio(ctx context.Context, key string) (*models.PortfolioSnapshot, error) {
	m.mu.RLock()
	payload, ok := m.snapshots[key]
	m.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewDataError("snapshot", key, "not saved yet", apperrors.ErrDataNotFound)
	}

	snap := &models.PortfolioSnapshot{}
	if err := json.Unmarshal(payload, snap); err != nil {
		return nil, apperrors.NewDataError("snapshot", key, "undecodable payload", fmt.Errorf("%w: %v", apperrors.ErrCorruptSnapshot, err))
	}
	return snap, nil
}

func (m *MemoryStore) SaveProgress(ctx context.Context, p models.ReviewProgress) error {
	m.mu.Lock()
	m.progress[p.TermID] = p
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) GetProgress(ctx context.Context, termID string) (models.ReviewProgress, error) {
	m.mu.RLock()
	p, ok := m.progress[termID]
	m.mu.RUnlock()
	if !ok {
		return models.ReviewProgress{}, apperrors.NewDataError("progress", termID, "never reviewed", apperrors.ErrDataNotFound)
	}
	return p, nil
}

func (m *MemoryStore) ListProgress(ctx context.Context, filter ProgressFilter) ([]models.ReviewProgress, error) {
	m.mu.RLock()
	var out []models.ReviewProgress
	for _, p := range m.progress {
		if filter.matches(p) {
			out = append(out, p)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].NextReviewAt.Equal(out[j].NextReviewAt) {
			return out[i].TermID < out[j].TermID
		}
		return out[i].NextReviewAt.Before(out[j].NextReviewAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryStore) LogTrade(ctx context.Context, t models.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.tradeIDs[t.ID]; dup {
		return nil
	}
	m.tradeIDs[t.ID] = struct{}{}
	m.trades = append(m.trades, t)
	return nil
}

func (m *MemoryStore) GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Trade
	// Walk backwards so ties on timestamp keep insertion order reversed.
	for i := len(m.trades) - 1; i >= 0; i-- {
		if filter.matches(m.trades[i]) {
			out = append(out, m.trades[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
