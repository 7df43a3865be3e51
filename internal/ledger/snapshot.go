package ledger

import (
	"math"
	"time"

	"stock-academy/internal/errors"
	"stock-academy/internal/models"
)

// Snapshot returns the persisted form of the current state.
func (l *Ledger) Snapshot() *models.PortfolioSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.snapshot()
}

// Restore replaces the ledger state with a persisted snapshot. A malformed
// snapshot is rejected with ErrCorruptSnapshot and the ledger is left unchanged.
func (l *Ledger) Restore(snap *models.PortfolioSnapshot) error {
	state, err := stateFromSnapshot(snap, l.opts)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = state
	l.logger.Debug().
		Int("positions", len(state.positions)).
		Int("trades", len(state.trades)).
		Msg("Portfolio restored")
	return nil
}

// NewFromSnapshot creates a ledger from a persisted snapshot. A nil snapshot
// yields a fresh ledger.
func NewFromSnapshot(snap *models.PortfolioSnapshot, opts Options) (*Ledger, error) {
	l := New(opts)
	if snap == nil {
		return l, nil
	}
	if err := l.Restore(snap); err != nil {
		return nil, err
	}
	return l, nil
}

func (s portfolioState) snapshot() *models.PortfolioSnapshot {
	snap := &models.PortfolioSnapshot{
		Version:       models.SnapshotVersion,
		Cash:          s.cash,
		Positions:     make(map[string]models.Position, len(s.positions)),
		PositionsList: append([]models.Position{}, s.positionsList...),
		Trades:        make([]models.TradeRecord, 0, len(s.trades)),
		LastUpdated:   s.lastUpdated.UnixMilli(),
		ResetCount:    s.resetCount,
		MaxResets:     s.maxResets,
		ResetRequests: make([]models.ResetRequestRecord, 0, len(s.resetRequests)),
	}
	for k, v := range s.positions {
		snap.Positions[k] = v
	}
	for _, t := range s.trades {
		snap.Trades = append(snap.Trades, t.Record())
	}
	for _, r := range s.resetRequests {
		snap.ResetRequests = append(snap.ResetRequests, r.Record())
	}
	if s.lastResetAt != nil {
		ms := s.lastResetAt.UnixMilli()
		snap.LastResetAt = &ms
	}
	return snap
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func stateFromSnapshot(snap *models.PortfolioSnapshot, opts Options) (portfolioState, error) {
	if snap == nil {
		return portfolioState{}, errors.NewSnapshotError("snapshot", "missing")
	}
	if snap.Version != models.SnapshotVersion {
		return portfolioState{}, errors.NewSnapshotError("version", "unsupported version %d", snap.Version)
	}
	if !finite(snap.Cash) || snap.Cash < 0 {
		return portfolioState{}, errors.NewSnapshotError("cash", "invalid balance %v", snap.Cash)
	}
	if snap.ResetCount < 0 {
		return portfolioState{}, errors.NewSnapshotError("resetCount", "negative count %d", snap.ResetCount)
	}
	if snap.MaxResets <= 0 {
		return portfolioState{}, errors.NewSnapshotError("maxResets", "invalid allowance %d", snap.MaxResets)
	}

	state := portfolioState{
		cash:          snap.Cash,
		positions:     make(map[string]models.Position, len(snap.Positions)),
		positionsList: make([]models.Position, 0, len(snap.PositionsList)),
		trades:        make([]models.Trade, 0, len(snap.Trades)),
		lastUpdated:   time.UnixMilli(snap.LastUpdated),
		resetCount:    snap.ResetCount,
		maxResets:     snap.MaxResets,
		resetRequests: make([]models.ResetRequest, 0, len(snap.ResetRequests)),
	}

	for key, p := range snap.Positions {
		if key != p.Symbol || key != NormalizeSymbol(key) || key == "" {
			return portfolioState{}, errors.NewSnapshotError("positions", "bad key %q for symbol %q", key, p.Symbol)
		}
		if !validAmount(p.Shares) || !validAmount(p.AverageCost) || !validAmount(p.TotalCost) {
			return portfolioState{}, errors.NewSnapshotError("positions", "position %s has non-positive amounts", key)
		}
		state.positions[key] = p
	}
	state.positionsList = append(state.positionsList, snap.PositionsList...)
	if err := state.checkIndex(); err != nil {
		return portfolioState{}, errors.NewSnapshotError("positionsList", "%v", err)
	}

	for i, r := range snap.Trades {
		if !r.Type.Valid() {
			return portfolioState{}, errors.NewSnapshotError("trades", "trade %d has type %q", i, r.Type)
		}
		state.trades = append(state.trades, r.Trade())
	}
	if len(state.trades) > opts.MaxTrades {
		state.trades = state.trades[:opts.MaxTrades]
	}

	for i, r := range snap.ResetRequests {
		if !r.Status.Valid() {
			return portfolioState{}, errors.NewSnapshotError("resetRequests", "request %d has status %q", i, r.Status)
		}
		state.resetRequests = append(state.resetRequests, r.ResetRequest())
	}
	if n := len(state.resetRequests); n > opts.MaxResetRequests {
		state.resetRequests = state.resetRequests[n-opts.MaxResetRequests:]
	}

	if snap.LastResetAt != nil {
		t := time.UnixMilli(*snap.LastResetAt)
		state.lastResetAt = &t
	}
	return state, nil
}
