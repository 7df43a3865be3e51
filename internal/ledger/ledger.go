// Package ledger implements the paper-trading account: a cash balance,
// per-symbol positions, a bounded trade log and the reset policy.
package ledger

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stock-academy/internal/models"
)

// Defaults for a new paper portfolio.
const (
	DefaultInitialCash      = 100000.0
	DefaultMaxResets        = 3
	DefaultMaxTrades        = 100
	DefaultMaxResetRequests = 10
)

// Options configures a Ledger.
type Options struct {
	InitialCash      float64
	MaxResets        int
	MaxTrades        int
	MaxResetRequests int
	Logger           zerolog.Logger
	Clock            func() time.Time
	NewID            func() string
}

func (o Options) withDefaults() Options {
	if o.InitialCash <= 0 {
		o.InitialCash = DefaultInitialCash
	}
	if o.MaxResets <= 0 {
		o.MaxResets = DefaultMaxResets
	}
	if o.MaxTrades <= 0 {
		o.MaxTrades = DefaultMaxTrades
	}
	if o.MaxResetRequests <= 0 {
		o.MaxResetRequests = DefaultMaxResetRequests
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

// Ledger is a single learner's simulated brokerage account. All methods are
// safe for concurrent use; each mutation is applied as one transition.
type Ledger struct {
	opts   Options
	logger zerolog.Logger

	state portfolioState
	mu    sync.RWMutex
}

// New creates a ledger holding the initial cash balance and nothing else.
func New(opts Options) *Ledger {
	opts = opts.withDefaults()
	return &Ledger{
		opts:   opts,
		logger: opts.Logger.With().Str("component", "ledger").Logger(),
		state:  freshState(opts.InitialCash, opts.MaxResets, opts.Clock()),
	}
}

// NormalizeSymbol returns the canonical form of a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// CheckOrder runs the checks Buy and Sell apply before looking at cash or
// positions. side is "buy" or "sell".
func CheckOrder(side, symbol string, shares, pricePerShare float64) error {
	return validateOrder(side, order{symbol: NormalizeSymbol(symbol), shares: shares, price: pricePerShare})
}

// Buy debits cash and adds shares to the symbol's position.
func (l *Ledger) Buy(symbol string, shares, pricePerShare float64) (models.Trade, error) {
	o := order{symbol: NormalizeSymbol(symbol), shares: shares, price: pricePerShare}

	l.mu.Lock()
	defer l.mu.Unlock()

	next, trade, err := applyBuy(l.state, o, l.opts.NewID(), l.opts.Clock(), l.opts.MaxTrades)
	if err != nil {
		l.logger.Debug().Err(err).Str("symbol", o.symbol).Msg("Buy rejected")
		return models.Trade{}, err
	}
	l.state = next
	l.logger.Debug().
		Str("symbol", trade.Symbol).
		Float64("shares", trade.Shares).
		Float64("price", trade.PricePerShare).
		Float64("cash", next.cash).
		Msg("Buy applied")
	return trade, nil
}

// Sell credits cash and removes shares from the symbol's position. The average
// cost of the remaining shares is unchanged.
func (l *Ledger) Sell(symbol string, shares, pricePerShare float64) (models.Trade, error) {
	o := order{symbol: NormalizeSymbol(symbol), shares: shares, price: pricePerShare}

	l.mu.Lock()
	defer l.mu.Unlock()

	next, trade, err := applySell(l.state, o, l.opts.NewID(), l.opts.Clock(), l.opts.MaxTrades)
	if err != nil {
		l.logger.Debug().Err(err).Str("symbol", o.symbol).Msg("Sell rejected")
		return models.Trade{}, err
	}
	l.state = next
	l.logger.Debug().
		Str("symbol", trade.Symbol).
		Float64("shares", trade.Shares).
		Float64("price", trade.PricePerShare).
		Float64("cash", next.cash).
		Msg("Sell applied")
	return trade, nil
}

// Reset restores the initial cash balance and clears positions and trades.
// It returns false, changing nothing, once the reset allowance is used up.
func (l *Ledger) Reset() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, ok := applyReset(l.state, l.opts.InitialCash, l.opts.Clock())
	if !ok {
		l.logger.Debug().Int("reset_count", l.state.resetCount).Msg("Reset limit reached")
		return false
	}
	l.state = next
	l.logger.Debug().Int("reset_count", next.resetCount).Msg("Portfolio reset")
	return true
}

// CanReset reports whether a reset is still allowed.
func (l *Ledger) CanReset() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.resetCount < l.state.maxResets
}

// RemainingResets returns how many resets are left.
func (l *Ledger) RemainingResets() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n := l.state.maxResets - l.state.resetCount; n > 0 {
		return n
	}
	return 0
}

// RequestAdditionalReset queues a pending request for an extra reset. The
// ledger never grants it by itself.
func (l *Ledger) RequestAdditionalReset(reason string) models.ResetRequest {
	l.mu.Lock()
	defer l.mu.Unlock()

	req := models.ResetRequest{
		ID:          l.opts.NewID(),
		RequestedAt: l.opts.Clock(),
		Reason:      strings.TrimSpace(reason),
		Status:      models.ResetPending,
	}
	l.state = applyResetRequest(l.state, req, l.opts.MaxResetRequests)
	l.logger.Debug().Str("request_id", req.ID).Msg("Reset requested")
	return req
}

// GetPosition looks up a position, ignoring symbol case.
func (l *Ledger) GetPosition(symbol string) (models.Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.state.positions[NormalizeSymbol(symbol)]
	return p, ok
}

// Positions returns the open positions in the order they were opened.
func (l *Ledger) Positions() []models.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Position(nil), l.state.positionsList...)
}

// Cash returns the available cash balance.
func (l *Ledger) Cash() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.cash
}

// Trades returns the retained trade log, newest first.
func (l *Ledger) Trades() []models.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Trade(nil), l.state.trades...)
}

// ResetRequests returns the retained reset requests, oldest first.
func (l *Ledger) ResetRequests() []models.ResetRequest {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.ResetRequest(nil), l.state.resetRequests...)
}

// ResetCount returns the number of resets used.
func (l *Ledger) ResetCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.resetCount
}

// MaxResets returns the reset allowance.
func (l *Ledger) MaxResets() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.maxResets
}

// LastResetAt returns the time of the last reset, if any.
func (l *Ledger) LastResetAt() (time.Time, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.state.lastResetAt == nil {
		return time.Time{}, false
	}
	return *l.state.lastResetAt, true
}

// InitialCash returns the balance a reset restores.
func (l *Ledger) InitialCash() float64 {
	return l.opts.InitialCash
}
