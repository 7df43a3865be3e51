package ledger

import (
	"fmt"
	"math"
	"time"

	"stock-academy/internal/errors"
	"stock-academy/internal/models"
)

// portfolioState is the complete ledger state. Transitions never mutate their
// receiver; they return a new state that the Ledger commits as a whole.
type portfolioState struct {
	cash          float64
	positions     map[string]models.Position
	positionsList []models.Position
	trades        []models.Trade // newest first
	lastUpdated   time.Time
	resetCount    int
	maxResets     int
	lastResetAt   *time.Time
	resetRequests []models.ResetRequest // oldest first
}

// order is a validated trade intent.
type order struct {
	symbol string
	shares float64
	price  float64
}

func freshState(initialCash float64, maxResets int, now time.Time) portfolioState {
	return portfolioState{
		cash:          initialCash,
		positions:     make(map[string]models.Position),
		positionsList: []models.Position{},
		trades:        []models.Trade{},
		lastUpdated:   now,
		maxResets:     maxResets,
		resetRequests: []models.ResetRequest{},
	}
}

func (s portfolioState) clone() portfolioState {
	out := s
	out.positions = make(map[string]models.Position, len(s.positions))
	for k, v := range s.positions {
		out.positions[k] = v
	}
	out.positionsList = append([]models.Position(nil), s.positionsList...)
	out.trades = append([]models.Trade(nil), s.trades...)
	out.resetRequests = append([]models.ResetRequest(nil), s.resetRequests...)
	if s.lastResetAt != nil {
		t := *s.lastResetAt
		out.lastResetAt = &t
	}
	return out
}

// putPosition writes p to both the map and the list view.
func (s *portfolioState) putPosition(p models.Position) {
	if _, exists := s.positions[p.Symbol]; exists {
		for i := range s.positionsList {
			if s.positionsList[i].Symbol == p.Symbol {
				s.positionsList[i] = p
				break
			}
		}
	} else {
		s.positionsList = append(s.positionsList, p)
	}
	s.positions[p.Symbol] = p
}

// dropPosition removes symbol from both the map and the list view.
func (s *portfolioState) dropPosition(symbol string) {
	delete(s.positions, symbol)
	for i := range s.positionsList {
		if s.positionsList[i].Symbol == symbol {
			s.positionsList = append(s.positionsList[:i], s.positionsList[i+1:]...)
			break
		}
	}
}

// recordTrade prepends t and drops the oldest trades beyond maxTrades.
func (s *portfolioState) recordTrade(t models.Trade, maxTrades int) {
	s.trades = append([]models.Trade{t}, s.trades...)
	if maxTrades > 0 && len(s.trades) > maxTrades {
		s.trades = s.trades[:maxTrades]
	}
}

// checkIndex verifies that the positions list is exactly the values of the map.
func (s portfolioState) checkIndex() error {
	if len(s.positionsList) != len(s.positions) {
		return fmt.Errorf("positions list has %d entries, map has %d", len(s.positionsList), len(s.positions))
	}
	seen := make(map[string]bool, len(s.positionsList))
	for _, p := range s.positionsList {
		if seen[p.Symbol] {
			return fmt.Errorf("position %s listed twice", p.Symbol)
		}
		seen[p.Symbol] = true
		if m, ok := s.positions[p.Symbol]; !ok || m != p {
			return fmt.Errorf("position %s differs between list and map", p.Symbol)
		}
	}
	return nil
}

func validAmount(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// validateOrder checks the quantity, price and symbol of an order, in that order.
func validateOrder(action string, o order) error {
	if !validAmount(o.shares) {
		return errors.NewTradeError(o.symbol, action, fmt.Sprintf("got %v", o.shares), errors.ErrInvalidQuantity)
	}
	if !validAmount(o.price) {
		return errors.NewTradeError(o.symbol, action, fmt.Sprintf("got %v", o.price), errors.ErrInvalidPrice)
	}
	if o.symbol == "" {
		return errors.NewTradeError(o.symbol, action, "", errors.ErrInvalidSymbol)
	}
	return nil
}

func applyBuy(s portfolioState, o order, id string, now time.Time, maxTrades int) (portfolioState, models.Trade, error) {
	if err := validateOrder("buy", o); err != nil {
		return s, models.Trade{}, err
	}
	cost := o.shares * o.price
	if cost > s.cash {
		reason := fmt.Sprintf("need %.2f, have %.2f", cost, s.cash)
		return s, models.Trade{}, errors.NewTradeError(o.symbol, "buy", reason, errors.ErrInsufficientFunds)
	}

	next := s.clone()
	next.cash -= cost

	pos, exists := next.positions[o.symbol]
	if exists {
		pos.Shares += o.shares
		pos.TotalCost += cost
		pos.AverageCost = pos.TotalCost / pos.Shares
	} else {
		pos = models.Position{
			Symbol:      o.symbol,
			Shares:      o.shares,
			AverageCost: o.price,
			TotalCost:   cost,
		}
	}
	next.putPosition(pos)

	trade := models.Trade{
		ID:            id,
		Symbol:        o.symbol,
		Type:          models.TradeBuy,
		Shares:        o.shares,
		PricePerShare: o.price,
		TotalValue:    cost,
		Timestamp:     now,
	}
	next.recordTrade(trade, maxTrades)
	next.lastUpdated = now
	return next, trade, nil
}

func applySell(s portfolioState, o order, id string, now time.Time, maxTrades int) (portfolioState, models.Trade, error) {
	if err := validateOrder("sell", o); err != nil {
		return s, models.Trade{}, err
	}
	pos, exists := s.positions[o.symbol]
	if !exists {
		return s, models.Trade{}, errors.NewTradeError(o.symbol, "sell", "", errors.ErrPositionNotFound)
	}
	if o.shares > pos.Shares {
		reason := fmt.Sprintf("have %s", formatShares(pos.Shares))
		return s, models.Trade{}, errors.NewTradeError(o.symbol, "sell", reason, errors.ErrInsufficientShares)
	}

	proceeds := o.shares * o.price

	next := s.clone()
	next.cash += proceeds

	pos.Shares -= o.shares
	if pos.Shares == 0 {
		next.dropPosition(o.symbol)
	} else {
		pos.TotalCost = pos.Shares * pos.AverageCost
		next.putPosition(pos)
	}

	trade := models.Trade{
		ID:            id,
		Symbol:        o.symbol,
		Type:          models.TradeSell,
		Shares:        o.shares,
		PricePerShare: o.price,
		TotalValue:    proceeds,
		Timestamp:     now,
	}
	next.recordTrade(trade, maxTrades)
	next.lastUpdated = now
	return next, trade, nil
}

func applyReset(s portfolioState, initialCash float64, now time.Time) (portfolioState, bool) {
	if s.resetCount >= s.maxResets {
		return s, false
	}
	next := s.clone()
	next.cash = initialCash
	next.positions = make(map[string]models.Position)
	next.positionsList = []models.Position{}
	next.trades = []models.Trade{}
	next.resetCount++
	resetAt := now
	next.lastResetAt = &resetAt
	next.lastUpdated = now
	return next, true
}

func applyResetRequest(s portfolioState, req models.ResetRequest, maxRequests int) portfolioState {
	next := s.clone()
	next.resetRequests = append(next.resetRequests, req)
	if maxRequests > 0 && len(next.resetRequests) > maxRequests {
		next.resetRequests = next.resetRequests[len(next.resetRequests)-maxRequests:]
	}
	next.lastUpdated = req.RequestedAt
	return next
}

func formatShares(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%g", v)
}
