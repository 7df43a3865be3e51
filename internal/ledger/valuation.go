package ledger

import "stock-academy/internal/models"

// normalizePrices keys a price map by canonical symbol.
func normalizePrices(prices map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(prices))
	for sym, p := range prices {
		out[NormalizeSymbol(sym)] = p
	}
	return out
}

// PortfolioValue returns cash plus the market value of every position with a
// known price. A position missing from prices contributes nothing, so the
// total understates the account until a quote is available.
func (l *Ledger) PortfolioValue(prices map[string]float64) float64 {
	quotes := normalizePrices(prices)

	l.mu.RLock()
	defer l.mu.RUnlock()

	total := l.state.cash
	for _, p := range l.state.positionsList {
		if price, ok := quotes[p.Symbol]; ok {
			total += p.Shares * price
		}
	}
	return total
}

// TotalGainLoss returns the unrealized gain or loss over positions with a known
// price. Unpriced positions are left out of both the market value and the cost basis.
func (l *Ledger) TotalGainLoss(prices map[string]float64) models.GainLoss {
	quotes := normalizePrices(prices)

	l.mu.RLock()
	defer l.mu.RUnlock()

	var marketValue, costBasis float64
	for _, p := range l.state.positionsList {
		price, ok := quotes[p.Symbol]
		if !ok {
			continue
		}
		marketValue += p.Shares * price
		costBasis += p.TotalCost
	}

	gl := models.GainLoss{Amount: marketValue - costBasis}
	if costBasis != 0 {
		gl.Percent = gl.Amount / costBasis * 100
	}
	return gl
}

// MarketValue returns the value of one position at price.
func MarketValue(p models.Position, price float64) float64 {
	return p.Shares * price
}
