// Package models provides domain models for the learning app.
package models

import "time"

// TradeType represents the direction of a paper trade.
type TradeType string

const (
	TradeBuy  TradeType = "buy"
	TradeSell TradeType = "sell"
)

// Valid reports whether t is a known trade type.
func (t TradeType) Valid() bool {
	return t == TradeBuy || t == TradeSell
}

// Position is the aggregated holding of one symbol.
type Position struct {
	Symbol      string  `json:"symbol"`
	Shares      float64 `json:"shares"`
	AverageCost float64 `json:"averageCost"`
	TotalCost   float64 `json:"totalCost"`
}

// Trade is an executed paper trade. Trades are never modified once recorded.
type Trade struct {
	ID            string
	Symbol        string
	Type          TradeType
	Shares        float64
	PricePerShare float64
	TotalValue    float64
	Timestamp     time.Time
}

// ResetRequestStatus represents the review state of a reset request.
type ResetRequestStatus string

const (
	ResetPending  ResetRequestStatus = "pending"
	ResetApproved ResetRequestStatus = "approved"
	ResetDenied   ResetRequestStatus = "denied"
)

// Valid reports whether s is a known request status.
func (s ResetRequestStatus) Valid() bool {
	switch s {
	case ResetPending, ResetApproved, ResetDenied:
		return true
	}
	return false
}

// ResetRequest asks for a portfolio reset beyond the allowed count.
type ResetRequest struct {
	ID          string
	RequestedAt time.Time
	Reason      string
	Status      ResetRequestStatus
}

// GainLoss is the unrealized gain or loss over priced positions.
type GainLoss struct {
	Amount  float64 `json:"amount"`
	Percent float64 `json:"percent"`
}
