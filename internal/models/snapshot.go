package models

import "time"

// SnapshotVersion is the current persisted portfolio schema version.
const SnapshotVersion = 1

// PortfolioSnapshot is the persisted form of a paper portfolio.
// Timestamps are epoch milliseconds.
type PortfolioSnapshot struct {
	Version       int                  `json:"version"`
	Cash          float64              `json:"cash"`
	Positions     map[string]Position  `json:"positions"`
	PositionsList []Position           `json:"positionsList"`
	Trades        []TradeRecord        `json:"trades"`
	LastUpdated   int64                `json:"lastUpdated"`
	ResetCount    int                  `json:"resetCount"`
	MaxResets     int                  `json:"maxResets"`
	LastResetAt   *int64               `json:"lastResetAt"`
	ResetRequests []ResetRequestRecord `json:"resetRequests"`
}

// TradeRecord is the persisted form of a Trade.
type TradeRecord struct {
	ID            string    `json:"id"`
	Symbol        string    `json:"symbol"`
	Type          TradeType `json:"type"`
	Shares        float64   `json:"shares"`
	PricePerShare float64   `json:"pricePerShare"`
	TotalValue    float64   `json:"totalValue"`
	Timestamp     int64     `json:"timestamp"`
}

// ResetRequestRecord is the persisted form of a ResetRequest.
type ResetRequestRecord struct {
	ID          string             `json:"id"`
	RequestedAt int64              `json:"requestedAt"`
	Reason      string             `json:"reason,omitempty"`
	Status      ResetRequestStatus `json:"status"`
}

// Record converts a trade to its persisted form.
func (t Trade) Record() TradeRecord {
	return TradeRecord{
		ID:            t.ID,
		Symbol:        t.Symbol,
		Type:          t.Type,
		Shares:        t.Shares,
		PricePerShare: t.PricePerShare,
		TotalValue:    t.TotalValue,
		Timestamp:     t.Timestamp.UnixMilli(),
	}
}

// Trade converts a persisted record back to a Trade.
func (r TradeRecord) Trade() Trade {
	return Trade{
		ID:            r.ID,
		Symbol:        r.Symbol,
		Type:          r.Type,
		Shares:        r.Shares,
		PricePerShare: r.PricePerShare,
		TotalValue:    r.TotalValue,
		Timestamp:     time.UnixMilli(r.Timestamp),
	}
}

// Record converts a reset request to its persisted form.
func (r ResetRequest) Record() ResetRequestRecord {
	return ResetRequestRecord{
		ID:          r.ID,
		RequestedAt: r.RequestedAt.UnixMilli(),
		Reason:      r.Reason,
		Status:      r.Status,
	}
}

// ResetRequest converts a persisted record back to a ResetRequest.
func (r ResetRequestRecord) ResetRequest() ResetRequest {
	return ResetRequest{
		ID:          r.ID,
		RequestedAt: time.UnixMilli(r.RequestedAt),
		Reason:      r.Reason,
		Status:      r.Status,
	}
}
