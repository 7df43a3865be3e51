package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"stock-academy/internal/models"
)

// Property: for any review progress, saving it and reading it back produces
// an identical record.
func TestProperty_ProgressRoundTripConsistency(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "progress_property.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	terms := []string{"dividend", "etf", "bond", "index-fund", "market-cap", "p-e-ratio"}

	properties.Property("progress round-trip: save then load produces equal data", prop.ForAll(
		func(termIdx int, ease float64, interval, reps, quality int, offsetMinutes int64) bool {
			ctx := context.Background()
			p := models.ReviewProgress{
				TermID:         fmt.Sprintf("%s-%d", terms[termIdx%len(terms)], time.Now().UnixNano()%100000),
				EaseFactor:     ease,
				Interval:       interval,
				Repetitions:    reps,
				NextReviewAt:   storeNow.Add(time.Duration(offsetMinutes) * time.Minute),
				ReviewCount:    reps + 1,
				LastQuality:    quality,
				LastReviewedAt: storeNow,
			}

			if err := store.SaveProgress(ctx, p); err != nil {
				t.Logf("Failed to save progress: %v", err)
				return false
			}
			got, err := store.GetProgress(ctx, p.TermID)
			if err != nil {
				t.Logf("Failed to get progress: %v", err)
				return false
			}

			return got.TermID == p.TermID &&
				got.EaseFactor == p.EaseFactor &&
				got.Interval == p.Interval &&
				got.Repetitions == p.Repetitions &&
				got.NextReviewAt.Equal(p.NextReviewAt) &&
				got.ReviewCount == p.ReviewCount &&
				got.LastQuality == p.LastQuality &&
				got.LastReviewedAt.Equal(p.LastReviewedAt)
		},
		gen.IntRange(0, 100),
		gen.Float64Range(1.3, 3.5),
		gen.IntRange(1, 400),
		gen.IntRange(0, 30),
		gen.IntRange(0, 5),
		gen.Int64Range(-10000, 100000),
	))

	properties.TestingRun(t)
}

// Property: archived trades always come back newest first, and a limit
// returns a prefix of the unlimited listing.
func TestProperty_TradeArchiveOrdering(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("newest first, limit is a prefix", prop.ForAll(
		func(offsets []int, limit int) bool {
			store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "trades_property.db"))
			if err != nil {
				t.Logf("Failed to create store: %v", err)
				return false
			}
			defer store.Close()

			ctx := context.Background()
			for i, off := range offsets {
				tr := models.Trade{
					ID:            fmt.Sprintf("t%d", i),
					Symbol:        "SPY",
					Type:          models.TradeBuy,
					Shares:        1,
					PricePerShare: 500,
					TotalValue:    500,
					Timestamp:     storeNow.Add(time.Duration(off) * time.Second),
				}
				if err := store.LogTrade(ctx, tr); err != nil {
					return false
				}
			}

			all, err := store.GetTrades(ctx, TradeFilter{})
			if err != nil || len(all) != len(offsets) {
				return false
			}
			for i := 1; i < len(all); i++ {
				if all[i].Timestamp.After(all[i-1].Timestamp) {
					return false
				}
			}

			limited, err := store.GetTrades(ctx, TradeFilter{Limit: limit})
			if err != nil {
				return false
			}
			want := limit
			if want > len(all) {
				want = len(all)
			}
			if len(limited) != want {
				return false
			}
			for i := range limited {
				if limited[i].ID != all[i].ID {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(15, gen.IntRange(0, 3600)),
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t)
}
