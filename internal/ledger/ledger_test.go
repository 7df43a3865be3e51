package ledger

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"stock-academy/internal/errors"
	"stock-academy/internal/models"
)

var testNow = time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)

func newTestLedger(opts Options) *Ledger {
	seq := 0
	opts.Clock = func() time.Time { return testNow }
	opts.NewID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	return New(opts)
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLedger_AAPLScenario(t *testing.T) {
	l := newTestLedger(Options{})

	if _, err := l.Buy("AAPL", 10, 150); err != nil {
		t.Fatalf("first buy: %v", err)
	}
	if !approx(l.Cash(), 98500) {
		t.Errorf("cash = %v, want 98500", l.Cash())
	}
	pos, ok := l.GetPosition("AAPL")
	if !ok || pos.Shares != 10 || !approx(pos.AverageCost, 150) {
		t.Errorf("position = %+v, want 10 @ 150", pos)
	}

	if _, err := l.Buy("aapl", 5, 180); err != nil {
		t.Fatalf("second buy: %v", err)
	}
	pos, _ = l.GetPosition("AAPL")
	if !approx(pos.AverageCost, 160) || pos.Shares != 15 {
		t.Errorf("position = %+v, want 15 @ 160", pos)
	}
	if !approx(l.Cash(), 97600) {
		t.Errorf("cash = %v, want 97600", l.Cash())
	}

	if _, err := l.Sell("AAPL", 8, 200); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !approx(l.Cash(), 99200) {
		t.Errorf("cash = %v, want 99200", l.Cash())
	}
	pos, _ = l.GetPosition("Aapl")
	if pos.Shares != 7 || !approx(pos.AverageCost, 160) || !approx(pos.TotalCost, 1120) {
		t.Errorf("position = %+v, want 7 @ 160 (1120)", pos)
	}

	trades := l.Trades()
	if len(trades) != 3 {
		t.Fatalf("len(trades) = %d, want 3", len(trades))
	}
	if trades[0].Type != models.TradeSell || trades[2].Type != models.TradeBuy {
		t.Errorf("trades not newest-first: %+v", trades)
	}
	if !approx(trades[0].TotalValue, 1600) {
		t.Errorf("sell total = %v, want 1600", trades[0].TotalValue)
	}
}

func TestLedger_BuyValidationOrder(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
		shares float64
		price  float64
		want   error
	}{
		{"zero shares", "MSFT", 0, 10, errors.ErrInvalidQuantity},
		{"negative shares and price", "MSFT", -1, -1, errors.ErrInvalidQuantity},
		{"nan shares", "MSFT", math.NaN(), 10, errors.ErrInvalidQuantity},
		{"zero price", "MSFT", 5, 0, errors.ErrInvalidPrice},
		{"infinite price", "MSFT", 5, math.Inf(1), errors.ErrInvalidPrice},
		{"blank symbol", "  ", 1, 10, errors.ErrInvalidSymbol},
		{"blank symbol and bad shares", "", 0, 10, errors.ErrInvalidQuantity},
		{"too expensive", "MSFT", 1000, 1000, errors.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(Options{})
			before := l.Snapshot()

			_, err := l.Buy(tt.symbol, tt.shares, tt.price)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var tradeErr *errors.TradeError
			if !errors.As(err, &tradeErr) || tradeErr.Symbol != NormalizeSymbol(tt.symbol) {
				t.Errorf("expected TradeError for %q, got %v", tt.symbol, err)
			}
			if !snapshotsEqual(before, l.Snapshot()) {
				t.Error("rejected buy changed state")
			}
		})
	}
}

func TestLedger_BlankSymbolLeavesSnapshotRestorable(t *testing.T) {
	l := newTestLedger(Options{})
	if _, err := l.Buy(" ", 1, 10); !errors.Is(err, errors.ErrInvalidSymbol) {
		t.Fatalf("Buy(blank) err = %v, want ErrInvalidSymbol", err)
	}
	if _, err := l.Sell("", 1, 10); !errors.Is(err, errors.ErrInvalidSymbol) {
		t.Fatalf("Sell(blank) err = %v, want ErrInvalidSymbol", err)
	}
	if len(l.Positions()) != 0 {
		t.Fatalf("positions = %v, want none", l.Positions())
	}
	if _, err := NewFromSnapshot(l.Snapshot(), Options{}); err != nil {
		t.Errorf("NewFromSnapshot() error = %v", err)
	}
}

func TestCheckOrder(t *testing.T) {
	if err := CheckOrder("buy", "aapl", 1, 10); err != nil {
		t.Errorf("CheckOrder(valid) = %v", err)
	}
	if err := CheckOrder("sell", "", -1, 0); !errors.Is(err, errors.ErrInvalidQuantity) {
		t.Errorf("CheckOrder(all bad) = %v, want ErrInvalidQuantity first", err)
	}
	if err := CheckOrder("sell", "", 1, 0); !errors.Is(err, errors.ErrInvalidPrice) {
		t.Errorf("CheckOrder(bad price) = %v, want ErrInvalidPrice", err)
	}
}

func TestLedger_SellErrors(t *testing.T) {
	l := newTestLedger(Options{})
	if _, err := l.Buy("TSLA", 10, 100); err != nil {
		t.Fatal(err)
	}
	before := l.Snapshot()

	_, err := l.Sell("NVDA", 1, 100)
	if !errors.Is(err, errors.ErrPositionNotFound) {
		t.Errorf("err = %v, want ErrPositionNotFound", err)
	}

	_, err = l.Sell("TSLA", 11, 100)
	if !errors.Is(err, errors.ErrInsufficientShares) {
		t.Fatalf("err = %v, want ErrInsufficientShares", err)
	}
	if !strings.Contains(err.Error(), "have 10") {
		t.Errorf("error %q does not cite owned quantity", err.Error())
	}

	_, err = l.Sell("TSLA", 1, -5)
	if !errors.Is(err, errors.ErrInvalidPrice) {
		t.Errorf("err = %v, want ErrInvalidPrice", err)
	}

	if !snapshotsEqual(before, l.Snapshot()) {
		t.Error("rejected sells changed state")
	}
}

func TestLedger_SellAllRemovesPosition(t *testing.T) {
	l := newTestLedger(Options{})
	mustBuy(t, l, "AMZN", 4, 120)
	mustBuy(t, l, "GOOG", 2, 140)

	if _, err := l.Sell("amzn", 4, 130); err != nil {
		t.Fatal(err)
	}
	if _, ok := l.GetPosition("AMZN"); ok {
		t.Error("AMZN still in positions map")
	}
	for _, p := range l.Positions() {
		if p.Symbol == "AMZN" {
			t.Error("AMZN still in positions list")
		}
	}
	if len(l.Positions()) != 1 {
		t.Errorf("len(positions) = %d, want 1", len(l.Positions()))
	}
}

func TestLedger_TradeLogCap(t *testing.T) {
	l := newTestLedger(Options{MaxTrades: 3})
	for i := 0; i < 5; i++ {
		mustBuy(t, l, "KO", 1, float64(50+i))
	}

	trades := l.Trades()
	if len(trades) != 3 {
		t.Fatalf("len(trades) = %d, want 3", len(trades))
	}
	// newest kept, oldest dropped from the tail
	if trades[0].PricePerShare != 54 || trades[2].PricePerShare != 52 {
		t.Errorf("kept prices %v..%v, want 54..52", trades[0].PricePerShare, trades[2].PricePerShare)
	}
}

func TestLedger_ResetLimit(t *testing.T) {
	l := newTestLedger(Options{MaxResets: 3})
	mustBuy(t, l, "IBM", 3, 100)
	l.RequestAdditionalReset("early")

	for i := 1; i <= 3; i++ {
		if !l.Reset() {
			t.Fatalf("reset %d refused", i)
		}
		if l.ResetCount() != i {
			t.Errorf("ResetCount = %d, want %d", l.ResetCount(), i)
		}
		if l.Cash() != DefaultInitialCash || len(l.Positions()) != 0 || len(l.Trades()) != 0 {
			t.Errorf("reset %d did not restore initial state", i)
		}
	}

	if at, ok := l.LastResetAt(); !ok || !at.Equal(testNow) {
		t.Errorf("LastResetAt = %v, %v", at, ok)
	}
	if l.CanReset() || l.RemainingResets() != 0 {
		t.Error("reset allowance should be exhausted")
	}

	mustBuy(t, l, "IBM", 1, 100)
	before := l.Snapshot()
	if l.Reset() {
		t.Fatal("fourth reset succeeded")
	}
	if !snapshotsEqual(before, l.Snapshot()) {
		t.Error("refused reset changed state")
	}
	if len(l.ResetRequests()) != 1 || l.MaxResets() != 3 {
		t.Error("reset touched requests or allowance")
	}
}

func TestLedger_ResetRequestQueue(t *testing.T) {
	l := newTestLedger(Options{MaxResetRequests: 2})

	first := l.RequestAdditionalReset("  lost everything  ")
	if first.Status != models.ResetPending || first.Reason != "lost everything" {
		t.Errorf("request = %+v", first)
	}
	l.RequestAdditionalReset("second")
	l.RequestAdditionalReset("third")

	reqs := l.ResetRequests()
	if len(reqs) != 2 {
		t.Fatalf("len(requests) = %d, want 2", len(reqs))
	}
	// oldest evicted from the head
	if reqs[0].Reason != "second" || reqs[1].Reason != "third" {
		t.Errorf("requests = %q, %q; want second, third", reqs[0].Reason, reqs[1].Reason)
	}
	if l.RemainingResets() != DefaultMaxResets {
		t.Error("requesting a reset must not grant one")
	}
}

func TestLedger_Valuation(t *testing.T) {
	l := newTestLedger(Options{})
	mustBuy(t, l, "AAPL", 10, 150)
	mustBuy(t, l, "MSFT", 5, 300)

	prices := map[string]float64{"aapl": 170, "MSFT": 280}
	value := l.PortfolioValue(prices)
	want := l.Cash() + 10*170 + 5*280
	if !approx(value, want) {
		t.Errorf("PortfolioValue = %v, want %v", value, want)
	}

	gl := l.TotalGainLoss(prices)
	// (1700 + 1400) - (1500 + 1500) = 100
	if !approx(gl.Amount, 100) || !approx(gl.Percent, 100.0/3000*100) {
		t.Errorf("TotalGainLoss = %+v", gl)
	}
}

// An unpriced position contributes nothing, although its cost already left cash.
// This understates the account; kept as the documented behavior.
func TestLedger_ValuationIgnoresUnpricedPositions(t *testing.T) {
	l := newTestLedger(Options{})
	mustBuy(t, l, "AAPL", 10, 150)
	mustBuy(t, l, "XYZ", 10, 100)

	value := l.PortfolioValue(map[string]float64{"AAPL": 150})
	if !approx(value, DefaultInitialCash-1000) {
		t.Errorf("PortfolioValue = %v, want %v", value, DefaultInitialCash-1000)
	}

	gl := l.TotalGainLoss(map[string]float64{"AAPL": 165})
	if !approx(gl.Amount, 150) || !approx(gl.Percent, 10) {
		t.Errorf("TotalGainLoss = %+v, want 150 / 10%%", gl)
	}

	if gl := l.TotalGainLoss(nil); gl.Amount != 0 || gl.Percent != 0 {
		t.Errorf("TotalGainLoss(nil) = %+v, want zero", gl)
	}
}

func TestLedger_SnapshotRoundTrip(t *testing.T) {
	l := newTestLedger(Options{})
	mustBuy(t, l, "AAPL", 10, 150)
	mustBuy(t, l, "MSFT", 2, 310)
	if _, err := l.Sell("AAPL", 3, 155); err != nil {
		t.Fatal(err)
	}
	l.Reset()
	mustBuy(t, l, "NFLX", 1, 400)
	l.RequestAdditionalReset("practice")

	data, err := json.Marshal(l.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	var snap models.PortfolioSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatal(err)
	}

	restored, err := NewFromSnapshot(&snap, Options{})
	if err != nil {
		t.Fatalf("NewFromSnapshot: %v", err)
	}
	if !snapshotsEqual(l.Snapshot(), restored.Snapshot()) {
		t.Error("restored ledger differs from original")
	}
	if restored.ResetCount() != 1 || len(restored.ResetRequests()) != 1 {
		t.Error("reset bookkeeping lost")
	}
}

func TestLedger_RestoreRejectsCorruptSnapshot(t *testing.T) {
	base := func() *models.PortfolioSnapshot {
		l := newTestLedger(Options{})
		mustBuy(t, l, "AAPL", 1, 100)
		return l.Snapshot()
	}

	tests := []struct {
		name   string
		mutate func(s *models.PortfolioSnapshot)
	}{
		{"wrong version", func(s *models.PortfolioSnapshot) { s.Version = 99 }},
		{"negative cash", func(s *models.PortfolioSnapshot) { s.Cash = -1 }},
		{"nan cash", func(s *models.PortfolioSnapshot) { s.Cash = math.NaN() }},
		{"stale list", func(s *models.PortfolioSnapshot) { s.PositionsList = nil }},
		{"lowercase key", func(s *models.PortfolioSnapshot) {
			p := s.Positions["AAPL"]
			delete(s.Positions, "AAPL")
			s.Positions["aapl"] = p
		}},
		{"zero shares", func(s *models.PortfolioSnapshot) {
			p := s.Positions["AAPL"]
			p.Shares = 0
			s.Positions["AAPL"] = p
			s.PositionsList[0] = p
		}},
		{"bad trade type", func(s *models.PortfolioSnapshot) { s.Trades[0].Type = "short" }},
		{"negative resets", func(s *models.PortfolioSnapshot) { s.ResetCount = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := base()
			tt.mutate(snap)

			l := newTestLedger(Options{})
			before := l.Snapshot()
			err := l.Restore(snap)
			if !errors.Is(err, errors.ErrCorruptSnapshot) {
				t.Fatalf("err = %v, want ErrCorruptSnapshot", err)
			}
			if !snapshotsEqual(before, l.Snapshot()) {
				t.Error("failed restore changed state")
			}
		})
	}
}

func mustBuy(t *testing.T, l *Ledger, symbol string, shares, price float64) {
	t.Helper()
	if _, err := l.Buy(symbol, shares, price); err != nil {
		t.Fatalf("buy %s: %v", symbol, err)
	}
}

func snapshotsEqual(a, b *models.PortfolioSnapshot) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(ja) == string(jb)
}

func TestLedger_ConcurrentBuys(t *testing.T) {
	l := newTestLedger(Options{MaxTrades: 500})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Buy("SPY", 1, 10)
			l.PortfolioValue(map[string]float64{"SPY": 10})
		}()
	}
	wg.Wait()

	pos, ok := l.GetPosition("SPY")
	if !ok || pos.Shares != 50 {
		t.Fatalf("position = %+v, want 50 shares", pos)
	}
	if !approx(l.Cash(), DefaultInitialCash-500) {
		t.Errorf("cash = %v, want %v", l.Cash(), DefaultInitialCash-500)
	}
	if len(l.Trades()) != 50 || len(l.Positions()) != 1 {
		t.Error("trade log or positions list out of step")
	}
}
