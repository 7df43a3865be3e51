package trading

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "stock-academy/internal/errors"
	"stock-academy/internal/ledger"
	"stock-academy/internal/models"
	"stock-academy/internal/security"
	"stock-academy/internal/store"
	"stock-academy/pkg/utils"
)

var simNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func testLedgerOptions() ledger.Options {
	var n int64
	return ledger.Options{
		Clock: func() time.Time { return simNow },
		NewID: func() string { return fmt.Sprintf("id-%d", atomic.AddInt64(&n, 1)) },
	}
}

func fastRetry() utils.RetryConfig {
	return utils.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}
}

func newTestSimulator(t *testing.T, st Portfolio, access *security.AccessController, audit *security.AuditLogger) *Simulator {
	t.Helper()
	sim, err := NewSimulator(context.Background(), SimulatorConfig{
		Ledger: testLedgerOptions(),
		Store:  st,
		Audit:  audit,
		Access: access,
		Retry:  fastRetry(),
	})
	if err != nil {
		t.Fatalf("NewSimulator() error = %v", err)
	}
	return sim
}

// failingStore rejects every snapshot save.
type failingStore struct {
	*store.MemoryStore
	saves int
}

func (f *failingStore) SavePortfolio(ctx context.Context, key string, snap *models.PortfolioSnapshot) error {
	f.saves++
	return apperrors.ErrDatabaseError
}

func TestSimulator_PersistsAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	sim := newTestSimulator(t, st, nil, nil)
	if _, err := sim.Buy(ctx, "aapl", 10, 150); err != nil {
		t.Fatalf("Buy() error = %v", err)
	}
	if _, err := sim.Sell(ctx, "AAPL", 3, 160); err != nil {
		t.Fatalf("Sell() error = %v", err)
	}

	reopened := newTestSimulator(t, st, nil, nil)
	if got := reopened.Ledger().Cash(); got != 98980 {
		t.Errorf("Cash after reload = %v, want 98980", got)
	}
	pos, ok := reopened.Ledger().GetPosition("AAPL")
	if !ok || pos.Shares != 7 || pos.AverageCost != 150 {
		t.Errorf("position after reload = %+v, %v", pos, ok)
	}
	if n := len(reopened.Ledger().Trades()); n != 2 {
		t.Errorf("trades after reload = %d, want 2", n)
	}
}

func TestSimulator_ArchiveOutlivesReset(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	sim := newTestSimulator(t, st, nil, nil)

	sim.Buy(ctx, "MSFT", 2, 400)
	sim.Buy(ctx, "GOOG", 1, 140)

	granted, err := sim.Reset(ctx)
	if err != nil || !granted {
		t.Fatalf("Reset() = %v, %v", granted, err)
	}
	if n := len(sim.Ledger().Trades()); n != 0 {
		t.Errorf("ledger trades after reset = %d, want 0", n)
	}

	archived, err := sim.History(ctx, store.TradeFilter{})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(archived) != 2 {
		t.Errorf("archived trades = %d, want 2", len(archived))
	}

	msft, _ := sim.History(ctx, store.TradeFilter{Symbol: "msft"})
	if len(msft) != 1 || msft[0].Symbol != "MSFT" {
		t.Errorf("History(msft) = %+v", msft)
	}
}

func TestSimulator_RejectedTradeIsAudited(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	audit := security.NewAuditLoggerWithWriter(&buf)
	sim := newTestSimulator(t, store.NewMemoryStore(), nil, audit)

	_, err := sim.Sell(ctx, "TSLA", 1, 200)
	if !apperrors.Is(err, apperrors.ErrPositionNotFound) {
		t.Fatalf("Sell() error = %v, want ErrPositionNotFound", err)
	}
	if !strings.Contains(buf.String(), string(security.AuditTradeRejected)) {
		t.Errorf("audit log missing rejection: %s", buf.String())
	}

	if _, err := sim.Buy(ctx, "BAD SYMBOL", 1, 10); !apperrors.Is(err, apperrors.ErrInputValidation) {
		t.Errorf("Buy(bad symbol) error = %v, want ErrInputValidation", err)
	}
	if !strings.Contains(buf.String(), string(security.AuditInputValidation)) {
		t.Errorf("audit log missing validation failure: %s", buf.String())
	}
}

func TestSimulator_ReadOnlyBlocksWrites(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	access := security.NewAccessController(true, nil)
	sim := newTestSimulator(t, st, access, nil)

	if _, err := sim.Buy(ctx, "AAPL", 1, 100); !apperrors.Is(err, apperrors.ErrReadOnlyMode) {
		t.Errorf("Buy() error = %v, want ErrReadOnlyMode", err)
	}
	if _, err := sim.Reset(ctx); !apperrors.Is(err, apperrors.ErrReadOnlyMode) {
		t.Errorf("Reset() error = %v, want ErrReadOnlyMode", err)
	}
	if _, err := sim.RequestReset(ctx, "please"); !apperrors.Is(err, apperrors.ErrReadOnlyMode) {
		t.Errorf("RequestReset() error = %v, want ErrReadOnlyMode", err)
	}
	if got := sim.Ledger().Cash(); got != ledger.DefaultInitialCash {
		t.Errorf("Cash = %v, want untouched %v", got, ledger.DefaultInitialCash)
	}
	if _, err := st.LoadPortfolio(ctx, store.PortfolioKey); !apperrors.Is(err, apperrors.ErrDataNotFound) {
		t.Errorf("read-only simulator saved a snapshot: %v", err)
	}
}

func TestSimulator_SaveFailureKeepsTrade(t *testing.T) {
	ctx := context.Background()
	st := &failingStore{MemoryStore: store.NewMemoryStore()}
	var buf bytes.Buffer
	sim := newTestSimulator(t, st, nil, security.NewAuditLoggerWithWriter(&buf))

	trade, err := sim.Buy(ctx, "SPY", 2, 500)
	if err != nil {
		t.Fatalf("Buy() error = %v, want success despite storage failure", err)
	}
	if sim.Ledger().Cash() != 99000 {
		t.Errorf("Cash = %v, want 99000", sim.Ledger().Cash())
	}
	if st.saves != fastRetry().MaxAttempts {
		t.Errorf("save attempts = %d, want %d", st.saves, fastRetry().MaxAttempts)
	}
	archived, _ := st.GetTrades(ctx, store.TradeFilter{})
	if len(archived) != 1 || archived[0].ID != trade.ID {
		t.Errorf("archive = %+v, want the trade", archived)
	}
	if !strings.Contains(buf.String(), string(security.AuditPersistFailed)) || !strings.Contains(buf.String(), `"persist_portfolio"`) {
		t.Errorf("audit log missing save failure: %s", buf.String())
	}

	if err := sim.Save(ctx); !errors.Is(err, apperrors.ErrDatabaseError) {
		t.Errorf("Save() error = %v, want ErrDatabaseError", err)
	}
}

func TestSimulator_CorruptSnapshotFailsFast(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	bad := &models.PortfolioSnapshot{Version: models.SnapshotVersion, Cash: -5, MaxResets: 3}
	if err := st.SavePortfolio(ctx, store.PortfolioKey, bad); err != nil {
		t.Fatalf("SavePortfolio() error = %v", err)
	}

	_, err := NewSimulator(ctx, SimulatorConfig{Store: st, Retry: fastRetry()})
	if !apperrors.Is(err, apperrors.ErrCorruptSnapshot) {
		t.Errorf("NewSimulator() error = %v, want ErrCorruptSnapshot", err)
	}
}

func TestSimulator_ResetRequests(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	sim := newTestSimulator(t, st, nil, nil)

	for i := 0; i < ledger.DefaultMaxResets; i++ {
		sim.Reset(ctx)
	}
	granted, err := sim.Reset(ctx)
	if err != nil || granted {
		t.Fatalf("Reset() past allowance = %v, %v; want denied", granted, err)
	}

	req, err := sim.RequestReset(ctx, "  made some bad calls  ")
	if err != nil {
		t.Fatalf("RequestReset() error = %v", err)
	}
	if req.Status != models.ResetPending || req.Reason != "made some bad calls" {
		t.Errorf("request = %+v", req)
	}

	reopened := newTestSimulator(t, st, nil, nil)
	if n := len(reopened.Ledger().ResetRequests()); n != 1 {
		t.Errorf("requests after reload = %d, want 1", n)
	}
	if reopened.Ledger().CanReset() {
		t.Error("reset allowance should survive reload")
	}
}

func TestSimulator_ResetRequestAcceptsAnyReason(t *testing.T) {
	ctx := context.Background()
	sim := newTestSimulator(t, store.NewMemoryStore(), nil, nil)

	reasons := []struct {
		in, want string
	}{
		{"lost $5,000; start over", "lost $5,000; start over"},
		{"made mistakes; want to start over", "made mistakes; want to start over"},
		{"please update my balance and set it back", "please update my balance and set it back"},
		{"tabs\tand\x00nulls", "tabsandnulls"},
		{"", ""},
		{strings.Repeat("x", security.MaxReasonLength+50), strings.Repeat("x", security.MaxReasonLength-3) + "..."},
	}
	for _, r := range reasons {
		req, err := sim.RequestReset(ctx, r.in)
		if err != nil {
			t.Fatalf("RequestReset(%q) error = %v", r.in, err)
		}
		if req.Reason != r.want {
			t.Errorf("RequestReset(%q).Reason = %q, want %q", r.in, req.Reason, r.want)
		}
	}
	if n := len(sim.Ledger().ResetRequests()); n != len(reasons) {
		t.Errorf("pending requests = %d, want %d", n, len(reasons))
	}
}

func TestSimulator_OrderChecks(t *testing.T) {
	tests := []struct {
		name   string
		strict bool
		symbol string
		shares float64
		price  float64
		want   error
	}{
		{"shares checked before symbol", true, "$$", -1, 0, apperrors.ErrInvalidQuantity},
		{"price checked before symbol", true, "$$", 1, 0, apperrors.ErrInvalidPrice},
		{"bad symbol", true, "$$", 1, 10, apperrors.ErrInputValidation},
		{"blank symbol", true, "   ", 1, 10, apperrors.ErrInvalidSymbol},
		{"too many shares", true, "AAPL", security.MaxShares + 1, 0.001, apperrors.ErrInputValidation},
		{"price too high", true, "AAPL", 1, security.MaxPrice + 1, apperrors.ErrInputValidation},
		{"lenient price limit", false, "AAPL", 1, security.MaxPrice + 1, apperrors.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			sim, err := NewSimulator(ctx, SimulatorConfig{
				Ledger:    testLedgerOptions(),
				Store:     store.NewMemoryStore(),
				Validator: security.NewInputValidator(tt.strict),
				Retry:     fastRetry(),
			})
			if err != nil {
				t.Fatalf("NewSimulator() error = %v", err)
			}

			if _, err := sim.Buy(ctx, tt.symbol, tt.shares, tt.price); !apperrors.Is(err, tt.want) {
				t.Errorf("Buy() error = %v, want %v", err, tt.want)
			}
			if got := sim.Ledger().Cash(); got != ledger.DefaultInitialCash {
				t.Errorf("Cash = %v, want untouched", got)
			}
		})
	}
}
