// Package trading runs the paper trading simulator on top of the ledger.
package trading

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	apperrors "stock-academy/internal/errors"
	"stock-academy/internal/ledger"
	"stock-academy/internal/logging"
	"stock-academy/internal/models"
	"stock-academy/internal/security"
	"stock-academy/internal/store"
	"stock-academy/pkg/utils"
)

// Portfolio is the storage the simulator needs: snapshots plus the trade archive.
type Portfolio interface {
	store.SnapshotStore
	store.TradeArchive
}

// SimulatorConfig wires a Simulator. Store is required; the rest is optional.
type SimulatorConfig struct {
	Ledger    ledger.Options
	Store     Portfolio
	Key       string // snapshot key, defaults to store.PortfolioKey
	Audit     *security.AuditLogger
	Access    *security.AccessController
	Validator *security.InputValidator
	Retry     utils.RetryConfig
	Logger    zerolog.Logger
}

// Simulator executes paper trades and resets, persisting the portfolio after
// every accepted mutation. A failed save is logged and retried on the next
// mutation; the in-memory ledger is never rolled back.
type Simulator struct {
	ledger    *ledger.Ledger
	store     Portfolio
	key       string
	audit     *security.AuditLogger
	access    *security.AccessController
	validator *security.InputValidator
	retry     utils.RetryConfig
	logger    zerolog.Logger

	// serializes mutate-then-persist so snapshots are saved in order
	writeMu sync.Mutex
}

// NewSimulator loads the saved portfolio, or starts a fresh one when nothing
// was saved yet. A corrupt snapshot is an error.
func NewSimulator(ctx context.Context, cfg SimulatorConfig) (*Simulator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("simulator requires a store")
	}
	if cfg.Key == "" {
		cfg.Key = store.PortfolioKey
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = utils.DefaultRetryConfig()
	}
	if cfg.Validator == nil {
		cfg.Validator = security.NewInputValidator(true)
	}

	logger := cfg.Logger.With().Str("component", "simulator").Logger()
	cfg.Ledger.Logger = cfg.Logger

	snap, err := cfg.Store.LoadPortfolio(ctx, cfg.Key)
	switch {
	case apperrors.Is(err, apperrors.ErrDataNotFound):
		logger.Info().Str("key", cfg.Key).Msg("No saved portfolio, starting fresh")
		snap = nil
	case err != nil:
		return nil, apperrors.Wrap(err, "loading portfolio")
	}

	l, err := ledger.NewFromSnapshot(snap, cfg.Ledger)
	if err != nil {
		return nil, apperrors.Wrap(err, "restoring portfolio")
	}

	return &Simulator{
		ledger:    l,
		store:     cfg.Store,
		key:       cfg.Key,
		audit:     cfg.Audit,
		access:    cfg.Access,
		validator: cfg.Validator,
		retry:     cfg.Retry,
		logger:    logger,
	}, nil
}

// Ledger returns the underlying ledger for read access.
func (s *Simulator) Ledger() *ledger.Ledger {
	return s.ledger
}

// Buy purchases shares at pricePerShare.
func (s *Simulator) Buy(ctx context.Context, symbol string, shares, pricePerShare float64) (models.Trade, error) {
	return s.trade(ctx, models.TradeBuy, symbol, shares, pricePerShare)
}

// Sell sells shares at pricePerShare.
func (s *Simulator) Sell(ctx context.Context, symbol string, shares, pricePerShare float64) (models.Trade, error) {
	return s.trade(ctx, models.TradeSell, symbol, shares, pricePerShare)
}

func (s *Simulator) trade(ctx context.Context, side models.TradeType, symbol string, shares, price float64) (models.Trade, error) {
	op := security.OpBuy
	if side == models.TradeSell {
		op = security.OpSell
	}
	if err := s.checkPermission(ctx, op); err != nil {
		return models.Trade{}, err
	}

	symbol = ledger.NormalizeSymbol(symbol)
	logger := logging.WithSymbol(s.logger, symbol)

	if err := ledger.CheckOrder(string(side), symbol, shares, price); err != nil {
		s.rejectTrade(ctx, logger, side, symbol, shares, price, err)
		return models.Trade{}, err
	}
	if err := s.validateOrder(ctx, symbol, shares, price); err != nil {
		return models.Trade{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var trade models.Trade
	var err error
	if side == models.TradeBuy {
		trade, err = s.ledger.Buy(symbol, shares, price)
	} else {
		trade, err = s.ledger.Sell(symbol, shares, price)
	}
	if err != nil {
		s.rejectTrade(ctx, logger, side, symbol, shares, price, err)
		return models.Trade{}, err
	}

	logging.LogTrade(logger, trade.ID, string(trade.Type), trade.Shares, trade.PricePerShare, s.ledger.Cash())
	if s.audit != nil {
		s.audit.LogTrade(ctx, trade.ID, trade.Symbol, string(trade.Type), trade.Shares, trade.PricePerShare, nil)
	}

	s.archive(ctx, trade)
	s.persist(ctx)
	return trade, nil
}

// validateOrder applies the input limits on top of the ledger's own checks.
// Fields are checked as shares, price, then symbol.
func (s *Simulator) validateOrder(ctx context.Context, symbol string, shares, price float64) error {
	if err := s.validator.ValidateShares(shares); err != nil {
		s.auditInput(ctx, "shares", fmt.Sprint(shares), err)
		return err
	}
	if err := s.validator.ValidatePrice(price); err != nil {
		s.auditInput(ctx, "price", fmt.Sprint(price), err)
		return err
	}
	if err := s.validator.ValidateSymbol(symbol); err != nil {
		s.auditInput(ctx, "symbol", symbol, err)
		return err
	}
	return nil
}

func (s *Simulator) rejectTrade(ctx context.Context, logger zerolog.Logger, side models.TradeType, symbol string, shares, price float64, err error) {
	logger.Info().Err(err).Str("side", string(side)).Msg("Trade rejected")
	if s.audit != nil {
		s.audit.LogTrade(ctx, "", symbol, string(side), shares, price, err)
	}
}

// Reset resets the portfolio if the allowance permits. It reports whether the
// reset was granted.
func (s *Simulator) Reset(ctx context.Context) (bool, error) {
	if err := s.checkPermission(ctx, security.OpReset); err != nil {
		return false, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	granted := s.ledger.Reset()
	logging.LogReset(s.logger, granted, s.ledger.ResetCount(), s.ledger.MaxResets())
	if s.audit != nil {
		s.audit.LogReset(ctx, granted, s.ledger.ResetCount(), s.ledger.MaxResets())
	}
	if granted {
		s.persist(ctx)
	}
	return granted, nil
}

// RequestReset files a request for a reset beyond the allowance. Any reason
// is accepted; it is stripped of control characters and shortened to
// security.MaxReasonLength. The only error is a read-only refusal.
func (s *Simulator) RequestReset(ctx context.Context, reason string) (models.ResetRequest, error) {
	if err := s.checkPermission(ctx, security.OpRequestReset); err != nil {
		return models.ResetRequest{}, err
	}

	reason = security.CleanReason(reason)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	req := s.ledger.RequestAdditionalReset(reason)
	s.logger.Info().
		Str("request_id", req.ID).
		Int("pending", len(s.ledger.ResetRequests())).
		Msg("Reset requested")
	if s.audit != nil {
		s.audit.LogResetRequest(ctx, req.ID, req.Reason)
	}

	s.persist(ctx)
	return req, nil
}

// History returns archived trades. Unlike Ledger().Trades() the archive is
// not capped and survives resets.
func (s *Simulator) History(ctx context.Context, filter store.TradeFilter) ([]models.Trade, error) {
	if filter.Symbol != "" {
		filter.Symbol = ledger.NormalizeSymbol(filter.Symbol)
	}
	return s.store.GetTrades(ctx, filter)
}

// Save persists the current portfolio, returning any storage error.
func (s *Simulator) Save(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.save(ctx)
}

func (s *Simulator) save(ctx context.Context) error {
	snap := s.ledger.Snapshot()
	return utils.Retry(ctx, s.retry, func() error {
		return s.store.SavePortfolio(ctx, s.key, snap)
	})
}

func (s *Simulator) persist(ctx context.Context) {
	if err := s.save(ctx); err != nil {
		s.logger.Error().Err(err).Str("key", s.key).Msg("Failed to save portfolio")
		if s.audit != nil {
			s.audit.LogPersistFailure(ctx, "portfolio", s.key, err)
		}
	}
}

func (s *Simulator) archive(ctx context.Context, trade models.Trade) {
	err := utils.Retry(ctx, s.retry, func() error {
		return s.store.LogTrade(ctx, trade)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("trade_id", trade.ID).Msg("Failed to archive trade")
		if s.audit != nil {
			s.audit.LogPersistFailure(ctx, "trade", trade.ID, err)
		}
	}
}

func (s *Simulator) checkPermission(ctx context.Context, op security.OperationType) error {
	if s.access == nil {
		return nil
	}
	return s.access.CheckPermission(ctx, op)
}

func (s *Simulator) auditInput(ctx context.Context, field, value string, err error) {
	if s.audit != nil {
		s.audit.LogInputValidation(ctx, field, value, err.Error())
	}
}
