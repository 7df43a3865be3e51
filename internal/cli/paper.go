package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "stock-academy/internal/errors"
	"stock-academy/internal/ledger"
	"stock-academy/internal/models"
	"stock-academy/internal/store"
	"stock-academy/pkg/utils"
)

func newPaperCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paper",
		Short: "Paper trading with a simulated account",
		Long: `Practice trading with simulated money.

Prices are entered by you; nothing here talks to a real brokerage.`,
	}

	cmd.AddCommand(newTradeCmd(app, models.TradeBuy))
	cmd.AddCommand(newTradeCmd(app, models.TradeSell))
	cmd.AddCommand(newPositionsCmd(app))
	cmd.AddCommand(newValueCmd(app))
	cmd.AddCommand(newHistoryCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newStatusCmd(app))
	cmd.AddCommand(newResetCmd(app))
	cmd.AddCommand(newRequestResetCmd(app))
	cmd.AddCommand(newRequestsCmd(app))

	return cmd
}

// tradeView is the JSON form of a trade.
type tradeView struct {
	ID            string    `json:"id"`
	Symbol        string    `json:"symbol"`
	Type          string    `json:"type"`
	Shares        float64   `json:"shares"`
	PricePerShare float64   `json:"pricePerShare"`
	TotalValue    float64   `json:"totalValue"`
	Timestamp     time.Time `json:"timestamp"`
}

func newTradeView(t models.Trade) tradeView {
	return tradeView{
		ID:            t.ID,
		Symbol:        t.Symbol,
		Type:          string(t.Type),
		Shares:        t.Shares,
		PricePerShare: t.PricePerShare,
		TotalValue:    t.TotalValue,
		Timestamp:     t.Timestamp,
	}
}

func parseAmount(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimPrefix(s, "$"), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, s)
	}
	return v, nil
}

// parsePrices turns SYMBOL=PRICE pairs into a price map.
func parsePrices(pairs []string) (map[string]float64, error) {
	prices := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		sym, raw, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(sym) == "" {
			return nil, fmt.Errorf("invalid price %q, want SYMBOL=PRICE", pair)
		}
		p, err := parseAmount("price", raw)
		if err != nil {
			return nil, err
		}
		prices[ledger.NormalizeSymbol(sym)] = p
	}
	return prices, nil
}

func newTradeCmd(app *App, side models.TradeType) *cobra.Command {
	verb := string(side)
	return &cobra.Command{
		Use:     verb + " <symbol> <shares> <price>",
		Short:   strings.ToUpper(verb[:1]) + verb[1:] + " shares at a given price",
		Example: fmt.Sprintf("  academy paper %s AAPL 10 150\n  academy paper %s msft 2.5 410.25", verb, verb),
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := context.Background()

			shares, err := parseAmount("shares", args[1])
			if err != nil {
				return err
			}
			price, err := parseAmount("price", args[2])
			if err != nil {
				return err
			}

			sim, err := app.Simulator(ctx)
			if err != nil {
				return err
			}

			var trade models.Trade
			if side == models.TradeBuy {
				trade, err = sim.Buy(ctx, args[0], shares, price)
			} else {
				trade, err = sim.Sell(ctx, args[0], shares, price)
			}
			if err != nil {
				if !output.IsJSON() {
					output.Error("✗ %v", err)
				}
				return err
			}

			if output.IsJSON() {
				return output.JSON(newTradeView(trade))
			}

			action := output.Green("Bought")
			if side == models.TradeSell {
				action = output.Red("Sold")
			}
			output.Printf("%s %s %s @ %s = %s\n", action, utils.FormatShares(trade.Shares), trade.Symbol,
				utils.FormatCurrency(trade.PricePerShare), utils.FormatCurrency(trade.TotalValue))
			output.Dim("Cash: %s", utils.FormatCurrency(sim.Ledger().Cash()))
			return nil
		},
	}
}

func newPositionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "positions [symbol]",
		Short: "Show open positions",
		Example: `  academy paper positions
  academy paper positions --price AAPL=172.5 --price MSFT=405
  academy paper positions aapl`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := context.Background()

			pairs, _ := cmd.Flags().GetStringArray("price")
			prices, err := parsePrices(pairs)
			if err != nil {
				return err
			}

			sim, err := app.Simulator(ctx)
			if err != nil {
				return err
			}
			positions := sim.Ledger().Positions()
			if len(args) == 1 {
				p, ok := sim.Ledger().GetPosition(args[0])
				if !ok {
					return fmt.Errorf("%w in %s", apperrors.ErrPositionNotFound, ledger.NormalizeSymbol(args[0]))
				}
				positions = []models.Position{p}
			}

			if output.IsJSON() {
				return output.JSON(positions)
			}
			if len(positions) == 0 {
				output.Dim("No open positions")
				return nil
			}

			table := NewTable(output, "SYMBOL", "SHARES", "AVG COST", "COST BASIS", "PRICE", "VALUE", "GAIN/LOSS")
			for _, p := range positions {
				price, ok := prices[p.Symbol]
				if !ok {
					table.AddRow(p.Symbol, utils.FormatShares(p.Shares), utils.FormatCurrency(p.AverageCost),
						utils.FormatCurrency(p.TotalCost), output.DimText("-"), output.DimText("-"), output.DimText("-"))
					continue
				}
				value := ledger.MarketValue(p, price)
				table.AddRow(p.Symbol, utils.FormatShares(p.Shares), utils.FormatCurrency(p.AverageCost),
					utils.FormatCurrency(p.TotalCost), utils.FormatCurrency(price), utils.FormatCurrency(value),
					output.FormatGainLoss(value-p.TotalCost))
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringArray("price", nil, "current price as SYMBOL=PRICE (repeatable)")
	return cmd
}

type valueView struct {
	Cash           float64         `json:"cash"`
	PortfolioValue float64         `json:"portfolioValue"`
	GainLoss       models.GainLoss `json:"gainLoss"`
	Unpriced       []string        `json:"unpriced,omitempty"`
}

func newValueCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "value",
		Short:   "Show total portfolio value at given prices",
		Example: "  academy paper value --price AAPL=172.5 --price MSFT=405",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := context.Background()

			pairs, _ := cmd.Flags().GetStringArray("price")
			prices, err := parsePrices(pairs)
			if err != nil {
				return err
			}

			sim, err := app.Simulator(ctx)
			if err != nil {
				return err
			}
			l := sim.Ledger()

			view := valueView{
				Cash:           l.Cash(),
				PortfolioValue: l.PortfolioValue(prices),
				GainLoss:       l.TotalGainLoss(prices),
			}
			for _, p := range l.Positions() {
				if _, ok := prices[p.Symbol]; !ok {
					view.Unpriced = append(view.Unpriced, p.Symbol)
				}
			}
			sort.Strings(view.Unpriced)

			if output.IsJSON() {
				return output.JSON(view)
			}

			output.Bold("Portfolio Value")
			output.Printf("  Cash:        %s\n", utils.FormatCurrency(view.Cash))
			output.Printf("  Total:       %s\n", utils.FormatCurrency(view.PortfolioValue))
			output.Printf("  Gain/Loss:   %s (%s)\n", output.FormatGainLoss(view.GainLoss.Amount), output.FormatPercent(view.GainLoss.Percent))
			if len(view.Unpriced) > 0 {
				output.Warning("⚠ No price given for %s; counted as $0", strings.Join(view.Unpriced, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringArray("price", nil, "current price as SYMBOL=PRICE (repeatable)")
	return cmd
}

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent trades, newest first",
		Long: `Show recent trades, newest first.

The portfolio keeps a limited number of recent trades and clears them on reset.
Use --archive to read every trade ever made instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := context.Background()

			limit, _ := cmd.Flags().GetInt("limit")
			fromArchive, _ := cmd.Flags().GetBool("archive")
			symbol, _ := cmd.Flags().GetString("symbol")
			symbol = ledger.NormalizeSymbol(symbol)

			sim, err := app.Simulator(ctx)
			if err != nil {
				return err
			}

			var trades []models.Trade
			if fromArchive {
				trades, err = sim.History(ctx, store.TradeFilter{Symbol: symbol, Limit: limit})
				if err != nil {
					return err
				}
			} else {
				for _, t := range sim.Ledger().Trades() {
					if symbol != "" && t.Symbol != symbol {
						continue
					}
					trades = append(trades, t)
					if limit > 0 && len(trades) == limit {
						break
					}
				}
			}

			if output.IsJSON() {
				views := make([]tradeView, 0, len(trades))
				for _, t := range trades {
					views = append(views, newTradeView(t))
				}
				return output.JSON(views)
			}
			if len(trades) == 0 {
				output.Dim("No trades yet")
				return nil
			}

			table := NewTable(output, "TIME", "SIDE", "SYMBOL", "SHARES", "PRICE", "TOTAL")
			for _, t := range trades {
				side := output.Green("BUY")
				if t.Type == models.TradeSell {
					side = output.Red("SELL")
				}
				table.AddRow(t.Timestamp.Local().Format(app.dateTimeFormat()), side, t.Symbol,
					utils.FormatShares(t.Shares), utils.FormatCurrency(t.PricePerShare), utils.FormatCurrency(t.TotalValue))
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum trades to show (0 for all)")
	cmd.Flags().Bool("archive", false, "read the full trade archive")
	cmd.Flags().String("symbol", "", "only show trades of this symbol")
	return cmd
}

func (a *App) dateTimeFormat() string {
	return a.Config.UI.DateFormat + " " + a.Config.UI.TimeFormat
}

type statusView struct {
	Cash            float64    `json:"cash"`
	InitialCash     float64    `json:"initialCash"`
	Positions       int        `json:"positions"`
	Trades          int        `json:"trades"`
	ResetCount      int        `json:"resetCount"`
	MaxResets       int        `json:"maxResets"`
	RemainingResets int        `json:"remainingResets"`
	LastResetAt     *time.Time `json:"lastResetAt,omitempty"`
	PendingRequests int        `json:"pendingRequests"`
	CanReset        bool       `json:"canReset"`
	ReadOnly        bool       `json:"readOnly"`
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show account summary and reset allowance",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			sim, err := app.Simulator(context.Background())
			if err != nil {
				return err
			}
			l := sim.Ledger()

			view := statusView{
				Cash:            l.Cash(),
				InitialCash:     l.InitialCash(),
				Positions:       len(l.Positions()),
				Trades:          len(l.Trades()),
				ResetCount:      l.ResetCount(),
				MaxResets:       l.MaxResets(),
				RemainingResets: l.RemainingResets(),
				CanReset:        l.CanReset(),
				ReadOnly:        app.Access.IsReadOnly(),
			}
			if at, ok := l.LastResetAt(); ok {
				view.LastResetAt = &at
			}
			for _, r := range l.ResetRequests() {
				if r.Status == models.ResetPending {
					view.PendingRequests++
				}
			}

			if output.IsJSON() {
				return output.JSON(view)
			}

			output.Bold("Paper Account")
			output.Printf("  Cash:            %s\n", utils.FormatCurrency(view.Cash))
			output.Printf("  Starting Cash:   %s\n", utils.FormatCurrency(view.InitialCash))
			output.Printf("  Positions:       %d\n", view.Positions)
			output.Printf("  Recent Trades:   %d\n", view.Trades)
			output.Printf("  Resets Used:     %d of %d\n", view.ResetCount, view.MaxResets)
			if view.LastResetAt != nil {
				output.Printf("  Last Reset:      %s\n", view.LastResetAt.Local().Format(app.dateTimeFormat()))
			}
			if view.PendingRequests > 0 {
				output.Printf("  Pending Requests: %d\n", view.PendingRequests)
			}
			if view.ReadOnly {
				output.Println()
				output.Warning("Read-only mode: trading and resets are disabled")
			}
			return nil
		},
	}
}

func newResetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Start over with the initial cash balance",
		Long: `Start over with the initial cash balance.

Positions and recent trades are cleared. Only a limited number of resets are
allowed; after that, file a request with 'academy paper request-reset'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			sim, err := app.Simulator(context.Background())
			if err != nil {
				return err
			}

			granted, err := sim.Reset(context.Background())
			if err != nil {
				return err
			}
			l := sim.Ledger()

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"granted":         granted,
					"remainingResets": l.RemainingResets(),
					"cash":            l.Cash(),
				})
			}
			if !granted {
				output.Warning("✗ No resets left (%d of %d used)", l.ResetCount(), l.MaxResets())
				output.Dim("Run 'academy paper request-reset --reason \"...\"' to ask for another.")
				return nil
			}
			output.Success("✓ Portfolio reset to %s", utils.FormatCurrency(l.Cash()))
			output.Dim("%d reset(s) remaining", l.RemainingResets())
			return nil
		},
	}
}

type requestView struct {
	ID          string    `json:"id"`
	RequestedAt time.Time `json:"requestedAt"`
	Reason      string    `json:"reason,omitempty"`
	Status      string    `json:"status"`
}

func newRequestView(r models.ResetRequest) requestView {
	return requestView{ID: r.ID, RequestedAt: r.RequestedAt, Reason: r.Reason, Status: string(r.Status)}
}

func newRequestResetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request-reset",
		Short: "Ask for a reset beyond the allowance",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			reason, _ := cmd.Flags().GetString("reason")

			sim, err := app.Simulator(context.Background())
			if err != nil {
				return err
			}
			req, err := sim.RequestReset(context.Background(), reason)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(newRequestView(req))
			}
			output.Success("✓ Reset request %s filed", req.ID)
			return nil
		},
	}
	cmd.Flags().String("reason", "", "why another reset is needed")
	return cmd
}

func newRequestsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "requests",
		Short: "List reset requests, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			sim, err := app.Simulator(context.Background())
			if err != nil {
				return err
			}
			requests := sim.Ledger().ResetRequests()

			if output.IsJSON() {
				views := make([]requestView, 0, len(requests))
				for _, r := range requests {
					views = append(views, newRequestView(r))
				}
				return output.JSON(views)
			}
			if len(requests) == 0 {
				output.Dim("No reset requests")
				return nil
			}

			table := NewTable(output, "ID", "REQUESTED", "STATUS", "REASON")
			for _, r := range requests {
				table.AddRow(r.ID, r.RequestedAt.Local().Format(app.dateTimeFormat()), string(r.Status), utils.Truncate(r.Reason, 40))
			}
			table.Render()
			return nil
		},
	}
}
