package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"stock-academy/internal/ledger"
	"stock-academy/internal/models"
	"stock-academy/internal/store"
)

// tradeRecord is one CSV row of the trade export.
type tradeRecord struct {
	ID            string `csv:"id"`
	Timestamp     string `csv:"timestamp"`
	Type          string `csv:"type"`
	Symbol        string `csv:"symbol"`
	Shares        string `csv:"shares"`
	PricePerShare string `csv:"price_per_share"`
	TotalValue    string `csv:"total_value"`
}

func newTradeRecord(t models.Trade) tradeRecord {
	return tradeRecord{
		ID:            t.ID,
		Timestamp:     t.Timestamp.UTC().Format(time.RFC3339),
		Type:          string(t.Type),
		Symbol:        t.Symbol,
		Shares:        strconv.FormatFloat(t.Shares, 'f', -1, 64),
		PricePerShare: strconv.FormatFloat(t.PricePerShare, 'f', 2, 64),
		TotalValue:    strconv.FormatFloat(t.TotalValue, 'f', 2, 64),
	}
}

func checkExportFormat(format string) error {
	if format != "csv" && format != "json" {
		return fmt.Errorf("unsupported format %q (use csv or json)", format)
	}
	return nil
}

// writeTrades encodes trades as csv or json.
func writeTrades(w io.Writer, format string, trades []models.Trade) error {
	if err := checkExportFormat(format); err != nil {
		return err
	}
	switch format {
	case "csv":
		records := make([]*tradeRecord, 0, len(trades))
		for _, t := range trades {
			r := newTradeRecord(t)
			records = append(records, &r)
		}
		return gocsv.Marshal(records, w)
	case "json":
		views := make([]tradeView, 0, len(trades))
		for _, t := range trades {
			views = append(views, newTradeView(t))
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}
	return nil
}

func newExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the full trade archive, oldest first",
		Example: `  academy paper export > trades.csv
  academy paper export --format json --output trades.json
  academy paper export --symbol AAPL --since 2024-01-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := context.Background()

			format, _ := cmd.Flags().GetString("format")
			path, _ := cmd.Flags().GetString("output")
			symbol, _ := cmd.Flags().GetString("symbol")
			since, _ := cmd.Flags().GetString("since")
			if err := checkExportFormat(format); err != nil {
				return err
			}

			filter := store.TradeFilter{Symbol: ledger.NormalizeSymbol(symbol)}
			if since != "" {
				start, err := time.ParseInLocation(app.Config.UI.DateFormat, since, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --since %q: %w", since, err)
				}
				filter.StartDate = start
			}

			sim, err := app.Simulator(ctx)
			if err != nil {
				return err
			}
			trades, err := sim.History(ctx, filter)
			if err != nil {
				return err
			}
			for i, j := 0, len(trades)-1; i < j; i, j = i+1, j-1 {
				trades[i], trades[j] = trades[j], trades[i]
			}

			if path == "" {
				return writeTrades(cmd.OutOrStdout(), format, trades)
			}

			f, err := os.Create(path)
			if err != nil {
				return err
			}
			if err := writeTrades(f, format, trades); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"path": path, "trades": len(trades)})
			}
			output.Success("✓ Exported %d trade(s) to %s", len(trades), path)
			return nil
		},
	}
	cmd.Flags().String("format", "csv", "output format: csv or json")
	cmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")
	cmd.Flags().String("symbol", "", "only export trades of this symbol")
	cmd.Flags().String("since", "", "only export trades on or after this date")
	return cmd
}
