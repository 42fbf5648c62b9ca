package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/confluence/engine"
	"github.com/rustyeddy/confluence/journal"
	"github.com/rustyeddy/confluence/market"
	"github.com/rustyeddy/confluence/pkg/id"
	"github.com/rustyeddy/confluence/state"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay a bar file through the engine",
	Long: `Backtest steps every bar of a CSV file through the same engine the
live runner uses and prints a summary.

By default the backtest keeps its state and trade log in memory and
starts from the configured capital. --persist uses the configured state
store and journal instead, so a later run resumes after the last bar.

Examples:
  confluence backtest -f confluence.yaml --data nsei_5m.csv
  confluence backtest -f confluence.yaml --close-end --org report.org`,
	RunE: runBacktest,
}

var (
	btConfigPath string
	btDataPath   string
	btCloseEnd   bool
	btPersist    bool
	btOrgPath    string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btConfigPath, "file", "f", "", "path to config file (default: built-in v8 config)")
	backtestCmd.Flags().StringVar(&btDataPath, "data", "", "bar CSV (default: market.data_file)")
	backtestCmd.Flags().BoolVar(&btCloseEnd, "close-end", false, "close an open position at the last bar")
	backtestCmd.Flags().BoolVar(&btPersist, "persist", false, "use the configured state store")
	backtestCmd.Flags().StringVar(&btOrgPath, "org", "", "write an Org-mode report to this path")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig(btConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	dataPath := btDataPath
	if dataPath == "" {
		dataPath = cfg.Market.DataFile
	}
	loc, err := cfg.Market.Location()
	if err != nil {
		return err
	}

	bars, err := market.LoadCSV(dataPath, loc)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}

	ctx := context.Background()
	var cl closer
	defer cl.Close()
	var p ports
	if !btPersist {
		p = ports{journal: journal.NewMemory(), store: state.NewMemory()}
	}
	eng, err := buildEngine(ctx, cfg, nil, p, &cl)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Backtesting %s %s (%s) on %d bars from %s\n",
		cfg.Market.Symbol, cfg.Market.Interval, cfg.Strategy.Variant, len(bars), dataPath)

	res, err := eng.Backtest(ctx, bars, engine.BacktestOptions{CloseAtEnd: btCloseEnd || cfg.Runner.CloseAtEnd})
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	fmt.Fprintf(out, "\nResults:\n")
	fmt.Fprintf(out, "  Period:        %s .. %s (%d bars)\n", res.Start.Format(time.DateTime), res.End.Format(time.DateTime), res.Bars)
	fmt.Fprintf(out, "  Start Balance: %.2f\n", res.StartBalance)
	fmt.Fprintf(out, "  End Balance:   %.2f\n", res.Balance)
	fmt.Fprintf(out, "  Net P/L:       %.2f (%.2f%%)\n", res.NetPL(), res.ReturnPct())
	fmt.Fprintf(out, "  Trades:        %d (wins %d, losses %d, partials %d)\n", res.Trades, res.Wins, res.Losses, res.Partials)
	fmt.Fprintf(out, "  Win Rate:      %.1f%%\n", 100*res.WinRate())
	fmt.Fprintf(out, "  Max Drawdown:  %.2f%%\n", res.MaxDrawdownPct)
	if st := eng.State(); st.Position != nil {
		fmt.Fprintf(out, "  Open:          %s %d @ %.2f\n", st.Position.Direction, st.Position.RemainingQty, st.Position.Entry)
	}

	if btOrgPath != "" {
		if err := writeReport(btOrgPath, cfg.Market.Symbol, cfg.Market.Interval, cfg.Strategy.Variant, dataPath, res); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nReport written to %s\n", btOrgPath)
	}
	return nil
}

func writeReport(path, symbol, interval, variant, dataset string, res engine.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := journal.Report{
		RunID:        id.New(),
		Created:      time.Now(),
		Symbol:       symbol,
		Interval:     interval,
		Variant:      variant,
		Dataset:      dataset,
		Start:        res.Start,
		End:          res.End,
		Bars:         res.Bars,
		StartBalance: res.StartBalance,
		EndBalance:   res.Balance,
		MaxDDPct:     res.MaxDrawdownPct,
		Summary:      journal.Summarize(res.Records),
		Records:      res.Records,
	}
	if err := r.WriteOrg(f); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}
