package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/confluence/market"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Paper trade live from a polled bar source",
	Long: `Run the engine against a bar file that an external feed keeps
appending to. Every poll interval the file is re-read, new bars are
stepped through the engine, and state and trade log are persisted after
each bar. Stop with Ctrl-C; the next start resumes from the saved state.

Example:
  confluence run -f confluence.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "file", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.MarkFlagRequired("file")
}

func runRun(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	loc, err := cfg.Market.Location()
	if err != nil {
		return err
	}
	interval, err := cfg.Runner.ParsePollInterval()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var cl closer
	defer cl.Close()
	eng, err := buildEngine(ctx, cfg, reg, ports{}, &cl)
	if err != nil {
		return err
	}

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		slog.Info("serving metrics", "addr", cfg.Metrics.Addr)
	}

	st := eng.State()
	fmt.Fprintf(out, "Running %s %s (%s)\n", cfg.Market.Symbol, cfg.Market.Interval, cfg.Strategy.Variant)
	fmt.Fprintf(out, "  Balance: %.2f %s\n", st.Balance, cfg.Account.Currency)
	fmt.Fprintf(out, "  Data:    %s (poll every %s)\n", cfg.Market.DataFile, interval)
	fmt.Fprintln(out)

	src := market.CSVSource{
		Path:     cfg.Market.DataFile,
		Lookback: cfg.Market.Lookback,
		Location: loc,
	}
	if err := eng.Live(ctx, src, interval); err != nil {
		return err
	}

	st = eng.State()
	fmt.Fprintf(out, "\nStopped. Balance: %.2f  Trades today: %d  P/L today: %.2f\n",
		st.Balance, st.TradesToday, st.PnLToday)
	return nil
}
