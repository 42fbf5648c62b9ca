package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/confluence/state"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect the persisted engine state",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print balance, streaks, daily counters and the active trade",
	Args:  cobra.NoArgs,
	RunE:  runStateShow,
}

var stateConfigPath string

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateShowCmd)

	stateCmd.PersistentFlags().StringVarP(&stateConfigPath, "file", "f", "", "path to config file (default: built-in config)")
}

func runStateShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(stateConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var cl closer
	defer cl.Close()
	store, err := openStore(cfg.State, &cl)
	if err != nil {
		return err
	}
	st, err := store.Load(context.Background())
	if errors.Is(err, state.ErrNotFound) {
		fmt.Fprintf(cmd.OutOrStdout(), "No saved state at %s\n", cfg.State.Path)
		return nil
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Balance:      %.2f (start %.2f, peak %.2f, return %.2f%%, drawdown %.2f%%)\n",
		st.Balance, st.InitialCapital, st.PeakBalance, 100*st.Return(), 100*st.Drawdown())
	fmt.Fprintf(out, "Streak:       %d wins, %d losses\n", st.ConsecutiveWins, st.ConsecutiveLosses)
	fmt.Fprintf(out, "Today (%s): %d trades, P/L %.2f\n", st.Day, st.TradesToday, st.PnLToday)
	fmt.Fprintf(out, "Last bar:     %s\n", formatTime(st.LastBar))
	fmt.Fprintf(out, "Updated:      %s\n", formatTime(st.UpdatedAt))

	p := st.Position
	if p == nil {
		fmt.Fprintln(out, "Active trade: none")
		return nil
	}
	fmt.Fprintf(out, "Active trade: %s %s %d/%d @ %.2f (%s)\n",
		p.ID, p.Direction, p.RemainingQty, p.OriginalQty, p.Entry, st.Phase())
	fmt.Fprintf(out, "  Stop %.2f  T1 %.2f  T2 %.2f  realized %.2f\n", p.Stop, p.Target1, p.Target2, p.RealizedPL)
	fmt.Fprintf(out, "  Score %.1f at %.2f%% risk: %s\n", p.Score, p.RiskPct, p.Rationale)
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
