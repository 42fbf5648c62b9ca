package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/confluence/config"
	"github.com/rustyeddy/confluence/journal"
	"github.com/rustyeddy/confluence/risk"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the trade log",
	Long: `Query and display exit records from the configured trade log.

Subcommands:
  list   - List every record with a summary
  trade  - Show the records of one position
  today  - List records closed today
  day    - List records closed on a specific day

Days are calendar days in market.timezone.

Examples:
  confluence journal list -f confluence.yaml
  confluence journal day 2024-01-15 --org`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every record with a summary",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <position-id>",
	Short: "Show the records of one position",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List records closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List records closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var (
	journalConfigPath string
	journalOrg        bool
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)

	journalCmd.PersistentFlags().StringVarP(&journalConfigPath, "file", "f", "", "path to config file (default: built-in config)")
	journalCmd.PersistentFlags().BoolVar(&journalOrg, "org", false, "print records as Org-mode entries")
}

func loadJournal() (*config.Config, []journal.Record, error) {
	cfg, err := loadConfig(journalConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	j, err := openJournal(cfg.Journal)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	recs, err := j.List(context.Background())
	if err != nil {
		return nil, nil, fmt.Errorf("list records: %w", err)
	}
	return cfg, recs, nil
}

func runJournalList(cmd *cobra.Command, args []string) error {
	_, recs, err := loadJournal()
	if err != nil {
		return err
	}
	printRecords(cmd.OutOrStdout(), recs)
	return nil
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	_, recs, err := loadJournal()
	if err != nil {
		return err
	}
	var out []journal.Record
	for _, r := range recs {
		if r.PositionID == args[0] || r.ID == args[0] {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return fmt.Errorf("%w: %q", journal.ErrNotFound, args[0])
	}
	fmt.Fprint(cmd.OutOrStdout(), journal.FormatOrg(out))
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	cfg, recs, err := loadJournal()
	if err != nil {
		return err
	}
	loc, err := cfg.Market.Location()
	if err != nil {
		return err
	}
	return printDay(cmd.OutOrStdout(), recs, risk.DayOf(time.Now(), loc), loc)
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	cfg, recs, err := loadJournal()
	if err != nil {
		return err
	}
	loc, err := cfg.Market.Location()
	if err != nil {
		return err
	}
	return printDay(cmd.OutOrStdout(), recs, args[0], loc)
}

func printDay(w io.Writer, recs []journal.Record, day string, loc *time.Location) error {
	start, err := time.ParseInLocation(risk.DayLayout, day, loc)
	if err != nil {
		return fmt.Errorf("invalid day %q (want YYYY-MM-DD): %w", day, err)
	}
	recs = journal.Between(recs, start, start.AddDate(0, 0, 1))
	if len(recs) == 0 {
		fmt.Fprintf(w, "No exits on %s\n", day)
		return nil
	}
	printRecords(w, recs)
	return nil
}

func printRecords(w io.Writer, recs []journal.Record) {
	if journalOrg {
		fmt.Fprint(w, journal.FormatOrg(recs))
		return
	}
	fmt.Fprintf(w, "%-20s %-5s %6s %10s %10s %10s %-15s %10s\n",
		"EXIT", "TYPE", "QTY", "ENTRY", "EXIT", "P/L", "REASON", "BALANCE")
	for _, r := range recs {
		fmt.Fprintf(w, "%-20s %-5s %6d %10.2f %10.2f %10.2f %-15s %10.2f\n",
			r.ExitTime.Format(time.DateTime), r.Direction, r.Qty, r.EntryPrice, r.ExitPrice, r.PnL, r.Reason, r.Balance)
	}
	s := journal.Summarize(recs)
	fmt.Fprintf(w, "\n%d trades (%d wins, %d losses, %d partial exits), net P/L %.2f, win rate %.1f%%\n",
		s.Trades, s.Wins, s.Losses, s.Partials, s.NetPnL, 100*s.WinRate)
}
