package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/confluence/config"
)

var rootCmd = &cobra.Command{
	Use:   "confluence",
	Short: "Confluence decision and risk engine for a single instrument",
	Long: `Confluence watches one instrument bar by bar, detects multi-indicator
confluence setups, scores them, sizes them from the account's risk budget
and manages each trade through a partial exit at target 1, a breakeven
stop and a final exit at the stop or target 2.

Commands:
  run       - Paper trade live from a polled bar source
  backtest  - Replay a bar file through the engine
  config    - Generate or validate configuration files
  state     - Show the persisted engine state
  journal   - Query the trade log`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return config.LoadEnv(envFiles...)
	},
}

var (
	verbose  bool
	envFiles []string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", nil, "dotenv files to load (default .env)")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(path)
}
