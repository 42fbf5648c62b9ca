package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/confluence/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage engine configuration files.

Subcommands:
  init     - Generate a configuration file for a strategy variant
  validate - Validate an existing configuration file

Examples:
  confluence config init -o confluence.yaml --variant v6
  confluence config validate -f confluence.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a configuration file",
	Long: `Create a new configuration file from a strategy variant preset.

Example:
  confluence config init -o confluence.yaml --variant v8`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded.

Example:
  confluence config validate -f confluence.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configInitVariant  string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "confluence.yaml", "output config file path")
	configInitCmd.Flags().StringVar(&configInitVariant, "variant", "v8",
		"strategy variant ("+strings.Join(config.VariantNames(), ", ")+")")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.ApplyVariant(configInitVariant); err != nil {
		return err
	}
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s configuration: %s\n", configInitVariant, configInitOutput)
	fmt.Fprintln(cmd.OutOrStdout(), "\nEdit the file and run with:")
	fmt.Fprintf(cmd.OutOrStdout(), "  confluence run -f %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Account:  %.2f %s\n", cfg.Account.InitialCapital, cfg.Account.Currency)
	fmt.Fprintf(out, "  Market:   %s %s (%s)\n", cfg.Market.Symbol, cfg.Market.Interval, cfg.Market.Timezone)
	fmt.Fprintf(out, "  Strategy: %s (min confluence %d of %d factors)\n",
		cfg.Strategy.Variant, cfg.Strategy.Rules.MinConfluence, len(cfg.Strategy.Rules.Active()))
	fmt.Fprintf(out, "  Scoring:  %s\n", cfg.Scoring.Mode)
	fmt.Fprintf(out, "  State:    %s (%s)\n", cfg.State.Backend, cfg.State.Path)
	fmt.Fprintf(out, "  Journal:  %s (%s)\n", cfg.Journal.Type, cfg.Journal.Path)
	return nil
}
