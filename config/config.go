// Package config loads the engine configuration from YAML or JSON and
// provides the strategy variant presets.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/confluence/indicators"
	"github.com/rustyeddy/confluence/risk"
	"github.com/rustyeddy/confluence/scoring"
	"github.com/rustyeddy/confluence/strategy"
)

// Config is the complete engine configuration. Secrets are not part of it;
// see LoadEnv and OracleConfig.APIKeyEnv.
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Market   MarketConfig   `json:"market" yaml:"market"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Risk     risk.Policy    `json:"risk" yaml:"risk"`
	Scoring  ScoringConfig  `json:"scoring" yaml:"scoring"`
	State    StateConfig    `json:"state" yaml:"state"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
	Runner   RunnerConfig   `json:"runner" yaml:"runner"`
}

type AccountConfig struct {
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
	Currency       string  `json:"currency" yaml:"currency"`
}

type MarketConfig struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Interval string `json:"interval" yaml:"interval"`

	// Lookback is the number of most recent bars handed to the indicators
	// on each live cycle.
	Lookback int    `json:"lookback" yaml:"lookback"`
	Timezone string `json:"timezone" yaml:"timezone"`

	// DataFile is a bar CSV. The live runner re-reads it every cycle.
	DataFile string `json:"data_file" yaml:"data_file"`
}

// Location resolves Timezone; empty means UTC.
func (m MarketConfig) Location() (*time.Location, error) {
	if m.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(m.Timezone)
}

type StrategyConfig struct {
	Variant    string            `json:"variant" yaml:"variant"`
	Indicators indicators.Params `json:"indicators" yaml:"indicators"`
	Rules      strategy.Rules    `json:"rules" yaml:"rules"`
	Sizing     risk.Sizer        `json:"sizing" yaml:"sizing"`

	// PartialFraction of the original quantity is closed at target 1.
	// Zero skips the partial but still moves the stop to breakeven.
	PartialFraction float64 `json:"partial_fraction" yaml:"partial_fraction"`
}

// Scoring modes.
const (
	ScoringOracle    = "oracle"
	ScoringHeuristic = "heuristic"
	ScoringFixed     = "fixed"
)

type ScoringConfig struct {
	Mode       string            `json:"mode" yaml:"mode"`
	Heuristic  scoring.Heuristic `json:"heuristic" yaml:"heuristic"`
	FixedScore float64           `json:"fixed_score" yaml:"fixed_score"`
	Oracle     OracleConfig      `json:"oracle" yaml:"oracle"`
	Cache      CacheConfig       `json:"cache" yaml:"cache"`
}

// UseHeuristic reports whether the heuristic is configured; otherwise the
// fixed score is the fallback.
func (s ScoringConfig) UseHeuristic() bool {
	return s.Heuristic.Ceiling > 0 || s.Heuristic.Base > 0 || s.Heuristic.PerFactor > 0
}

type OracleConfig struct {
	Endpoint    string  `json:"endpoint" yaml:"endpoint"`
	Model       string  `json:"model" yaml:"model"`
	APIKeyEnv   string  `json:"api_key_env" yaml:"api_key_env"`
	Timeout     string  `json:"timeout" yaml:"timeout"` // e.g. "10s"
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`

	// FailScore is used when the oracle call fails. Unset means fall back
	// to the heuristic or fixed scorer.
	FailScore *float64 `json:"fail_score,omitempty" yaml:"fail_score,omitempty"`
}

// APIKey reads the key from the environment.
func (o OracleConfig) APIKey() string {
	if o.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(o.APIKeyEnv)
}

func (o OracleConfig) ParseTimeout() (time.Duration, error) {
	return parseDuration(o.Timeout)
}

type CacheConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int    `json:"db" yaml:"db"`
	Prefix   string `json:"prefix" yaml:"prefix"`
	TTL      string `json:"ttl" yaml:"ttl"`
}

func (c CacheConfig) ParseTTL() (time.Duration, error) {
	return parseDuration(c.TTL)
}

type StateConfig struct {
	Backend string `json:"backend" yaml:"backend"` // "file" or "sqlite"
	Path    string `json:"path" yaml:"path"`
}

type JournalConfig struct {
	Type string `json:"type" yaml:"type"` // "csv" or "sqlite"
	Path string `json:"path" yaml:"path"`
}

type MetricsConfig struct {
	Addr string `json:"addr" yaml:"addr"` // empty disables /metrics
}

type RunnerConfig struct {
	PollInterval string `json:"poll_interval" yaml:"poll_interval"`
	CloseAtEnd   bool   `json:"close_at_end" yaml:"close_at_end"`
}

func (r RunnerConfig) ParsePollInterval() (time.Duration, error) {
	return parseDuration(r.PollInterval)
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// LoadFromFile loads configuration from a YAML or JSON file and validates it.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = &Config{}
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", errors.Join(err, jerr))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate reports every problem found, one per line.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	nested := func(prefix string, err error) {
		if err == nil {
			return
		}
		for _, line := range strings.Split(err.Error(), "\n") {
			add("%s.%s", prefix, line)
		}
	}

	if c.Account.InitialCapital <= 0 {
		add("account.initial_capital must be positive")
	}

	if c.Market.Symbol == "" {
		add("market.symbol is required")
	}
	if c.Market.Lookback < 0 {
		add("market.lookback must be >= 0")
	} else if c.Market.Lookback > 0 && c.Market.Lookback < c.Strategy.Indicators.Warmup() {
		add("market.lookback %d is shorter than the indicator warm-up %d",
			c.Market.Lookback, c.Strategy.Indicators.Warmup())
	}
	if _, err := c.Market.Location(); err != nil {
		add("market.timezone: %v", err)
	}

	if c.Strategy.Variant != "" {
		if _, ok := variants[c.Strategy.Variant]; !ok {
			add("strategy.variant: unknown variant %q (have %s)", c.Strategy.Variant, strings.Join(VariantNames(), ", "))
		}
	}
	nested("strategy.indicators", validateParams(c.Strategy.Indicators))
	nested("strategy.rules", c.Strategy.Rules.Validate())
	nested("strategy.sizing", c.Strategy.Sizing.Validate())
	if c.Strategy.PartialFraction < 0 || c.Strategy.PartialFraction >= 1 {
		add("strategy.partial_fraction must be in [0,1)")
	}

	nested("risk", c.Risk.Validate())

	switch c.Scoring.Mode {
	case ScoringOracle, ScoringHeuristic, ScoringFixed:
	default:
		add("scoring.mode must be 'oracle', 'heuristic' or 'fixed'")
	}
	if c.Scoring.Mode == ScoringHeuristic && !c.Scoring.UseHeuristic() {
		add("scoring.heuristic is required for heuristic mode")
	}
	if c.Scoring.FixedScore < 0 || c.Scoring.FixedScore > scoring.MaxScore {
		add("scoring.fixed_score must be in [0,%g]", scoring.MaxScore)
	}
	if fs := c.Scoring.Oracle.FailScore; fs != nil && (*fs < 0 || *fs > scoring.MaxScore) {
		add("scoring.oracle.fail_score must be in [0,%g]", scoring.MaxScore)
	}
	if c.Scoring.Mode == ScoringOracle && c.Scoring.Oracle.APIKeyEnv == "" {
		add("scoring.oracle.api_key_env is required for oracle mode")
	}
	if d, err := c.Scoring.Oracle.ParseTimeout(); err != nil || d < 0 {
		add("scoring.oracle.timeout must be a duration like 10s")
	}
	if c.Scoring.Cache.Enabled {
		if c.Scoring.Cache.Addr == "" {
			add("scoring.cache.addr is required when the cache is enabled")
		}
		if d, err := c.Scoring.Cache.ParseTTL(); err != nil || d <= 0 {
			add("scoring.cache.ttl must be a positive duration")
		}
	}

	if c.State.Backend != "file" && c.State.Backend != "sqlite" {
		add("state.backend must be 'file' or 'sqlite'")
	}
	if c.State.Path == "" {
		add("state.path is required")
	}
	if c.Journal.Type != "csv" && c.Journal.Type != "sqlite" {
		add("journal.type must be 'csv' or 'sqlite'")
	}
	if c.Journal.Path == "" {
		add("journal.path is required")
	}

	if d, err := c.Runner.ParsePollInterval(); err != nil || d <= 0 {
		add("runner.poll_interval must be a positive duration")
	}
	return errors.Join(errs...)
}

func validateParams(p indicators.Params) error {
	var errs []error
	for name, v := range map[string]int{
		"ema_fast":         p.EMAFast,
		"ema_mid":          p.EMAMid,
		"ema_slow":         p.EMASlow,
		"atr_period":       p.ATRPeriod,
		"bollinger_period": p.BollingerPeriod,
		"adx_period":       p.ADXPeriod,
		"rsi_period":       p.RSIPeriod,
		"stoch_period":     p.StochPeriod,
		"stoch_smooth":     p.StochSmooth,
		"macd_fast":        p.MACDFast,
		"macd_slow":        p.MACDSlow,
		"macd_signal":      p.MACDSignal,
		"volume_period":    p.VolumePeriod,
	} {
		if v < 1 {
			errs = append(errs, fmt.Errorf("%s must be >= 1", name))
		}
	}
	if p.EMAFast >= p.EMAMid || p.EMAMid >= p.EMASlow {
		errs = append(errs, errors.New("ema periods must satisfy ema_fast < ema_mid < ema_slow"))
	}
	if !p.EMAMode.Valid() {
		errs = append(errs, fmt.Errorf("ema_mode %q must be 'adjusted', 'recursive' or 'sma'", p.EMAMode))
	}
	if p.MACDFast >= p.MACDSlow {
		errs = append(errs, errors.New("macd_fast must be below macd_slow"))
	}
	if p.SupertrendMultiplier <= 0 || p.BollingerK <= 0 {
		errs = append(errs, errors.New("supertrend_multiplier and bollinger_k must be positive"))
	}
	return errors.Join(errs...)
}

// Default returns a valid configuration for the v8 variant.
func Default() *Config {
	cfg := &Config{
		Account: AccountConfig{
			InitialCapital: 30000,
			Currency:       "INR",
		},
		Market: MarketConfig{
			Symbol:   "^NSEI",
			Interval: "5m",
			Lookback: 500,
			Timezone: "Asia/Kolkata",
			DataFile: "./data/nsei_5m.csv",
		},
		Scoring: ScoringConfig{
			Oracle: OracleConfig{
				Endpoint:    scoring.DefaultEndpoint,
				Model:       scoring.DefaultModel,
				APIKeyEnv:   "CEREBRAS_API_KEY",
				Timeout:     "10s",
				Temperature: 0.1,
				MaxTokens:   100,
			},
			Cache: CacheConfig{
				Addr:   "localhost:6379",
				Prefix: "confluence:",
				TTL:    "24h",
			},
		},
		State: StateConfig{
			Backend: "file",
			Path:    "./confluence_state.json",
		},
		Journal: JournalConfig{
			Type: "csv",
			Path: "./trades.csv",
		},
		Runner: RunnerConfig{
			PollInterval: "60s",
		},
	}
	if err := cfg.ApplyVariant("v8"); err != nil {
		panic(err)
	}
	return cfg
}
