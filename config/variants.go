package config

import (
	"fmt"
	"sort"

	"github.com/rustyeddy/confluence/indicators"
	"github.com/rustyeddy/confluence/risk"
	"github.com/rustyeddy/confluence/scoring"
	"github.com/rustyeddy/confluence/strategy"
)

// Preset is everything a strategy variant decides.
type Preset struct {
	EMAMode         indicators.EMAMode
	Rules           strategy.Rules
	Sizing          risk.Sizer
	PartialFraction float64
	Risk            risk.Policy

	Heuristic  scoring.Heuristic
	FixedScore float64
	FailScore  *float64
}

var variants = map[string]func() Preset{
	"v5": v5,
	"v6": v6,
	"v8": v8,
}

// VariantNames lists the known presets.
func VariantNames() []string {
	names := make([]string, 0, len(variants))
	for n := range variants {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Variant returns the named preset.
func Variant(name string) (Preset, error) {
	fn, ok := variants[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown variant %q", name)
	}
	return fn(), nil
}

// ApplyVariant overwrites the strategy, risk and scoring weights with the
// named preset. Indicator lookbacks are reset to the defaults; scoring
// mode, oracle endpoint and storage settings are kept.
func (c *Config) ApplyVariant(name string) error {
	p, err := Variant(name)
	if err != nil {
		return err
	}
	params := indicators.DefaultParams()
	params.EMAMode = p.EMAMode
	c.Strategy = StrategyConfig{
		Variant:         name,
		Indicators:      params,
		Rules:           p.Rules,
		Sizing:          p.Sizing,
		PartialFraction: p.PartialFraction,
	}
	c.Risk = p.Risk
	c.Scoring.Heuristic = p.Heuristic
	c.Scoring.FixedScore = p.FixedScore
	c.Scoring.Oracle.FailScore = p.FailScore
	if c.Scoring.Mode == "" {
		c.Scoring.Mode = ScoringOracle
	}
	return nil
}

func score(v float64) *float64 { return &v }

// v5 counts six bonus factors and sizes aggressively off a fixed score.
// It never scales out: reaching target 1 only moves the stop to entry.
func v5() Preset {
	return Preset{
		EMAMode: indicators.EMAAdjusted,
		Rules: strategy.Rules{
			Factors: map[strategy.Factor]strategy.Mode{
				strategy.FactorEMAStack:   strategy.ModeBonus,
				strategy.FactorSupertrend: strategy.ModeBonus,
				strategy.FactorVWAP:       strategy.ModeBonus,
				strategy.FactorBBMid:      strategy.ModeBonus,
				strategy.FactorADX:        strategy.ModeBonus,
				strategy.FactorStochRSI:   strategy.ModeBonus,
			},
			MinConfluence: 3,
			MinADX:        20,
			StrictADX:     true,
			StochLow:      20,
			StochHigh:     80,
			StopATR:       1.5,
			Target1R:      2,
			Target2R:      3.5,
			MinBars:       210,
		},
		Sizing: risk.Sizer{
			Tiers: []risk.Tier{
				{MinScore: 9, Percent: 6},
				{MinScore: 8, Percent: 4.5},
				{MinScore: 7, Percent: 3},
			},
			Loss: risk.LossStreak{Threshold: 3, Multiplier: 0.5},
			Win:  risk.WinStreak{Threshold: 2, Step: 1, Max: 7},
		},
		PartialFraction: 0,
		Risk: risk.Policy{
			MaxDailyTrades:  4,
			MaxDailyLossPct: 0.04,
			MaxDrawdownPct:  0.10,
		},
		FixedScore: 8,
		FailScore:  score(7.5),
	}
}

// v6 requires trend alignment and scores heuristically when the oracle is
// unavailable.
func v6() Preset {
	return Preset{
		EMAMode: indicators.EMARecursive,
		Rules: strategy.Rules{
			Factors: map[strategy.Factor]strategy.Mode{
				strategy.FactorEMA:        strategy.ModeRequired,
				strategy.FactorSupertrend: strategy.ModeRequired,
				strategy.FactorADX:        strategy.ModeRequired,
				strategy.FactorEMA200:     strategy.ModeBonus,
				strategy.FactorVolume:     strategy.ModeBonus,
				strategy.FactorVWAP:       strategy.ModeBonus,
				strategy.FactorBB:         strategy.ModeBonus,
				strategy.FactorStochRSI:   strategy.ModeBonus,
			},
			MinConfluence:  4,
			MinADX:         22,
			MinVolumeRatio: 1.1,
			StochLow:       20,
			StochHigh:      80,
			StopATR:        1.2,
			Target1R:       2,
			Target2R:       3,
			MinBars:        200,
		},
		Sizing: risk.Sizer{
			Tiers: []risk.Tier{
				{MinScore: 9, Percent: 4},
				{MinScore: 8.5, Percent: 3},
				{MinScore: 7.5, Percent: 2},
			},
			Loss: risk.LossStreak{Threshold: 3, Multiplier: 0.5},
			Win:  risk.WinStreak{Threshold: 2, Step: 0.5, Max: 5},
		},
		PartialFraction: 0.5,
		Risk: risk.Policy{
			MaxDailyTrades:  8,
			MaxDailyLossPct: 0.07,
		},
		Heuristic: scoring.Heuristic{
			Base:         5,
			PerFactor:    0.7,
			ADXThreshold: 25,
			ADXBonus:     1,
			Ceiling:      9.5,
		},
		FixedScore: 7.5,
		FailScore:  score(7.5),
	}
}

// v8 adds MACD, stricter trend filters and wider targets.
func v8() Preset {
	return Preset{
		EMAMode: indicators.EMASMASeed,
		Rules: strategy.Rules{
			Factors: map[strategy.Factor]strategy.Mode{
				strategy.FactorEMA:        strategy.ModeRequired,
				strategy.FactorSupertrend: strategy.ModeRequired,
				strategy.FactorADX:        strategy.ModeRequired,
				strategy.FactorEMA200:     strategy.ModeBonus,
				strategy.FactorMACD:       strategy.ModeBonus,
				strategy.FactorVolume:     strategy.ModeBonus,
				strategy.FactorVWAP:       strategy.ModeBonus,
				strategy.FactorBB:         strategy.ModeBonus,
				strategy.FactorStochRSI:   strategy.ModeBonus,
			},
			MinConfluence:  4,
			MinADX:         25,
			MinVolumeRatio: 1.3,
			StochLow:       20,
			StochHigh:      80,
			StopATR:        1.2,
			Target1R:       2,
			Target2R:       4,
			MinBars:        200,
		},
		Sizing: risk.Sizer{
			Tiers: []risk.Tier{
				{MinScore: 9, Percent: 10},
				{MinScore: 8.5, Percent: 8},
				{MinScore: 8, Percent: 6},
			},
			Loss: risk.LossStreak{Threshold: 2, Multiplier: 1, Cap: 4},
			Win:  risk.WinStreak{Threshold: 3, Step: 2, Max: 12},
		},
		PartialFraction: 0.5,
		Risk: risk.Policy{
			MaxDailyTrades:  12,
			MaxDailyLossPct: 0.10,
		},
		Heuristic: scoring.Heuristic{
			Base:         6,
			PerFactor:    0.6,
			ADXThreshold: 30,
			ADXBonus:     1,
			FactorBonus:  map[strategy.Factor]float64{strategy.FactorMACD: 1},
			Ceiling:      10,
		},
		FixedScore: 8,
		FailScore:  score(8),
	}
}
