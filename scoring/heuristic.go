package scoring

import (
	"context"
	"fmt"

	"github.com/rustyeddy/confluence/strategy"
)

// Heuristic is the deterministic scorer:
//
//	base + confluence*perFactor + adxBonus (ADX > threshold) + factor bonuses
//
// clamped to [0, Ceiling].
type Heuristic struct {
	Base      float64 `json:"base" yaml:"base"`
	PerFactor float64 `json:"per_factor" yaml:"per_factor"`

	ADXThreshold float64 `json:"adx_threshold" yaml:"adx_threshold"`
	ADXBonus     float64 `json:"adx_bonus" yaml:"adx_bonus"`

	FactorBonus map[strategy.Factor]float64 `json:"factor_bonus,omitempty" yaml:"factor_bonus,omitempty"`

	// Ceiling caps the score; zero means MaxScore.
	Ceiling float64 `json:"ceiling" yaml:"ceiling"`
}

func (h Heuristic) Score(_ context.Context, sig strategy.Signal) Score {
	v := h.Base + float64(sig.Confluence)*h.PerFactor
	if h.ADXBonus != 0 && sig.ADX > h.ADXThreshold {
		v += h.ADXBonus
	}
	for _, f := range strategy.Checklist {
		if b, ok := h.FactorBonus[f]; ok && sig.Has(f) {
			v += b
		}
	}

	ceil := h.Ceiling
	if ceil <= 0 || ceil > MaxScore {
		ceil = MaxScore
	}
	v = clamp(v, 0, ceil)
	return Score{
		Value:     v,
		Rationale: fmt.Sprintf("heuristic: %d factors, adx %.1f", sig.Confluence, sig.ADX),
		Source:    SourceHeuristic,
	}
}
