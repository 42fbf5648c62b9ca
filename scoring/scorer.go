// Package scoring assigns a confidence score in [0, 10] to a signal.
//
// Scorers never fail: an implementation that depends on something remote
// substitutes a fallback score and says so in the rationale.
package scoring

import (
	"context"
	"math"

	"github.com/rustyeddy/confluence/strategy"
)

// MaxScore is the top of the score range.
const MaxScore = 10.0

// Source records which implementation produced a score.
type Source string

const (
	SourceHeuristic Source = "heuristic"
	SourceFixed     Source = "fixed"
	SourceOracle    Source = "oracle"
	SourceFallback  Source = "fallback"
	SourceCache     Source = "cache"
)

type Score struct {
	Value     float64 `json:"value"`
	Rationale string  `json:"rationale"`
	Source    Source  `json:"source"`
}

// Scorer is the confidence capability consumed by the engine.
type Scorer interface {
	Score(ctx context.Context, sig strategy.Signal) Score
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, sig strategy.Signal) Score

func (f ScorerFunc) Score(ctx context.Context, sig strategy.Signal) Score {
	return f(ctx, sig)
}

// Fixed always returns the same score.
type Fixed struct {
	Value     float64
	Rationale string
}

func (f Fixed) Score(context.Context, strategy.Signal) Score {
	r := f.Rationale
	if r == "" {
		r = "fixed score"
	}
	return Score{Value: clamp(f.Value, 0, MaxScore), Rationale: r, Source: SourceFixed}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
