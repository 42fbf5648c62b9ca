package risk

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Tier maps scores at or above MinScore to a risk percentage of balance.
type Tier struct {
	MinScore float64 `json:"min_score" yaml:"min_score"`
	Percent  float64 `json:"percent" yaml:"percent"`
}

// LossStreak reduces risk after Threshold consecutive losses: the tier
// percentage is multiplied by Multiplier and then capped at Cap.
// A zero Threshold disables it.
type LossStreak struct {
	Threshold  int     `json:"threshold" yaml:"threshold"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
	Cap        float64 `json:"cap" yaml:"cap"`
}

// WinStreak adds Step percent after Threshold consecutive wins, up to Max.
// A zero Threshold disables it.
type WinStreak struct {
	Threshold int     `json:"threshold" yaml:"threshold"`
	Step      float64 `json:"step" yaml:"step"`
	Max       float64 `json:"max" yaml:"max"`
}

// Streak is the pair of counters the sizer adapts to.
type Streak struct {
	Wins   int
	Losses int
}

// Sizer turns a confidence score into a position quantity.
type Sizer struct {
	Tiers []Tier     `json:"tiers" yaml:"tiers"`
	Loss  LossStreak `json:"loss_streak" yaml:"loss_streak"`
	Win   WinStreak  `json:"win_streak" yaml:"win_streak"`
}

func (s Sizer) sorted() []Tier {
	tiers := append([]Tier(nil), s.Tiers...)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].MinScore > tiers[j].MinScore })
	return tiers
}

// MinScore is the lowest score that opens a trade.
func (s Sizer) MinScore() float64 {
	tiers := s.sorted()
	if len(tiers) == 0 {
		return math.Inf(1)
	}
	return tiers[len(tiers)-1].MinScore
}

// TierPercent returns the unadjusted percentage for score. ok is false
// when score is below every tier.
func (s Sizer) TierPercent(score float64) (float64, bool) {
	for _, t := range s.sorted() {
		if score >= t.MinScore {
			return t.Percent, true
		}
	}
	return 0, false
}

func (s Sizer) adapt(pct float64, st Streak) float64 {
	if s.Loss.Threshold > 0 && st.Losses >= s.Loss.Threshold {
		pct *= s.Loss.Multiplier
		if s.Loss.Cap > 0 {
			pct = math.Min(pct, s.Loss.Cap)
		}
	}
	if s.Win.Threshold > 0 && st.Wins >= s.Win.Threshold {
		pct = math.Min(pct+s.Win.Step, s.Win.Max)
	}
	return pct
}

// RiskPercent returns the streak-adjusted percentage for score.
func (s Sizer) RiskPercent(score float64, st Streak) (float64, bool) {
	pct, ok := s.TierPercent(score)
	if !ok {
		return 0, false
	}
	return s.adapt(pct, st), true
}

// Size returns floor(balance * pct/100 / riskPerUnit) and the percentage
// used. A zero quantity means do not trade; it is not an error.
func (s Sizer) Size(score float64, st Streak, balance, riskPerUnit float64) (int, float64) {
	pct, ok := s.RiskPercent(score, st)
	if !ok {
		return 0, 0
	}
	if balance <= 0 || riskPerUnit <= 0 || math.IsNaN(riskPerUnit) {
		return 0, pct
	}
	qty := math.Floor(balance * pct / 100 / riskPerUnit)
	if qty < 1 || math.IsInf(qty, 0) {
		return 0, pct
	}
	if qty > math.MaxInt32 {
		qty = math.MaxInt32
	}
	return int(qty), pct
}

func (s Sizer) Validate() error {
	var errs []error
	if len(s.Tiers) == 0 {
		errs = append(errs, errors.New("tiers: at least one tier is required"))
	}
	tiers := s.sorted()
	for i, t := range tiers {
		if t.MinScore < 0 || t.MinScore > 10 {
			errs = append(errs, fmt.Errorf("tiers[%d]: min_score %.2f outside [0,10]", i, t.MinScore))
		}
		if t.Percent <= 0 || t.Percent > 100 {
			errs = append(errs, fmt.Errorf("tiers[%d]: percent %.2f outside (0,100]", i, t.Percent))
		}
		if i > 0 && t.MinScore == tiers[i-1].MinScore {
			errs = append(errs, fmt.Errorf("tiers: duplicate min_score %.2f", t.MinScore))
		}
		if i > 0 && t.Percent > tiers[i-1].Percent {
			errs = append(errs, fmt.Errorf("tiers: percent must not decrease as min_score rises (%.2f)", t.MinScore))
		}
	}

	if s.Loss.Threshold < 0 || s.Win.Threshold < 0 {
		errs = append(errs, errors.New("streak thresholds must be >= 0"))
	}
	if s.Loss.Threshold > 0 {
		if s.Loss.Multiplier <= 0 || s.Loss.Multiplier > 1 {
			errs = append(errs, errors.New("loss_streak.multiplier must be in (0,1]"))
		}
		for _, t := range tiers {
			if s.adapt(t.Percent, Streak{Losses: s.Loss.Threshold}) >= t.Percent {
				errs = append(errs, fmt.Errorf("loss_streak must reduce the %.2f%% tier", t.Percent))
			}
		}
	}
	if s.Win.Threshold > 0 {
		if s.Win.Step <= 0 {
			errs = append(errs, errors.New("win_streak.step must be > 0"))
		}
		if s.Win.Max <= 0 || s.Win.Max > 100 {
			errs = append(errs, errors.New("win_streak.max must be in (0,100]"))
		}
	}
	return errors.Join(errs...)
}
