package strategy

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/confluence/indicators"
)

// Rules parameterise the detector. The three strategy variants differ only
// in these values.
type Rules struct {
	Factors map[Factor]Mode `json:"factors" yaml:"factors"`

	MinConfluence  int     `json:"min_confluence" yaml:"min_confluence"`
	MinADX         float64 `json:"min_adx" yaml:"min_adx"`
	MinVolumeRatio float64 `json:"min_volume_ratio" yaml:"min_volume_ratio"`
	StochLow       float64 `json:"stoch_low" yaml:"stoch_low"`
	StochHigh      float64 `json:"stoch_high" yaml:"stoch_high"`

	// StrictADX makes the ADX factor require ADX > MinADX instead of >=.
	StrictADX bool `json:"strict_adx,omitempty" yaml:"strict_adx,omitempty"`

	StopATR  float64 `json:"stop_atr" yaml:"stop_atr"`
	Target1R float64 `json:"target1_r" yaml:"target1_r"`
	Target2R float64 `json:"target2_r" yaml:"target2_r"`

	// MinBars is the first frame index the detector will act on.
	MinBars int `json:"min_bars" yaml:"min_bars"`
}

// Mode returns the configured mode for f; unlisted factors are off.
func (r Rules) Mode(f Factor) Mode {
	if m, ok := r.Factors[f]; ok {
		return m
	}
	return ModeOff
}

// Active returns the factors that are not off, in checklist order.
func (r Rules) Active() []Factor {
	var out []Factor
	for _, f := range Checklist {
		if r.Mode(f) != ModeOff {
			out = append(out, f)
		}
	}
	return out
}

func (r Rules) Validate() error {
	var errs []error
	for f, m := range r.Factors {
		if !f.valid() {
			errs = append(errs, fmt.Errorf("factors: unknown factor %q", f))
		}
		if !m.valid() {
			errs = append(errs, fmt.Errorf("factors.%s: invalid mode %q", f, m))
		}
	}
	active := len(r.Active())
	if active == 0 {
		errs = append(errs, errors.New("factors: at least one factor must be enabled"))
	}
	if r.MinConfluence < 1 {
		errs = append(errs, errors.New("min_confluence must be >= 1"))
	} else if r.MinConfluence > active {
		errs = append(errs, fmt.Errorf("min_confluence %d exceeds %d enabled factors", r.MinConfluence, active))
	}
	if r.StochLow >= r.StochHigh {
		errs = append(errs, errors.New("stoch_low must be below stoch_high"))
	}
	if r.StopATR <= 0 {
		errs = append(errs, errors.New("stop_atr must be > 0"))
	}
	if r.Target1R <= 0 || r.Target2R <= r.Target1R {
		errs = append(errs, errors.New("targets must satisfy 0 < target1_r < target2_r"))
	}
	if r.MinBars < 0 {
		errs = append(errs, errors.New("min_bars must be >= 0"))
	}
	return errors.Join(errs...)
}

// Detector evaluates the confluence checklist on a single frame.
type Detector struct {
	Rules Rules
}

func NewDetector(r Rules) *Detector {
	return &Detector{Rules: r}
}

// Detect returns the signal for frames[i] or nil when there is none.
//
// The branch is chosen by close vs the fast EMA. Any undefined value that
// an enabled factor consults rejects the frame, as does a failed required
// factor, too little confluence, or a non-positive ATR or risk.
func (d *Detector) Detect(frames []indicators.Frame, i int) *Signal {
	if i < 0 || i >= len(frames) || i < d.Rules.MinBars {
		return nil
	}
	fr := frames[i]
	if !indicators.Defined(fr.ATR) || fr.ATR <= 0 || !indicators.Defined(fr.EMAFast) {
		return nil
	}

	var dir Direction
	switch {
	case fr.Close > fr.EMAFast:
		dir = Long
	case fr.Close < fr.EMAFast:
		dir = Short
	default:
		return nil
	}

	var factors []Factor
	for _, f := range Checklist {
		mode := d.Rules.Mode(f)
		if mode == ModeOff {
			continue
		}
		pass, ok := d.Rules.check(f, dir, fr)
		if !ok {
			return nil
		}
		if !pass {
			if mode == ModeRequired {
				return nil
			}
			continue
		}
		factors = append(factors, f)
	}
	if len(factors) < d.Rules.MinConfluence {
		return nil
	}

	entry := fr.Close
	stop := entry - dir.Sign()*fr.ATR*d.Rules.StopATR
	risk := dir.Sign() * (entry - stop)
	if risk <= 0 {
		return nil
	}

	return &Signal{
		Direction:   dir,
		Time:        fr.Time,
		Entry:       entry,
		Stop:        stop,
		Target1:     entry + dir.Sign()*risk*d.Rules.Target1R,
		Target2:     entry + dir.Sign()*risk*d.Rules.Target2R,
		Confluence:  len(factors),
		Factors:     factors,
		ATR:         fr.ATR,
		ADX:         fr.ADX,
		VolumeRatio: fr.VolumeRatio,
	}
}
