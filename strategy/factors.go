package strategy

import (
	"fmt"

	"github.com/rustyeddy/confluence/indicators"
)

// Factor names one condition on the confluence checklist.
type Factor string

const (
	FactorEMA        Factor = "EMA"       // ema fast vs ema mid
	FactorEMA200     Factor = "EMA200"    // ema mid vs ema slow
	FactorEMAStack   Factor = "EMA_STACK" // fast > mid > slow, or mirrored
	FactorSupertrend Factor = "SUPERTREND"
	FactorADX        Factor = "ADX"
	FactorMACD       Factor = "MACD"
	FactorVolume     Factor = "VOLUME"
	FactorVWAP       Factor = "VWAP"
	FactorBB         Factor = "BB"     // close between lower and mid (long) or mid and upper (short)
	FactorBBMid      Factor = "BB_MID" // close vs mid band
	FactorStochRSI   Factor = "STOCH_RSI"
)

// Checklist is the fixed evaluation order. Signal.Factors follows it.
var Checklist = []Factor{
	FactorEMA,
	FactorEMA200,
	FactorEMAStack,
	FactorSupertrend,
	FactorADX,
	FactorMACD,
	FactorVolume,
	FactorVWAP,
	FactorBB,
	FactorBBMid,
	FactorStochRSI,
}

func (f Factor) valid() bool {
	for _, c := range Checklist {
		if c == f {
			return true
		}
	}
	return false
}

// Mode controls how a factor takes part in detection.
type Mode string

const (
	ModeOff      Mode = "off"
	ModeRequired Mode = "required" // disqualifies when false, counts when true
	ModeBonus    Mode = "bonus"    // counts when true
)

func (m Mode) valid() bool {
	return m == ModeOff || m == ModeRequired || m == ModeBonus
}

// check evaluates f for dir on frame. ok is false when a field the factor
// consults is undefined; the frame must then be ignored.
func (r Rules) check(f Factor, dir Direction, fr indicators.Frame) (pass, ok bool) {
	d := dir.Sign()
	switch f {
	case FactorEMA:
		if !indicators.AllDefined(fr.EMAFast, fr.EMAMid) {
			return false, false
		}
		return d*(fr.EMAFast-fr.EMAMid) > 0, true

	case FactorEMA200:
		if !indicators.AllDefined(fr.EMAMid, fr.EMASlow) {
			return false, false
		}
		return d*(fr.EMAMid-fr.EMASlow) > 0, true

	case FactorEMAStack:
		if !indicators.AllDefined(fr.EMAFast, fr.EMAMid, fr.EMASlow) {
			return false, false
		}
		return d*(fr.EMAFast-fr.EMAMid) > 0 && d*(fr.EMAMid-fr.EMASlow) > 0, true

	case FactorSupertrend:
		if fr.Trend == indicators.TrendNone {
			return false, false
		}
		return int8(fr.Trend) == int8(dir), true

	case FactorADX:
		if !indicators.Defined(fr.ADX) {
			return false, false
		}
		if r.StrictADX {
			return fr.ADX > r.MinADX, true
		}
		return fr.ADX >= r.MinADX, true

	case FactorMACD:
		if !indicators.AllDefined(fr.MACD, fr.MACDSignal) {
			return false, false
		}
		return d*(fr.MACD-fr.MACDSignal) > 0, true

	case FactorVolume:
		if !indicators.Defined(fr.VolumeRatio) {
			return false, false
		}
		return fr.VolumeRatio > r.MinVolumeRatio, true

	case FactorVWAP:
		if !indicators.Defined(fr.VWAP) {
			return false, false
		}
		return d*(fr.Close-fr.VWAP) > 0, true

	case FactorBB:
		if !indicators.AllDefined(fr.BBLower, fr.BBMid, fr.BBUpper) {
			return false, false
		}
		if dir == Long {
			return fr.BBLower < fr.Close && fr.Close < fr.BBMid, true
		}
		return fr.BBMid < fr.Close && fr.Close < fr.BBUpper, true

	case FactorBBMid:
		if !indicators.Defined(fr.BBMid) {
			return false, false
		}
		return d*(fr.Close-fr.BBMid) > 0, true

	case FactorStochRSI:
		if !indicators.Defined(fr.StochRSI) {
			return false, false
		}
		return r.StochLow < fr.StochRSI && fr.StochRSI < r.StochHigh, true
	}
	panic(fmt.Sprintf("strategy: unknown factor %q", f))
}
