package indicators

import "github.com/rustyeddy/confluence/market"

// Params holds the lookbacks used by Compute.
type Params struct {
	EMAFast int `json:"ema_fast" yaml:"ema_fast"`
	EMAMid  int `json:"ema_mid" yaml:"ema_mid"`
	EMASlow int `json:"ema_slow" yaml:"ema_slow"`
	// EMAMode applies to the EMAs and MACD.
	EMAMode EMAMode `json:"ema_mode,omitempty" yaml:"ema_mode,omitempty"`

	ATRPeriod            int     `json:"atr_period" yaml:"atr_period"`
	SupertrendMultiplier float64 `json:"supertrend_multiplier" yaml:"supertrend_multiplier"`

	BollingerPeriod int     `json:"bollinger_period" yaml:"bollinger_period"`
	BollingerK      float64 `json:"bollinger_k" yaml:"bollinger_k"`

	ADXPeriod int `json:"adx_period" yaml:"adx_period"`

	RSIPeriod   int `json:"rsi_period" yaml:"rsi_period"`
	StochPeriod int `json:"stoch_period" yaml:"stoch_period"`
	StochSmooth int `json:"stoch_smooth" yaml:"stoch_smooth"`

	MACDFast   int `json:"macd_fast" yaml:"macd_fast"`
	MACDSlow   int `json:"macd_slow" yaml:"macd_slow"`
	MACDSignal int `json:"macd_signal" yaml:"macd_signal"`

	VolumePeriod  int     `json:"volume_period" yaml:"volume_period"`
	VolumeEpsilon float64 `json:"volume_epsilon" yaml:"volume_epsilon"`
}

// DefaultParams returns the standard lookbacks: EMA 20/50/200, ATR 14,
// Supertrend x3, Bollinger 20/2, ADX 14, RSI 14 / Stoch 14 / smooth 3,
// MACD 12/26/9 and a 20-bar volume mean.
func DefaultParams() Params {
	return Params{
		EMAFast:              20,
		EMAMid:               50,
		EMASlow:              200,
		EMAMode:              EMARecursive,
		ATRPeriod:            14,
		SupertrendMultiplier: 3,
		BollingerPeriod:      20,
		BollingerK:           2,
		ADXPeriod:            14,
		RSIPeriod:            14,
		StochPeriod:          14,
		StochSmooth:          3,
		MACDFast:             12,
		MACDSlow:             26,
		MACDSignal:           9,
		VolumePeriod:         20,
		VolumeEpsilon:        1,
	}
}

// Warmup returns the number of bars needed before every Frame field is
// defined. The frame at index Warmup()-1 is the first complete one.
func (p Params) Warmup() int {
	w := 0
	for _, v := range []int{
		p.EMAFast,
		p.EMAMid,
		p.EMASlow,
		p.ATRPeriod,
		p.BollingerPeriod,
		2 * p.ADXPeriod,
		p.RSIPeriod + p.StochPeriod + p.StochSmooth - 1,
		p.MACDSlow + p.MACDSignal - 1,
		p.VolumePeriod,
	} {
		if v > w {
			w = v
		}
	}
	return w
}

// Frame is a bar plus every derived indicator value for that bar.
// Undefined values are NaN (see Defined).
type Frame struct {
	market.Bar

	EMAFast float64
	EMAMid  float64
	EMASlow float64

	ATR        float64
	Supertrend float64
	Trend      Trend

	VWAP float64

	BBUpper float64
	BBMid   float64
	BBLower float64

	ADX      float64
	RSI      float64
	StochRSI float64

	MACD       float64
	MACDSignal float64

	VolumeRatio float64
}

// Compute derives a Frame for every bar. It is a pure function of its
// input: the same bars always produce the same frames.
func Compute(bars []market.Bar, p Params) []Frame {
	c := closes(bars)

	emaFast := EMA(c, p.EMAFast, p.EMAMode)
	emaMid := EMA(c, p.EMAMid, p.EMAMode)
	emaSlow := EMA(c, p.EMASlow, p.EMAMode)
	atr := ATR(bars, p.ATRPeriod)
	st, dir := Supertrend(bars, atr, p.SupertrendMultiplier)
	vwap := VWAP(bars)
	bbU, bbM, bbL := Bollinger(c, p.BollingerPeriod, p.BollingerK)
	adx := ADX(bars, p.ADXPeriod)
	rsi := RSI(c, p.RSIPeriod)
	stoch := StochRSI(rsi, p.StochPeriod, p.StochSmooth)
	macd, macdSig := MACD(c, p.MACDFast, p.MACDSlow, p.MACDSignal, p.EMAMode)
	vr := VolumeRatio(bars, p.VolumePeriod, p.VolumeEpsilon)

	frames := make([]Frame, len(bars))
	for i, b := range bars {
		frames[i] = Frame{
			Bar:         b,
			EMAFast:     emaFast[i],
			EMAMid:      emaMid[i],
			EMASlow:     emaSlow[i],
			ATR:         atr[i],
			Supertrend:  st[i],
			Trend:       dir[i],
			VWAP:        vwap[i],
			BBUpper:     bbU[i],
			BBMid:       bbM[i],
			BBLower:     bbL[i],
			ADX:         adx[i],
			RSI:         rsi[i],
			StochRSI:    stoch[i],
			MACD:        macd[i],
			MACDSignal:  macdSig[i],
			VolumeRatio: vr[i],
		}
	}
	return frames
}
