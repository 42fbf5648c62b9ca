package indicators

import "math"

// RSI returns the relative strength index over period using rolling means
// of gains and losses.
func RSI(closes []float64, period int) []float64 {
	n := len(closes)
	gains := nanSeries(n)
	losses := nanSeries(n)
	for i := 1; i < n; i++ {
		d := closes[i] - closes[i-1]
		gains[i] = math.Max(d, 0)
		losses[i] = math.Max(-d, 0)
	}

	avgGain := SMA(gains, period)
	avgLoss := SMA(losses, period)

	out := nanSeries(n)
	for i := range out {
		if !Defined(avgGain[i]) || !Defined(avgLoss[i]) {
			continue
		}
		rs := avgGain[i] / (avgLoss[i] + Epsilon)
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// StochRSI normalises rsi into its rolling [min, max] range over period,
// smooths the result with a smooth-bar mean and scales it to 0..100.
func StochRSI(rsi []float64, period, smooth int) []float64 {
	lo := RollingMin(rsi, period)
	hi := RollingMax(rsi, period)

	raw := nanSeries(len(rsi))
	for i := range rsi {
		if !AllDefined(rsi[i], lo[i], hi[i]) {
			continue
		}
		raw[i] = (rsi[i] - lo[i]) / (hi[i] - lo[i] + Epsilon)
	}

	out := SMA(raw, smooth)
	for i, v := range out {
		if Defined(v) {
			out[i] = v * 100
		}
	}
	return out
}
