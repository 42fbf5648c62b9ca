package indicators

import "github.com/rustyeddy/confluence/market"

// MACD returns the MACD line (fast EMA - slow EMA) and its signal line
// (EMA of the MACD line over signal bars). Every EMA uses mode.
func MACD(closes []float64, fast, slow, signal int, mode EMAMode) (line, sig []float64) {
	f := EMA(closes, fast, mode)
	s := EMA(closes, slow, mode)

	line = nanSeries(len(closes))
	for i := range closes {
		if Defined(f[i]) && Defined(s[i]) {
			line[i] = f[i] - s[i]
		}
	}
	return line, EMA(line, signal, mode)
}

// VolumeRatio divides each bar's volume by the rolling mean volume over
// period. eps keeps the ratio finite for zero-volume windows.
func VolumeRatio(bars []market.Bar, period int, eps float64) []float64 {
	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = b.Volume
	}
	mean := SMA(vols, period)

	out := nanSeries(len(bars))
	for i := range bars {
		if Defined(mean[i]) {
			out[i] = vols[i] / (mean[i] + eps)
		}
	}
	return out
}

func closes(bars []market.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
