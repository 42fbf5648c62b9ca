package indicators

import "github.com/rustyeddy/confluence/market"

// VWAP returns the cumulative volume-weighted typical price from the first
// bar of the input. It never resets, so over a multi-session input it
// drifts toward the long-run average; signal rules depend on that.
func VWAP(bars []market.Bar) []float64 {
	out := make([]float64, len(bars))
	var pv, vol float64
	for i, b := range bars {
		pv += b.Typical() * b.Volume
		vol += b.Volume
		den := vol
		if den == 0 {
			den = 1
		}
		out[i] = pv / den
	}
	return out
}
