package indicators

import (
	"math"

	"github.com/rustyeddy/confluence/market"
)

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|) for
// each bar. The first bar has no previous close and uses high-low.
func TrueRange(bars []market.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		if i == 0 {
			out[i] = b.High - b.Low
			continue
		}
		out[i] = trueRange(b, bars[i-1])
	}
	return out
}

// ATR is the rolling mean of the true range over period bars.
func ATR(bars []market.Bar, period int) []float64 {
	return SMA(TrueRange(bars), period)
}

func trueRange(current, previous market.Bar) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)

	return math.Max(highLow, math.Max(highClose, lowClose))
}
