package indicators

import (
	"math"

	"github.com/rustyeddy/confluence/market"
)

// ADX implements Wilder's Average Directional Index (trend strength).
//
// Directional movement uses the textbook rule: +DM counts only when the
// up-move exceeds the down-move and is positive, and vice versa for -DM.
// TR, +DM and -DM are Wilder-smoothed over period, DX is computed from the
// resulting DI pair, and ADX is seeded with the mean of the first period DX
// values before being Wilder-smoothed as well.
//
// Warmup: the first smoothed values land on bar period, the first ADX on
// bar 2*period-1.
func ADX(bars []market.Bar, period int) []float64 {
	n := len(bars)
	out := nanSeries(n)
	if period <= 0 || n <= period {
		return out
	}

	var str, spdm, smdm float64
	var dxSum float64
	var adx float64
	p := float64(period)

	for i := 1; i < n; i++ {
		cur, prev := bars[i], bars[i-1]
		upMove := cur.High - prev.High
		downMove := prev.Low - cur.Low

		var pdm, mdm float64
		if upMove > downMove && upMove > 0 {
			pdm = upMove
		}
		if downMove > upMove && downMove > 0 {
			mdm = downMove
		}
		tr := trueRange(cur, prev)

		// Phase A: accumulate the first period samples.
		if i <= period {
			str += tr
			spdm += pdm
			smdm += mdm
			if i < period {
				continue
			}
		} else {
			str = str - str/p + tr
			spdm = spdm - spdm/p + pdm
			smdm = smdm - smdm/p + mdm
		}

		pdi := 100.0 * spdm / (str + Epsilon)
		mdi := 100.0 * smdm / (str + Epsilon)
		dx := 100.0 * math.Abs(pdi-mdi) / (pdi + mdi + Epsilon)

		// Phase B: seed ADX from the first period DX values.
		seedEnd := 2*period - 1
		switch {
		case i < seedEnd:
			dxSum += dx
		case i == seedEnd:
			dxSum += dx
			adx = dxSum / p
			out[i] = adx
		default:
			adx = (adx*(p-1) + dx) / p
			out[i] = adx
		}
	}
	return out
}
