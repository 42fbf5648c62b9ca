package indicators

import "github.com/rustyeddy/confluence/market"

// Trend is a binary trend direction. TrendNone means not yet available.
type Trend int8

const (
	TrendNone Trend = 0
	TrendUp   Trend = 1
	TrendDown Trend = -1
)

func (t Trend) String() string {
	switch t {
	case TrendUp:
		return "up"
	case TrendDown:
		return "down"
	default:
		return "none"
	}
}

// Supertrend computes the trend line and direction from the bar midpoint
// and a volatility series (normally ATR):
//
//	upper = mid + multiplier*atr
//	lower = mid - multiplier*atr
//
// The first bar with a defined atr seeds the line from the lower band with
// direction up. After that the line is the lower band (up) while the close
// is above the previous line, otherwise the upper band (down).
func Supertrend(bars []market.Bar, atr []float64, multiplier float64) ([]float64, []Trend) {
	line := nanSeries(len(bars))
	dir := make([]Trend, len(bars))

	for i, b := range bars {
		if i >= len(atr) || !Defined(atr[i]) {
			continue
		}
		mid := b.Mid()
		upper := mid + multiplier*atr[i]
		lower := mid - multiplier*atr[i]

		if i == 0 || !Defined(line[i-1]) {
			line[i] = lower
			dir[i] = TrendUp
			continue
		}
		if b.Close > line[i-1] {
			line[i] = lower
			dir[i] = TrendUp
		} else {
			line[i] = upper
			dir[i] = TrendDown
		}
	}
	return line, dir
}
