package indicators

import "math"

// SMA returns the rolling mean of values over period. A window that
// contains an undefined value yields NaN.
func SMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		sum := 0.0
		ok := true
		for _, v := range values[i-period+1 : i+1] {
			if !Defined(v) {
				ok = false
				break
			}
			sum += v
		}
		if ok {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// StdDev returns the rolling sample standard deviation (n-1 denominator).
func StdDev(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 1 {
		return out
	}
	mean := SMA(values, period)
	for i := period - 1; i < len(values); i++ {
		if !Defined(mean[i]) {
			continue
		}
		ss := 0.0
		for _, v := range values[i-period+1 : i+1] {
			d := v - mean[i]
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(period-1))
	}
	return out
}

// EMAMode selects how an EMA is seeded.
type EMAMode string

const (
	// EMAAdjusted divides the decayed weighted sum by the sum of the
	// weights, like pandas ewm(span).mean() with adjust=True.
	EMAAdjusted EMAMode = "adjusted"
	// EMARecursive seeds with the first value and recurses
	// (pandas adjust=False).
	EMARecursive EMAMode = "recursive"
	// EMASMASeed seeds with the SMA of the first span values, then
	// recurses (pandas_ta ema).
	EMASMASeed EMAMode = "sma"
)

// Valid reports whether m is a known mode. The empty mode means
// EMARecursive.
func (m EMAMode) Valid() bool {
	switch m {
	case "", EMAAdjusted, EMARecursive, EMASMASeed:
		return true
	}
	return false
}

// EMA returns the exponential moving average with the given span
// (alpha = 2/(span+1)), starting at the first defined value. The first
// span-1 outputs from that point are left undefined in every mode.
func EMA(values []float64, span int, mode EMAMode) []float64 {
	out := nanSeries(len(values))
	if span <= 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)

	start := -1
	for i, v := range values {
		if Defined(v) {
			start = i
			break
		}
	}
	if start < 0 || len(values)-start < span {
		return out
	}

	switch mode {
	case EMAAdjusted:
		num, den := 0.0, 0.0
		for i := start; i < len(values); i++ {
			num = values[i] + (1-alpha)*num
			den = 1 + (1-alpha)*den
			if i-start >= span-1 {
				out[i] = num / den
			}
		}
	case EMASMASeed:
		first := start + span - 1
		sum := 0.0
		for _, v := range values[start : first+1] {
			sum += v
		}
		ema := sum / float64(span)
		out[first] = ema
		for i := first + 1; i < len(values); i++ {
			ema = alpha*values[i] + (1-alpha)*ema
			out[i] = ema
		}
	default:
		ema := values[start]
		for i := start; i < len(values); i++ {
			if i > start {
				ema = alpha*values[i] + (1-alpha)*ema
			}
			if i-start >= span-1 {
				out[i] = ema
			}
		}
	}
	return out
}

// RollingMin returns the minimum over each window of period values.
func RollingMin(values []float64, period int) []float64 {
	return rolling(values, period, math.Min)
}

// RollingMax returns the maximum over each window of period values.
func RollingMax(values []float64, period int) []float64 {
	return rolling(values, period, math.Max)
}

func rolling(values []float64, period int, pick func(a, b float64) float64) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		acc := values[i-period+1]
		ok := Defined(acc)
		for _, v := range values[i-period+2 : i+1] {
			if !Defined(v) {
				ok = false
				break
			}
			acc = pick(acc, v)
		}
		if ok {
			out[i] = acc
		}
	}
	return out
}
