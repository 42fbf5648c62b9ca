package indicators

// Bollinger returns upper, middle and lower bands: middle is the rolling
// mean over period and the bands sit k sample standard deviations away.
func Bollinger(values []float64, period int, k float64) (upper, middle, lower []float64) {
	middle = SMA(values, period)
	sd := StdDev(values, period)

	upper = nanSeries(len(values))
	lower = nanSeries(len(values))
	for i := range values {
		if !Defined(middle[i]) || !Defined(sd[i]) {
			continue
		}
		upper[i] = middle[i] + k*sd[i]
		lower[i] = middle[i] - k*sd[i]
	}
	return upper, middle, lower
}
