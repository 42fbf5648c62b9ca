package risk

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// PlannedRisk is the loss on qty units if the stop is hit.
func PlannedRisk(qty int, entry, stop float64) float64 {
	return float64(qty) * abs(entry-stop)
}

// RR is the reward to risk ratio of a target.
func RR(entry, stop, target float64) float64 {
	risk := abs(entry - stop)
	reward := abs(target - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}
