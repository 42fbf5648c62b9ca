package journal

import "math"

// Summary aggregates a set of records by position.
type Summary struct {
	Trades   int
	Wins     int
	Losses   int
	Partials int

	NetPnL       float64
	GrossProfit  float64
	GrossLoss    float64
	ProfitFactor float64
	WinRate      float64
}

// Summarize counts a trade when its final record is present. A trade's
// result is the sum of its legs.
func Summarize(recs []Record) Summary {
	var s Summary
	legs := map[string]float64{}
	for _, r := range recs {
		s.NetPnL += r.PnL
		legs[r.PositionID] += r.PnL
		if !r.Final() {
			s.Partials++
		}
	}
	for _, r := range recs {
		if !r.Final() {
			continue
		}
		s.Trades++
		pnl := legs[r.PositionID]
		if pnl > 0 {
			s.Wins++
			s.GrossProfit += pnl
		} else {
			s.Losses++
			s.GrossLoss += math.Abs(pnl)
		}
	}
	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades)
	}
	if s.GrossLoss > 0 {
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	}
	return s
}
