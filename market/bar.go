package market

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrNoData is returned by a Source that has nothing to offer this cycle.
var ErrNoData = errors.New("market: no data")

// Bar is one OHLCV sample for a fixed interval. Bars are immutable once a
// Source has produced them.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Typical returns (high + low + close) / 3.
func (b Bar) Typical() float64 {
	return (b.High + b.Low + b.Close) / 3.0
}

// Mid returns (high + low) / 2.
func (b Bar) Mid() float64 {
	return (b.High + b.Low) / 2.0
}

// Validate checks that bars are ordered by strictly increasing time and
// that each bar is internally consistent.
func Validate(bars []Bar) error {
	for i, b := range bars {
		for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("bar %d (%s): non-finite value %v", i, b.Time.Format(time.RFC3339), v)
			}
		}
		if b.High < b.Low {
			return fmt.Errorf("bar %d (%s): high %.4f below low %.4f", i, b.Time.Format(time.RFC3339), b.High, b.Low)
		}
		if b.Volume < 0 {
			return fmt.Errorf("bar %d (%s): negative volume", i, b.Time.Format(time.RFC3339))
		}
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			return fmt.Errorf("bar %d (%s): time not after previous bar %s",
				i, b.Time.Format(time.RFC3339), bars[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}

// Tail returns at most the last n bars. n <= 0 returns bars unchanged.
func Tail(bars []Bar, n int) []Bar {
	if n <= 0 || len(bars) <= n {
		return bars
	}
	return bars[len(bars)-n:]
}
