// Package indicators derives technical indicator series from bars.
//
// Every function is a pure transform over a whole series and returns a
// slice of the same length as its input. Entries that do not have enough
// history yet are NaN; callers must check Defined before using a value.
package indicators

import "math"

// Epsilon is added to denominators that can legitimately be zero.
const Epsilon = 1e-4

// Defined reports whether v holds a computed value.
func Defined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AllDefined reports whether every value is defined.
func AllDefined(vs ...float64) bool {
	for _, v := range vs {
		if !Defined(v) {
			return false
		}
	}
	return true
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
