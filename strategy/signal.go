// Package strategy detects confluence trade setups on indicator frames.
package strategy

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Direction is the side of a trade.
type Direction int8

const (
	Long  Direction = 1
	Short Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "none"
	}
}

// Sign returns +1 for long and -1 for short.
func (d Direction) Sign() float64 {
	return float64(d)
}

func (d Direction) MarshalText() ([]byte, error) {
	if d != Long && d != Short {
		return nil, fmt.Errorf("invalid direction %d", d)
	}
	return []byte(d.String()), nil
}

// UnmarshalText accepts long/short as well as BUY/SELL.
func (d *Direction) UnmarshalText(b []byte) error {
	dir, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = dir
	return nil
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy":
		return Long, nil
	case "short", "sell":
		return Short, nil
	}
	return 0, fmt.Errorf("invalid direction %q", s)
}

// Signal is a detected setup. It is produced fresh for one bar and never
// mutated afterwards.
type Signal struct {
	Direction Direction `json:"direction"`
	Time      time.Time `json:"time"`

	Entry   float64 `json:"entry"`
	Stop    float64 `json:"stop"`
	Target1 float64 `json:"target1"`
	Target2 float64 `json:"target2"`

	Confluence int      `json:"confluence"`
	Factors    []Factor `json:"factors"`

	ATR         float64 `json:"atr"`
	ADX         float64 `json:"adx"`
	VolumeRatio float64 `json:"volume_ratio"`
}

// Risk is the per-unit distance between entry and stop.
func (s Signal) Risk() float64 {
	return math.Abs(s.Entry - s.Stop)
}

// Has reports whether f contributed to the signal.
func (s Signal) Has(f Factor) bool {
	for _, sf := range s.Factors {
		if sf == f {
			return true
		}
	}
	return false
}

func (s Signal) String() string {
	names := make([]string, len(s.Factors))
	for i, f := range s.Factors {
		names[i] = string(f)
	}
	return fmt.Sprintf("%s @ %.2f stop %.2f t1 %.2f t2 %.2f confluence %d [%s]",
		s.Direction, s.Entry, s.Stop, s.Target1, s.Target2, s.Confluence, strings.Join(names, ","))
}
