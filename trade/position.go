// Package trade holds the single active position and the bar-driven state
// machine that exits it.
package trade

import (
	"time"

	"github.com/rustyeddy/confluence/strategy"
)

// Phase is the lifecycle state of the active position.
type Phase int

const (
	Flat Phase = iota
	Open
	PartialTaken
)

func (p Phase) String() string {
	switch p {
	case Open:
		return "open"
	case PartialTaken:
		return "partial-taken"
	default:
		return "flat"
	}
}

// Position is the active trade. Stop moves to Entry once the partial exit
// at Target1 has been taken.
type Position struct {
	ID        string             `json:"id"`
	Direction strategy.Direction `json:"direction"`
	Entry     float64            `json:"entry"`
	EntryTime time.Time          `json:"entry_time"`

	Stop    float64 `json:"stop"`
	Target1 float64 `json:"target1"`
	Target2 float64 `json:"target2"`

	OriginalQty  int     `json:"original_qty"`
	RemainingQty int     `json:"qty"`
	PartialTaken bool    `json:"partial_taken"`
	RealizedPL   float64 `json:"realized_pnl"`

	Score     float64           `json:"score"`
	Rationale string            `json:"rationale"`
	RiskPct   float64           `json:"risk_pct"`
	Factors   []strategy.Factor `json:"factors,omitempty"`
}

// PhaseOf returns Flat for a nil position.
func PhaseOf(p *Position) Phase {
	switch {
	case p == nil:
		return Flat
	case p.PartialTaken:
		return PartialTaken
	default:
		return Open
	}
}

// NewPosition opens qty units on sig.
func NewPosition(id string, sig strategy.Signal, qty int, riskPct, score float64, rationale string) *Position {
	return &Position{
		ID:           id,
		Direction:    sig.Direction,
		Entry:        sig.Entry,
		EntryTime:    sig.Time,
		Stop:         sig.Stop,
		Target1:      sig.Target1,
		Target2:      sig.Target2,
		OriginalQty:  qty,
		RemainingQty: qty,
		Score:        score,
		Rationale:    rationale,
		RiskPct:      riskPct,
		Factors:      append([]strategy.Factor(nil), sig.Factors...),
	}
}

// Clone returns a deep copy.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	c := *p
	c.Factors = append([]strategy.Factor(nil), p.Factors...)
	return &c
}

// PnL is the result of closing qty units at price.
func (p *Position) PnL(price float64, qty int) float64 {
	return p.Direction.Sign() * (price - p.Entry) * float64(qty)
}

// Unrealized values the remaining quantity at price.
func (p *Position) Unrealized(price float64) float64 {
	return p.PnL(price, p.RemainingQty)
}
