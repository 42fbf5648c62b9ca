package trade

import (
	"math"
	"time"

	"github.com/rustyeddy/confluence/market"
	"github.com/rustyeddy/confluence/strategy"
)

// Reason explains why quantity left the position.
type Reason string

const (
	ReasonPartial   Reason = "target-partial"
	ReasonStop      Reason = "stop"
	ReasonTarget    Reason = "target"
	ReasonEndOfData Reason = "end-of-data"
)

// Final reports whether the fill closed the position.
func (r Reason) Final() bool {
	return r != ReasonPartial
}

// Fill is one exit leg.
type Fill struct {
	Reason Reason    `json:"reason"`
	Time   time.Time `json:"time"`
	Qty    int       `json:"qty"`
	Price  float64   `json:"price"`
	PnL    float64   `json:"pnl"`

	// TradePnL is the whole trade's result on the final leg.
	TradePnL float64 `json:"trade_pnl"`
}

// Outcome is the position after a bar and the fills that bar produced.
// A nil Position means the trade is flat.
type Outcome struct {
	Position *Position
	Fills    []Fill
}

// Advance moves pos through one bar. pos is not modified.
//
// Levels are checked in a fixed order: target 1 (partial exit of
// floor(original*partialFraction) units, stop to breakeven), then the
// current stop, then target 2. The partial and a final exit can both
// happen on the same bar.
func Advance(pos *Position, bar market.Bar, partialFraction float64) Outcome {
	if pos == nil {
		return Outcome{}
	}
	p := pos.Clone()
	var fills []Fill

	if !p.PartialTaken && reaches(p.Direction, bar, p.Target1) {
		qty := int(math.Floor(float64(p.OriginalQty) * partialFraction))
		if qty >= p.RemainingQty {
			qty = p.RemainingQty - 1
		}
		if qty > 0 {
			pnl := p.PnL(p.Target1, qty)
			p.RemainingQty -= qty
			p.RealizedPL += pnl
			fills = append(fills, Fill{
				Reason: ReasonPartial,
				Time:   bar.Time,
				Qty:    qty,
				Price:  p.Target1,
				PnL:    pnl,
			})
		}
		p.PartialTaken = true
		p.Stop = p.Entry
	}

	switch {
	case stopped(p.Direction, bar, p.Stop):
		return Outcome{Fills: append(fills, closeAt(p, p.Stop, bar.Time, ReasonStop))}
	case reaches(p.Direction, bar, p.Target2):
		return Outcome{Fills: append(fills, closeAt(p, p.Target2, bar.Time, ReasonTarget))}
	}
	return Outcome{Position: p, Fills: fills}
}

// Close exits the remaining quantity at price.
func Close(pos *Position, price float64, t time.Time, reason Reason) Outcome {
	if pos == nil {
		return Outcome{}
	}
	return Outcome{Fills: []Fill{closeAt(pos.Clone(), price, t, reason)}}
}

func closeAt(p *Position, price float64, t time.Time, reason Reason) Fill {
	pnl := p.PnL(price, p.RemainingQty)
	return Fill{
		Reason:   reason,
		Time:     t,
		Qty:      p.RemainingQty,
		Price:    price,
		PnL:      pnl,
		TradePnL: p.RealizedPL + pnl,
	}
}

// reaches reports whether the bar trades through a profit level.
func reaches(d strategy.Direction, bar market.Bar, level float64) bool {
	if d == strategy.Short {
		return bar.Low <= level
	}
	return bar.High >= level
}

// stopped reports whether the bar trades through the stop.
func stopped(d strategy.Direction, bar market.Bar, stop float64) bool {
	if d == strategy.Short {
		return bar.High >= stop
	}
	return bar.Low <= stop
}
