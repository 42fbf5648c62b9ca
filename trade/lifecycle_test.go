package trade

import (
	"testing"
	"time"

	"github.com/rustyeddy/confluence/market"
	"github.com/rustyeddy/confluence/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func bar(i int, high, low float64) market.Bar {
	return market.Bar{Time: t0.Add(time.Duration(i) * 5 * time.Minute), Open: (high + low) / 2, High: high, Low: low, Close: (high + low) / 2}
}

func longSignal() strategy.Signal {
	return strategy.Signal{
		Direction:  strategy.Long,
		Time:       t0,
		Entry:      100,
		Stop:       97,
		Target1:    106,
		Target2:    109,
		Confluence: 5,
		Factors:    []strategy.Factor{strategy.FactorEMA, strategy.FactorADX},
	}
}

func shortSignal() strategy.Signal {
	return strategy.Signal{
		Direction: strategy.Short,
		Time:      t0,
		Entry:     100,
		Stop:      103,
		Target1:   94,
		Target2:   91,
	}
}

func TestAdvanceFlatIsNoop(t *testing.T) {
	out := Advance(nil, bar(1, 200, 1), 0.5)
	assert.Nil(t, out.Position)
	assert.Empty(t, out.Fills)
	assert.Equal(t, Flat, PhaseOf(out.Position))
}

func TestAdvanceTargetWithoutPartial(t *testing.T) {
	pos := NewPosition("p1", longSignal(), 40, 10, 9.2, "ok")

	out := Advance(pos, bar(1, 105, 99), 0)
	require.NotNil(t, out.Position)
	assert.Empty(t, out.Fills)
	assert.Equal(t, Open, PhaseOf(out.Position))

	out = Advance(out.Position, bar(2, 109, 101), 0)
	assert.Nil(t, out.Position)
	require.Len(t, out.Fills, 1)
	f := out.Fills[0]
	assert.Equal(t, ReasonTarget, f.Reason)
	assert.Equal(t, 40, f.Qty)
	assert.Equal(t, (109.0-100)*40, f.PnL)
	assert.Equal(t, (109.0-100)*40, f.TradePnL)
}

func TestAdvancePartialThenTarget(t *testing.T) {
	pos := NewPosition("p1", longSignal(), 41, 10, 9.2, "ok")

	out := Advance(pos, bar(1, 106.5, 102), 0.5)
	require.NotNil(t, out.Position)
	require.Len(t, out.Fills, 1)
	partial := out.Fills[0]
	assert.Equal(t, ReasonPartial, partial.Reason)
	assert.False(t, partial.Reason.Final())
	assert.Equal(t, 20, partial.Qty)
	assert.Equal(t, 6.0*20, partial.PnL)

	p := out.Position
	assert.Equal(t, PartialTaken, PhaseOf(p))
	assert.Equal(t, 21, p.RemainingQty)
	assert.Equal(t, 41, p.OriginalQty)
	assert.Equal(t, p.Entry, p.Stop)
	assert.Equal(t, 120.0, p.RealizedPL)

	// target 1 is not taken twice
	out = Advance(p, bar(2, 107, 101), 0.5)
	require.NotNil(t, out.Position)
	assert.Empty(t, out.Fills)

	out = Advance(out.Position, bar(3, 110, 104), 0.5)
	assert.Nil(t, out.Position)
	require.Len(t, out.Fills, 1)
	final := out.Fills[0]
	assert.Equal(t, ReasonTarget, final.Reason)
	assert.Equal(t, 21, final.Qty)
	assert.Equal(t, 9.0*21, final.PnL)
	assert.Equal(t, 120.0+9.0*21, final.TradePnL)
}

func TestAdvancePartialAndBreakevenSameBar(t *testing.T) {
	pos := NewPosition("p1", longSignal(), 10, 10, 9, "")

	out := Advance(pos, bar(1, 107, 99.5), 0.5)
	assert.Nil(t, out.Position)
	require.Len(t, out.Fills, 2)
	assert.Equal(t, ReasonPartial, out.Fills[0].Reason)
	assert.Equal(t, 30.0, out.Fills[0].PnL)

	stop := out.Fills[1]
	assert.Equal(t, ReasonStop, stop.Reason)
	assert.Equal(t, 100.0, stop.Price)
	assert.Equal(t, 5, stop.Qty)
	assert.Zero(t, stop.PnL)
	assert.Equal(t, 30.0, stop.TradePnL)
}

func TestAdvanceStopLoss(t *testing.T) {
	pos := NewPosition("p1", longSignal(), 10, 10, 9, "")

	out := Advance(pos, bar(1, 101, 96), 0.5)
	assert.Nil(t, out.Position)
	require.Len(t, out.Fills, 1)
	assert.Equal(t, ReasonStop, out.Fills[0].Reason)
	assert.Equal(t, -30.0, out.Fills[0].PnL)
	assert.Equal(t, -30.0, out.Fills[0].TradePnL)
}

func TestAdvanceStopBeatsTargetOnWideBar(t *testing.T) {
	pos := NewPosition("p1", longSignal(), 10, 10, 9, "")
	pos.PartialTaken = true
	pos.Stop = pos.Entry

	out := Advance(pos, bar(1, 120, 90), 0.5)
	require.Len(t, out.Fills, 1)
	assert.Equal(t, ReasonStop, out.Fills[0].Reason)
}

func TestAdvanceShort(t *testing.T) {
	pos := NewPosition("s1", shortSignal(), 8, 6, 8.5, "")

	out := Advance(pos, bar(1, 99, 93.5), 0.5)
	require.NotNil(t, out.Position)
	require.Len(t, out.Fills, 1)
	assert.Equal(t, 4, out.Fills[0].Qty)
	assert.Equal(t, 24.0, out.Fills[0].PnL)
	assert.Equal(t, 100.0, out.Position.Stop)

	out = Advance(out.Position, bar(2, 95, 90), 0.5)
	assert.Nil(t, out.Position)
	require.Len(t, out.Fills, 1)
	assert.Equal(t, ReasonTarget, out.Fills[0].Reason)
	assert.Equal(t, 36.0, out.Fills[0].PnL)
	assert.Equal(t, 60.0, out.Fills[0].TradePnL)
}

func TestAdvanceShortStop(t *testing.T) {
	pos := NewPosition("s1", shortSignal(), 8, 6, 8.5, "")
	out := Advance(pos, bar(1, 103.5, 99), 0.5)
	require.Len(t, out.Fills, 1)
	assert.Equal(t, ReasonStop, out.Fills[0].Reason)
	assert.Equal(t, -24.0, out.Fills[0].PnL)
}

func TestAdvanceSingleUnitMovesStopWithoutFill(t *testing.T) {
	pos := NewPosition("p1", longSignal(), 1, 10, 9, "")
	out := Advance(pos, bar(1, 106, 101), 0.5)
	require.NotNil(t, out.Position)
	assert.Empty(t, out.Fills)
	assert.True(t, out.Position.PartialTaken)
	assert.Equal(t, 100.0, out.Position.Stop)
	assert.Equal(t, 1, out.Position.RemainingQty)
}

func TestAdvanceDoesNotMutateInput(t *testing.T) {
	pos := NewPosition("p1", longSignal(), 10, 10, 9, "")
	before := *pos.Clone()

	Advance(pos, bar(1, 107, 102), 0.5)
	assert.Equal(t, before, *pos)
}

func TestClose(t *testing.T) {
	pos := NewPosition("p1", longSignal(), 10, 10, 9, "")
	pos.RealizedPL = 12

	out := Close(pos, 102.5, t0.Add(time.Hour), ReasonEndOfData)
	assert.Nil(t, out.Position)
	require.Len(t, out.Fills, 1)
	assert.Equal(t, 25.0, out.Fills[0].PnL)
	assert.Equal(t, 37.0, out.Fills[0].TradePnL)
	assert.True(t, out.Fills[0].Reason.Final())

	assert.Empty(t, Close(nil, 1, t0, ReasonEndOfData).Fills)
}

func TestNewPosition(t *testing.T) {
	sig := longSignal()
	pos := NewPosition("p1", sig, 600, 10, 9.2, "strong")
	assert.Equal(t, 600, pos.RemainingQty)
	assert.Equal(t, sig.Time, pos.EntryTime)
	assert.Equal(t, sig.Factors, pos.Factors)
	assert.Equal(t, 1500.0, pos.Unrealized(102.5))

	sig.Factors[0] = strategy.FactorVWAP
	assert.Equal(t, strategy.FactorEMA, pos.Factors[0])
	assert.Equal(t, "partial-taken", PartialTaken.String())
}
