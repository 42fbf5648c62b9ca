package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/confluence/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestBars() []market.Bar {
	t0 := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	raw := []struct{ o, h, l, c, v float64 }{
		{100, 105, 99, 102, 1000},
		{102, 107, 101, 105, 1100},
		{105, 108, 104, 106, 1200},
		{106, 110, 105, 108, 1300},
		{108, 112, 107, 110, 1400},
		{110, 113, 109, 111, 1500},
		{111, 115, 110, 113, 1600},
		{113, 116, 112, 114, 1700},
		{114, 118, 113, 116, 1800},
		{116, 120, 115, 118, 1900},
	}
	bars := make([]market.Bar, len(raw))
	for i, r := range raw {
		bars[i] = market.Bar{
			Time: t0.Add(time.Duration(i) * 5 * time.Minute),
			Open: r.o, High: r.h, Low: r.l, Close: r.c, Volume: r.v,
		}
	}
	return bars
}

// trendBars builds n bars drifting by step per bar with a fixed range.
func trendBars(n int, start, step, halfRange float64) []market.Bar {
	t0 := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	bars := make([]market.Bar, n)
	p := start
	for i := range bars {
		o := p
		c := p + step
		bars[i] = market.Bar{
			Time:   t0.Add(time.Duration(i) * 5 * time.Minute),
			Open:   o,
			High:   math.Max(o, c) + halfRange,
			Low:    math.Min(o, c) - halfRange,
			Close:  c,
			Volume: 1000 + float64(i%7)*50,
		}
		p = c
	}
	return bars
}

func TestSMA(t *testing.T) {
	out := SMA([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, out, 5)
	assert.False(t, Defined(out[0]))
	assert.False(t, Defined(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-12)
	assert.InDelta(t, 4.0, out[4], 1e-12)

	withGap := SMA([]float64{1, math.NaN(), 3, 4, 5}, 2)
	assert.False(t, Defined(withGap[1]))
	assert.False(t, Defined(withGap[2]))
	assert.InDelta(t, 3.5, withGap[3], 1e-12)
}

func TestStdDev(t *testing.T) {
	out := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8)
	// sample std of the classic example: sqrt(32/7)
	assert.InDelta(t, math.Sqrt(32.0/7.0), out[7], 1e-12)
	assert.False(t, Defined(out[6]))
}

func TestEMA(t *testing.T) {
	out := EMA([]float64{102, 105, 106, 108}, 3, EMARecursive)
	assert.False(t, Defined(out[0]))
	assert.False(t, Defined(out[1]))

	// alpha = 0.5, seeded from the first value
	e1 := 0.5*105 + 0.5*102.0
	e2 := 0.5*106 + 0.5*e1
	e3 := 0.5*108 + 0.5*e2
	assert.InDelta(t, e2, out[2], 1e-12)
	assert.InDelta(t, e3, out[3], 1e-12)

	shifted := EMA([]float64{math.NaN(), math.NaN(), 1, 1, 1}, 2, EMARecursive)
	assert.False(t, Defined(shifted[2]))
	assert.InDelta(t, 1.0, shifted[3], 1e-12)

	dflt := EMA([]float64{102, 105, 106, 108}, 3, "")
	assert.False(t, Defined(dflt[1]))
	assert.Equal(t, out[2:], dflt[2:])
}

func TestEMAModes(t *testing.T) {
	ramp := make([]float64, 260)
	for i := range ramp {
		ramp[i] = 100 + float64(i)
	}

	tests := []struct {
		name   string
		values []float64
		span   int
		mode   EMAMode
		want   map[int]float64
	}{
		{
			// pandas: Series([1,2,3,4]).ewm(span=3).mean()
			name:   "adjusted short",
			values: []float64{1, 2, 3, 4},
			span:   3,
			mode:   EMAAdjusted,
			want:   map[int]float64{2: 2.428571428571, 3: 3.266666666667},
		},
		{
			name:   "adjusted span 200",
			values: ramp,
			span:   200,
			mode:   EMAAdjusted,
			want:   map[int]float64{209: 238.803772408, 259: 280.360027220},
		},
		{
			// pandas_ta: ta.ema(Series([1,2,3,4,5]), length=3)
			name:   "sma seed short",
			values: []float64{1, 2, 3, 4, 5},
			span:   3,
			mode:   EMASMASeed,
			want:   map[int]float64{2: 2, 3: 3, 4: 4},
		},
		{
			name:   "sma seed span 200",
			values: ramp,
			span:   200,
			mode:   EMASMASeed,
			want:   map[int]float64{199: 199.5, 209: 209.5},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			out := EMA(tt.values, tt.span, tt.mode)
			require.Len(t, out, len(tt.values))
			for i := 0; i < tt.span-1; i++ {
				assert.False(t, Defined(out[i]), "index %d", i)
			}
			for i, v := range tt.want {
				assert.InDelta(t, v, out[i], 1e-6, "index %d", i)
			}
		})
	}
}

func TestEMAModeValid(t *testing.T) {
	for _, m := range []EMAMode{"", EMAAdjusted, EMARecursive, EMASMASeed} {
		assert.True(t, m.Valid(), string(m))
	}
	assert.False(t, EMAMode("wilder").Valid())
}

func TestEMATooShort(t *testing.T) {
	for _, m := range []EMAMode{EMAAdjusted, EMARecursive, EMASMASeed} {
		out := EMA([]float64{1, 2}, 3, m)
		assert.False(t, Defined(out[0]))
		assert.False(t, Defined(out[1]))
	}
}

func TestRollingMinMax(t *testing.T) {
	vals := []float64{3, 1, 4, 1, 5, 9}
	lo := RollingMin(vals, 3)
	hi := RollingMax(vals, 3)
	assert.Equal(t, 1.0, lo[2])
	assert.Equal(t, 4.0, hi[2])
	assert.Equal(t, 9.0, hi[5])
	assert.Equal(t, 1.0, lo[5-1])
}

func TestTrueRange(t *testing.T) {
	current := market.Bar{High: 110, Low: 100, Close: 105}
	previous := market.Bar{Close: 104}
	assert.Equal(t, 10.0, trueRange(current, previous))

	gapUp := market.Bar{High: 120, Low: 115}
	assert.Equal(t, 16.0, trueRange(gapUp, previous))

	tr := TrueRange([]market.Bar{{High: 10, Low: 8, Close: 9}, {High: 11, Low: 9, Close: 10}})
	assert.Equal(t, []float64{2, 2}, tr)
}

func TestATR(t *testing.T) {
	bars := []market.Bar{
		{High: 10, Low: 8, Close: 9},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 11, Low: 9, Close: 10},
		{High: 14, Low: 11, Close: 13},
	}
	atr := ATR(bars, 3)
	assert.False(t, Defined(atr[1]))
	assert.InDelta(t, 2.0, atr[2], 1e-12)
	// TRs: 2,2,2,2,4
	assert.InDelta(t, 8.0/3.0, atr[4], 1e-12)
}

func TestSupertrend(t *testing.T) {
	bars := []market.Bar{
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 13, Low: 11, Close: 12},
		{High: 8, Low: 2, Close: 3},
	}
	atr := []float64{math.NaN(), 1, 1, 1}
	line, dir := Supertrend(bars, atr, 3)

	assert.False(t, Defined(line[0]))
	assert.Equal(t, TrendNone, dir[0])

	// seeded from the lower band
	assert.InDelta(t, 11-3, line[1], 1e-12)
	assert.Equal(t, TrendUp, dir[1])

	// close 12 > 8 keeps the lower band
	assert.InDelta(t, 12-3, line[2], 1e-12)
	assert.Equal(t, TrendUp, dir[2])

	// close 3 <= 9 flips to the upper band
	assert.InDelta(t, 5+3, line[3], 1e-12)
	assert.Equal(t, TrendDown, dir[3])
	assert.Equal(t, "down", dir[3].String())
}

func TestVWAP(t *testing.T) {
	bars := []market.Bar{
		{High: 12, Low: 9, Close: 9, Volume: 100},
		{High: 15, Low: 12, Close: 12, Volume: 300},
	}
	vwap := VWAP(bars)
	assert.InDelta(t, 10.0, vwap[0], 1e-12)
	assert.InDelta(t, (10.0*100+13.0*300)/400, vwap[1], 1e-12)

	zero := VWAP([]market.Bar{{High: 3, Low: 3, Close: 3}})
	assert.Equal(t, 0.0, zero[0])
}

func TestBollinger(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5}
	up, mid, lo := Bollinger(vals, 5, 2)
	assert.False(t, Defined(mid[3]))
	assert.InDelta(t, 3.0, mid[4], 1e-12)
	sd := math.Sqrt(2.5)
	assert.InDelta(t, 3+2*sd, up[4], 1e-12)
	assert.InDelta(t, 3-2*sd, lo[4], 1e-12)
}

func TestADX(t *testing.T) {
	n := 14

	t.Run("warmup", func(t *testing.T) {
		adx := ADX(trendBars(3*n, 100, 1, 0.5), n)
		for i := 0; i < 2*n-1; i++ {
			assert.False(t, Defined(adx[i]), "index %d", i)
		}
		assert.True(t, Defined(adx[2*n-1]))
	})

	t.Run("strong trend", func(t *testing.T) {
		adx := ADX(trendBars(3*n, 100, 1, 0.5), n)
		last := adx[len(adx)-1]
		assert.Greater(t, last, 90.0)
		assert.LessOrEqual(t, last, 100.0)
	})

	t.Run("flat market", func(t *testing.T) {
		adx := ADX(trendBars(3*n, 100, 0, 0), n)
		assert.InDelta(t, 0.0, adx[len(adx)-1], 1e-9)
	})

	t.Run("too short", func(t *testing.T) {
		adx := ADX(trendBars(n, 100, 1, 0.5), n)
		for _, v := range adx {
			assert.False(t, Defined(v))
		}
	})
}

func TestRSIAndStochRSI(t *testing.T) {
	up := closes(trendBars(40, 100, 1, 0.5))
	rsi := RSI(up, 14)
	assert.False(t, Defined(rsi[13]))
	assert.True(t, Defined(rsi[14]))
	assert.Greater(t, rsi[20], 99.0)

	stoch := StochRSI(rsi, 14, 3)
	assert.False(t, Defined(stoch[28]))
	assert.True(t, Defined(stoch[29]))
	assert.GreaterOrEqual(t, stoch[29], 0.0)
	assert.LessOrEqual(t, stoch[29], 100.0)
}

func TestMACD(t *testing.T) {
	c := closes(trendBars(60, 100, 1, 0.5))
	line, sig := MACD(c, 12, 26, 9, EMARecursive)
	assert.False(t, Defined(line[24]))
	assert.True(t, Defined(line[25]))
	assert.False(t, Defined(sig[32]))
	assert.True(t, Defined(sig[33]))
	// in a steady uptrend the fast EMA sits above the slow one
	assert.Greater(t, line[59], 0.0)

	seeded, seededSig := MACD(c, 12, 26, 9, EMASMASeed)
	assert.False(t, Defined(seeded[24]))
	assert.True(t, Defined(seeded[25]))
	assert.True(t, Defined(seededSig[33]))
	assert.Greater(t, seeded[59], 0.0)
}

func TestVolumeRatio(t *testing.T) {
	bars := createTestBars()
	vr := VolumeRatio(bars, 5, 0)
	assert.False(t, Defined(vr[3]))
	// mean of 1000..1400 is 1200
	assert.InDelta(t, 1400.0/1200.0, vr[4], 1e-12)
}

func TestComputeWarmup(t *testing.T) {
	p := DefaultParams()
	require.Equal(t, 200, p.Warmup())

	bars := trendBars(250, 1000, 0.5, 2)
	frames := Compute(bars, p)
	require.Len(t, frames, len(bars))

	w := p.Warmup()
	before := frames[w-2]
	assert.False(t, Defined(before.EMASlow))
	assert.True(t, Defined(before.EMAFast))

	f := frames[w-1]
	assert.True(t, AllDefined(
		f.EMAFast, f.EMAMid, f.EMASlow, f.ATR, f.Supertrend, f.VWAP,
		f.BBUpper, f.BBMid, f.BBLower, f.ADX, f.RSI, f.StochRSI,
		f.MACD, f.MACDSignal, f.VolumeRatio,
	))
	assert.Equal(t, TrendUp, f.Trend)
	assert.Equal(t, bars[w-1], f.Bar)
}

func TestComputeDeterministic(t *testing.T) {
	bars := trendBars(230, 500, -0.25, 1)
	a := Compute(bars, DefaultParams())
	b := Compute(bars, DefaultParams())
	for i := range a {
		assert.Equal(t, a[i].ADX, b[i].ADX)
		assert.Equal(t, a[i].Trend, b[i].Trend)
	}
}
