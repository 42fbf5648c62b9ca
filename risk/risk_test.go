package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func v8Sizer() Sizer {
	return Sizer{
		Tiers: []Tier{
			{MinScore: 8.0, Percent: 6},
			{MinScore: 9.0, Percent: 10},
			{MinScore: 8.5, Percent: 8},
		},
		Loss: LossStreak{Threshold: 2, Multiplier: 1, Cap: 4},
		Win:  WinStreak{Threshold: 3, Step: 2, Max: 12},
	}
}

func v5Sizer() Sizer {
	return Sizer{
		Tiers: []Tier{{9, 6}, {8, 4.5}, {7, 3}},
		Loss:  LossStreak{Threshold: 3, Multiplier: 0.5},
		Win:   WinStreak{Threshold: 2, Step: 1, Max: 7},
	}
}

func TestSizerTopTierScenario(t *testing.T) {
	t.Parallel()

	qty, pct := v8Sizer().Size(9.2, Streak{}, 30000, 5)
	assert.Equal(t, 10.0, pct)
	assert.Equal(t, 600, qty)
}

func TestSizerTiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		score float64
		want  float64
		ok    bool
	}{
		{"below minimum", 7.99, 0, false},
		{"low tier edge", 8.0, 6, true},
		{"mid tier", 8.7, 8, true},
		{"top tier edge", 9.0, 10, true},
		{"max", 10, 10, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := v8Sizer().TierPercent(tt.score)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, 8.0, v8Sizer().MinScore())
}

func TestSizerRejections(t *testing.T) {
	t.Parallel()
	s := v8Sizer()

	qty, pct := s.Size(7.5, Streak{}, 30000, 5)
	assert.Zero(t, qty)
	assert.Zero(t, pct)

	qty, _ = s.Size(9.5, Streak{}, 30000, 0)
	assert.Zero(t, qty)

	// risk per unit larger than the risk budget rounds to zero
	qty, pct = s.Size(8.0, Streak{}, 1000, 100)
	assert.Zero(t, qty)
	assert.Equal(t, 6.0, pct)
}

func TestSizerMonotoneInScore(t *testing.T) {
	t.Parallel()

	for _, s := range []Sizer{v8Sizer(), v5Sizer()} {
		for _, st := range []Streak{{}, {Losses: 5}, {Wins: 4}} {
			prev := -1
			for score := s.MinScore(); score <= 10; score += 0.05 {
				qty, _ := s.Size(score, st, 30000, 7.3)
				assert.GreaterOrEqual(t, qty, prev, "score %.2f streak %+v", score, st)
				prev = qty
			}
		}
	}
}

func TestSizerLossStreak(t *testing.T) {
	t.Parallel()

	for name, s := range map[string]Sizer{"v8": v8Sizer(), "v5": v5Sizer()} {
		for score := s.MinScore(); score <= 10; score += 0.25 {
			base, ok := s.TierPercent(score)
			require.True(t, ok)

			adj, _ := s.RiskPercent(score, Streak{Losses: s.Loss.Threshold})
			assert.Less(t, adj, base, "%s score %.2f", name, score)

			// one win resets the loss counter
			reset, _ := s.RiskPercent(score, Streak{Wins: 1})
			assert.Equal(t, base, reset, "%s score %.2f", name, score)
		}
	}

	pct, _ := v5Sizer().RiskPercent(9.5, Streak{Losses: 3})
	assert.Equal(t, 3.0, pct)
	pct, _ = v8Sizer().RiskPercent(9.5, Streak{Losses: 7})
	assert.Equal(t, 4.0, pct)
}

func TestSizerWinStreak(t *testing.T) {
	t.Parallel()

	pct, _ := v8Sizer().RiskPercent(9.5, Streak{Wins: 3})
	assert.Equal(t, 12.0, pct)
	pct, _ = v8Sizer().RiskPercent(8.0, Streak{Wins: 3})
	assert.Equal(t, 8.0, pct)
	pct, _ = v8Sizer().RiskPercent(8.0, Streak{Wins: 2})
	assert.Equal(t, 6.0, pct)
	pct, _ = v5Sizer().RiskPercent(9.5, Streak{Wins: 2})
	assert.Equal(t, 7.0, pct)
}

func TestSizerValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, v8Sizer().Validate())
	require.NoError(t, v5Sizer().Validate())

	s := v8Sizer()
	s.Loss.Cap = 20
	assert.ErrorContains(t, s.Validate(), "loss_streak must reduce")

	s = v8Sizer()
	s.Tiers = append(s.Tiers, Tier{MinScore: 7, Percent: 50})
	assert.ErrorContains(t, s.Validate(), "must not decrease")

	s = Sizer{}
	assert.ErrorContains(t, s.Validate(), "at least one tier")
}

func TestLedgerExits(t *testing.T) {
	t.Parallel()

	l := NewLedger(30000)
	l.Roll("2024-03-01")

	l.ApplyPartial(300)
	assert.Equal(t, 30300.0, l.Balance)
	assert.Equal(t, 300.0, l.PnLToday)
	assert.Zero(t, l.TradesToday)

	// breakeven remainder: the trade as a whole still won
	l.ApplyFinal(0, 300)
	assert.Equal(t, 1, l.TradesToday)
	assert.Equal(t, 1, l.ConsecutiveWins)
	assert.Zero(t, l.ConsecutiveLosses)

	l.ApplyFinal(-500, -500)
	l.ApplyFinal(-500, -500)
	assert.Equal(t, 2, l.ConsecutiveLosses)
	assert.Zero(t, l.ConsecutiveWins)
	assert.Equal(t, 29300.0, l.Balance)
	assert.Equal(t, 30300.0, l.PeakBalance)
	assert.InDelta(t, 1000.0/30300.0, l.Drawdown(), 1e-12)
	assert.Equal(t, Streak{Losses: 2}, l.Streak())

	// balance equals capital plus realized P/L
	assert.InDelta(t, l.InitialCapital+300+0-500-500, l.Balance, 1e-9)
}

func TestLedgerRoll(t *testing.T) {
	t.Parallel()

	l := NewLedger(1000)
	assert.True(t, l.Roll("2024-03-01"))
	l.ApplyFinal(-50, -50)
	assert.False(t, l.Roll("2024-03-01"))
	assert.Equal(t, 1, l.TradesToday)

	assert.True(t, l.Roll("2024-03-04"))
	assert.Zero(t, l.TradesToday)
	assert.Zero(t, l.PnLToday)
	assert.Equal(t, 950.0, l.Balance)
	assert.Equal(t, 1, l.ConsecutiveLosses)
}

func TestDayOf(t *testing.T) {
	t.Parallel()

	ist := time.FixedZone("IST", 5*3600+1800)
	ts := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-01", DayOf(ts, time.UTC))
	assert.Equal(t, "2024-03-02", DayOf(ts, ist))
	assert.Equal(t, "2024-03-01", DayOf(ts, nil))
}

func TestCheck(t *testing.T) {
	t.Parallel()

	p := Policy{MaxDailyTrades: 12, MaxDailyLossPct: 0.10, MaxDrawdownPct: 0.25}

	t.Run("fresh day allowed", func(t *testing.T) {
		d := Check(p, NewLedger(30000))
		assert.True(t, d.Allowed)
		assert.Empty(t, d.Violations)
	})

	t.Run("trade cap", func(t *testing.T) {
		l := NewLedger(30000)
		l.TradesToday = 12
		d := Check(p, l)
		assert.False(t, d.Allowed)
		require.Len(t, d.Violations, 1)
		assert.Equal(t, CodeDailyTradeCap, d.Violations[0].Code)
	})

	t.Run("daily loss exactly at cap blocks", func(t *testing.T) {
		l := NewLedger(30000)
		l.PnLToday = -(l.Balance * p.MaxDailyLossPct)
		d := Check(p, l)
		assert.False(t, d.Allowed)
		assert.Equal(t, CodeDailyLossLimit, d.Violations[0].Code)
		assert.Contains(t, d.Reason(), "DAILY_LOSS_LIMIT")
	})

	t.Run("daily loss just inside cap", func(t *testing.T) {
		l := NewLedger(30000)
		l.PnLToday = -(l.Balance * p.MaxDailyLossPct) + 0.01
		assert.True(t, Check(p, l).Allowed)
	})

	t.Run("drawdown", func(t *testing.T) {
		l := NewLedger(30000)
		l.PeakBalance = 40000
		l.Balance = 30000
		d := Check(p, l)
		assert.False(t, d.Allowed)
		assert.Equal(t, CodeMaxDrawdown, d.Violations[0].Code)
	})

	t.Run("limits disabled", func(t *testing.T) {
		l := NewLedger(30000)
		l.TradesToday = 100
		l.PnLToday = -29000
		assert.True(t, Check(Policy{}, l).Allowed)
	})
}

func TestRR(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 3.0, RR(100, 97, 109), 1e-12)
	assert.Zero(t, RR(100, 100, 109))
	assert.Equal(t, 1500.0, PlannedRisk(500, 100, 97))
}
