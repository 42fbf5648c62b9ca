package risk

import (
	"math"
	"time"
)

// DayLayout formats Ledger.Day.
const DayLayout = "2006-01-02"

// Ledger is the account side of the engine: balance, streak counters and
// the per-day counters the circuit breakers read.
type Ledger struct {
	Balance        float64 `json:"balance"`
	InitialCapital float64 `json:"initial_capital"`
	PeakBalance    float64 `json:"peak_balance"`

	ConsecutiveWins   int `json:"consecutive_wins"`
	ConsecutiveLosses int `json:"consecutive_losses"`

	TradesToday int     `json:"trades_today"`
	PnLToday    float64 `json:"pnl_today"`
	Day         string  `json:"day"`
}

func NewLedger(capital float64) Ledger {
	return Ledger{
		Balance:        capital,
		InitialCapital: capital,
		PeakBalance:    capital,
	}
}

// DayOf returns the trading day of t in loc.
func DayOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DayLayout)
}

// Roll starts a new trading day when day differs from the stored one.
// Balance and streaks carry over. It reports whether a rollover happened.
func (l *Ledger) Roll(day string) bool {
	if l.Day == day {
		return false
	}
	l.Day = day
	l.TradesToday = 0
	l.PnLToday = 0
	return true
}

// ApplyPartial books the partial-exit leg of an open trade.
func (l *Ledger) ApplyPartial(pnl float64) {
	l.credit(pnl)
}

// ApplyFinal books the closing leg and counts the trade. tradePnL is the
// whole trade's result (partial plus final leg) and drives the streaks.
func (l *Ledger) ApplyFinal(legPnL, tradePnL float64) {
	l.credit(legPnL)
	l.TradesToday++
	if tradePnL > 0 {
		l.ConsecutiveWins++
		l.ConsecutiveLosses = 0
	} else {
		l.ConsecutiveLosses++
		l.ConsecutiveWins = 0
	}
}

func (l *Ledger) credit(pnl float64) {
	l.Balance += pnl
	l.PnLToday += pnl
	l.PeakBalance = math.Max(l.PeakBalance, l.Balance)
}

// Drawdown is the fractional decline of balance from its peak.
func (l Ledger) Drawdown() float64 {
	if l.PeakBalance <= 0 {
		return 0
	}
	return math.Max(0, (l.PeakBalance-l.Balance)/l.PeakBalance)
}

// Return is the fractional change of balance since inception.
func (l Ledger) Return() float64 {
	if l.InitialCapital == 0 {
		return 0
	}
	return (l.Balance - l.InitialCapital) / l.InitialCapital
}

func (l Ledger) Streak() Streak {
	return Streak{Wins: l.ConsecutiveWins, Losses: l.ConsecutiveLosses}
}
