package risk

import (
	"fmt"
	"strings"
)

const (
	CodeDailyTradeCap  = "DAILY_TRADE_CAP"
	CodeDailyLossLimit = "DAILY_LOSS_LIMIT"
	CodeMaxDrawdown    = "MAX_DRAWDOWN"
)

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Reason joins the violation messages.
func (d Decision) Reason() string {
	msgs := make([]string, len(d.Violations))
	for i, v := range d.Violations {
		msgs[i] = v.Code + ": " + v.Msg
	}
	return strings.Join(msgs, "; ")
}

// Check decides whether a new signal may be evaluated. The caller must
// have rolled the ledger to the current day first.
func Check(p Policy, l Ledger) Decision {
	d := Decision{Allowed: true}

	if p.MaxDailyTrades > 0 && l.TradesToday >= p.MaxDailyTrades {
		d.add(CodeDailyTradeCap,
			fmt.Sprintf("trades today %d >= max %d", l.TradesToday, p.MaxDailyTrades))
	}

	// Circuit breakers (loss limits)
	if p.MaxDailyLossPct > 0 {
		dayLimit := -(l.Balance * p.MaxDailyLossPct)
		if l.PnLToday <= dayLimit {
			d.add(CodeDailyLossLimit,
				fmt.Sprintf("day realized %.2f <= limit %.2f", l.PnLToday, dayLimit))
		}
	}
	if p.MaxDrawdownPct > 0 && l.Drawdown() >= p.MaxDrawdownPct {
		d.add(CodeMaxDrawdown,
			fmt.Sprintf("drawdown %.2f%% >= max %.2f%%", 100*l.Drawdown(), 100*p.MaxDrawdownPct))
	}
	return d
}
