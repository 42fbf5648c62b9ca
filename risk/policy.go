package risk

import "errors"

// Policy holds the circuit breaker limits. Fractions are of balance:
// 0.10 means 10%. Zero disables a limit.
type Policy struct {
	MaxDailyTrades  int     `json:"max_daily_trades" yaml:"max_daily_trades"`
	MaxDailyLossPct float64 `json:"max_daily_loss_pct" yaml:"max_daily_loss_pct"`
	MaxDrawdownPct  float64 `json:"max_drawdown_pct" yaml:"max_drawdown_pct"`
}

func (p Policy) Validate() error {
	var errs []error
	if p.MaxDailyTrades < 0 {
		errs = append(errs, errors.New("max_daily_trades must be >= 0"))
	}
	if p.MaxDailyLossPct < 0 || p.MaxDailyLossPct >= 1 {
		errs = append(errs, errors.New("max_daily_loss_pct must be in [0,1)"))
	}
	if p.MaxDrawdownPct < 0 || p.MaxDrawdownPct >= 1 {
		errs = append(errs, errors.New("max_drawdown_pct must be in [0,1)"))
	}
	return errors.Join(errs...)
}
