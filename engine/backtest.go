package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/confluence/indicators"
	"github.com/rustyeddy/confluence/journal"
	"github.com/rustyeddy/confluence/market"
	"github.com/rustyeddy/confluence/trade"
)

// BacktestOptions controls how a backtest ends.
type BacktestOptions struct {
	// CloseAtEnd closes a position still open after the last bar at that
	// bar's close.
	CloseAtEnd bool
}

// Result summarizes a backtest.
type Result struct {
	StartBalance float64
	Balance      float64

	Trades   int
	Wins     int
	Losses   int
	Partials int

	MaxDrawdownPct float64

	Bars  int
	Start time.Time
	End   time.Time

	Records []journal.Record
}

func (r Result) NetPL() float64 { return r.Balance - r.StartBalance }

func (r Result) ReturnPct() float64 {
	if r.StartBalance == 0 {
		return 0
	}
	return 100 * r.NetPL() / r.StartBalance
}

func (r Result) WinRate() float64 {
	if r.Trades == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Trades)
}

// Backtest computes frames once and steps every bar from the end of the
// indicator warm-up. Bars already processed by a previous run are skipped.
func (e *Engine) Backtest(ctx context.Context, bars []market.Bar, opts BacktestOptions) (Result, error) {
	if err := market.Validate(bars); err != nil {
		return Result{}, fmt.Errorf("backtest: %w", err)
	}
	frames := indicators.Compute(bars, e.cfg.Params)

	startState := e.State()
	res := Result{StartBalance: startState.Balance}
	peak := startState.PeakBalance

	note := func(sr StepResult) {
		res.Records = append(res.Records, sr.Records...)
		bal := e.State().Balance
		peak = math.Max(peak, bal)
		if peak > 0 {
			res.MaxDrawdownPct = math.Max(res.MaxDrawdownPct, 100*(peak-bal)/peak)
		}
	}

	first := min(max(e.cfg.Params.Warmup()-1, 0), len(frames))
	for i := first; i < len(frames); i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		sr, err := e.Step(ctx, frames, i)
		if err != nil {
			return res, fmt.Errorf("bar %s: %w", frames[i].Time.Format(time.RFC3339), err)
		}
		if sr.Action == ActionSkip {
			continue
		}
		if res.Start.IsZero() {
			res.Start = frames[i].Time
		}
		res.End = frames[i].Time
		res.Bars++
		note(sr)
	}

	if opts.CloseAtEnd && len(bars) > 0 {
		last := bars[len(bars)-1]
		sr, err := e.Flatten(ctx, last.Close, last.Time, trade.ReasonEndOfData)
		if err != nil {
			return res, err
		}
		note(sr)
	}

	s := journal.Summarize(res.Records)
	res.Trades = s.Trades
	res.Wins = s.Wins
	res.Losses = s.Losses
	res.Partials = s.Partials
	res.Balance = e.State().Balance
	return res, nil
}
