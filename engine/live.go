package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/confluence/indicators"
	"github.com/rustyeddy/confluence/market"
)

// Live polls src every interval and steps the bars it has not seen yet.
// Data and persistence errors are logged and retried on the next cycle.
// It returns when ctx is cancelled.
func (e *Engine) Live(ctx context.Context, src market.Source, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		e.Poll(ctx, src)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll runs one cycle. On a fresh state only the latest bar is stepped;
// afterwards every bar newer than the last processed one is stepped in
// order.
func (e *Engine) Poll(ctx context.Context, src market.Source) []StepResult {
	bars, err := src.Bars(ctx)
	switch {
	case errors.Is(err, market.ErrNoData):
		e.log.Info("no market data yet")
		return nil
	case err != nil:
		e.log.Warn("market data unavailable", "err", err)
		return nil
	}
	if len(bars) == 0 {
		return nil
	}
	if err := market.Validate(bars); err != nil {
		e.log.Warn("bad market data", "err", err)
		return nil
	}

	frames := indicators.Compute(bars, e.cfg.Params)
	last := e.State().LastBar

	first := len(frames) - 1
	if !last.IsZero() {
		for first > 0 && frames[first-1].Time.After(last) {
			first--
		}
	}

	var out []StepResult
	for i := first; i < len(frames); i++ {
		res, err := e.Step(ctx, frames, i)
		if err != nil {
			e.log.Error("step failed, will retry", "bar", frames[i].Time, "err", err)
			return out
		}
		if res.Action != ActionSkip {
			out = append(out, res)
		}
	}
	return out
}
