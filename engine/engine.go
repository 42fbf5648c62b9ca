// Package engine runs the decision pipeline one bar at a time: advance the
// open position, or check the circuit breakers and look for a new entry.
// Every bar's outcome is journaled and persisted before it is adopted.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rustyeddy/confluence/indicators"
	"github.com/rustyeddy/confluence/journal"
	"github.com/rustyeddy/confluence/pkg/id"
	"github.com/rustyeddy/confluence/risk"
	"github.com/rustyeddy/confluence/scoring"
	"github.com/rustyeddy/confluence/state"
	"github.com/rustyeddy/confluence/strategy"
	"github.com/rustyeddy/confluence/trade"
)

// Action is what a bar led to.
type Action string

const (
	ActionSkip     Action = "skip"
	ActionHold     Action = "hold"
	ActionNoSignal Action = "no-signal"
	ActionBlocked  Action = "blocked"
	ActionRejected Action = "rejected"
	ActionOpen     Action = "open"
	ActionPartial  Action = "partial"
	ActionExit     Action = "exit"
)

// Detector finds a setup on frame i. *strategy.Detector implements it.
type Detector interface {
	Detect(frames []indicators.Frame, i int) *strategy.Signal
}

// Config holds the decision rules the engine applies.
type Config struct {
	Params          indicators.Params
	Sizer           risk.Sizer
	Policy          risk.Policy
	PartialFraction float64

	// Location decides where trading days start.
	Location *time.Location
}

// StepResult describes one processed bar.
type StepResult struct {
	Action Action
	Reason string
	Time   time.Time

	Signal   *strategy.Signal
	Score    *scoring.Score
	Position *trade.Position
	Fills    []trade.Fill
	Records  []journal.Record
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithIDs replaces the position ID generator. It receives the entry bar time.
func WithIDs(fn func(time.Time) string) Option {
	return func(e *Engine) { e.newID = fn }
}

// WithClock replaces the clock used for State.UpdatedAt.
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

// Engine owns the account state. Its methods are safe for concurrent use
// but bars are processed one at a time.
type Engine struct {
	cfg      Config
	detector Detector
	scorer   scoring.Scorer
	journal  journal.Journal
	store    state.Store

	log     *slog.Logger
	metrics *Metrics
	newID   func(time.Time) string
	now     func() time.Time

	mu sync.Mutex
	st state.State
}

// New returns an engine that resumes from st.
func New(cfg Config, det Detector, sc scoring.Scorer, j journal.Journal, store state.Store, st state.State, opts ...Option) (*Engine, error) {
	var errs []error
	if det == nil {
		errs = append(errs, errors.New("engine: detector is required"))
	}
	if sc == nil {
		errs = append(errs, errors.New("engine: scorer is required"))
	}
	if j == nil {
		errs = append(errs, errors.New("engine: journal is required"))
	}
	if store == nil {
		errs = append(errs, errors.New("engine: state store is required"))
	}
	if err := cfg.Sizer.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("engine: sizer: %w", err))
	}
	if cfg.PartialFraction < 0 || cfg.PartialFraction >= 1 {
		errs = append(errs, fmt.Errorf("engine: partial fraction %.2f outside [0,1)", cfg.PartialFraction))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	e := &Engine{
		cfg:      cfg,
		detector: det,
		scorer:   sc,
		journal:  j,
		store:    store,
		log:      slog.Default(),
		newID:    id.At,
		now:      time.Now,
		st:       st.Clone(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// State returns a copy of the last committed state.
func (e *Engine) State() state.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.Clone()
}

// Step processes frame i. A bar at or before the last processed bar is
// skipped, so re-delivering bars is harmless. When the journal or the
// state store fails, the error is returned and the engine keeps its
// previous state; stepping the same bar again retries it.
func (e *Engine) Step(ctx context.Context, frames []indicators.Frame, i int) (StepResult, error) {
	if i < 0 || i >= len(frames) {
		return StepResult{Action: ActionSkip, Reason: "index out of range"}, nil
	}
	bar := frames[i].Bar

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.st.LastBar.IsZero() && !bar.Time.After(e.st.LastBar) {
		return StepResult{Action: ActionSkip, Reason: "already processed", Time: bar.Time}, nil
	}

	next := e.st.Clone()
	if next.Roll(risk.DayOf(bar.Time, e.cfg.Location)) {
		e.log.Debug("new trading day", "day", next.Day)
	}

	var res StepResult
	if next.Position != nil {
		res = e.book(&next, trade.Advance(next.Position, bar, e.cfg.PartialFraction))
	} else {
		res = e.evaluate(ctx, &next, frames, i)
	}
	res.Time = bar.Time

	next.LastBar = bar.Time
	if err := e.commit(ctx, next, res); err != nil {
		return res, err
	}
	return res, nil
}

// Flatten closes the open position at price. It is used at the end of a
// backtest; a flat engine is left untouched.
func (e *Engine) Flatten(ctx context.Context, price float64, t time.Time, reason trade.Reason) (StepResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.Position == nil {
		return StepResult{Action: ActionHold, Reason: "flat", Time: t}, nil
	}
	next := e.st.Clone()
	res := e.book(&next, trade.Close(next.Position, price, t, reason))
	res.Time = t
	if err := e.commit(ctx, next, res); err != nil {
		return res, err
	}
	return res, nil
}

func (e *Engine) commit(ctx context.Context, next state.State, res StepResult) error {
	next.UpdatedAt = e.now().UTC()
	if len(res.Records) > 0 {
		if err := e.journal.Append(ctx, res.Records...); err != nil {
			e.log.Error("journal append failed", "err", err, "bar", res.Time)
			return fmt.Errorf("journal: %w", err)
		}
	}
	if err := e.store.Save(ctx, next); err != nil {
		e.log.Error("state save failed", "err", err, "bar", res.Time)
		return fmt.Errorf("save state: %w", err)
	}
	e.st = next
	e.metrics.observe(res, next.Balance, next.Drawdown())
	return nil
}

// book applies the fills of an advanced position to the ledger.
func (e *Engine) book(next *state.State, out trade.Outcome) StepResult {
	pos := next.Position
	res := StepResult{Action: ActionHold, Fills: out.Fills}

	for _, f := range out.Fills {
		if f.Reason.Final() {
			next.ApplyFinal(f.PnL, f.TradePnL)
			res.Action = ActionExit
			e.log.Info("position closed",
				"id", pos.ID, "reason", f.Reason, "price", f.Price,
				"qty", f.Qty, "pnl", f.PnL, "trade_pnl", f.TradePnL, "balance", next.Balance)
		} else {
			next.ApplyPartial(f.PnL)
			res.Action = ActionPartial
			e.log.Info("partial exit",
				"id", pos.ID, "price", f.Price, "qty", f.Qty, "pnl", f.PnL, "balance", next.Balance)
		}
		res.Records = append(res.Records, journal.Record{
			ID:         journal.RecordID(pos.ID, f.Reason),
			PositionID: pos.ID,
			ExitTime:   f.Time,
			Direction:  pos.Direction,
			Qty:        f.Qty,
			EntryPrice: pos.Entry,
			ExitPrice:  f.Price,
			PnL:        f.PnL,
			Reason:     f.Reason,
			Balance:    next.Balance,
		})
	}
	if res.Action == ActionExit {
		res.Reason = string(out.Fills[len(out.Fills)-1].Reason)
	}
	next.Position = out.Position
	res.Position = out.Position
	return res
}

// evaluate runs breakers, detection, scoring and sizing on a flat account.
func (e *Engine) evaluate(ctx context.Context, next *state.State, frames []indicators.Frame, i int) StepResult {
	if d := risk.Check(e.cfg.Policy, next.Ledger); !d.Allowed {
		e.log.Info("circuit breaker", "reason", d.Reason(), "day", next.Day)
		return StepResult{Action: ActionBlocked, Reason: d.Reason()}
	}

	sig := e.detector.Detect(frames, i)
	if sig == nil {
		return StepResult{Action: ActionNoSignal}
	}
	e.log.Info("signal",
		"direction", sig.Direction, "entry", sig.Entry, "stop", sig.Stop,
		"confluence", sig.Confluence, "factors", sig.Factors)

	sc := e.scorer.Score(ctx, *sig)
	res := StepResult{Signal: sig, Score: &sc}
	e.log.Info("scored", "score", sc.Value, "source", sc.Source, "rationale", sc.Rationale)

	streak := next.Streak()
	if _, ok := e.cfg.Sizer.RiskPercent(sc.Value, streak); !ok {
		res.Action = ActionRejected
		res.Reason = fmt.Sprintf("score %.2f below %.2f", sc.Value, e.cfg.Sizer.MinScore())
		e.log.Info("rejected", "reason", res.Reason)
		return res
	}
	qty, pct := e.cfg.Sizer.Size(sc.Value, streak, next.Balance, sig.Risk())
	if qty == 0 {
		res.Action = ActionRejected
		res.Reason = fmt.Sprintf("size rounds to zero at %.2f%% of %.2f", pct, next.Balance)
		e.log.Info("rejected", "reason", res.Reason)
		return res
	}

	pos := trade.NewPosition(e.newID(sig.Time), *sig, qty, pct, sc.Value, sc.Rationale)
	next.Position = pos
	res.Action = ActionOpen
	res.Position = pos
	e.log.Info("position opened",
		"id", pos.ID, "direction", pos.Direction, "entry", pos.Entry, "qty", qty,
		"risk_pct", pct, "planned_risk", risk.PlannedRisk(qty, pos.Entry, pos.Stop))
	return res
}
