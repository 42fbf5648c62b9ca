package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rustyeddy/confluence/config"
	"github.com/rustyeddy/confluence/engine"
	"github.com/rustyeddy/confluence/journal"
	"github.com/rustyeddy/confluence/scoring"
	"github.com/rustyeddy/confluence/state"
	"github.com/rustyeddy/confluence/strategy"
)

// closer collects cleanup functions for resources opened by wiring.
type closer []func() error

func (c *closer) add(fn func() error) { *c = append(*c, fn) }

func (c closer) Close() {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			slog.Warn("close", "err", err)
		}
	}
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.Path)
	case "csv":
		return journal.NewCSV(cfg.Path)
	}
	return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
}

func openStore(cfg config.StateConfig, cl *closer) (state.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		s, err := state.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		cl.add(s.Close)
		return s, nil
	case "file":
		return state.NewFileStore(cfg.Path), nil
	}
	return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
}

// buildScorer assembles the scorer chain for the configured mode:
// oracle (optionally cached) over a heuristic or fixed fallback.
func buildScorer(ctx context.Context, cfg config.Config, m *engine.Metrics, cl *closer) (scoring.Scorer, error) {
	sc := cfg.Scoring
	var fallback scoring.Scorer = scoring.Fixed{Value: sc.FixedScore}
	if sc.UseHeuristic() {
		fallback = sc.Heuristic
	}

	switch sc.Mode {
	case config.ScoringFixed:
		return scoring.Fixed{Value: sc.FixedScore}, nil
	case config.ScoringHeuristic:
		return sc.Heuristic, nil
	}

	key := sc.Oracle.APIKey()
	if key == "" {
		slog.Warn("oracle api key not set, using fallback scorer", "env", sc.Oracle.APIKeyEnv)
		return fallback, nil
	}
	timeout, err := sc.Oracle.ParseTimeout()
	if err != nil {
		return nil, err
	}
	var oracle scoring.Scorer = scoring.NewOracle(scoring.OracleConfig{
		Endpoint:    sc.Oracle.Endpoint,
		APIKey:      key,
		Model:       sc.Oracle.Model,
		Timeout:     timeout,
		Temperature: sc.Oracle.Temperature,
		MaxTokens:   sc.Oracle.MaxTokens,
		Checklist:   len(cfg.Strategy.Rules.Active()),
		FailScore:   sc.Oracle.FailScore,
	}, fallback,
		scoring.WithLogger(slog.Default()),
		scoring.WithObserver(m.ObserveOracle),
	)

	if !sc.Cache.Enabled {
		return oracle, nil
	}
	ttl, err := sc.Cache.ParseTTL()
	if err != nil {
		return nil, err
	}
	client, err := scoring.DialRedis(ctx, sc.Cache.Addr, sc.Cache.Password, sc.Cache.DB)
	if err != nil {
		slog.Warn("score cache unavailable, scoring uncached", "addr", sc.Cache.Addr, "err", err)
		return oracle, nil
	}
	cl.add(client.Close)
	return scoring.NewCached(oracle, scoring.NewRedisCache(client, sc.Cache.Prefix), ttl, slog.Default()), nil
}

// ports overrides the journal and state store opened from the config.
type ports struct {
	journal journal.Journal
	store   state.Store
}

// buildEngine wires the engine from cfg and resumes the persisted state.
func buildEngine(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, p ports, cl *closer, opts ...engine.Option) (*engine.Engine, error) {
	loc, err := cfg.Market.Location()
	if err != nil {
		return nil, err
	}

	j := p.journal
	if j == nil {
		if j, err = openJournal(cfg.Journal); err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		cl.add(j.Close)
	}
	store := p.store
	if store == nil {
		if store, err = openStore(cfg.State, cl); err != nil {
			return nil, fmt.Errorf("open state: %w", err)
		}
	}
	st, found, err := state.LoadOrNew(ctx, store, cfg.Account.InitialCapital)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if found {
		slog.Info("resuming", "balance", st.Balance, "last_bar", st.LastBar, "phase", st.Phase())
	}

	m := engine.NewMetrics(reg)
	sc, err := buildScorer(ctx, *cfg, m, cl)
	if err != nil {
		return nil, fmt.Errorf("scorer: %w", err)
	}

	opts = append([]engine.Option{engine.WithLogger(slog.Default()), engine.WithMetrics(m)}, opts...)
	eng, err := engine.New(engine.Config{
		Params:          cfg.Strategy.Indicators,
		Sizer:           cfg.Strategy.Sizing,
		Policy:          cfg.Risk,
		PartialFraction: cfg.Strategy.PartialFraction,
		Location:        loc,
	}, strategy.NewDetector(cfg.Strategy.Rules), sc, j, store, st, opts...)
	if err != nil {
		return nil, err
	}
	return eng, nil
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server", "err", err)
		}
	}()
	return srv
}
