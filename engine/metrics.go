package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the engine's Prometheus series. A nil *Metrics records
// nothing.
type Metrics struct {
	signals       *prometheus.CounterVec
	decisions     *prometheus.CounterVec
	exits         *prometheus.CounterVec
	trades        *prometheus.CounterVec
	oracleCalls   *prometheus.CounterVec
	oracleLatency prometheus.Histogram
	balance       prometheus.Gauge
	drawdown      prometheus.Gauge
}

// NewMetrics creates the series and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confluence_signals_total",
				Help: "Confluence setups detected",
			},
			[]string{"direction"},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confluence_decisions_total",
				Help: "Bars processed split by the action taken",
			},
			[]string{"action"},
		),
		exits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confluence_exits_total",
				Help: "Exit legs split by reason and direction",
			},
			[]string{"reason", "direction"},
		),
		trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confluence_trades_total",
				Help: "Closed trades by result (win|loss)",
			},
			[]string{"result"},
		),
		oracleCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confluence_oracle_calls_total",
				Help: "Scoring oracle calls by outcome (ok|error)",
			},
			[]string{"outcome"},
		),
		oracleLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "confluence_oracle_latency_seconds",
				Help:    "Scoring oracle round trip time",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),
		balance: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "confluence_balance",
				Help: "Account balance after the last committed bar",
			},
		),
		drawdown: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "confluence_drawdown_ratio",
				Help: "Decline of balance from its peak",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.signals, m.decisions, m.exits, m.trades,
			m.oracleCalls, m.oracleLatency, m.balance, m.drawdown)
	}
	return m
}

// ObserveOracle matches scoring.Observer.
func (m *Metrics) ObserveOracle(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.oracleCalls.WithLabelValues(outcome).Inc()
	m.oracleLatency.Observe(elapsed.Seconds())
}

func (m *Metrics) observe(r StepResult, balance, drawdown float64) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(r.Action)).Inc()
	if r.Signal != nil {
		m.signals.WithLabelValues(r.Signal.Direction.String()).Inc()
	}
	for _, rec := range r.Records {
		m.exits.WithLabelValues(string(rec.Reason), rec.Direction.String()).Inc()
	}
	for _, f := range r.Fills {
		if !f.Reason.Final() {
			continue
		}
		if f.TradePnL > 0 {
			m.trades.WithLabelValues("win").Inc()
		} else {
			m.trades.WithLabelValues("loss").Inc()
		}
	}
	m.balance.Set(balance)
	m.drawdown.Set(drawdown)
}
