// Package observability provides Prometheus metrics for the watch engine.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine. All recording
// methods are nil-safe so components can run unmetered in tests.
type Metrics struct {
	tradesReceived prometheus.Counter
	tradesDropped  prometheus.Counter
	feedReconnects prometheus.Counter

	oracleQueries prometheus.Counter
	oracleMisses  prometheus.Counter

	epochsStarted    prometheus.Counter
	outcomesByReason *prometheus.CounterVec
	restartsSignaled prometheus.Counter
	taskFailures     *prometheus.CounterVec

	lockAcquired prometheus.Counter

	currentPrice  prometheus.Gauge
	baselinePrice prometheus.Gauge
	solUsdRate    prometheus.Gauge
}

// New creates and registers all metrics with the default registry.
func New() *Metrics {
	return &Metrics{
		tradesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watch_trades_received_total",
			Help: "Trade samples accepted from the streaming feed.",
		}),
		tradesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watch_trades_dropped_total",
			Help: "Feed frames dropped due to parse failures or missing amount fields.",
		}),
		feedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watch_feed_reconnects_total",
			Help: "Streaming feed reconnect attempts.",
		}),
		oracleQueries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watch_oracle_queries_total",
			Help: "Fallback oracle price queries.",
		}),
		oracleMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watch_oracle_misses_total",
			Help: "Oracle queries that produced no usable price.",
		}),
		epochsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watch_epochs_started_total",
			Help: "Monitoring epochs started.",
		}),
		outcomesByReason: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "watch_outcomes_total",
			Help: "Terminal epoch outcomes by close reason.",
		}, []string{"reason"}),
		restartsSignaled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watch_restarts_signaled_total",
			Help: "Restart requests signaled by the queue watcher.",
		}),
		taskFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "watch_task_failures_total",
			Help: "Unexpected epoch task failures by task name.",
		}, []string{"task"}),
		lockAcquired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watch_lock_acquired_total",
			Help: "Exclusive lock acquisitions (including reclaims).",
		}),
		currentPrice: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "watch_current_price_usd",
			Help: "Most recent USD price for the active target.",
		}),
		baselinePrice: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "watch_baseline_price_usd",
			Help: "Baseline USD price for the active epoch.",
		}),
		solUsdRate: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "watch_sol_usd_rate",
			Help: "Latest known SOL/USD exchange rate.",
		}),
	}
}

// Handler returns the Prometheus exposition handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// TradeReceived counts one accepted feed sample.
func (m *Metrics) TradeReceived() {
	if m != nil {
		m.tradesReceived.Inc()
	}
}

// TradeDropped counts one dropped feed frame.
func (m *Metrics) TradeDropped() {
	if m != nil {
		m.tradesDropped.Inc()
	}
}

// FeedReconnect counts one feed reconnect attempt.
func (m *Metrics) FeedReconnect() {
	if m != nil {
		m.feedReconnects.Inc()
	}
}

// OracleQuery counts one oracle call; miss records an unusable result.
func (m *Metrics) OracleQuery(miss bool) {
	if m == nil {
		return
	}
	m.oracleQueries.Inc()
	if miss {
		m.oracleMisses.Inc()
	}
}

// EpochStarted counts one started epoch.
func (m *Metrics) EpochStarted() {
	if m != nil {
		m.epochsStarted.Inc()
	}
}

// Outcome counts one terminal outcome by reason.
func (m *Metrics) Outcome(reason string) {
	if m != nil {
		m.outcomesByReason.WithLabelValues(reason).Inc()
	}
}

// RestartSignaled counts one queue watcher restart request.
func (m *Metrics) RestartSignaled() {
	if m != nil {
		m.restartsSignaled.Inc()
	}
}

// TaskFailure counts one unexpected task failure.
func (m *Metrics) TaskFailure(task string) {
	if m != nil {
		m.taskFailures.WithLabelValues(task).Inc()
	}
}

// LockAcquired counts one lock acquisition.
func (m *Metrics) LockAcquired() {
	if m != nil {
		m.lockAcquired.Inc()
	}
}

// SetCurrentPrice records the latest tick price.
func (m *Metrics) SetCurrentPrice(v float64) {
	if m != nil {
		m.currentPrice.Set(v)
	}
}

// SetBaselinePrice records the active epoch's baseline.
func (m *Metrics) SetBaselinePrice(v float64) {
	if m != nil {
		m.baselinePrice.Set(v)
	}
}

// SetSolUsdRate records the latest exchange rate.
func (m *Metrics) SetSolUsdRate(v float64) {
	if m != nil {
		m.solUsdRate.Set(v)
	}
}
