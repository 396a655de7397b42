// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Dataset metrics
	DatasetLoads    *prometheus.CounterVec
	RecordsLoaded   prometheus.Gauge
	ColumnsReused   prometheus.Gauge
	DatasetLoadTime prometheus.Histogram

	// Backtest metrics
	BacktestRuns     *prometheus.CounterVec
	BacktestDuration prometheus.Histogram
	TradesSimulated  prometheus.Counter
	CacheLookups     *prometheus.CounterVec

	// Replay metrics
	ReplayRequests *prometheus.CounterVec

	// Transport metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	ActiveSessions  prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "marksix_lab"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Dataset metrics
		DatasetLoads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "loads_total",
			Help:      "Total number of dataset loads by status",
		}, []string{"status"}),
		RecordsLoaded: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "records",
			Help:      "Number of draw records in the most recently loaded dataset",
		}),
		ColumnsReused: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "indicator_columns_reused",
			Help:      "Precomputed indicator columns reused by the most recent load",
		}),
		DatasetLoadTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "load_duration_seconds",
			Help:      "Dataset load duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Backtest metrics
		BacktestRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by status",
		}, []string{"status"}),
		BacktestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Backtest execution duration in seconds",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
		TradesSimulated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_simulated_total",
			Help:      "Total number of trades simulated",
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "cache_lookups_total",
			Help:      "Run cache lookups by result (hit, miss)",
		}, []string{"result"}),

		// Replay metrics
		ReplayRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "requests_total",
			Help:      "Replay state requests by status",
		}, []string{"status"}),

		// Transport metrics
		CommandsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "commands_total",
			Help:      "Commands handled by command, transport and status",
		}, []string{"cmd", "transport", "status"}),
		CommandDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "command_duration_seconds",
			Help:      "Command handling duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"cmd"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "active_sessions",
			Help:      "Number of open WebSocket sessions",
		}),

		// Database metrics
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordLoad records a dataset load.
func (m *Metrics) RecordLoad(records, reused int, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.DatasetLoads.WithLabelValues(status(err)).Inc()
	m.DatasetLoadTime.Observe(d.Seconds())
	if err == nil {
		m.RecordsLoaded.Set(float64(records))
		m.ColumnsReused.Set(float64(reused))
	}
}

// RecordBacktest records a completed simulation.
func (m *Metrics) RecordBacktest(trades int, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.BacktestRuns.WithLabelValues(status(err)).Inc()
	if err == nil {
		m.BacktestDuration.Observe(d.Seconds())
		m.TradesSimulated.Add(float64(trades))
	}
}

// RecordCacheLookup records a run cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}

// RecordReplay records a replay state request.
func (m *Metrics) RecordReplay(err error) {
	if m == nil {
		return
	}
	m.ReplayRequests.WithLabelValues(status(err)).Inc()
}

// RecordCommand records a dispatched command.
func (m *Metrics) RecordCommand(cmd, transport string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(cmd, transport, status(err)).Inc()
	m.CommandDuration.WithLabelValues(cmd).Observe(d.Seconds())
}

// SessionOpened increments the active sessions gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

// SessionClosed decrements the active sessions gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(d.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
