// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading daemon.
type Metrics struct {
	// Signal metrics
	OpportunitiesScored   prometheus.Counter
	OpportunitiesRejected *prometheus.CounterVec // by reason

	// Execution metrics
	EntriesExecuted prometheus.Counter
	ExitsExecuted   *prometheus.CounterVec // by kind
	EntriesFailed   *prometheus.CounterVec // by reason
	RealizedGain    prometheus.Counter
	RealizedLoss    prometheus.Counter

	// Breaker metrics
	BreakerTrips *prometheus.CounterVec // by breaker

	// Portfolio gauges
	OpenPositions prometheus.Gauge
	OpenExposure  prometheus.Gauge
	Balance       prometheus.Gauge

	// Gateway metrics
	GatewayCallLatency *prometheus.HistogramVec
	SwapFailures       *prometheus.CounterVec // by reason

	// Health metrics
	LastScanAt    prometheus.Gauge
	UptimeSeconds prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "memetrader"
	}

	return &Metrics{
		OpportunitiesScored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "opportunities_scored_total",
			Help:      "Total number of opportunities scored by the aggregator",
		}),
		OpportunitiesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "opportunities_rejected_total",
			Help:      "Total number of opportunities rejected by the risk filter",
		}, []string{"reason"}),

		EntriesExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "entries_executed_total",
			Help:      "Total number of successful position entries",
		}),
		ExitsExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "exits_executed_total",
			Help:      "Total number of exit fills by kind",
		}, []string{"kind"}),
		EntriesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "entries_failed_total",
			Help:      "Total number of failed entries by reason",
		}, []string{"reason"}),
		RealizedGain: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "realized_gain_sol_total",
			Help:      "Cumulative realized gains in SOL",
		}),
		RealizedLoss: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "realized_loss_sol_total",
			Help:      "Cumulative realized losses in SOL",
		}),

		BreakerTrips: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "breaker_trips_total",
			Help:      "Total number of entries blocked by circuit breakers",
		}, []string{"breaker"}),

		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "open_positions",
			Help:      "Current number of open positions",
		}),
		OpenExposure: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "open_exposure_sol",
			Help:      "Current open exposure in SOL",
		}),
		Balance: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "balance_sol",
			Help:      "Current wallet balance in SOL",
		}),

		GatewayCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "call_duration_seconds",
			Help:      "Gateway call latency by method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		SwapFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "swap_failures_total",
			Help:      "Total number of swap failures by reason",
		}, []string{"reason"}),

		LastScanAt: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_scan_timestamp_seconds",
			Help:      "Unix timestamp of the last completed signal scan",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total daemon uptime in seconds",
		}),
	}
}

// RunUptime increments the uptime counter once a second until the context
// ends.
func (m *Metrics) RunUptime(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.UptimeSeconds.Inc()
		}
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
