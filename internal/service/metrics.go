package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the reconciler's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Cycles        *prometheus.CounterVec
	Orders        *prometheus.CounterVec
	Issues        *prometheus.CounterVec
	CycleDuration prometheus.Histogram
	PendingOrders prometheus.Gauge
	Snapshots     prometheus.Gauge
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconcile_cycles_total",
				Help: "Reconciliation cycles by result.",
			},
			[]string{"result"},
		),
		Orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconcile_orders_total",
				Help: "Pending orders processed by outcome.",
			},
			[]string{"outcome"},
		),
		Issues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconcile_issues_total",
				Help: "Problems recorded in cycle summaries by kind.",
			},
			[]string{"kind"},
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "reconcile_cycle_duration_seconds",
				Help:    "Duration of reconciliation cycles in seconds.",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		PendingOrders: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "reconcile_pending_orders",
				Help: "Pending orders seen at the start of the last cycle.",
			},
		),
		Snapshots: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "reconcile_upstream_snapshots",
				Help: "Upstream orders returned for the last cycle's window.",
			},
		),
	}

	registry.MustRegister(m.Cycles, m.Orders, m.Issues, m.CycleDuration, m.PendingOrders, m.Snapshots)
	return m
}

func (m *Metrics) ObserveCycle(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Cycles.WithLabelValues(result).Inc()
	m.CycleDuration.Observe(duration.Seconds())
}

func (m *Metrics) ObserveOrder(outcome string) {
	if m == nil {
		return
	}
	m.Orders.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveIssue(kind string) {
	if m == nil {
		return
	}
	m.Issues.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetBacklog(pending, snapshots int) {
	if m == nil {
		return
	}
	m.PendingOrders.Set(float64(pending))
	m.Snapshots.Set(float64(snapshots))
}
