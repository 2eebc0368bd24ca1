package cluster

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects clustering counters for Prometheus.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	PassesTotal         prometheus.Counter
	PassDurationMs      prometheus.Histogram
	PassFailuresTotal   prometheus.Counter
	Clusters            prometheus.Gauge
	TransitionsTotal    *prometheus.CounterVec
	MissingParentsTotal prometheus.Counter
	PreemptionsTotal    prometheus.Counter
	SettlesTotal        prometheus.Counter
	PressesTotal        *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
// Pass prometheus.DefaultRegisterer to expose them on the default handler.
// A nil reg leaves the collectors unregistered, handy in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PassesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "animcluster_passes_total",
			Help: "Total number of clustering passes",
		}),
		PassDurationMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "animcluster_pass_duration_ms",
			Help:    "Clustering pass duration in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 20, 50, 100, 200, 500},
		}),
		PassFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "animcluster_pass_failures_total",
			Help: "Total number of clustering passes that failed",
		}),
		Clusters: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "animcluster_clusters",
			Help: "Number of clusters produced by the last pass",
		}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "animcluster_transitions_total",
			Help: "Clusters of each pass by change kind",
		}, []string{"kind"}),
		MissingParentsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "animcluster_missing_parents_total",
			Help: "Split clusters that had no parent to start from",
		}),
		PreemptionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "animcluster_preemptions_total",
			Help: "Passes that interrupted a running animation",
		}),
		SettlesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "animcluster_settles_total",
			Help: "Animations that ran to completion",
		}),
		PressesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "animcluster_presses_total",
			Help: "Resolved taps by target",
		}, []string{"target"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.PassesTotal,
			m.PassDurationMs,
			m.PassFailuresTotal,
			m.Clusters,
			m.TransitionsTotal,
			m.MissingParentsTotal,
			m.PreemptionsTotal,
			m.SettlesTotal,
			m.PressesTotal,
		)
	}
	return m
}

func (m *Metrics) observePass(plan Plan, took time.Duration) {
	if m == nil {
		return
	}
	m.PassesTotal.Inc()
	m.PassDurationMs.Observe(float64(took) / float64(time.Millisecond))
	m.Clusters.Set(float64(len(plan.Current)))
	for _, k := range plan.Kinds {
		m.TransitionsTotal.WithLabelValues(k.String()).Inc()
	}
	if plan.Preempted {
		m.PreemptionsTotal.Inc()
	}
	if n := len(plan.Warnings); n > 0 {
		m.MissingParentsTotal.Add(float64(n))
	}
}

func (m *Metrics) observeFailure() {
	if m == nil {
		return
	}
	m.PassFailuresTotal.Inc()
}

func (m *Metrics) observeSettle() {
	if m == nil {
		return
	}
	m.SettlesTotal.Inc()
}

func (m *Metrics) observePress(target string) {
	if m == nil {
		return
	}
	m.PressesTotal.WithLabelValues(target).Inc()
}
