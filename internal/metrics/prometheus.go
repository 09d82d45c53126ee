package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector backed by Prometheus.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	runs            *prometheus.CounterVec
	writes          *prometheus.CounterVec
	persistDuration prometheus.Histogram
	moves           *prometheus.CounterVec
	selections      *prometheus.CounterVec
	events          *prometheus.CounterVec
}

var _ Collector = (*PrometheusCollector)(nil)

// NewPrometheus creates a collector registering on reg (the default
// registerer if nil) under namespace ("retreat" if empty).
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "retreat"
	}
	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "allocation",
			Name:      "assignment_runs_total",
			Help:      "Auto-assignment runs by outcome (applied, no_change, no_seats, dry_run).",
		}, []string{"outcome"})

		p.writes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "allocation",
			Name:      "assignment_writes_total",
			Help:      "Hall seat writes issued by auto-assignment by result (success, failure).",
		}, []string{"result"})

		p.persistDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "allocation",
			Name:      "persist_duration_seconds",
			Help:      "Duration of the auto-assignment write phase in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms .. ~5s
		})

		p.moves = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "allocation",
			Name:      "moves_total",
			Help:      "Manual moves by pool, kind (NOOP, RELOCATE, SWAP) and result.",
		}, []string{"pool", "kind", "result"})

		p.selections = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "allocation",
			Name:      "selections_total",
			Help:      "Selector clicks by pool and outcome.",
		}, []string{"pool", "outcome"})

		p.events = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "allocation.changed publications by result (success, failure).",
		}, []string{"result"})

		p.reg.MustRegister(p.runs)
		p.reg.MustRegister(p.writes)
		p.reg.MustRegister(p.persistDuration)
		p.reg.MustRegister(p.moves)
		p.reg.MustRegister(p.selections)
		p.reg.MustRegister(p.events)
	})
}

// RecordAssignmentRun increments the run counter for outcome.
func (p *PrometheusCollector) RecordAssignmentRun(outcome string) {
	p.ensureRegistered()
	p.runs.WithLabelValues(outcome).Inc()
}

// RecordAssignmentWrites adds write results.
func (p *PrometheusCollector) RecordAssignmentWrites(succeeded, failed int) {
	p.ensureRegistered()
	p.writes.WithLabelValues("success").Add(float64(succeeded))
	p.writes.WithLabelValues("failure").Add(float64(failed))
}

// ObservePersistDuration observes the write phase duration.
func (p *PrometheusCollector) ObservePersistDuration(seconds float64) {
	p.ensureRegistered()
	p.persistDuration.Observe(seconds)
}

// RecordMove increments the move counter.
func (p *PrometheusCollector) RecordMove(pool, kind, result string) {
	p.ensureRegistered()
	p.moves.WithLabelValues(pool, kind, result).Inc()
}

// RecordSelection increments the selection counter.
func (p *PrometheusCollector) RecordSelection(pool, outcome string) {
	p.ensureRegistered()
	p.selections.WithLabelValues(pool, outcome).Inc()
}

// RecordEvent increments the event publication counter.
func (p *PrometheusCollector) RecordEvent(result string) {
	p.ensureRegistered()
	p.events.WithLabelValues(result).Inc()
}
