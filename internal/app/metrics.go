package app

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/example/slaengine/internal/core/sla"
)

const metricsNamespace = "slaengine"

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	sweeps         prometheus.Counter
	sweepDuration  prometheus.Histogram
	itemsChecked   prometheus.Counter
	itemErrors     prometheus.Counter
	conflicts      prometheus.Counter
	escalations    *prometheus.CounterVec
	configWarnings *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	openItems      *prometheus.GaugeVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		sweeps: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sweeps_total",
			Help:      "Completed sweep passes.",
		}),
		sweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of a sweep pass.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		itemsChecked: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "items_checked_total",
			Help:      "Work items recomputed by sweeps.",
		}),
		itemErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "item_errors_total",
			Help:      "Work items whose sweep processing failed.",
		}),
		conflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "concurrency_conflicts_total",
			Help:      "SLA writes discarded after losing to a concurrent writer.",
		}),
		escalations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "escalations_total",
			Help:      "Escalation attempts by level and outcome.",
		}, []string{"level", "outcome"}),
		configWarnings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "configuration_warnings_total",
			Help:      "Configuration problems that caused a rule or level to be skipped.",
		}, []string{"kind"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "policy_cache_lookups_total",
			Help:      "Policy cache lookups by result.",
		}, []string{"result"}),
		openItems: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "open_items",
			Help:      "Open work items by status after the last sweep.",
		}, []string{"status"}),
	}
}

func (m *Metrics) observeSweep(summary sweepCounts, seconds float64) {
	if m == nil {
		return
	}
	m.sweeps.Inc()
	m.sweepDuration.Observe(seconds)
	m.itemsChecked.Add(float64(summary.checked))
	m.itemErrors.Add(float64(summary.errors))
	for _, s := range []sla.Status{sla.StatusGreen, sla.StatusYellow, sla.StatusRed} {
		m.openItems.WithLabelValues(string(s)).Set(float64(summary.byStatus[s]))
	}
}

func (m *Metrics) escalation(level int, outcome EscalationOutcome) {
	if m == nil {
		return
	}
	m.escalations.WithLabelValues(strconv.Itoa(level), outcome.String()).Inc()
}

func (m *Metrics) configWarning(kind string) {
	if m == nil {
		return
	}
	m.configWarnings.WithLabelValues(kind).Inc()
}

func (m *Metrics) conflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *Metrics) cacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
