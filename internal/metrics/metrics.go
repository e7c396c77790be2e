// Package metrics exposes Prometheus instrumentation for the traveler
// workflow and the country aggregation.
// All methods are safe to call on a nil *Metrics, so collaborators can be
// constructed without instrumentation in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "travelwatch"

// Metrics holds the registered collectors.
type Metrics struct {
	// Workflow transitions by trigger and the status moved from/to.
	Transitions *prometheus.CounterVec

	// Travelers moved to historic by the expiry sweep.
	Archived prometheus.Counter

	// Country aggregation latency, labelled by whether the cache answered.
	AggregateLatency *prometheus.HistogramVec

	// Summary cache lookups by result: hit, miss, error.
	CacheLookups *prometheus.CounterVec
}

// New registers all collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_transitions_total",
			Help:      "Total traveler status transitions by trigger",
		}, []string{"trigger", "from", "to"}),

		Archived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "travelers_archived_total",
			Help:      "Total travelers archived by the expiry sweep",
		}),

		AggregateLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "country_aggregate_duration_seconds",
			Help:      "Duration of country summary computation",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"source"}), // source: "cache", "store"

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_cache_lookups_total",
			Help:      "Country summary cache lookups by result",
		}, []string{"result"}),
	}
}

// IncrementTransition records one applied workflow transition.
func (m *Metrics) IncrementTransition(trigger, from, to string) {
	if m != nil {
		m.Transitions.WithLabelValues(trigger, from, to).Inc()
	}
}

// AddArchived records travelers archived by one sweep.
func (m *Metrics) AddArchived(n int) {
	if m != nil && n > 0 {
		m.Archived.Add(float64(n))
	}
}

// ObserveAggregate records how long a country summary took and where it came from.
func (m *Metrics) ObserveAggregate(source string, d time.Duration) {
	if m != nil {
		m.AggregateLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}

// IncrementCacheLookup records a summary cache lookup result.
func (m *Metrics) IncrementCacheLookup(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}
