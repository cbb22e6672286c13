package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cory-johannsen/craftplan/internal/planning/search"
)

const metricsNamespace = "craftplan"

// SearchMetrics records one observation per finished search.
//
// SearchMetrics implements search.Observer and is safe for concurrent use.
type SearchMetrics struct {
	// SearchesTotal counts searches by outcome.
	SearchesTotal *prometheus.CounterVec
	// DurationSeconds is the wall-clock time of each search.
	DurationSeconds *prometheus.HistogramVec
	// ExpandedStates is the number of states popped and expanded per search.
	ExpandedStates prometheus.Histogram
	// GeneratedStates is the number of successor transitions produced per search.
	GeneratedStates prometheus.Histogram
	// PlanCost is the total cost of each plan found.
	PlanCost prometheus.Histogram
}

// NewSearchMetrics registers the search metrics with reg.
//
// Precondition: reg must not be nil and must not already hold these metrics.
func NewSearchMetrics(reg prometheus.Registerer) *SearchMetrics {
	f := promauto.With(reg)
	return &SearchMetrics{
		SearchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "search",
			Name:      "total",
			Help:      "Searches finished, by outcome",
		}, []string{"outcome"}),
		DurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search wall-clock duration",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		}, []string{"outcome"}),
		ExpandedStates: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "search",
			Name:      "expanded_states",
			Help:      "States expanded per search",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		}),
		GeneratedStates: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "search",
			Name:      "generated_states",
			Help:      "Successor transitions generated per search",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		}),
		PlanCost: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "plan",
			Name:      "cost",
			Help:      "Total cost of plans found",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

// ObserveSearch records r.
func (m *SearchMetrics) ObserveSearch(r search.Result) {
	outcome := r.Outcome.String()
	m.SearchesTotal.WithLabelValues(outcome).Inc()
	m.DurationSeconds.WithLabelValues(outcome).Observe(r.Stats.Elapsed.Seconds())
	m.ExpandedStates.Observe(float64(r.Stats.Expanded))
	m.GeneratedStates.Observe(float64(r.Stats.Generated))
	if r.Found() {
		m.PlanCost.Observe(r.Cost)
	}
}
