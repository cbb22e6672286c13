package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/craftplan/internal/planning/search"
)

func TestSearchMetrics_ObserveSearch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSearchMetrics(reg)

	m.ObserveSearch(search.Result{
		Outcome: search.Succeeded,
		Cost:    6,
		Stats:   search.Stats{Expanded: 10, Generated: 25, Elapsed: 3 * time.Millisecond},
	})
	m.ObserveSearch(search.Result{Outcome: search.TimedOut, Stats: search.Stats{Expanded: 100}})
	m.ObserveSearch(search.Result{Outcome: search.TimedOut})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues("succeeded")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues("timed_out")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues("exhausted")))

	assert.Equal(t, uint64(3), sampleCount(t, reg, "craftplan_search_expanded_states"))
	assert.Equal(t, uint64(1), sampleCount(t, reg, "craftplan_plan_cost"))
}

func sampleCount(t *testing.T, reg *prometheus.Registry, name string) uint64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func TestSearchMetrics_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewSearchMetrics(reg)
	assert.Panics(t, func() { NewSearchMetrics(reg) })

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "craftplan_plan_cost")
	assert.Contains(t, names, "craftplan_search_expanded_states")
}
