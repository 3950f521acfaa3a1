package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Resolve outcomes reported by the result resolver.
const (
	OutcomeHit      = "hit"
	OutcomeMiss     = "miss"
	OutcomeShared   = "shared"
	OutcomeSkipped  = "skipped"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
)

// ResolverMetrics tracks cache effectiveness and backend round trips.
type ResolverMetrics struct {
	resolves  *prometheus.CounterVec
	submits   *prometheus.CounterVec
	polls     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	evictions prometheus.Counter
}

// NewResolverMetrics registers the resolver metrics on the provided registerer.
func NewResolverMetrics(reg prometheus.Registerer) *ResolverMetrics {
	if reg == nil {
		return &ResolverMetrics{}
	}
	resolves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "insights_resolve_total",
		Help: "Result resolutions by metric kind and outcome.",
	}, []string{"metric_kind", "outcome"})
	submits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "insights_backend_submit_total",
		Help: "Backend submissions by returned status.",
	}, []string{"metric_kind", "status"})
	polls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "insights_backend_poll_total",
		Help: "Backend status checks by returned state.",
	}, []string{"state"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "insights_resolve_duration_seconds",
		Help:    "Time spent resolving results that missed the cache.",
		Buckets: []float64{.05, .1, .25, .5, 1, 2, 4, 8, 16, 32, 64},
	}, []string{"metric_kind"})
	evictions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "insights_result_cache_evictions_total",
		Help: "Entries evicted from the bounded result cache.",
	})
	reg.MustRegister(resolves, submits, polls, duration, evictions)
	return &ResolverMetrics{
		resolves:  resolves,
		submits:   submits,
		polls:     polls,
		duration:  duration,
		evictions: evictions,
	}
}

func (m *ResolverMetrics) IncResolve(kind, outcome string) {
	if m == nil || m.resolves == nil {
		return
	}
	m.resolves.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

func (m *ResolverMetrics) IncSubmit(kind, status string) {
	if m == nil || m.submits == nil {
		return
	}
	m.submits.WithLabelValues(normalizeLabel(kind), normalizeLabel(status)).Inc()
}

func (m *ResolverMetrics) IncPoll(state string) {
	if m == nil || m.polls == nil {
		return
	}
	m.polls.WithLabelValues(normalizeLabel(state)).Inc()
}

func (m *ResolverMetrics) ObserveDuration(kind string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(kind)).Observe(d.Seconds())
}

// IncEviction satisfies the result cache eviction hook.
func (m *ResolverMetrics) IncEviction() {
	if m == nil || m.evictions == nil {
		return
	}
	m.evictions.Inc()
}
