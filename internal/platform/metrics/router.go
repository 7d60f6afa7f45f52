package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RouterMetrics counts sub-router construction and history navigation.
type RouterMetrics struct {
	compiled    *prometheus.CounterVec
	initial     *prometheus.CounterVec
	navigations *prometheus.CounterVec
}

// NewRouterMetrics registers router metrics in reg.
func NewRouterMetrics(reg prometheus.Registerer) *RouterMetrics {
	m := &RouterMetrics{
		compiled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subroute_compiled_routes_total",
			Help: "Absolute routes compiled, by prefix.",
		}, []string{"prefix"}),
		initial: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subroute_initial_dispatch_total",
			Help: "Construction-time dispatch checks, by result.",
		}, []string{"result"}),
		navigations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subroute_navigations_total",
			Help: "Locations dispatched by the history, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.compiled, m.initial, m.navigations)
	return m
}

// RoutesCompiled implements subrouter.Observer.
func (m *RouterMetrics) RoutesCompiled(prefix string, count int) {
	m.compiled.WithLabelValues(prefix).Add(float64(count))
}

// InitialDispatch implements subrouter.Observer.
func (m *RouterMetrics) InitialDispatch(matched bool) {
	m.initial.WithLabelValues(resultLabel(matched)).Inc()
}

// Navigation implements history.Observer.
func (m *RouterMetrics) Navigation(matched bool) {
	m.navigations.WithLabelValues(resultLabel(matched)).Inc()
}

func resultLabel(matched bool) string {
	if matched {
		return "matched"
	}
	return "unmatched"
}
