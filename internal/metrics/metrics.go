// Package metrics holds the Prometheus collectors of the graph builder. Every
// method is safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vk/valuegraph/internal/rescache"
)

const namespace = "valuegraph"

// Metrics owns a private registry so tests and embedded uses never touch the
// global default registry.
type Metrics struct {
	registry *prometheus.Registry

	Builds                *prometheus.CounterVec
	BuildDuration         prometheus.Histogram
	GraphNodes            prometheus.Gauge
	UnsatisfiedTotal      prometheus.Counter
	Reloads               *prometheus.CounterVec
	RepositoryGeneration  prometheus.Gauge
	CacheEntries          prometheus.Gauge
	CacheLookups          *prometheus.GaugeVec
	RequirementsEvaluated *prometheus.GaugeVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Graph builds by final status.",
		}, []string{"status"}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Wall time of graph builds.",
			Buckets:   prometheus.DefBuckets,
		}),
		GraphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Node count of the most recently built graph.",
		}),
		UnsatisfiedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unsatisfied_requirements_total",
			Help:      "Requested requirements reported unsatisfiable.",
		}),
		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repository_reloads_total",
			Help:      "Function repository reloads by result.",
		}, []string{"result"}),
		RepositoryGeneration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "repository_generation",
			Help:      "Generation of the live function repository.",
		}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Outcomes stored in the live cache generation.",
		}),
		CacheLookups: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups",
			Help:      "Lookups against the live cache generation by result.",
		}, []string{"result"}),
		RequirementsEvaluated: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requirements",
			Help:      "Function requirement evaluations in the live generation, computed or reused.",
		}, []string{"source"}),
	}
	reg.MustRegister(
		m.Builds,
		m.BuildDuration,
		m.GraphNodes,
		m.UnsatisfiedTotal,
		m.Reloads,
		m.RepositoryGeneration,
		m.CacheEntries,
		m.CacheLookups,
		m.RequirementsEvaluated,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveBuild records one finished build.
func (m *Metrics) ObserveBuild(status string, elapsed time.Duration, nodes, unsatisfied int) {
	if m == nil {
		return
	}
	m.Builds.WithLabelValues(status).Inc()
	m.BuildDuration.Observe(elapsed.Seconds())
	m.GraphNodes.Set(float64(nodes))
	m.UnsatisfiedTotal.Add(float64(unsatisfied))
}

// ObserveReload records a repository reload attempt.
func (m *Metrics) ObserveReload(err error, generation uint64) {
	if m == nil {
		return
	}
	if err != nil {
		m.Reloads.WithLabelValues("rejected").Inc()
		return
	}
	m.Reloads.WithLabelValues("ok").Inc()
	m.RepositoryGeneration.Set(float64(generation))
}

// ObserveCache publishes the counters of the live cache generation.
func (m *Metrics) ObserveCache(g *rescache.Generation) {
	if m == nil || g == nil {
		return
	}
	s := g.Stats()
	m.CacheEntries.Set(float64(g.Len()))
	m.CacheLookups.WithLabelValues("hit").Set(float64(s.Hits))
	m.CacheLookups.WithLabelValues("miss").Set(float64(s.Misses))
	m.CacheLookups.WithLabelValues("wait").Set(float64(s.Waits))
	m.CacheLookups.WithLabelValues("declined_wait").Set(float64(s.DeclinedWaits))
	m.RequirementsEvaluated.WithLabelValues("computed").Set(float64(s.RequirementsCalls))
	m.RequirementsEvaluated.WithLabelValues("reused").Set(float64(s.RequirementsReused))
}
