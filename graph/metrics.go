package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector gathers Prometheus metrics for graph and pattern execution.
// A nil *Collector is valid and records nothing.
type Collector struct {
	nodeExecutions *prometheus.CounterVec
	nodeDuration   *prometheus.HistogramVec
	patternRuns    *prometheus.CounterVec
	cacheOps       *prometheus.CounterVec
}

// NewCollector registers the engine metrics with reg. A nil registerer uses
// the default Prometheus registry.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		nodeExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_executions_total",
				Help:      "Total number of graph node executions",
			},
			[]string{"kind", "status"},
		),
		nodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "node_duration_seconds",
				Help:      "Graph node execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		patternRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pattern_runs_total",
				Help:      "Total number of orchestration pattern runs",
			},
			[]string{"pattern", "status"},
		),
		cacheOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "completion_cache_ops_total",
				Help:      "Completion cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// ObserveNode records one node execution.
func (c *Collector) ObserveNode(kind Kind, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.nodeExecutions.WithLabelValues(string(kind), statusLabel(err)).Inc()
	c.nodeDuration.WithLabelValues(string(kind)).Observe(d.Seconds())
}

// ObservePattern records one pattern run outcome.
func (c *Collector) ObservePattern(pattern string, err error) {
	if c == nil {
		return
	}
	c.patternRuns.WithLabelValues(pattern, statusLabel(err)).Inc()
}

// ObserveCache records a completion cache lookup.
func (c *Collector) ObserveCache(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheOps.WithLabelValues(result).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
