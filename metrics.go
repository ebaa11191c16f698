package taskgraph

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsListener is a Listener that reports task lifecycle events as
// Prometheus metrics, standing in for the upstream library's built-in
// timer()/profiler() pair with something a scrape-based monitoring stack
// can consume directly.
//
// Grounded on divinesense's ai/metrics.PrometheusExporter for shape
// (namespaced vecs registered once, recorded from narrow Record* methods),
// generalized from HTTP/LLM events to the eight task EventTypes.
type MetricsListener struct {
	registry *prometheus.Registry

	scheduled *prometheus.CounterVec
	started   *prometheus.CounterVec
	finished  *prometheus.CounterVec
	canceled  *prometheus.CounterVec
	satisfied *prometheus.CounterVec

	idleUS prometheus.Histogram
	waitUS prometheus.Histogram
	runUS  prometheus.Histogram
}

// MetricsConfig configures a MetricsListener.
type MetricsConfig struct {
	// Registry to register collectors against. A fresh one is created if nil.
	Registry *prometheus.Registry

	// Namespace prefixes every metric name (defaults to "taskgraph").
	Namespace string
}

// NewMetricsListener builds and registers a MetricsListener's collectors.
func NewMetricsListener(cfg MetricsConfig) *MetricsListener {
	if cfg.Namespace == "" {
		cfg.Namespace = "taskgraph"
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	labels := []string{"kind"}
	m := &MetricsListener{
		registry: registry,
		scheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "tasks_scheduled_total",
			Help:      "Total number of tasks scheduled.",
		}, labels),
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "tasks_started_total",
			Help:      "Total number of tasks that began running.",
		}, labels),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "tasks_finished_total",
			Help:      "Total number of tasks that finished (successfully or not).",
		}, labels),
		canceled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "tasks_canceled_total",
			Help:      "Total number of tasks that ran canceled.",
		}, labels),
		satisfied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "tasks_satisfied_total",
			Help:      "Total number of tasks whose every child has consumed their result.",
		}, labels),
		idleUS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "task_idle_microseconds",
			Help:      "Time between a task being scheduled and starting.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
		waitUS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "task_wait_microseconds",
			Help:      "Time a task spends waiting on its parents after starting.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
		runUS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "task_run_microseconds",
			Help:      "Time a task spends inside its own functor.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
	}

	registry.MustRegister(
		m.scheduled, m.started, m.finished, m.canceled, m.satisfied,
		m.idleUS, m.waitUS, m.runUS,
	)
	return m
}

// Registry returns the Prometheus registry the listener's collectors are
// registered against, for wiring into an HTTP scrape endpoint.
func (m *MetricsListener) Registry() *prometheus.Registry { return m.registry }

// HandleEvent implements Listener.
func (m *MetricsListener) HandleEvent(event EventType, task Node) {
	kind := task.Kind().String()
	switch event {
	case BeforeScheduled:
		m.scheduled.WithLabelValues(kind).Inc()
	case BeforeStarted:
		m.started.WithLabelValues(kind).Inc()
		if us := task.AvgIdleUS(); us >= 0 {
			m.idleUS.Observe(float64(us))
		}
	case BeforeInvoked:
		if us := task.AvgWaitUS(); us >= 0 {
			m.waitUS.Observe(float64(us))
		}
	case AfterFinished:
		m.finished.WithLabelValues(kind).Inc()
		if us := task.AvgRunUS(); us >= 0 {
			m.runUS.Observe(float64(us))
		}
	case AfterCanceled:
		m.canceled.WithLabelValues(kind).Inc()
	case AfterSatisfied:
		m.satisfied.WithLabelValues(kind).Inc()
	}
}
