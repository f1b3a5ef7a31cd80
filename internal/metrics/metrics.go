package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report simulation activity.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	runsTotal     *prometheus.CounterVec
	runsActive    prometheus.Gauge
	reactions     *prometheus.CounterVec
	modelTokens   *prometheus.CounterVec
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// Default returns the package-level metrics instance registered with the
// global Prometheus registry. The collectors are created only once to avoid
// duplicate registration panics when the orchestrator is instantiated multiple
// times (e.g. in unit tests or per-request runners).
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNew(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNew constructs a Metrics instance using the provided registerer.
// Supply a fresh registry when unique metric names are required (for example
// in tests). Registration errors panic, mirroring promauto semantics.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agora",
			Subsystem: "simulation",
			Name:      "stage_duration_seconds",
			Help:      "Duration spent in each simulation stage.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage", "status"},
	)
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agora",
			Subsystem: "simulation",
			Name:      "runs_total",
			Help:      "Total number of simulation runs by terminal status.",
		},
		[]string{"status"},
	)
	runsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "agora",
			Subsystem: "simulation",
			Name:      "runs_active",
			Help:      "Number of simulation runs currently executing.",
		},
	)
	reactions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agora",
			Subsystem: "simulation",
			Name:      "reactions_total",
			Help:      "Persona reaction calls by outcome.",
		},
		[]string{"status"},
	)
	modelTokens := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agora",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Token usage reported by the model service.",
		},
		[]string{"model", "kind"},
	)

	for _, collector := range []prometheus.Collector{stageDuration, runsTotal, runsActive, reactions, modelTokens} {
		reg.MustRegister(collector)
	}

	return &Metrics{
		stageDuration: stageDuration,
		runsTotal:     runsTotal,
		runsActive:    runsActive,
		reactions:     reactions,
		modelTokens:   modelTokens,
	}
}

// ObserveStage records the duration of one simulation stage.
func (m *Metrics) ObserveStage(stage, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage, status).Observe(elapsed.Seconds())
}

// RunStarted marks a run as active.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.runsActive.Inc()
}

// RunFinished marks a run complete with the given terminal status.
func (m *Metrics) RunFinished(status string) {
	if m == nil {
		return
	}
	m.runsActive.Dec()
	m.runsTotal.WithLabelValues(status).Inc()
}

// ReactionObserved counts one persona reaction call outcome.
func (m *Metrics) ReactionObserved(status string) {
	if m == nil {
		return
	}
	m.reactions.WithLabelValues(status).Inc()
}

// AddTokenUsage accumulates model token usage.
func (m *Metrics) AddTokenUsage(model string, promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	m.modelTokens.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	m.modelTokens.WithLabelValues(model, "completion").Add(float64(completionTokens))
}
