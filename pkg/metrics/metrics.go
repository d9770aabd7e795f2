package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Case store metrics
	StoreOperations *prometheus.CounterVec
	StoreLatency    *prometheus.HistogramVec

	// Forecast metrics
	PredictionsServed *prometheus.CounterVec
	ModelCacheHits    *prometheus.CounterVec

	// Training metrics
	TrainingRuns     *prometheus.CounterVec
	TrainingDuration prometheus.Histogram
	ModelsTrained    prometheus.Gauge
	DiseasesSkipped  prometheus.Gauge

	// Alert dispatch metrics
	Dispatches *prometheus.CounterVec

	// Degraded analytics responses
	DegradedResponses *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics on reg.
// Passing a fresh prometheus.NewRegistry() keeps tests isolated.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		StoreOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of case store operations",
		}, []string{"operation", "status"}),
		StoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of case store operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation"}),

		PredictionsServed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "predictions_total",
			Help:      "Total number of prediction requests served",
		}, []string{"mode"}),
		ModelCacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "model_cache_total",
			Help:      "Model cache lookups by result",
		}, []string{"result"}),

		TrainingRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trainer",
			Name:      "runs_total",
			Help:      "Total number of retraining runs",
		}, []string{"status"}),
		TrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trainer",
			Name:      "run_duration_seconds",
			Help:      "Time spent in a retraining run",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		ModelsTrained: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trainer",
			Name:      "models_trained",
			Help:      "Number of disease models written by the last run",
		}),
		DiseasesSkipped: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trainer",
			Name:      "diseases_skipped",
			Help:      "Number of diseases skipped for insufficient data in the last run",
		}),

		Dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "dispatches_total",
			Help:      "Total number of alert dispatch attempts",
		}, []string{"channel", "status"}),

		DegradedResponses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "degraded_responses_total",
			Help:      "Analytics responses served without case data",
		}, []string{"endpoint"}),
	}
}

// NewNop returns metrics registered on a private registry.
func NewNop() *Metrics {
	return NewMetrics("test", prometheus.NewRegistry())
}
