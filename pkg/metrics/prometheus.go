// Package metrics provides Prometheus metrics for the scholar pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Ingestion
	rowsLoaded     *prometheus.CounterVec
	rowsRejected   *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec

	// Reconciliation
	refreshTotal       *prometheus.CounterVec
	refreshDuration    prometheus.Histogram
	canonicalRecords   prometheus.Gauge
	incompleteRecords  *prometheus.GaugeVec
	reconcileConflicts *prometheus.CounterVec

	// Analysis
	metricsComputed  prometheus.Counter
	metricsCacheHits prometheus.Counter

	// Risk model
	trainingRuns     *prometheus.CounterVec
	trainingDuration prometheus.Histogram
	modelEvaluation  *prometheus.GaugeVec
	predictions      *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "scholar",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.rowsLoaded = auto.NewCounterVec(
		m.counterOpts("rows_loaded_total", "Rows accepted by the loader per source"),
		[]string{"source", "kind"},
	)
	m.rowsRejected = auto.NewCounterVec(
		m.counterOpts("rows_rejected_total", "Rows rejected by the loader per source"),
		[]string{"source", "kind"},
	)
	m.sourceFailures = auto.NewCounterVec(
		m.counterOpts("source_failures_total", "Sources that could not be read at all"),
		[]string{"source"},
	)

	m.refreshTotal = auto.NewCounterVec(
		m.counterOpts("refresh_total", "Refresh runs by result"),
		[]string{"result"},
	)
	m.refreshDuration = auto.NewHistogram(
		m.histogramOpts("refresh_duration_milliseconds", "Load plus reconcile duration in milliseconds"),
	)
	m.canonicalRecords = auto.NewGauge(
		m.gaugeOpts("canonical_records", "Records in the currently published canonical set"),
	)
	m.incompleteRecords = auto.NewGaugeVec(
		m.gaugeOpts("incomplete_records", "Canonical records missing a data dimension"),
		[]string{"dimension"},
	)
	m.reconcileConflicts = auto.NewCounterVec(
		m.counterOpts("reconcile_conflicts_total", "Field conflicts resolved by last-write-wins"),
		[]string{"kind"},
	)

	m.metricsComputed = auto.NewCounter(
		m.counterOpts("cohort_metrics_computed_total", "Cohort metric computations"),
	)
	m.metricsCacheHits = auto.NewCounter(
		m.counterOpts("cohort_metrics_cache_hits_total", "Cohort metric requests served from cache"),
	)

	m.trainingRuns = auto.NewCounterVec(
		m.counterOpts("training_runs_total", "Risk model training runs by result"),
		[]string{"result"},
	)
	m.trainingDuration = auto.NewHistogram(
		m.histogramOpts("training_duration_milliseconds", "Risk model training duration in milliseconds"),
	)
	m.modelEvaluation = auto.NewGaugeVec(
		m.gaugeOpts("model_evaluation", "Evaluation of the active risk model"),
		[]string{"measure"},
	)
	m.predictions = auto.NewCounterVec(
		m.counterOpts("predictions_total", "Predictions served by result"),
		[]string{"result"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_total", "Errors by component and type"),
		[]string{"component", "type"},
	)
}

// RecordRowsLoaded adds accepted and rejected row counts for one source.
func RecordRowsLoaded(source, kind string, accepted, rejected int) {
	globalManager.rowsLoaded.WithLabelValues(source, kind).Add(float64(accepted))
	globalManager.rowsRejected.WithLabelValues(source, kind).Add(float64(rejected))
}

// RecordSourceFailure counts a source that failed as a whole.
func RecordSourceFailure(source string) {
	globalManager.sourceFailures.WithLabelValues(source).Inc()
}

// RecordRefresh records a refresh outcome ("ok" or "failed") and its duration.
func RecordRefresh(result string, durationMs float64) {
	globalManager.refreshTotal.WithLabelValues(result).Inc()
	globalManager.refreshDuration.Observe(durationMs)
}

// UpdateCanonicalRecords sets the size of the published canonical set and its
// incomplete counts per dimension.
func UpdateCanonicalRecords(total, missingMarks, missingAttendance int) {
	globalManager.canonicalRecords.Set(float64(total))
	globalManager.incompleteRecords.WithLabelValues("marks").Set(float64(missingMarks))
	globalManager.incompleteRecords.WithLabelValues("attendance").Set(float64(missingAttendance))
}

// RecordReconcileConflicts adds n resolved conflicts for a source kind.
func RecordReconcileConflicts(kind string, n int) {
	globalManager.reconcileConflicts.WithLabelValues(kind).Add(float64(n))
}

// RecordMetricsComputed counts a cohort metrics computation; hit marks a cache hit.
func RecordMetricsComputed(hit bool) {
	if hit {
		globalManager.metricsCacheHits.Inc()
		return
	}
	globalManager.metricsComputed.Inc()
}

// RecordTraining records a training outcome ("ok", "insufficient_samples", "single_class", ...).
func RecordTraining(result string, durationMs float64) {
	globalManager.trainingRuns.WithLabelValues(result).Inc()
	globalManager.trainingDuration.Observe(durationMs)
}

// UpdateModelEvaluation publishes the active model's held-out evaluation.
func UpdateModelEvaluation(accuracy, precision, recall float64) {
	globalManager.modelEvaluation.WithLabelValues("accuracy").Set(accuracy)
	globalManager.modelEvaluation.WithLabelValues("precision").Set(precision)
	globalManager.modelEvaluation.WithLabelValues("recall").Set(recall)
}

// RecordPrediction counts a prediction by result ("at_risk", "not_at_risk", "cannot_predict", ...).
func RecordPrediction(result string) {
	globalManager.predictions.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
