// Package metrics provides Prometheus metrics for the pvnet dataset pipeline.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default latency buckets in milliseconds. Pipeline stages over a season of
// events run from sub-millisecond to tens of seconds.
var defaultBuckets = []float64{0.5, 1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000} //nolint:gochecknoglobals // bucket layout

// Manager manages all Prometheus metrics for the pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Pipeline metrics
	eventsIngested     prometheus.Counter
	eventsDuplicate    prometheus.Counter
	rowsLabeled        prometheus.Counter
	malformedLocations prometheus.Counter
	pipelineRuns       *prometheus.CounterVec
	stageLatency       *prometheus.HistogramVec
	splitMatches       *prometheus.GaugeVec
	labelPositiveRate  *prometheus.GaugeVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Job queue and worker metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueErrors prometheus.Counter
	workerActiveCount  prometheus.Gauge
	jobLatency         prometheus.Histogram

	// Repository metrics
	datasetsStored prometheus.Gauge

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pvnet",
		subsystem:        "pipeline",
		histogramBuckets: defaultBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.eventsIngested = m.counter("events_ingested_total", "Total number of raw events read from sources")
	m.eventsDuplicate = m.counter("events_duplicate_total", "Total number of duplicate events dropped by sources")
	m.rowsLabeled = m.counter("rows_labeled_total", "Total number of rows that received look-ahead labels")
	m.malformedLocations = m.counter("malformed_locations_total", "Total number of location values that were set but not a numeric pair")

	m.pipelineRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "runs_total",
		Help: "Total number of pipeline runs by status",
	}, []string{"status"})

	m.stageLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "stage_latency_milliseconds",
		Help:    "Pipeline stage latency in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"stage"})

	m.splitMatches = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "split_matches",
		Help: "Number of matches assigned to each split by the last run",
	}, []string{"split"})

	m.labelPositiveRate = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "label_positive_rate",
		Help: "Share of positive labels in the last run",
	}, []string{"label"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "http_requests_total",
		Help: "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.queueSize = m.gauge("queue_size", "Current number of pending build jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of pending build jobs")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of rejected build jobs")
	m.workerActiveCount = m.gauge("worker_active_count", "Number of workers currently building a dataset")

	m.jobLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "job_latency_milliseconds",
		Help:    "Build job latency from dequeue to store in milliseconds",
		Buckets: m.histogramBuckets,
	})

	m.datasetsStored = m.gauge("datasets_stored", "Number of datasets held by the repository")

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "errors_by_component_total",
		Help: "Total number of errors by component",
	}, []string{"component", "error_type"})
}

// RecordEventsIngested adds n raw events to the ingested counter.
func RecordEventsIngested(n int) {
	globalManager.eventsIngested.Add(float64(n))
}

// RecordEventDuplicate increments the duplicate events counter.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordRowsLabeled adds n rows to the labeled counter.
func RecordRowsLabeled(n int) {
	globalManager.rowsLabeled.Add(float64(n))
}

// RecordMalformedLocations adds n malformed location values.
func RecordMalformedLocations(n int) {
	globalManager.malformedLocations.Add(float64(n))
}

// RecordPipelineRun counts a pipeline run with the given status (ok or error).
func RecordPipelineRun(status string) {
	globalManager.pipelineRuns.WithLabelValues(status).Inc()
}

// RecordStageLatency records one stage duration in milliseconds.
func RecordStageLatency(stage string, latencyMs float64) {
	globalManager.stageLatency.WithLabelValues(stage).Observe(latencyMs)
}

// UpdateSplitMatches sets the match count of one split.
func UpdateSplitMatches(split string, count int) {
	globalManager.splitMatches.WithLabelValues(split).Set(float64(count))
}

// UpdateLabelPositiveRate sets the positive rate of one label.
func UpdateLabelPositiveRate(label string, rate float64) {
	globalManager.labelPositiveRate.WithLabelValues(label).Set(rate)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordJobLatency records build job latency in milliseconds.
func RecordJobLatency(latencyMs float64) {
	globalManager.jobLatency.Observe(latencyMs)
}

// UpdateDatasetsStored sets the number of stored datasets.
func UpdateDatasetsStored(count int) {
	globalManager.datasetsStored.Set(float64(count))
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Snapshot gathers the custom registry into name -> summed sample value.
// Histograms report their sample count.
func Snapshot() (map[string]float64, error) {
	families, err := customRegistry.Gather()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGatherFailed, err)
	}
	out := make(map[string]float64, len(families))
	for _, mf := range families {
		var total float64
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				total += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				total += metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				total += float64(metric.GetHistogram().GetSampleCount())
			}
		}
		out[mf.GetName()] = total
	}
	return out, nil
}
