// Package metrics provides Prometheus metrics for the evaluation bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the bot.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Conversation
	transitions        *prometheus.CounterVec
	authAttempts       *prometheus.CounterVec
	evaluationsSaved   prometheus.Counter
	evaluationFailures prometheus.Counter
	activeSessions     prometheus.Gauge
	processingLatency  prometheus.Histogram

	// Updates arriving from the delivery channel
	updatesReceived  prometheus.Counter
	updatesDuplicate prometheus.Counter
	updatesRejected  *prometheus.CounterVec

	// Delivery side effects
	deliveryFallbacks *prometheus.CounterVec

	// Queue and workers
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueErrors *prometheus.CounterVec
	workerCount        prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level recorders

// customRegistry keeps the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals

func init() { //nolint:gochecknoinits
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "evalbot",
		subsystem:        "conversation",
		histogramBuckets: prometheus.DefBuckets,
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

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen
	m.transitions = m.counterVec("transitions_total",
		"State transitions performed by the conversation engine", "from", "to")
	m.authAttempts = m.counterVec("auth_attempts_total",
		"Password checks by outcome (success, not_found, bad_password, error)", "outcome")
	m.evaluationsSaved = m.counter("evaluations_saved_total",
		"Evaluation records persisted")
	m.evaluationFailures = m.counter("evaluation_save_errors_total",
		"Evaluation saves that failed in storage")
	m.activeSessions = m.gauge("active_sessions",
		"Sessions currently held by the session store")
	m.processingLatency = m.histogram("update_processing_latency_milliseconds",
		"Time spent handling one update, store round-trip included", m.histogramBuckets)

	m.updatesReceived = m.counter("updates_received_total",
		"Updates accepted from the delivery channel")
	m.updatesDuplicate = m.counter("updates_duplicate_total",
		"Redelivered updates dropped by idempotency tracking")
	m.updatesRejected = m.counterVec("updates_rejected_total",
		"Updates rejected before reaching the engine", "reason")

	m.deliveryFallbacks = m.counterVec("delivery_fallbacks_total",
		"Failed cosmetic delivery operations, by operation", "op")

	m.queueSize = m.gauge("queue_size", "Jobs waiting across all partitions")
	m.queueCapacity = m.gauge("queue_capacity", "Total job capacity across all partitions")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total",
		"Jobs that could not be enqueued", "reason")
	m.workerCount = m.gauge("worker_count", "Number of partition workers")

	m.httpRequests = m.counterVec("http_requests_total",
		"HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_total",
		"Errors by component and type", "component", "type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordTransition counts one engine transition.
func RecordTransition(from, to string) {
	globalManager.transitions.WithLabelValues(from, to).Inc()
}

// RecordAuthAttempt counts a password check outcome.
func RecordAuthAttempt(outcome string) {
	globalManager.authAttempts.WithLabelValues(outcome).Inc()
}

// RecordEvaluationSaved counts a persisted evaluation.
func RecordEvaluationSaved() {
	globalManager.evaluationsSaved.Inc()
}

// RecordEvaluationSaveError counts a failed save.
func RecordEvaluationSaveError() {
	globalManager.evaluationFailures.Inc()
}

// UpdateActiveSessions sets the active session gauge.
func UpdateActiveSessions(n int) {
	globalManager.activeSessions.Set(float64(n))
}

// RecordProcessingLatency observes the time spent on one update.
func RecordProcessingLatency(latencyMs float64) {
	globalManager.processingLatency.Observe(latencyMs)
}

// RecordUpdateReceived counts an accepted update.
func RecordUpdateReceived() {
	globalManager.updatesReceived.Inc()
}

// RecordUpdateDuplicate counts a redelivered update.
func RecordUpdateDuplicate() {
	globalManager.updatesDuplicate.Inc()
}

// RecordUpdateRejected counts an update refused by the adapter.
func RecordUpdateRejected(reason string) {
	globalManager.updatesRejected.WithLabelValues(reason).Inc()
}

// RecordDeliveryFallback counts a cosmetic delivery failure.
func RecordDeliveryFallback(op string) {
	globalManager.deliveryFallbacks.WithLabelValues(op).Inc()
}

// UpdateQueueSize sets the number of waiting jobs.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the total queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueueError counts a refused enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent counts an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes an average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry backing the package-level recorders.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
