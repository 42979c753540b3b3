// Package metrics provides Prometheus metrics for the autorole service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Intake
	requestsEnqueued *prometheus.CounterVec
	requestsRejected *prometheus.CounterVec

	// Queue
	queueDepth      *prometheus.GaugeVec
	queueProcessing *prometheus.GaugeVec
	queueWait       prometheus.Histogram

	// Pipeline
	requestsProcessed      *prometheus.CounterVec
	requestDuration        prometheus.Histogram
	acquisitionLatency     prometheus.Histogram
	acquisitionErrors      *prometheus.CounterVec
	reconciliationErrors   *prometheus.CounterVec
	roleMutations          *prometheus.CounterVec
	highScoreNotifications prometheus.Counter
	notificationErrors     *prometheus.CounterVec

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

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "autorole",
		subsystem:        "roles",
		histogramBuckets: []float64{5, 25, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.requestsEnqueued = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "requests_enqueued_total",
		Help:        "Role requests accepted into a guild queue",
		ConstLabels: m.constLabels,
	}, []string{"started"})

	m.requestsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "requests_rejected_total",
		Help:        "Role requests rejected before queueing, by reason",
		ConstLabels: m.constLabels,
	}, []string{"reason"})

	m.queueDepth = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_depth",
		Help:        "Requests waiting behind the active one, per guild",
		ConstLabels: m.constLabels,
	}, []string{"guild"})

	m.queueProcessing = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_processing",
		Help:        "1 while a guild queue has a request in flight",
		ConstLabels: m.constLabels,
	}, []string{"guild"})

	m.queueWait = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_wait_milliseconds",
		Help:        "Time between submission and start of processing",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.requestsProcessed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "requests_processed_total",
		Help:        "Requests that left the queue, by outcome",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.requestDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "request_duration_milliseconds",
		Help:        "End-to-end processing time of a request",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.acquisitionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "acquisition_latency_milliseconds",
		Help:        "Profile snapshot acquisition latency",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.acquisitionErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "acquisition_errors_total",
		Help:        "Profile acquisition failures, by kind",
		ConstLabels: m.constLabels,
	}, []string{"kind"})

	m.reconciliationErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "reconciliation_errors_total",
		Help:        "Reconciliation rejections, by kind",
		ConstLabels: m.constLabels,
	}, []string{"kind"})

	m.roleMutations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "role_mutations_total",
		Help:        "Role add/remove calls, by operation and result",
		ConstLabels: m.constLabels,
	}, []string{"op", "result"})

	m.highScoreNotifications = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "high_score_notifications_total",
		Help:        "Moderator notifications emitted for 200+ WPM roles",
		ConstLabels: m.constLabels,
	})

	m.notificationErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "notification_errors_total",
		Help:        "Failed deliveries of requester or moderator messages",
		ConstLabels: m.constLabels,
	}, []string{"kind"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "HTTP requests by endpoint, method and status",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_component_total",
		Help:        "Errors by component and type",
		ConstLabels: m.constLabels,
	}, []string{"component", "error_type"})
}

// RecordRequestEnqueued counts an accepted request.
func RecordRequestEnqueued(startedImmediately bool) {
	started := "false"
	if startedImmediately {
		started = "true"
	}
	globalManager.requestsEnqueued.WithLabelValues(started).Inc()
}

// RecordRequestRejected counts a request refused at intake.
func RecordRequestRejected(reason string) {
	globalManager.requestsRejected.WithLabelValues(reason).Inc()
}

// UpdateQueueDepth sets the number of pending requests of a guild queue.
func UpdateQueueDepth(guild string, depth int) {
	globalManager.queueDepth.WithLabelValues(guild).Set(float64(depth))
}

// UpdateQueueProcessing flags whether a guild queue is busy.
func UpdateQueueProcessing(guild string, processing bool) {
	v := 0.0
	if processing {
		v = 1
	}
	globalManager.queueProcessing.WithLabelValues(guild).Set(v)
}

// RecordQueueWait records how long a request waited before processing.
func RecordQueueWait(latencyMs float64) {
	globalManager.queueWait.Observe(latencyMs)
}

// RecordRequestProcessed counts a finished request by outcome.
func RecordRequestProcessed(outcome string) {
	globalManager.requestsProcessed.WithLabelValues(outcome).Inc()
}

// RecordRequestDuration records end-to-end processing time.
func RecordRequestDuration(latencyMs float64) {
	globalManager.requestDuration.Observe(latencyMs)
}

// RecordAcquisitionLatency records snapshot acquisition latency.
func RecordAcquisitionLatency(latencyMs float64) {
	globalManager.acquisitionLatency.Observe(latencyMs)
}

// RecordAcquisitionError counts a classified acquisition failure.
func RecordAcquisitionError(kind string) {
	globalManager.acquisitionErrors.WithLabelValues(kind).Inc()
}

// RecordReconciliationError counts a reconciliation rejection.
func RecordReconciliationError(kind string) {
	globalManager.reconciliationErrors.WithLabelValues(kind).Inc()
}

// RecordRoleMutation counts a role add/remove attempt.
func RecordRoleMutation(op, result string) {
	globalManager.roleMutations.WithLabelValues(op, result).Inc()
}

// RecordHighScoreNotification counts a moderator notification.
func RecordHighScoreNotification() {
	globalManager.highScoreNotifications.Inc()
}

// RecordNotificationError counts a failed message delivery.
func RecordNotificationError(kind string) {
	globalManager.notificationErrors.WithLabelValues(kind).Inc()
}

// RecordHTTPRequest increments the HTTP request counter.
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
