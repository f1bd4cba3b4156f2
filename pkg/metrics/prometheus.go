// Package metrics provides Prometheus metrics for the eventsoft scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Subject label values.
const (
	SubjectParticipant = "participant"
	SubjectProject     = "project"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Scoring
	ratingsSubmitted    *prometheus.CounterVec
	ratingRejections    *prometheus.CounterVec
	aggregations        *prometheus.CounterVec
	aggregationLatency  *prometheus.HistogramVec
	membersPropagated   prometheus.Counter
	criterionRejections *prometheus.CounterVec
	idempotentReplays   prometheus.Counter

	// Ranking
	rankingBuilds    prometheus.Counter
	rankingBackfills *prometheus.CounterVec
	rankingLatency   prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
	errorRateByType     *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "eventsoft",
		subsystem:        "scoring",
		histogramBuckets: []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
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

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.ratingsSubmitted = auto.NewCounterVec(
		m.counterOpts("ratings_submitted_total", "Ratings written (inserted or overwritten) by subject kind"),
		[]string{"subject"},
	)
	m.ratingRejections = auto.NewCounterVec(
		m.counterOpts("rating_rejections_total", "Rating batches rejected before any write, by reason"),
		[]string{"reason"},
	)
	m.aggregations = auto.NewCounterVec(
		m.counterOpts("aggregations_total", "Score aggregations by subject kind and outcome (scored/unscored)"),
		[]string{"subject", "outcome"},
	)
	m.aggregationLatency = auto.NewHistogramVec(
		m.histogramOpts("aggregation_latency_milliseconds", "Aggregation latency including persistence"),
		[]string{"subject"},
	)
	m.membersPropagated = auto.NewCounter(
		m.counterOpts("project_members_propagated_total", "Participation records updated by project score propagation"),
	)
	m.criterionRejections = auto.NewCounterVec(
		m.counterOpts("criterion_rejections_total", "Criterion add/edit attempts rejected, by reason"),
		[]string{"reason"},
	)
	m.idempotentReplays = auto.NewCounter(
		m.counterOpts("idempotent_replays_total", "Rating batches skipped because their idempotency key was already seen"),
	)

	m.rankingBuilds = auto.NewCounter(
		m.counterOpts("ranking_builds_total", "Ranking tables built"),
	)
	m.rankingBackfills = auto.NewCounterVec(
		m.counterOpts("ranking_backfills_total", "Subjects whose missing cached score was computed while building a ranking"),
		[]string{"subject"},
	)
	m.rankingLatency = auto.NewHistogram(
		m.histogramOpts("ranking_latency_milliseconds", "Ranking build latency"),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "HTTP errors by endpoint, method and error type"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "HTTP errors by error type and severity"),
		[]string{"error_type", "severity"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_milliseconds",
		Help:        "Average GC pause",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50},
		ConstLabels: m.constLabels,
	})
}

// RecordRatingsSubmitted adds n written ratings for a subject kind.
func RecordRatingsSubmitted(subject string, n int) {
	globalManager.ratingsSubmitted.WithLabelValues(subject).Add(float64(n))
}

// RecordRatingRejection counts a rejected rating batch.
func RecordRatingRejection(reason string) {
	globalManager.ratingRejections.WithLabelValues(reason).Inc()
}

// RecordAggregation counts one aggregation and observes its latency.
func RecordAggregation(subject string, scored bool, latencyMs float64) {
	outcome := "unscored"
	if scored {
		outcome = "scored"
	}
	globalManager.aggregations.WithLabelValues(subject, outcome).Inc()
	globalManager.aggregationLatency.WithLabelValues(subject).Observe(latencyMs)
}

// RecordMembersPropagated adds the number of member rows a project score was copied to.
func RecordMembersPropagated(n int) {
	globalManager.membersPropagated.Add(float64(n))
}

// RecordCriterionRejection counts a rejected criterion add/edit.
func RecordCriterionRejection(reason string) {
	globalManager.criterionRejections.WithLabelValues(reason).Inc()
}

// RecordIdempotentReplay counts a replayed rating batch.
func RecordIdempotentReplay() {
	globalManager.idempotentReplays.Inc()
}

// RecordRankingBuild counts a ranking build and observes its latency.
func RecordRankingBuild(latencyMs float64) {
	globalManager.rankingBuilds.Inc()
	globalManager.rankingLatency.Observe(latencyMs)
}

// RecordRankingBackfill counts a lazily computed score.
func RecordRankingBackfill(subject string) {
	globalManager.rankingBackfills.WithLabelValues(subject).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
