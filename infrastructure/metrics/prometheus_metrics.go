// Package metrics exports operational metrics of the index service to
// Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-aipi/internal/ports"
)

const namespace = "aipi"

// PrometheusMetrics implements ports.MetricsCollector. Known metric names
// map to dedicated vectors; anything else lands in a generic vector keyed
// by the metric name.
type PrometheusMetrics struct {
	operationLatency *prometheus.HistogramVec
	datasetRows      *prometheus.CounterVec
	cacheRequests    *prometheus.CounterVec
	sourceRequests   *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	events           *prometheus.CounterVec
	indexProviders   prometheus.Gauge
	circuitState     *prometheus.GaugeVec
	payloadBytes     prometheus.Gauge
	gauges           *prometheus.GaugeVec
	providerScore    *prometheus.HistogramVec
	sourceLatency    *prometheus.HistogramVec
	httpLatency      *prometheus.HistogramVec
	observations     *prometheus.HistogramVec
}

// NewPrometheusMetrics creates the metric vectors and registers them with
// reg. A nil reg uses the default registerer.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &PrometheusMetrics{
		operationLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of index operations such as aggregation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		datasetRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_rows_total",
			Help:      "Dataset rows read, by whether they were kept or why they were skipped.",
		}, []string{"result"}),
		cacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_cache_requests_total",
			Help:      "Index cache lookups by result.",
		}, []string{"result"}),
		sourceRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Dataset fetches by outcome.",
		}, []string{"status"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by route and status code.",
		}, []string{"route", "code"}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Counters without a dedicated metric.",
		}, []string{"metric"}),
		indexProviders: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_providers",
			Help:      "Providers in the current index.",
		}),
		circuitState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_circuit_state",
			Help:      "Source circuit breaker state: 0 closed, 1 open, 2 half-open.",
		}, []string{"location"}),
		payloadBytes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_payload_bytes",
			Help:      "Size of the last fetched dataset.",
		}),
		gauges: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Gauges without a dedicated metric.",
		}, []string{"metric"}),
		providerScore: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_score",
			Help:      "Distribution of provider AIPI scores in the current index.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}, []string{"mode"}),
		sourceLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_seconds",
			Help:      "Dataset fetch latency by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		httpLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		observations: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "observations",
			Help:      "Histograms without a dedicated metric.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"metric"}),
	}
}

// RecordLatency observes duration in the operation latency histogram.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, _ map[string]string) {
	pm.operationLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter adds value to the counter named metric.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "dataset_rows_total":
		pm.datasetRows.WithLabelValues(label(labels, "result")).Add(value)
	case "index_cache_requests_total":
		pm.cacheRequests.WithLabelValues(label(labels, "result")).Add(value)
	case "source_requests_total":
		pm.sourceRequests.WithLabelValues(label(labels, "status")).Add(value)
	case "http_requests_total":
		pm.httpRequests.WithLabelValues(label(labels, "route"), label(labels, "code")).Add(value)
	default:
		pm.events.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge sets the gauge named metric.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	switch metric {
	case "index_providers":
		pm.indexProviders.Set(value)
	case "source_circuit_state":
		pm.circuitState.WithLabelValues(label(labels, "location")).Set(value)
	case "source_payload_bytes":
		pm.payloadBytes.Set(value)
	default:
		pm.gauges.WithLabelValues(metric).Set(value)
	}
}

// RecordHistogram observes value in the histogram named metric.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case "provider_aipi":
		pm.providerScore.WithLabelValues(label(labels, "mode")).Observe(value)
	case "source_fetch_seconds":
		pm.sourceLatency.WithLabelValues(label(labels, "status")).Observe(value)
	case "http_request_duration_seconds":
		pm.httpLatency.WithLabelValues(label(labels, "route")).Observe(value)
	default:
		pm.observations.WithLabelValues(metric).Observe(value)
	}
}

func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return "unknown"
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
