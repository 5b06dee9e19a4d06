package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ReadsDenied          *prometheus.CounterVec
	WritesDenied         *prometheus.CounterVec
	AggregationsDenied   prometheus.Counter
	TagValidationRejects *prometheus.CounterVec
	VocabularyMigrations *prometheus.CounterVec
	RequestLatency       *prometheus.HistogramVec
	AggregationLatency   *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ReadsDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchfund_entity_reads_denied_total",
			Help: "Entity reads masked as not-found because the role lacked permission",
		}, []string{"kind"}),
		WritesDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchfund_entity_writes_denied_total",
			Help: "Entity writes rejected with access denied",
		}, []string{"kind"}),
		AggregationsDenied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pitchfund_aggregations_denied_total",
			Help: "Secure aggregation calls rejected before executing the join",
		}),
		TagValidationRejects: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchfund_tag_validation_rejects_total",
			Help: "Tag arrays rejected by the taxonomy engine",
		}, []string{"field", "reason"}),
		VocabularyMigrations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchfund_vocabulary_migrations_total",
			Help: "Completed vocabulary migrations by operation",
		}, []string{"field", "operation"}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pitchfund_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		AggregationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pitchfund_aggregation_duration_seconds",
			Help:    "Secure aggregation execution latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"aggregation"}),
	}
}
