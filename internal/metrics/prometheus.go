package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder exposes metrics through a Prometheus registry.
type PrometheusRecorder struct {
	redirectCache    *prometheus.CounterVec
	redirectOutcome  *prometheus.CounterVec
	redirectDuration prometheus.Histogram
	geoLookups       *prometheus.CounterVec
	recordOps        *prometheus.CounterVec
	trackingPub      *prometheus.CounterVec
	trackingProc     *prometheus.CounterVec
	trackingBatch    prometheus.Histogram
	trackingBatchDur prometheus.Histogram
	trackingDepth    prometheus.Gauge
	trackingLag      prometheus.Histogram
}

// NewPrometheus returns a Recorder registered on the given registerer.
// Pass prometheus.DefaultRegisterer for the standard /metrics endpoint.
func NewPrometheus(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		redirectCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "linkgate_redirect_cache_total",
			Help: "Redirect registry lookups by cache result",
		}, []string{"result"}), // result: "hit", "miss"

		redirectOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "linkgate_redirect_outcomes_total",
			Help: "Redirect decisions by outcome",
		}, []string{"outcome"}), // outcome: "direct", "fallback", "root"

		redirectDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "linkgate_redirect_duration_seconds",
			Help:    "Duration of redirect resolution including geolocation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		geoLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "linkgate_geo_lookups_total",
			Help: "Geolocation lookups by status",
		}, []string{"status"}), // status: "success", "failed", "skipped"

		recordOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "linkgate_record_operations_total",
			Help: "Link registry write operations",
		}, []string{"op"}), // op: "created", "updated", "deleted"

		trackingPub: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "linkgate_tracking_published_total",
			Help: "Tracking events published to the stream by status",
		}, []string{"status"}),

		trackingProc: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "linkgate_tracking_processed_total",
			Help: "Tracking events applied to the ledger by status",
		}, []string{"status"}),

		trackingBatch: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "linkgate_tracking_batch_size",
			Help:    "Number of events per consumed stream batch",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),

		trackingBatchDur: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "linkgate_tracking_batch_duration_seconds",
			Help:    "Duration of applying one stream batch to the ledger",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		trackingDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "linkgate_tracking_queue_depth",
			Help: "Current length of the tracking event stream",
		}),

		trackingLag: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "linkgate_tracking_ingest_lag_seconds",
			Help:    "Age of events when applied to the ledger",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}),
	}
}

// IncRedirectCacheHit records a registry cache hit.
func (p *PrometheusRecorder) IncRedirectCacheHit() {
	p.redirectCache.WithLabelValues("hit").Inc()
}

// IncRedirectCacheMiss records a registry cache miss.
func (p *PrometheusRecorder) IncRedirectCacheMiss() {
	p.redirectCache.WithLabelValues("miss").Inc()
}

// IncRedirectOutcome records one redirect decision outcome.
func (p *PrometheusRecorder) IncRedirectOutcome(outcome string) {
	p.redirectOutcome.WithLabelValues(outcome).Inc()
}

// ObserveRedirectDuration records redirect resolution duration.
func (p *PrometheusRecorder) ObserveRedirectDuration(duration time.Duration) {
	p.redirectDuration.Observe(duration.Seconds())
}

// IncGeoLookup records one geolocation lookup.
func (p *PrometheusRecorder) IncGeoLookup(status string) {
	p.geoLookups.WithLabelValues(status).Inc()
}

// IncRecordCreated records a registry create.
func (p *PrometheusRecorder) IncRecordCreated() {
	p.recordOps.WithLabelValues("created").Inc()
}

// IncRecordUpdated records a registry update.
func (p *PrometheusRecorder) IncRecordUpdated() {
	p.recordOps.WithLabelValues("updated").Inc()
}

// IncRecordDeleted records a registry delete.
func (p *PrometheusRecorder) IncRecordDeleted() {
	p.recordOps.WithLabelValues("deleted").Inc()
}

// IncTrackingEventPublished records a stream publish attempt.
func (p *PrometheusRecorder) IncTrackingEventPublished(status string) {
	p.trackingPub.WithLabelValues(status).Inc()
}

// IncTrackingEventProcessed records a ledger apply attempt.
func (p *PrometheusRecorder) IncTrackingEventProcessed(status string) {
	p.trackingProc.WithLabelValues(status).Inc()
}

// ObserveTrackingBatchSize records the size of one consumed batch.
func (p *PrometheusRecorder) ObserveTrackingBatchSize(size int) {
	p.trackingBatch.Observe(float64(size))
}

// ObserveTrackingBatchDuration records how long one batch took to apply.
func (p *PrometheusRecorder) ObserveTrackingBatchDuration(duration time.Duration) {
	p.trackingBatchDur.Observe(duration.Seconds())
}

// SetTrackingQueueDepth records the current stream length.
func (p *PrometheusRecorder) SetTrackingQueueDepth(depth int64) {
	p.trackingDepth.Set(float64(depth))
}

// ObserveTrackingIngestLag records the event age at apply time.
func (p *PrometheusRecorder) ObserveTrackingIngestLag(lag time.Duration) {
	p.trackingLag.Observe(lag.Seconds())
}
