package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/linkgate/linkgate/internal/metrics"
)

// MetricsHandler exposes in-memory metrics in Prometheus exposition format.
// Deployments that register a PrometheusRecorder serve promhttp instead;
// this handler backs the snapshot endpoint used in development.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics serves GET /metrics.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "linkgate_redirect_cache_total{result=\"hit\"} %d\n", snap.RedirectCacheHits)
	writeMetric(w, "linkgate_redirect_cache_total{result=\"miss\"} %d\n", snap.RedirectCacheMisses)
	writeLabeled(w, "linkgate_redirect_outcomes_total", "outcome", snap.RedirectOutcomes)
	writeMetric(w, "linkgate_redirect_duration_seconds_count %d\n", snap.RedirectDurationCount)
	writeMetric(w, "linkgate_redirect_duration_seconds_sum %.6f\n", float64(snap.RedirectDurationTotalNs)/1e9)

	writeLabeled(w, "linkgate_geo_lookups_total", "status", snap.GeoLookups)

	writeMetric(w, "linkgate_record_operations_total{op=\"create\"} %d\n", snap.RecordsCreated)
	writeMetric(w, "linkgate_record_operations_total{op=\"update\"} %d\n", snap.RecordsUpdated)
	writeMetric(w, "linkgate_record_operations_total{op=\"delete\"} %d\n", snap.RecordsDeleted)

	writeLabeled(w, "linkgate_tracking_published_total", "status", snap.TrackingPublished)
	writeLabeled(w, "linkgate_tracking_processed_total", "status", snap.TrackingProcessed)
	writeMetric(w, "linkgate_tracking_queue_depth %d\n", snap.TrackingQueueDepth)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// writeLabeled emits one counter line per label value, sorted for stable
// output.
func writeLabeled(w http.ResponseWriter, name, label string, counters map[string]uint64) {
	values := make([]string, 0, len(counters))
	for v := range counters {
		values = append(values, v)
	}
	sort.Strings(values)
	for _, v := range values {
		writeMetric(w, "%s{%s=%q} %d\n", name, label, v, counters[v])
	}
}
