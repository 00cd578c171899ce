// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Redirect metrics
	IncRedirectCacheHit()
	IncRedirectCacheMiss()
	IncRedirectOutcome(outcome string) // outcome: "direct", "fallback", "root"
	ObserveRedirectDuration(duration time.Duration)

	// Geolocation metrics
	IncGeoLookup(status string) // status: "success", "failed", "skipped"

	// Registry management metrics
	IncRecordCreated()
	IncRecordUpdated()
	IncRecordDeleted()

	// Tracking pipeline metrics
	IncTrackingEventPublished(status string) // status: "success" or "dropped"
	IncTrackingEventProcessed(status string) // status: "success", "failed", "skipped"
	ObserveTrackingBatchSize(size int)
	ObserveTrackingBatchDuration(duration time.Duration)
	SetTrackingQueueDepth(depth int64)
	ObserveTrackingIngestLag(lag time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
