package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncRedirectCacheHit is a no-op.
func (n *NoopRecorder) IncRedirectCacheHit() {}

// IncRedirectCacheMiss is a no-op.
func (n *NoopRecorder) IncRedirectCacheMiss() {}

// IncRedirectOutcome is a no-op.
func (n *NoopRecorder) IncRedirectOutcome(outcome string) {}

// ObserveRedirectDuration is a no-op.
func (n *NoopRecorder) ObserveRedirectDuration(duration time.Duration) {}

// IncGeoLookup is a no-op.
func (n *NoopRecorder) IncGeoLookup(status string) {}

// IncRecordCreated is a no-op.
func (n *NoopRecorder) IncRecordCreated() {}

// IncRecordUpdated is a no-op.
func (n *NoopRecorder) IncRecordUpdated() {}

// IncRecordDeleted is a no-op.
func (n *NoopRecorder) IncRecordDeleted() {}

// IncTrackingEventPublished is a no-op.
func (n *NoopRecorder) IncTrackingEventPublished(status string) {}

// IncTrackingEventProcessed is a no-op.
func (n *NoopRecorder) IncTrackingEventProcessed(status string) {}

// ObserveTrackingBatchSize is a no-op.
func (n *NoopRecorder) ObserveTrackingBatchSize(size int) {}

// ObserveTrackingBatchDuration is a no-op.
func (n *NoopRecorder) ObserveTrackingBatchDuration(duration time.Duration) {}

// SetTrackingQueueDepth is a no-op.
func (n *NoopRecorder) SetTrackingQueueDepth(depth int64) {}

// ObserveTrackingIngestLag is a no-op.
func (n *NoopRecorder) ObserveTrackingIngestLag(lag time.Duration) {}
