package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	RedirectCacheHits       uint64
	RedirectCacheMisses     uint64
	RedirectOutcomes        map[string]uint64
	RedirectDurationCount   uint64
	RedirectDurationTotalNs int64
	GeoLookups              map[string]uint64
	RecordsCreated          uint64
	RecordsUpdated          uint64
	RecordsDeleted          uint64
	TrackingPublished       map[string]uint64
	TrackingProcessed       map[string]uint64
	TrackingQueueDepth      int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	redirectCacheHits       uint64
	redirectCacheMisses     uint64
	redirectDurationCount   uint64
	redirectDurationTotalNs int64
	recordsCreated          uint64
	recordsUpdated          uint64
	recordsDeleted          uint64
	trackingQueueDepth      int64

	mu                sync.Mutex
	redirectOutcomes  map[string]uint64
	geoLookups        map[string]uint64
	trackingPublished map[string]uint64
	trackingProcessed map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		redirectOutcomes:  make(map[string]uint64),
		geoLookups:        make(map[string]uint64),
		trackingPublished: make(map[string]uint64),
		trackingProcessed: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		RedirectCacheHits:       atomic.LoadUint64(&m.redirectCacheHits),
		RedirectCacheMisses:     atomic.LoadUint64(&m.redirectCacheMisses),
		RedirectOutcomes:        copyCounters(m.redirectOutcomes),
		RedirectDurationCount:   atomic.LoadUint64(&m.redirectDurationCount),
		RedirectDurationTotalNs: atomic.LoadInt64(&m.redirectDurationTotalNs),
		GeoLookups:              copyCounters(m.geoLookups),
		RecordsCreated:          atomic.LoadUint64(&m.recordsCreated),
		RecordsUpdated:          atomic.LoadUint64(&m.recordsUpdated),
		RecordsDeleted:          atomic.LoadUint64(&m.recordsDeleted),
		TrackingPublished:       copyCounters(m.trackingPublished),
		TrackingProcessed:       copyCounters(m.trackingProcessed),
		TrackingQueueDepth:      atomic.LoadInt64(&m.trackingQueueDepth),
	}
}

// IncRedirectCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncRedirectCacheHit() {
	atomic.AddUint64(&m.redirectCacheHits, 1)
}

// IncRedirectCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncRedirectCacheMiss() {
	atomic.AddUint64(&m.redirectCacheMisses, 1)
}

// IncRedirectOutcome increments the counter for one redirect outcome.
func (m *InMemoryRecorder) IncRedirectOutcome(outcome string) {
	m.mu.Lock()
	m.redirectOutcomes[outcome]++
	m.mu.Unlock()
}

// ObserveRedirectDuration records redirect duration.
func (m *InMemoryRecorder) ObserveRedirectDuration(duration time.Duration) {
	atomic.AddUint64(&m.redirectDurationCount, 1)
	atomic.AddInt64(&m.redirectDurationTotalNs, duration.Nanoseconds())
}

// IncGeoLookup increments the geolocation lookup counter for a status.
func (m *InMemoryRecorder) IncGeoLookup(status string) {
	m.mu.Lock()
	m.geoLookups[status]++
	m.mu.Unlock()
}

// IncRecordCreated increments record created counter.
func (m *InMemoryRecorder) IncRecordCreated() {
	atomic.AddUint64(&m.recordsCreated, 1)
}

// IncRecordUpdated increments record updated counter.
func (m *InMemoryRecorder) IncRecordUpdated() {
	atomic.AddUint64(&m.recordsUpdated, 1)
}

// IncRecordDeleted increments record deleted counter.
func (m *InMemoryRecorder) IncRecordDeleted() {
	atomic.AddUint64(&m.recordsDeleted, 1)
}

// IncTrackingEventPublished increments the publish counter for a status.
func (m *InMemoryRecorder) IncTrackingEventPublished(status string) {
	m.mu.Lock()
	m.trackingPublished[status]++
	m.mu.Unlock()
}

// IncTrackingEventProcessed increments the processed counter for a status.
func (m *InMemoryRecorder) IncTrackingEventProcessed(status string) {
	m.mu.Lock()
	m.trackingProcessed[status]++
	m.mu.Unlock()
}

// ObserveTrackingBatchSize is recorded only in aggregate counters.
func (m *InMemoryRecorder) ObserveTrackingBatchSize(size int) {}

// ObserveTrackingBatchDuration is recorded only in aggregate counters.
func (m *InMemoryRecorder) ObserveTrackingBatchDuration(duration time.Duration) {}

// SetTrackingQueueDepth records the current stream depth.
func (m *InMemoryRecorder) SetTrackingQueueDepth(depth int64) {
	atomic.StoreInt64(&m.trackingQueueDepth, depth)
}

// ObserveTrackingIngestLag is recorded only in aggregate counters.
func (m *InMemoryRecorder) ObserveTrackingIngestLag(lag time.Duration) {}

func copyCounters(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
