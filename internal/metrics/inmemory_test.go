package metrics

import (
	"testing"
	"time"
)

func TestInMemoryRecorder_Counters(t *testing.T) {
	t.Parallel()

	m := NewInMemory()

	m.IncRedirectCacheHit()
	m.IncRedirectCacheHit()
	m.IncRedirectCacheMiss()
	m.IncRedirectOutcome("direct")
	m.IncRedirectOutcome("fallback")
	m.IncRedirectOutcome("direct")
	m.ObserveRedirectDuration(5 * time.Millisecond)
	m.IncGeoLookup("success")
	m.IncGeoLookup("failed")
	m.IncRecordCreated()
	m.IncTrackingEventPublished("dropped")
	m.IncTrackingEventProcessed("success")
	m.SetTrackingQueueDepth(17)

	snap := m.Snapshot()

	if snap.RedirectCacheHits != 2 {
		t.Errorf("RedirectCacheHits = %d, want 2", snap.RedirectCacheHits)
	}
	if snap.RedirectCacheMisses != 1 {
		t.Errorf("RedirectCacheMisses = %d, want 1", snap.RedirectCacheMisses)
	}
	if snap.RedirectOutcomes["direct"] != 2 {
		t.Errorf("RedirectOutcomes[direct] = %d, want 2", snap.RedirectOutcomes["direct"])
	}
	if snap.RedirectDurationCount != 1 {
		t.Errorf("RedirectDurationCount = %d, want 1", snap.RedirectDurationCount)
	}
	if snap.GeoLookups["failed"] != 1 {
		t.Errorf("GeoLookups[failed] = %d, want 1", snap.GeoLookups["failed"])
	}
	if snap.RecordsCreated != 1 {
		t.Errorf("RecordsCreated = %d, want 1", snap.RecordsCreated)
	}
	if snap.TrackingPublished["dropped"] != 1 {
		t.Errorf("TrackingPublished[dropped] = %d, want 1", snap.TrackingPublished["dropped"])
	}
	if snap.TrackingQueueDepth != 17 {
		t.Errorf("TrackingQueueDepth = %d, want 17", snap.TrackingQueueDepth)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncRedirectOutcome("direct")

	snap := m.Snapshot()
	snap.RedirectOutcomes["direct"] = 99

	if got := m.Snapshot().RedirectOutcomes["direct"]; got != 1 {
		t.Errorf("mutating a snapshot leaked into the recorder: got %d, want 1", got)
	}
}
