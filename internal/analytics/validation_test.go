package analytics

import (
	"strings"
	"testing"
	"time"
)

func validClick() TrackingEventPayload {
	return TrackingEventPayload{
		Kind:       KindClick,
		SessionID:  "session_1700000000000_abc123def",
		Lid:        7,
		Link:       "https://dest.example.com/offer",
		TimeSpent:  90000,
		IPAddress:  "203.0.113.7",
		Country:    "Germany",
		Source:     "Google",
		Device:     "Desktop",
		UserAgent:  "Mozilla/5.0",
		OccurredAt: time.Now().UnixMilli(),
	}
}

func validPageView() TrackingEventPayload {
	return TrackingEventPayload{
		Kind:       KindPageView,
		SessionID:  "session_1700000000000_abc123def",
		IPAddress:  "203.0.113.7",
		Country:    "Germany",
		Source:     "direct",
		Device:     "Mobile",
		OccurredAt: time.Now().UnixMilli(),
	}
}

func TestValidateTrackingEventPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*TrackingEventPayload)
		wantErr bool
	}{
		{"valid click", func(p *TrackingEventPayload) {}, false},
		{"unknown kind", func(p *TrackingEventPayload) { p.Kind = "impression" }, true},
		{"empty kind", func(p *TrackingEventPayload) { p.Kind = "" }, true},
		{"missing session", func(p *TrackingEventPayload) { p.SessionID = "" }, true},
		{"bad session prefix", func(p *TrackingEventPayload) { p.SessionID = "sess-123" }, true},
		{"session too long", func(p *TrackingEventPayload) {
			p.SessionID = "session_" + strings.Repeat("a", maxSessionIDLength)
		}, true},
		{"missing timestamp", func(p *TrackingEventPayload) { p.OccurredAt = 0 }, true},
		{"zero lid on click", func(p *TrackingEventPayload) { p.Lid = 0 }, true},
		{"negative lid on click", func(p *TrackingEventPayload) { p.Lid = -3 }, true},
		{"missing link on click", func(p *TrackingEventPayload) { p.Link = "" }, true},
		{"negative time spent", func(p *TrackingEventPayload) { p.TimeSpent = -1 }, true},
		{"zero time spent is fine", func(p *TrackingEventPayload) { p.TimeSpent = 0 }, false},
		{"user agent too long", func(p *TrackingEventPayload) {
			p.UserAgent = strings.Repeat("x", maxMetaLength+1)
		}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			payload := validClick()
			tt.mutate(&payload)

			err := ValidateTrackingEventPayload(payload)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTrackingEventPayload() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTrackingEventPayload_PageView(t *testing.T) {
	t.Parallel()

	// Page views carry no link fields; their absence must not fail validation.
	payload := validPageView()
	if err := ValidateTrackingEventPayload(payload); err != nil {
		t.Errorf("valid page view rejected: %v", err)
	}
}
