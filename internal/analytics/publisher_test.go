package analytics

import (
	"strings"
	"testing"
	"time"

	"github.com/linkgate/linkgate/internal/model"
)

var testVisitor = model.VisitorContext{
	IPAddress: "203.0.113.7",
	Country:   "Germany",
	Source:    model.SourceGoogle,
	Device:    model.DeviceMobile,
	UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0)",
}

func TestNewClickEvent(t *testing.T) {
	t.Parallel()

	occurredAt := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	event := NewClickEvent("session_1_abc", 7, "https://dest.example.com/offer", 90000, testVisitor, occurredAt)

	if event.Kind != KindClick {
		t.Errorf("Kind = %q, want %q", event.Kind, KindClick)
	}
	if event.Lid != 7 {
		t.Errorf("Lid = %d, want 7", event.Lid)
	}
	if event.Link != "https://dest.example.com/offer" {
		t.Errorf("Link = %q", event.Link)
	}
	if event.TimeSpent != 90000 {
		t.Errorf("TimeSpent = %d, want 90000", event.TimeSpent)
	}
	if event.Country != "Germany" {
		t.Errorf("Country = %q, want Germany", event.Country)
	}
	if event.Source != "Google" {
		t.Errorf("Source = %q, want Google", event.Source)
	}
	if event.Device != "Mobile" {
		t.Errorf("Device = %q, want Mobile", event.Device)
	}
	if event.OccurredAt != occurredAt.UnixMilli() {
		t.Errorf("OccurredAt = %d, want %d", event.OccurredAt, occurredAt.UnixMilli())
	}

	if err := ValidateTrackingEventPayload(event); err != nil {
		t.Errorf("built click event should validate: %v", err)
	}
}

func TestNewPageViewEvent(t *testing.T) {
	t.Parallel()

	occurredAt := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	event := NewPageViewEvent("session_1_abc", testVisitor, occurredAt)

	if event.Kind != KindPageView {
		t.Errorf("Kind = %q, want %q", event.Kind, KindPageView)
	}
	if event.Lid != 0 {
		t.Errorf("Lid = %d, want 0 for page views", event.Lid)
	}
	if event.Link != "" {
		t.Errorf("Link = %q, want empty for page views", event.Link)
	}
	if event.IPAddress != testVisitor.IPAddress {
		t.Errorf("IPAddress = %q", event.IPAddress)
	}

	if err := ValidateTrackingEventPayload(event); err != nil {
		t.Errorf("built page view event should validate: %v", err)
	}
}

func TestNewClickEvent_TruncatesUserAgent(t *testing.T) {
	t.Parallel()

	visitor := testVisitor
	visitor.UserAgent = strings.Repeat("x", 600)

	event := NewClickEvent("session_1_abc", 7, "https://dest.example.com", 0, visitor, time.Now())

	if len(event.UserAgent) != 500 {
		t.Errorf("UserAgent length = %d, want 500", len(event.UserAgent))
	}
}

func TestTruncateUserAgent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantLen int
	}{
		{"short UA", "Mozilla/5.0", 11},
		{"exact 500", strings.Repeat("x", 500), 500},
		{"over 500", strings.Repeat("x", 600), 500},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := TruncateUserAgent(tt.input)
			if len(result) != tt.wantLen {
				t.Errorf("TruncateUserAgent length = %d, want %d", len(result), tt.wantLen)
			}
		})
	}
}

func TestAggregateClicks(t *testing.T) {
	t.Parallel()

	earlier := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	later := earlier.Add(5 * time.Minute)

	clicks := []*model.ClickLog{
		{SessionID: "session_1_a", ClickTime: later},
		{SessionID: "session_1_a", ClickTime: earlier},
		{SessionID: "session_2_b", ClickTime: earlier},
	}

	agg := aggregateClicks(clicks)

	if len(agg) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(agg))
	}
	if agg["session_1_a"].count != 2 {
		t.Errorf("session_1_a count = %d, want 2", agg["session_1_a"].count)
	}
	if !agg["session_1_a"].lastActive.Equal(later) {
		t.Errorf("session_1_a lastActive = %v, want %v", agg["session_1_a"].lastActive, later)
	}
	if agg["session_2_b"].count != 1 {
		t.Errorf("session_2_b count = %d, want 1", agg["session_2_b"].count)
	}
}
