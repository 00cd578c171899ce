package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/linkgate/linkgate/internal/analytics"
	"github.com/linkgate/linkgate/internal/model"
	"github.com/linkgate/linkgate/internal/session"
	"github.com/linkgate/linkgate/internal/visitor"
)

func newTrackingHandler(publisher EventPublisher) *TrackingHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTrackingHandler(
		visitor.NewResolver(nil),
		session.NewManager(false),
		publisher,
		logger,
	)
}

func TestUserInfo(t *testing.T) {
	t.Parallel()

	h := newTrackingHandler(&capturePublisher{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/userinfo", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0)")
	req.Header.Set("Referer", "https://www.google.com/search?q=offers")
	rec := httptest.NewRecorder()

	h.UserInfo(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var ctx model.VisitorContext
	if err := json.NewDecoder(rec.Body).Decode(&ctx); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if ctx.IPAddress != "198.51.100.4" {
		t.Errorf("ip = %q, want first forwarded entry", ctx.IPAddress)
	}
	if ctx.Device != model.DeviceMobile {
		t.Errorf("device = %q, want Mobile", ctx.Device)
	}
	if ctx.Source != model.SourceGoogle {
		t.Errorf("source = %q, want Google", ctx.Source)
	}
	// No geo resolver configured
	if ctx.Country != model.CountryUnknown {
		t.Errorf("country = %q, want Unknown", ctx.Country)
	}
}

func TestUserInfo_SetsSessionCookie(t *testing.T) {
	t.Parallel()

	h := newTrackingHandler(&capturePublisher{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/userinfo", nil)
	rec := httptest.NewRecorder()

	h.UserInfo(rec, req)

	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.TokenCookie && strings.HasPrefix(c.Value, "session_") {
			found = true
		}
	}
	if !found {
		t.Error("session cookie not set on first visit")
	}
}

func TestPageView(t *testing.T) {
	t.Parallel()

	publisher := &capturePublisher{}
	h := newTrackingHandler(publisher)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/track/pageview", nil)
	req.Header.Set("X-Real-IP", "203.0.113.20")
	rec := httptest.NewRecorder()

	h.PageView(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "accepted" {
		t.Errorf("status field = %q", body["status"])
	}
	if !strings.HasPrefix(body["session_id"], "session_") {
		t.Errorf("session_id = %q, want session_ prefix", body["session_id"])
	}

	if len(publisher.events) != 1 {
		t.Fatalf("published %d events, want 1", len(publisher.events))
	}
	event := publisher.events[0]
	if event.Kind != analytics.KindPageView {
		t.Errorf("kind = %q, want %q", event.Kind, analytics.KindPageView)
	}
	if event.IPAddress != "203.0.113.20" {
		t.Errorf("ip = %q", event.IPAddress)
	}
	if event.SessionID != body["session_id"] {
		t.Errorf("event session %q != response session %q", event.SessionID, body["session_id"])
	}
}

func TestPageView_ReusesExistingSession(t *testing.T) {
	t.Parallel()

	publisher := &capturePublisher{}
	h := newTrackingHandler(publisher)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/track/pageview", nil)
	req.AddCookie(&http.Cookie{Name: session.TokenCookie, Value: "session_1700000000000_abcdef123"})
	rec := httptest.NewRecorder()

	h.PageView(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("published %d events, want 1", len(publisher.events))
	}
	if got := publisher.events[0].SessionID; got != "session_1700000000000_abcdef123" {
		t.Errorf("session id = %q, want the cookie value", got)
	}
	if cookies := rec.Result().Cookies(); len(cookies) != 0 {
		t.Errorf("expected no new cookies, got %d", len(cookies))
	}
}
