package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/linkgate/linkgate/internal/analytics"
	"github.com/linkgate/linkgate/internal/handler/dto"
	"github.com/linkgate/linkgate/internal/session"
	"github.com/linkgate/linkgate/internal/visitor"
)

// TrackingHandler serves the public visitor endpoints: the userinfo echo and
// page view ingestion. Both assign a session cookie when none exists yet.
type TrackingHandler struct {
	visitors  *visitor.Resolver
	sessions  *session.Manager
	publisher EventPublisher
	logger    *slog.Logger
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(
	visitors *visitor.Resolver,
	sessions *session.Manager,
	publisher EventPublisher,
	logger *slog.Logger,
) *TrackingHandler {
	return &TrackingHandler{
		visitors:  visitors,
		sessions:  sessions,
		publisher: publisher,
		logger:    logger,
	}
}

// UserInfo handles POST /api/v1/userinfo. It resolves and returns the
// visitor context, including the geolocation round trip, without recording
// anything.
func (h *TrackingHandler) UserInfo(w http.ResponseWriter, r *http.Request) {
	h.sessions.GetOrCreate(w, r, time.Now().UTC())

	ctx := h.visitors.Resolve(r.Context(), r)

	writeJSON(w, http.StatusOK, ctx)
}

// PageView handles POST /api/v1/track/pageview. The observation is queued
// on the tracking stream; a 202 only promises eventual ledger application.
func (h *TrackingHandler) PageView(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	sess := h.sessions.GetOrCreate(w, r, now)

	ctx := h.visitors.Resolve(r.Context(), r)

	event := analytics.NewPageViewEvent(sess.ID, ctx, now)
	if err := analytics.ValidateTrackingEventPayload(event); err != nil {
		h.logger.Warn("pageview_rejected", "error", err)
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid page view",
			Code:  "INVALID_PAGEVIEW",
		})
		return
	}

	h.publisher.PublishAsync(event)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":     "accepted",
		"session_id": sess.ID,
	})
}
