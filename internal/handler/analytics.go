package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/linkgate/linkgate/internal/handler/dto"
	"github.com/linkgate/linkgate/internal/repository"
)

// defaultListLimit bounds admin listings when no limit is given.
const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// AnalyticsHandler serves the admin ledger surface: session and click
// listings plus the irreversible purges.
type AnalyticsHandler struct {
	repo   *repository.Repository
	logger *slog.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(repo *repository.Repository, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		repo:   repo,
		logger: logger.With("component", "handler.analytics"),
	}
}

// ListSessions handles GET /api/v1/admin/sessions.
// Optional filters: country, source; limit caps the page size.
func (h *AnalyticsHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := repository.SessionFilter{
		Country: query.Get("country"),
		Source:  query.Get("source"),
	}

	sessions, err := h.repo.ListSessions(r.Context(), filter, parseLimit(query.Get("limit")))
	if err != nil {
		h.logger.Error("failed to list sessions", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list sessions")
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionListResponse{
		Data:  sessions,
		Total: len(sessions),
	})
}

// GetSession handles GET /api/v1/admin/sessions/{session_id}.
func (h *AnalyticsHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_SESSION_ID", "Session ID is required")
		return
	}

	sess, err := h.repo.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			h.writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found")
			return
		}
		h.logger.Error("failed to get session", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get session")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// ListClicks handles GET /api/v1/admin/clicks, newest first.
func (h *AnalyticsHandler) ListClicks(w http.ResponseWriter, r *http.Request) {
	clicks, err := h.repo.ListClicks(r.Context(), parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		h.logger.Error("failed to list clicks", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list clicks")
		return
	}

	writeJSON(w, http.StatusOK, dto.ClickListResponse{
		Data:  clicks,
		Total: len(clicks),
	})
}

// PurgeSessions handles DELETE /api/v1/admin/sessions. Irreversible.
func (h *AnalyticsHandler) PurgeSessions(w http.ResponseWriter, r *http.Request) {
	purged, err := h.repo.PurgeSessions(r.Context())
	if err != nil {
		h.logger.Error("failed to purge sessions", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to purge sessions")
		return
	}

	h.logger.Info("sessions_purged", "count", purged)

	writeJSON(w, http.StatusOK, dto.PurgeResponse{Purged: purged})
}

// PurgeClicks handles DELETE /api/v1/admin/clicks. Irreversible.
func (h *AnalyticsHandler) PurgeClicks(w http.ResponseWriter, r *http.Request) {
	purged, err := h.repo.PurgeClicks(r.Context())
	if err != nil {
		h.logger.Error("failed to purge clicks", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to purge clicks")
		return
	}

	h.logger.Info("clicks_purged", "count", purged)

	writeJSON(w, http.StatusOK, dto.PurgeResponse{Purged: purged})
}

// parseLimit parses a limit query parameter, clamped to (0, maxListLimit].
func parseLimit(raw string) int {
	if raw == "" {
		return defaultListLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// writeError writes a JSON error response.
func (h *AnalyticsHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
