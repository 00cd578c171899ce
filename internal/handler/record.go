package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linkgate/linkgate/internal/handler/dto"
	"github.com/linkgate/linkgate/internal/middleware"
	"github.com/linkgate/linkgate/internal/service"
)

// RecordHandler handles the admin registry CRUD and the public results
// listing.
type RecordHandler struct {
	svc     *service.RegistryService
	baseURL string
	logger  *slog.Logger
}

// NewRecordHandler creates a new RecordHandler. baseURL is the public origin
// used to build /lid/{lid} URLs in responses.
func NewRecordHandler(svc *service.RegistryService, baseURL string, logger *slog.Logger) *RecordHandler {
	return &RecordHandler{
		svc:     svc,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Create handles POST /api/v1/records.
func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := middleware.ValidateGroupPage(req.GroupPage); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_GROUP_PAGE", err.Error())
		return
	}

	record, err := h.svc.CreateRecord(r.Context(), service.CreateRecordInput{
		Lid:              req.Lid,
		SiteName:         req.SiteName,
		Title:            req.Title,
		Description:      req.Description,
		LogoURL:          req.LogoURL,
		DestinationURL:   req.DestinationURL,
		FallbackURL:      req.FallbackURL,
		IsWorldwide:      req.IsWorldwide,
		AllowedCountries: req.AllowedCountries,
		IsSponsored:      req.IsSponsored,
		GroupPage:        req.GroupPage,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("record_created",
		"lid", record.Lid,
		"site_name", record.SiteName,
		"worldwide", record.IsWorldwide,
	)

	writeJSON(w, http.StatusCreated, dto.ToRecordResponse(record, h.baseURL))
}

// Get handles GET /api/v1/records/{lid}.
func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	lid, err := middleware.ParseLid(chi.URLParam(r, "lid"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_LID", "Lid must be a positive integer")
		return
	}

	record, err := h.svc.GetRecord(r.Context(), lid)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToRecordResponse(record, h.baseURL))
}

// List handles GET /api/v1/records.
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.ListRecords(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToRecordListResponse(records, h.baseURL))
}

// Update handles PATCH /api/v1/records/{lid}.
func (h *RecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	lid, err := middleware.ParseLid(chi.URLParam(r, "lid"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_LID", "Lid must be a positive integer")
		return
	}

	var req dto.UpdateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if req.GroupPage != nil {
		if err := middleware.ValidateGroupPage(*req.GroupPage); err != nil {
			h.writeError(w, http.StatusBadRequest, "INVALID_GROUP_PAGE", err.Error())
			return
		}
	}

	record, err := h.svc.UpdateRecord(r.Context(), service.UpdateRecordInput{
		Lid:              lid,
		SiteName:         req.SiteName,
		Title:            req.Title,
		Description:      req.Description,
		LogoURL:          req.LogoURL,
		DestinationURL:   req.DestinationURL,
		FallbackURL:      req.FallbackURL,
		IsWorldwide:      req.IsWorldwide,
		AllowedCountries: req.AllowedCountries,
		IsSponsored:      req.IsSponsored,
		GroupPage:        req.GroupPage,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("record_updated", "lid", record.Lid)

	writeJSON(w, http.StatusOK, dto.ToRecordResponse(record, h.baseURL))
}

// Delete handles DELETE /api/v1/records/{lid}.
func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	lid, err := middleware.ParseLid(chi.URLParam(r, "lid"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_LID", "Lid must be a positive integer")
		return
	}

	if err := h.svc.DeleteRecord(r.Context(), lid); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("record_deleted", "lid", lid)

	w.WriteHeader(http.StatusNoContent)
}

// Results handles GET /api/v1/results/{page}, the public listing of a group
// page with sponsored entries first. Routing policy is not exposed.
func (h *RecordHandler) Results(w http.ResponseWriter, r *http.Request) {
	page := chi.URLParam(r, "page")
	if err := middleware.ValidateGroupPage(page); err != nil || page == "" {
		h.writeError(w, http.StatusBadRequest, "INVALID_PAGE", "Invalid page key")
		return
	}

	records, err := h.svc.ListByPage(r.Context(), page)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToResultsResponse(page, records, h.baseURL))
}

// handleServiceError maps registry errors to HTTP responses.
func (h *RecordHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrRecordNotFound):
		h.writeError(w, http.StatusNotFound, "RECORD_NOT_FOUND", "Record not found")
	case errors.Is(err, service.ErrLidExists):
		h.writeError(w, http.StatusConflict, "LID_TAKEN", "Lid already exists")
	case errors.Is(err, service.ErrInvalidDestination):
		h.writeError(w, http.StatusBadRequest, "INVALID_DESTINATION", "Invalid destination URL")
	case errors.Is(err, service.ErrInvalidFallback):
		h.writeError(w, http.StatusBadRequest, "INVALID_FALLBACK", "Invalid fallback URL")
	case errors.Is(err, service.ErrInvalidLogo):
		h.writeError(w, http.StatusBadRequest, "INVALID_LOGO", "Invalid logo URL")
	case errors.Is(err, service.ErrURLTooLong):
		h.writeError(w, http.StatusBadRequest, "URL_TOO_LONG", "Destination URL exceeds maximum length")
	case errors.Is(err, service.ErrUnreachablePolicy):
		h.writeError(w, http.StatusUnprocessableEntity, "UNREACHABLE_POLICY",
			"Record needs a worldwide flag, an allowed country, or a fallback URL")
	default:
		h.logger.Error("internal_error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes an error response.
func (h *RecordHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
