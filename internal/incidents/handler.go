// Package incidents provides HTTP handlers and business logic for
// incidents and their progress updates.
package incidents

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/signalboard/signalboard/internal/domain"
	"github.com/signalboard/signalboard/internal/pkg/httputil"
)

// Pagination constants.
const (
	DefaultIncidentsLimit = 20
	MaxIncidentsLimit     = 100
)

// Handler handles HTTP requests for the incidents module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers incident routes. The router is expected to be
// mounted under a status page scope carrying a {pageID} URL parameter.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/incidents", func(r chi.Router) {
		r.Get("/", h.ListIncidents)
		r.Post("/", h.CreateIncident)
		r.Route("/{incidentID}", func(r chi.Router) {
			r.Get("/", h.GetIncident)
			r.Patch("/", h.UpdateIncident)
			r.Delete("/", h.DeleteIncident)
			r.Get("/updates", h.ListUpdates)
			r.Post("/updates", h.AddUpdate)
		})
	})
}

// CreateIncidentRequest represents the request body for creating an incident.
type CreateIncidentRequest struct {
	Title        string     `json:"title" validate:"required,min=1,max=255"`
	Status       string     `json:"status" validate:"required,oneof=investigating identified monitoring resolved"`
	Impact       string     `json:"impact" validate:"required,oneof=none minor major critical"`
	Body         string     `json:"body"`
	StartedAt    *time.Time `json:"started_at"`
	ComponentIDs []string   `json:"component_ids"`
}

// UpdateIncidentRequest represents the request body for editing an incident.
type UpdateIncidentRequest struct {
	Title  string `json:"title" validate:"required,min=1,max=255"`
	Status string `json:"status" validate:"required,oneof=investigating identified monitoring resolved"`
	Impact string `json:"impact" validate:"required,oneof=none minor major critical"`
	Body   string `json:"body"`
}

// AddUpdateRequest represents the request body for appending a progress update.
type AddUpdateRequest struct {
	Title  string `json:"title" validate:"max=255"`
	Body   string `json:"body" validate:"required"`
	Status string `json:"status" validate:"required,oneof=investigating identified monitoring resolved"`
}

// CreateIncident handles POST /incidents request.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")

	var req CreateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	input := CreateIncidentInput{
		PageID:       pageID,
		Title:        req.Title,
		Status:       domain.IncidentStatus(req.Status),
		Impact:       domain.IncidentImpact(req.Impact),
		Body:         req.Body,
		StartedAt:    req.StartedAt,
		ComponentIDs: req.ComponentIDs,
	}

	incident, err := h.service.CreateIncident(r.Context(), input, httputil.GetUserID(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, incident)
}

// GetIncident handles GET /incidents/{incidentID} request.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	incident, err := h.service.GetIncident(r.Context(), chi.URLParam(r, "incidentID"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// ListIncidents handles GET /incidents request.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	filter := IncidentFilter{
		PageID: chi.URLParam(r, "pageID"),
		Limit:  DefaultIncidentsLimit,
	}

	if status := r.URL.Query().Get("status"); status != "" {
		s := domain.IncidentStatus(status)
		if !s.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		filter.Status = &s
	}

	switch r.URL.Query().Get("state") {
	case "":
	case "active":
		resolved := false
		filter.Resolved = &resolved
	case "resolved":
		resolved := true
		filter.Resolved = &resolved
	default:
		httputil.Error(w, http.StatusBadRequest, "state must be 'active' or 'resolved'")
		return
	}

	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > MaxIncidentsLimit {
			parsed = MaxIncidentsLimit
		}
		filter.Limit = parsed
	}

	if o := r.URL.Query().Get("offset"); o != "" {
		parsed, err := strconv.Atoi(o)
		if err != nil || parsed < 0 {
			httputil.Error(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = parsed
	}

	incidents, total, err := h.service.ListIncidents(r.Context(), filter)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := map[string]interface{}{
		"incidents": incidents,
		"total":     total,
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	}

	httputil.Success(w, http.StatusOK, response)
}

// UpdateIncident handles PATCH /incidents/{incidentID} request.
func (h *Handler) UpdateIncident(w http.ResponseWriter, r *http.Request) {
	var req UpdateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	input := UpdateIncidentInput{
		IncidentID: chi.URLParam(r, "incidentID"),
		Title:      req.Title,
		Status:     domain.IncidentStatus(req.Status),
		Impact:     domain.IncidentImpact(req.Impact),
		Body:       req.Body,
	}

	incident, err := h.service.UpdateIncident(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// DeleteIncident handles DELETE /incidents/{incidentID} request.
func (h *Handler) DeleteIncident(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteIncident(r.Context(), chi.URLParam(r, "incidentID")); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddUpdate handles POST /incidents/{incidentID}/updates request.
func (h *Handler) AddUpdate(w http.ResponseWriter, r *http.Request) {
	var req AddUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	input := AddUpdateInput{
		IncidentID: chi.URLParam(r, "incidentID"),
		Title:      req.Title,
		Body:       req.Body,
		Status:     domain.IncidentStatus(req.Status),
	}

	update, err := h.service.AddUpdate(r.Context(), input, httputil.GetUserID(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, update)
}

// ListUpdates handles GET /incidents/{incidentID}/updates request.
func (h *Handler) ListUpdates(w http.ResponseWriter, r *http.Request) {
	updates, err := h.service.ListUpdates(r.Context(), chi.URLParam(r, "incidentID"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, updates)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrIncidentNotFound), errors.Is(err, ErrPageNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrIncidentNotResolved):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidImpact),
		errors.Is(err, ErrComponentNotOnPage):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
