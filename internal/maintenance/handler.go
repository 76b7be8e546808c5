// Package maintenance provides HTTP handlers and business logic for
// scheduled maintenance windows.
package maintenance

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/signalboard/signalboard/internal/domain"
	"github.com/signalboard/signalboard/internal/pkg/httputil"
)

// Handler handles HTTP requests for the maintenance module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new maintenance handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers maintenance routes. The router is expected to
// be mounted under a status page scope carrying a {pageID} URL parameter.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/maintenance", func(r chi.Router) {
		r.Get("/", h.ListWindows)
		r.Post("/", h.CreateWindow)
		r.Route("/{windowID}", func(r chi.Router) {
			r.Get("/", h.GetWindow)
			r.Patch("/", h.UpdateWindow)
			r.Delete("/", h.DeleteWindow)
		})
	})
}

// CreateWindowRequest represents the request body for scheduling maintenance.
type CreateWindowRequest struct {
	Title        string    `json:"title" validate:"required,min=1,max=255"`
	Body         string    `json:"body"`
	Status       string    `json:"status" validate:"omitempty,oneof=scheduled in_progress completed"`
	StartsAt     time.Time `json:"starts_at" validate:"required"`
	EndsAt       time.Time `json:"ends_at" validate:"required"`
	ComponentIDs []string  `json:"component_ids"`
}

// UpdateWindowRequest represents the request body for editing maintenance.
type UpdateWindowRequest struct {
	Title        string    `json:"title" validate:"required,min=1,max=255"`
	Body         string    `json:"body"`
	Status       string    `json:"status" validate:"required,oneof=scheduled in_progress completed"`
	StartsAt     time.Time `json:"starts_at" validate:"required"`
	EndsAt       time.Time `json:"ends_at" validate:"required"`
	ComponentIDs []string  `json:"component_ids"`
}

// CreateWindow handles POST /maintenance request.
func (h *Handler) CreateWindow(w http.ResponseWriter, r *http.Request) {
	var req CreateWindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	input := CreateWindowInput{
		PageID:       chi.URLParam(r, "pageID"),
		Title:        req.Title,
		Body:         req.Body,
		Status:       domain.MaintenanceStatus(req.Status),
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		ComponentIDs: req.ComponentIDs,
	}

	window, err := h.service.CreateWindow(r.Context(), input, httputil.GetUserID(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, window)
}

// GetWindow handles GET /maintenance/{windowID} request.
func (h *Handler) GetWindow(w http.ResponseWriter, r *http.Request) {
	window, err := h.service.GetWindow(r.Context(), chi.URLParam(r, "windowID"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, window)
}

// ListWindows handles GET /maintenance request.
func (h *Handler) ListWindows(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")

	if r.URL.Query().Get("upcoming") == "true" {
		windows, err := h.service.ListUpcomingWindows(r.Context(), pageID)
		if err != nil {
			h.handleServiceError(w, err)
			return
		}
		httputil.Success(w, http.StatusOK, windows)
		return
	}

	filter := WindowFilter{PageID: pageID}
	if status := r.URL.Query().Get("status"); status != "" {
		s := domain.MaintenanceStatus(status)
		if !s.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		filter.Status = &s
	}

	windows, err := h.service.ListWindows(r.Context(), filter)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, windows)
}

// UpdateWindow handles PATCH /maintenance/{windowID} request.
func (h *Handler) UpdateWindow(w http.ResponseWriter, r *http.Request) {
	var req UpdateWindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	input := UpdateWindowInput{
		WindowID:     chi.URLParam(r, "windowID"),
		Title:        req.Title,
		Body:         req.Body,
		Status:       domain.MaintenanceStatus(req.Status),
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		ComponentIDs: req.ComponentIDs,
	}

	window, err := h.service.UpdateWindow(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, window)
}

// DeleteWindow handles DELETE /maintenance/{windowID} request.
func (h *Handler) DeleteWindow(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteWindow(r.Context(), chi.URLParam(r, "windowID")); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrWindowNotFound), errors.Is(err, ErrPageNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidSchedule),
		errors.Is(err, ErrComponentNotOnPage):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
