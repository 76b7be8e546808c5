// Package catalog provides HTTP handlers and business logic for managing
// components, component groups and component metrics of a status page.
package catalog

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
	DefaultStatusLogLimit   = 50
	MaxStatusLogLimit       = 100
	DefaultMetricPointLimit = 500
	MaxMetricPointLimit     = 5000
)

// Handler handles HTTP requests for the catalog module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new catalog handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers catalog routes. The router is expected to be
// mounted under a status page scope carrying a {pageID} URL parameter.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/groups", func(r chi.Router) {
		r.Get("/", h.ListGroups)
		r.Post("/", h.CreateGroup)
		r.Get("/{slug}", h.GetGroup)
		r.Patch("/{slug}", h.UpdateGroup)
		r.Delete("/{slug}", h.DeleteGroup)
	})

	r.Route("/components", func(r chi.Router) {
		r.Get("/", h.ListComponents)
		r.Post("/", h.CreateComponent)
		r.Route("/{slug}", func(r chi.Router) {
			r.Get("/", h.GetComponent)
			r.Patch("/", h.UpdateComponent)
			r.Delete("/", h.DeleteComponent)
			r.Put("/status", h.UpdateComponentStatus)
			r.Get("/status-log", h.GetComponentStatusLog)
			r.Get("/metrics", h.ListComponentMetrics)
			r.Post("/metrics", h.CreateComponentMetric)
		})
	})

	r.Route("/metrics/{metricID}/points", func(r chi.Router) {
		r.Get("/", h.ListMetricPoints)
		r.Post("/", h.RecordMetricPoint)
	})
}

// CreateGroupRequest represents the request body for creating a component group.
type CreateGroupRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Slug        string `json:"slug" validate:"omitempty,min=1,max=255"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

// ToDomain converts the request to a domain model.
func (r *CreateGroupRequest) ToDomain(pageID string) *domain.ComponentGroup {
	return &domain.ComponentGroup{
		PageID:      pageID,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		Order:       r.Order,
	}
}

// UpdateGroupRequest represents the request body for updating a component group.
type UpdateGroupRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Slug        string `json:"slug" validate:"required,min=1,max=255"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

// CreateComponentRequest represents the request body for creating a component.
type CreateComponentRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Slug        string  `json:"slug" validate:"omitempty,min=1,max=255"`
	Description string  `json:"description"`
	Status      string  `json:"status" validate:"omitempty,oneof=operational degraded_performance partial_outage major_outage under_maintenance"`
	GroupID     *string `json:"group_id"`
	Visible     *bool   `json:"visible"`
	Order       int     `json:"order"`
}

// ToDomain converts the request to a domain model.
func (r *CreateComponentRequest) ToDomain(pageID string) *domain.Component {
	status := domain.ComponentStatus(r.Status)
	if status == "" {
		status = domain.ComponentStatusOperational
	}

	visible := true
	if r.Visible != nil {
		visible = *r.Visible
	}

	return &domain.Component{
		PageID:      pageID,
		GroupID:     r.GroupID,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		Status:      status,
		Visible:     visible,
		Order:       r.Order,
	}
}

// UpdateComponentRequest represents the request body for updating a component.
// Status changes go through the dedicated status endpoint.
type UpdateComponentRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Slug        string  `json:"slug" validate:"required,min=1,max=255"`
	Description string  `json:"description"`
	GroupID     *string `json:"group_id"`
	Visible     *bool   `json:"visible"`
	Order       int     `json:"order"`
}

// UpdateComponentStatusRequest represents the request body for a direct
// component status change.
type UpdateComponentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=operational degraded_performance partial_outage major_outage under_maintenance"`
	Reason string `json:"reason"`
}

// CreateMetricRequest represents the request body for registering a metric.
type CreateMetricRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Description string `json:"description"`
	Suffix      string `json:"suffix" validate:"max=32"`
}

// RecordMetricPointRequest represents the request body for recording a metric value.
type RecordMetricPointRequest struct {
	Value      float64    `json:"value" validate:"required"`
	RecordedAt *time.Time `json:"recorded_at"`
}

// CreateGroup handles POST /groups request.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	group := req.ToDomain(pageID)
	if err := h.service.CreateGroup(r.Context(), group); err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, group)
}

// GetGroup handles GET /groups/{slug} request.
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")
	slug := chi.URLParam(r, "slug")

	group, err := h.service.GetGroupBySlug(r.Context(), pageID, slug)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, group)
}

// ListGroups handles GET /groups request.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")

	groups, err := h.service.ListGroups(r.Context(), pageID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, groups)
}

// UpdateGroup handles PATCH /groups/{slug} request.
func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")
	slug := chi.URLParam(r, "slug")

	existing, err := h.service.GetGroupBySlug(r.Context(), pageID, slug)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	var req UpdateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	existing.Name = req.Name
	existing.Slug = req.Slug
	existing.Description = req.Description
	existing.Order = req.Order

	if err := h.service.UpdateGroup(r.Context(), existing); err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, existing)
}

// DeleteGroup handles DELETE /groups/{slug} request.
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")
	slug := chi.URLParam(r, "slug")

	group, err := h.service.GetGroupBySlug(r.Context(), pageID, slug)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if err := h.service.DeleteGroup(r.Context(), group.ID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateComponent handles POST /components request.
func (h *Handler) CreateComponent(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")

	var req CreateComponentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	component := req.ToDomain(pageID)
	if err := h.service.CreateComponent(r.Context(), component); err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, component)
}

// GetComponent handles GET /components/{slug} request.
func (h *Handler) GetComponent(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")
	slug := chi.URLParam(r, "slug")

	component, err := h.service.GetComponentBySlug(r.Context(), pageID, slug)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, component)
}

// ListComponents handles GET /components request.
func (h *Handler) ListComponents(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")
	filter := ComponentFilter{PageID: pageID}

	if groupID := r.URL.Query().Get("group_id"); groupID != "" {
		filter.GroupID = &groupID
	}

	if status := r.URL.Query().Get("status"); status != "" {
		s := domain.ComponentStatus(status)
		if !s.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		filter.Status = &s
	}

	if r.URL.Query().Get("visible") == "true" {
		filter.VisibleOnly = true
	}

	components, err := h.service.ListComponents(r.Context(), filter)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, components)
}

// UpdateComponent handles PATCH /components/{slug} request.
func (h *Handler) UpdateComponent(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")
	slug := chi.URLParam(r, "slug")

	existing, err := h.service.GetComponentBySlug(r.Context(), pageID, slug)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	var req UpdateComponentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	existing.Name = req.Name
	existing.Slug = req.Slug
	existing.Description = req.Description
	existing.GroupID = req.GroupID
	if req.Visible != nil {
		existing.Visible = *req.Visible
	}
	existing.Order = req.Order

	if err := h.service.UpdateComponent(r.Context(), existing); err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, existing)
}

// UpdateComponentStatus handles PUT /components/{slug}/status request.
func (h *Handler) UpdateComponentStatus(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")
	slug := chi.URLParam(r, "slug")

	component, err := h.service.GetComponentBySlug(r.Context(), pageID, slug)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	var req UpdateComponentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	input := UpdateStatusInput{
		ComponentID: component.ID,
		Status:      domain.ComponentStatus(req.Status),
		Reason:      req.Reason,
		UpdatedBy:   httputil.GetUserID(r.Context()),
	}
	if err := h.service.UpdateComponentStatus(r.Context(), input); err != nil {
		h.handleServiceError(w, err)
		return
	}

	component.Status = input.Status
	httputil.Success(w, http.StatusOK, component)
}

// DeleteComponent handles DELETE /components/{slug} request.
func (h *Handler) DeleteComponent(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")
	slug := chi.URLParam(r, "slug")

	component, err := h.service.GetComponentBySlug(r.Context(), pageID, slug)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if err := h.service.DeleteComponent(r.Context(), component.ID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetComponentStatusLog handles GET /components/{slug}/status-log request.
func (h *Handler) GetComponentStatusLog(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")
	slug := chi.URLParam(r, "slug")

	component, err := h.service.GetComponentBySlug(r.Context(), pageID, slug)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	limit := DefaultStatusLogLimit
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > MaxStatusLogLimit {
			parsed = MaxStatusLogLimit
		}
		limit = parsed
	}

	if o := r.URL.Query().Get("offset"); o != "" {
		parsed, err := strconv.Atoi(o)
		if err != nil || parsed < 0 {
			httputil.Error(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = parsed
	}

	entries, total, err := h.service.ListStatusLog(r.Context(), component.ID, limit, offset)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := map[string]interface{}{
		"entries": entries,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	}

	httputil.Success(w, http.StatusOK, response)
}

// CreateComponentMetric handles POST /components/{slug}/metrics request.
func (h *Handler) CreateComponentMetric(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")
	slug := chi.URLParam(r, "slug")

	component, err := h.service.GetComponentBySlug(r.Context(), pageID, slug)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	var req CreateMetricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	metric := &domain.ComponentMetric{
		ComponentID: component.ID,
		Name:        req.Name,
		Description: req.Description,
		Suffix:      req.Suffix,
	}
	if err := h.service.CreateMetric(r.Context(), metric); err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, metric)
}

// ListComponentMetrics handles GET /components/{slug}/metrics request.
func (h *Handler) ListComponentMetrics(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")
	slug := chi.URLParam(r, "slug")

	component, err := h.service.GetComponentBySlug(r.Context(), pageID, slug)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	metrics, err := h.service.ListMetrics(r.Context(), component.ID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, metrics)
}

// RecordMetricPoint handles POST /metrics/{metricID}/points request.
func (h *Handler) RecordMetricPoint(w http.ResponseWriter, r *http.Request) {
	metricID := chi.URLParam(r, "metricID")

	var req RecordMetricPointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	point := &domain.MetricPoint{
		MetricID: metricID,
		Value:    req.Value,
	}
	if req.RecordedAt != nil {
		point.RecordedAt = *req.RecordedAt
	}

	if err := h.service.RecordMetricPoint(r.Context(), point); err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, point)
}

// ListMetricPoints handles GET /metrics/{metricID}/points request.
func (h *Handler) ListMetricPoints(w http.ResponseWriter, r *http.Request) {
	metricID := chi.URLParam(r, "metricID")

	var since, until time.Time
	if s := r.URL.Query().Get("since"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "since must be an RFC3339 timestamp")
			return
		}
		since = parsed
	}
	if u := r.URL.Query().Get("until"); u != "" {
		parsed, err := time.Parse(time.RFC3339, u)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "until must be an RFC3339 timestamp")
			return
		}
		until = parsed
	}

	limit := DefaultMetricPointLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > MaxMetricPointLimit {
			parsed = MaxMetricPointLimit
		}
		limit = parsed
	}

	points, err := h.service.ListMetricPoints(r.Context(), metricID, since, until, limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, points)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrComponentNotFound),
		errors.Is(err, ErrGroupNotFound),
		errors.Is(err, ErrMetricNotFound),
		errors.Is(err, ErrPageNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSlugExists):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidSlug),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrGroupPageMismatch):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
