// Package statuspages provides HTTP handlers and business logic for
// organizations, status pages and the public page overview.
package statuspages

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/signalboard/signalboard/internal/domain"
	"github.com/signalboard/signalboard/internal/pkg/httputil"
)

// Handler handles HTTP requests for the status pages module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new status pages handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers the administrative organization and page routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orgs", func(r chi.Router) {
		r.Get("/", h.ListOrgs)
		r.Post("/", h.CreateOrg)
		r.Route("/{orgSlug}", func(r chi.Router) {
			r.Get("/", h.GetOrg)
			r.Patch("/", h.UpdateOrg)
			r.Delete("/", h.DeleteOrg)
			r.Get("/pages", h.ListPages)
			r.Post("/pages", h.CreatePage)
		})
	})
}

// RegisterPageRoutes registers page-scoped admin routes.
func (h *Handler) RegisterPageRoutes(r chi.Router) {
	r.Get("/", h.GetPage)
	r.Patch("/", h.UpdatePage)
	r.Delete("/", h.DeletePage)
	r.Get("/overview", h.AdminOverview)
}

// RegisterPublicRoutes registers the unauthenticated public surface.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/pages/{slug}", h.PublicOverview)
}

// CreateOrgRequest represents the request body for creating an organization.
type CreateOrgRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
	Slug string `json:"slug" validate:"omitempty,min=1,max=255"`
}

// UpdateOrgRequest represents the request body for updating an organization.
type UpdateOrgRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
	Slug string `json:"slug" validate:"required,min=1,max=255"`
}

// CreatePageRequest represents the request body for creating a status page.
type CreatePageRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Slug     string `json:"slug" validate:"omitempty,min=1,max=255"`
	IsPublic *bool  `json:"is_public"`
}

// UpdatePageRequest represents the request body for updating a status page.
type UpdatePageRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Slug     string `json:"slug" validate:"required,min=1,max=255"`
	IsPublic *bool  `json:"is_public"`
}

// CreateOrg handles POST /orgs request.
func (h *Handler) CreateOrg(w http.ResponseWriter, r *http.Request) {
	var req CreateOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	org := &domain.Organization{Name: req.Name, Slug: req.Slug}
	if err := h.service.CreateOrg(r.Context(), org); err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, org)
}

// GetOrg handles GET /orgs/{orgSlug} request.
func (h *Handler) GetOrg(w http.ResponseWriter, r *http.Request) {
	org, err := h.service.GetOrgBySlug(r.Context(), chi.URLParam(r, "orgSlug"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, org)
}

// ListOrgs handles GET /orgs request.
func (h *Handler) ListOrgs(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.service.ListOrgs(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, orgs)
}

// UpdateOrg handles PATCH /orgs/{orgSlug} request.
func (h *Handler) UpdateOrg(w http.ResponseWriter, r *http.Request) {
	org, err := h.service.GetOrgBySlug(r.Context(), chi.URLParam(r, "orgSlug"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	var req UpdateOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	org.Name = req.Name
	org.Slug = req.Slug

	if err := h.service.UpdateOrg(r.Context(), org); err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, org)
}

// DeleteOrg handles DELETE /orgs/{orgSlug} request.
func (h *Handler) DeleteOrg(w http.ResponseWriter, r *http.Request) {
	org, err := h.service.GetOrgBySlug(r.Context(), chi.URLParam(r, "orgSlug"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if err := h.service.DeleteOrg(r.Context(), org.ID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreatePage handles POST /orgs/{orgSlug}/pages request.
func (h *Handler) CreatePage(w http.ResponseWriter, r *http.Request) {
	org, err := h.service.GetOrgBySlug(r.Context(), chi.URLParam(r, "orgSlug"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	var req CreatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	page := &domain.StatusPage{
		OrgID:    org.ID,
		Name:     req.Name,
		Slug:     req.Slug,
		IsPublic: isPublic,
	}
	if err := h.service.CreatePage(r.Context(), page); err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, page)
}

// ListPages handles GET /orgs/{orgSlug}/pages request.
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	org, err := h.service.GetOrgBySlug(r.Context(), chi.URLParam(r, "orgSlug"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	pages, err := h.service.ListPages(r.Context(), org.ID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, pages)
}

// GetPage handles GET /pages/{pageID} request.
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.GetPageByID(r.Context(), chi.URLParam(r, "pageID"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, page)
}

// UpdatePage handles PATCH /pages/{pageID} request.
func (h *Handler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.GetPageByID(r.Context(), chi.URLParam(r, "pageID"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	var req UpdatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	page.Name = req.Name
	page.Slug = req.Slug
	if req.IsPublic != nil {
		page.IsPublic = *req.IsPublic
	}

	if err := h.service.UpdatePage(r.Context(), page); err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, page)
}

// DeletePage handles DELETE /pages/{pageID} request.
func (h *Handler) DeletePage(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePage(r.Context(), chi.URLParam(r, "pageID")); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AdminOverview handles GET /pages/{pageID}/overview request.
func (h *Handler) AdminOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.AdminOverview(r.Context(), chi.URLParam(r, "pageID"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, overview)
}

// PublicOverview handles GET /public/pages/{slug} request.
func (h *Handler) PublicOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.Overview(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, overview)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrOrgNotFound), errors.Is(err, ErrPageNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSlugExists):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidSlug):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
