package subscriptions

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/signalboard/signalboard/internal/domain"
	"github.com/signalboard/signalboard/internal/pkg/httputil"
)

// PageResolver maps a public page slug to the page itself.
type PageResolver interface {
	GetPageBySlug(ctx context.Context, slug string) (*domain.StatusPage, error)
}

// Handler handles HTTP requests for subscriptions.
type Handler struct {
	service   *Service
	pages     PageResolver
	validator *validator.Validate
}

// NewHandler creates a new subscriptions handler.
func NewHandler(service *Service, pages PageResolver) *Handler {
	return &Handler{
		service:   service,
		pages:     pages,
		validator: validator.New(),
	}
}

// RegisterPublicRoutes registers the unauthenticated subscribe and
// unsubscribe endpoints.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/pages/{slug}/subscribers", h.Subscribe)
	r.Delete("/subscribers/{token}", h.Unsubscribe)
}

// RegisterPageRoutes registers the page-scoped admin routes.
func (h *Handler) RegisterPageRoutes(r chi.Router) {
	r.Get("/subscribers", h.ListSubscribers)
}

// SubscribeRequest represents the request body for subscribing to a page.
type SubscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// SubscribeResponse carries the token the caller needs to unsubscribe later.
type SubscribeResponse struct {
	UnsubscribeToken string `json:"unsubscribe_token"`
}

// Subscribe handles POST /public/pages/{slug}/subscribers request.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	page, err := h.pages.GetPageBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil || !page.IsPublic {
		httputil.Error(w, http.StatusNotFound, ErrPageNotFound.Error())
		return
	}

	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	sub, err := h.service.Subscribe(r.Context(), page.ID, req.Email)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, SubscribeResponse{UnsubscribeToken: sub.UnsubscribeToken})
}

// Unsubscribe handles DELETE /public/subscribers/{token} request.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Unsubscribe(r.Context(), chi.URLParam(r, "token")); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListSubscribers handles GET /pages/{pageID}/subscribers request.
func (h *Handler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.ListSubscribers(r.Context(), chi.URLParam(r, "pageID"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, subs)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSubscriberNotFound), errors.Is(err, ErrPageNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadySubscribed):
		httputil.Error(w, http.StatusConflict, err.Error())
	default:
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
