package users

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/octane-tech/nfc-tracker/internal/imagestore"
	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
	"github.com/octane-tech/nfc-tracker/internal/shared"
)

// Handler manages account endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	maxUpload int64
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, maxUpload int64) *Handler {
	return &Handler{logger: logger, service: service, maxUpload: maxUpload}
}

// MountRoutes registers routes for the authenticated caller.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/users/me", h.me)
	r.Put("/users/me/avatar", h.updateAvatar)
}

// MountAdminRoutes registers account management routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/users", h.list)
	r.Post("/users/{id}/suspend", h.suspend)
	r.Post("/users/{id}/activate", h.activate)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	caller, err := shared.Caller(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.Profile(r.Context(), caller.ID)
	if err != nil {
		h.fail(w, "load profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) updateAvatar(w http.ResponseWriter, r *http.Request) {
	caller, err := shared.Caller(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	upload, err := imagestore.FormImage(r, "image", h.maxUpload)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.UpdateAvatar(r.Context(), caller.ID, upload)
	if err != nil {
		h.fail(w, "update avatar", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageParams(r.URL.Query())
	result, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) suspend(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.service.Suspend)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.service.Activate)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request, apply func(context.Context, shared.Identity, int64) (*StatusChange, error)) {
	caller, err := shared.Caller(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	change, err := apply(r.Context(), caller, id)
	if err != nil {
		h.fail(w, "change user status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, change)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
