package companies

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
	"github.com/octane-tech/nfc-tracker/internal/shared"
)

// Handler exposes company endpoints.
type Handler struct {
	service   *Service
	logger    *slog.Logger
	maxUpload int64
}

// NewHandler constructs the handler.
func NewHandler(service *Service, logger *slog.Logger, maxUpload int64) *Handler {
	return &Handler{service: service, logger: logger, maxUpload: maxUpload}
}

// MountRoutes registers read routes for authenticated users.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/companies", h.list)
}

// MountAdminRoutes registers the bulk import route.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Post("/companies/import", h.importFile)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	companies, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list companies", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, companies)
}

func (h *Handler) importFile(w http.ResponseWriter, r *http.Request) {
	caller, err := shared.Caller(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	mode, err := ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "expected multipart form with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "file is required")
		return
	}
	defer file.Close()

	result, err := h.service.Import(r.Context(), caller, header.Filename, file, mode)
	if err != nil {
		h.logger.Warn("import companies", slog.String("file", header.Filename), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
