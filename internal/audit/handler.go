package audit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
	"github.com/octane-tech/nfc-tracker/internal/shared"
)

// Handler serves the audit timeline to admins.
type Handler struct {
	service *Service
	loc     *time.Location
	logger  *slog.Logger
}

// NewHandler constructs the handler. Date filters are read in loc.
func NewHandler(service *Service, loc *time.Location, logger *slog.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{service: service, loc: loc, logger: logger}
}

// MountAdminRoutes registers the timeline route.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/audit-logs", h.timeline)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) parseFilters(r *http.Request) (TimelineFilters, error) {
	q := r.URL.Query()
	filters := TimelineFilters{
		Entity: q.Get("entity"),
		Action: q.Get("action"),
	}
	if raw := q.Get("from"); raw != "" {
		from, err := shared.ParseDate(raw, h.loc)
		if err != nil {
			return filters, fmt.Errorf("%w: from: %w", httpx.ErrValidation, err)
		}
		filters.From = from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := shared.ParseDate(raw, h.loc)
		if err != nil {
			return filters, fmt.Errorf("%w: to: %w", httpx.ErrValidation, err)
		}
		filters.To = endOfDay(to)
	}
	if raw := q.Get("actor_id"); raw != "" {
		id, err := httpx.ParseID(raw)
		if err != nil {
			return filters, err
		}
		filters.ActorID = id
	}
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.PageSize, _ = strconv.Atoi(q.Get("page_size"))
	return filters, nil
}
