package reports

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
)

// Handler serves the admin report endpoint.
type Handler struct {
	service  *Service
	renderer PDFRenderer
	logger   *slog.Logger
}

// NewHandler constructs the handler. renderer may be nil, in which case PDF
// exports respond with 502.
func NewHandler(service *Service, renderer PDFRenderer, logger *slog.Logger) *Handler {
	return &Handler{service: service, renderer: renderer, logger: logger}
}

// MountAdminRoutes registers report routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/reports/acknowledgments", h.acknowledgments)
}

var contentTypes = map[string]string{
	FormatCSV:  "text/csv; charset=utf-8",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatPDF:  "application/pdf",
}

func (h *Handler) acknowledgments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	format := strings.ToLower(strings.TrimSpace(query.Get("format")))
	if format == "" {
		format = FormatJSON
	}
	if _, ok := contentTypes[format]; !ok && format != FormatJSON {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "format must be one of json, csv, xlsx, pdf")
		return
	}

	report, err := h.service.Acknowledgments(r.Context(), query.Get("from"), query.Get("to"))
	if err != nil {
		h.logger.Warn("acknowledgment report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if format == FormatJSON {
		httpx.JSON(w, http.StatusOK, report)
		return
	}

	loc := h.service.Location()
	var buf bytes.Buffer
	switch format {
	case FormatCSV:
		err = WriteCSV(&buf, report, loc)
	case FormatXLSX:
		err = WriteXLSX(&buf, report, loc)
	case FormatPDF:
		err = WritePDF(r.Context(), &buf, h.renderer, report, loc)
	}
	if err != nil {
		h.logger.Error("export acknowledgment report", slog.String("format", format), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	filename := fmt.Sprintf("acknowledgments_%s_%s.%s", report.From, report.To, format)
	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
