package nfc

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/octane-tech/nfc-tracker/internal/imagestore"
	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
	"github.com/octane-tech/nfc-tracker/internal/shared"
)

// PurgeEnqueuer schedules a month purge on the background worker.
type PurgeEnqueuer interface {
	EnqueuePurgeMonth(ctx context.Context, actorID int64, month string) (string, error)
}

// KeyClaimer de-duplicates client retries carrying an Idempotency-Key header.
type KeyClaimer interface {
	Claim(ctx context.Context, scope, key string) error
	Release(ctx context.Context, scope, key string) error
}

// Handler exposes balance, history, acknowledgment and allocation endpoints.
type Handler struct {
	service   *Service
	enqueuer  PurgeEnqueuer
	keys      KeyClaimer
	validator *httpx.Validator
	logger    *slog.Logger
	maxUpload int64
}

// NewHandler constructs the handler. enqueuer may be nil, in which case
// async purges are rejected.
func NewHandler(service *Service, enqueuer PurgeEnqueuer, logger *slog.Logger, maxUpload int64) *Handler {
	return &Handler{
		service:   service,
		enqueuer:  enqueuer,
		validator: httpx.NewValidator(),
		logger:    logger,
		maxUpload: maxUpload,
	}
}

// WithIdempotency enables Idempotency-Key handling on submissions.
func (h *Handler) WithIdempotency(keys KeyClaimer) *Handler {
	h.keys = keys
	return h
}

// MountRoutes registers routes for the authenticated caller.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/nfc/balance", h.myBalance)
	r.Get("/nfc/history", h.myHistory)
	r.Post("/acknowledgments", h.submit)
}

// MountAdminRoutes registers admin routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/users/{id}/balance", h.userBalance)
	r.Get("/users/{id}/history", h.userHistory)
	r.Post("/users/{id}/allocations", h.allocate)
	r.Delete("/acknowledgments", h.purgeMonth)
}

func (h *Handler) myBalance(w http.ResponseWriter, r *http.Request) {
	caller, err := shared.Caller(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.writeBalance(w, r, caller.ID)
}

func (h *Handler) userBalance(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.writeBalance(w, r, id)
}

func (h *Handler) writeBalance(w http.ResponseWriter, r *http.Request, userID int64) {
	balance, err := h.service.Balance(r.Context(), userID)
	if err != nil {
		h.fail(w, "balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}

func (h *Handler) myHistory(w http.ResponseWriter, r *http.Request) {
	caller, err := shared.Caller(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	period := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("period")))
	if period == "" {
		period = PeriodMonthly
	}
	history, err := h.service.History(r.Context(), caller.ID, period)
	if err != nil {
		h.fail(w, "history", err)
		return
	}
	httpx.JSON(w, http.StatusOK, history)
}

func (h *Handler) userHistory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	history, err := h.service.HistorySinceAllocation(r.Context(), id)
	if err != nil {
		h.fail(w, "history since allocation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, history)
}

type allocateRequest struct {
	Allocated *int `json:"allocated" validate:"required,gte=0,lte=2147483647"`
}

func (h *Handler) allocate(w http.ResponseWriter, r *http.Request) {
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
	var req allocateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	allocation, err := h.service.Allocate(r.Context(), caller, id, *req.Allocated)
	if err != nil {
		h.fail(w, "allocate", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, allocation)
}

type submissionForm struct {
	CompanyID      int64  `form:"company_id" validate:"required,gt=0"`
	CardsSubmitted int    `form:"cards_submitted" validate:"required,gt=0,lte=2147483647"`
	SubmissionType string `form:"submission_type" validate:"required,oneof=replacement existing_customer new_customer"`
	DeliveryMethod string `form:"delivery_method" validate:"required,oneof=office_receival octane_employee aramex"`
	StateTime      string `form:"state_time" validate:"required,oneof=on_time late"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	caller, err := shared.Caller(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "expected multipart form data")
		return
	}
	form := submissionForm{
		CompanyID:      parseInt64(r.FormValue("company_id")),
		CardsSubmitted: int(parseInt64(r.FormValue("cards_submitted"))),
		SubmissionType: strings.TrimSpace(r.FormValue("submission_type")),
		DeliveryMethod: strings.TrimSpace(r.FormValue("delivery_method")),
		StateTime:      strings.TrimSpace(r.FormValue("state_time")),
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	upload, err := imagestore.FormImage(r, "image", h.maxUpload)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	scope := "acknowledgment:" + strconv.FormatInt(caller.ID, 10)
	if key != "" && h.keys != nil {
		if err := h.keys.Claim(r.Context(), scope, key); err != nil {
			h.fail(w, "claim idempotency key", err)
			return
		}
	}
	ack, err := h.service.Submit(r.Context(), caller.ID, Submission{
		CompanyID:      form.CompanyID,
		CardsSubmitted: form.CardsSubmitted,
		SubmissionType: form.SubmissionType,
		DeliveryMethod: form.DeliveryMethod,
		StateTime:      form.StateTime,
		Image:          upload,
	})
	if err != nil {
		if key != "" && h.keys != nil {
			if relErr := h.keys.Release(context.WithoutCancel(r.Context()), scope, key); relErr != nil && h.logger != nil {
				h.logger.Warn("release idempotency key", slog.Any("error", relErr))
			}
		}
		h.fail(w, "submit acknowledgment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ack)
}

func (h *Handler) purgeMonth(w http.ResponseWriter, r *http.Request) {
	caller, err := shared.Caller(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	if _, err := shared.ParseMonth(month, h.service.loc); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		if h.enqueuer == nil {
			httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "background worker not configured")
			return
		}
		taskID, err := h.enqueuer.EnqueuePurgeMonth(r.Context(), caller.ID, month)
		if err != nil {
			h.fail(w, "enqueue purge", err)
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]string{"month": month, "task_id": taskID})
		return
	}
	result, err := h.service.PurgeMonth(r.Context(), caller, month)
	if err != nil {
		h.fail(w, "purge month", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func parseInt64(raw string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	return n
}
