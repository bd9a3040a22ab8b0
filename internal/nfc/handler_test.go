package nfc_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octane-tech/nfc-tracker/internal/nfc"
	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
	"github.com/octane-tech/nfc-tracker/internal/shared"
)

type stubEnqueuer struct {
	months []string
}

func (s *stubEnqueuer) EnqueuePurgeMonth(ctx context.Context, actorID int64, month string) (string, error) {
	s.months = append(s.months, month)
	return "task-1", nil
}

func newTestRouter(svc *nfc.Service, enq nfc.PurgeEnqueuer, caller shared.Identity) http.Handler {
	h := nfc.NewHandler(svc, enq, nil, 1<<20)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithIdentity(req.Context(), caller)))
		})
	})
	h.MountRoutes(r)
	r.Route("/admin", h.MountAdminRoutes)
	return r
}

func TestBalanceAndHistoryEndpoints(t *testing.T) {
	c := &clock{now: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	repo := newMemoryRepo(1)
	repo.allocate(1, 50, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))
	repo.submit(1, 5, time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC), "img")
	router := newTestRouter(newService(repo, &fakeImages{}, c, nil), nil, shared.Identity{ID: 1, Role: shared.RoleUser})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/nfc/balance", nil))
	require.Equal(t, http.StatusOK, res.Code)
	var b nfc.Balance
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &b))
	assert.Equal(t, 50, b.Available)
	assert.Equal(t, 5, b.Submitted)
	assert.Equal(t, 45, b.Remaining)

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/nfc/history?period=daily", nil))
	require.Equal(t, http.StatusOK, res.Code)
	var h nfc.History
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &h))
	assert.Len(t, h.Entries, 1)

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/nfc/history?period=hourly", nil))
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestAllocateEndpoint(t *testing.T) {
	repo := newMemoryRepo(1)
	router := newTestRouter(newService(repo, &fakeImages{}, &clock{now: time.Now()}, nil), nil, admin)

	post := func(path, body string) int {
		res := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(res, req)
		return res.Code
	}
	assert.Equal(t, http.StatusCreated, post("/admin/users/1/allocations", `{"allocated": 0}`))
	assert.Equal(t, http.StatusBadRequest, post("/admin/users/1/allocations", `{}`))
	assert.Equal(t, http.StatusBadRequest, post("/admin/users/1/allocations", `{"allocated": -4}`))
	assert.Equal(t, http.StatusNotFound, post("/admin/users/8/allocations", `{"allocated": 3}`))
	assert.Equal(t, http.StatusBadRequest, post("/admin/users/1/allocations", `{"allocated": 3000000000}`))
	assert.Equal(t, http.StatusCreated, post("/admin/users/1/allocations", `{"allocated": 2147483647}`))
	assert.Len(t, repo.allocations, 2)
}

func TestPurgeEndpoint(t *testing.T) {
	repo := newMemoryRepo(1)
	repo.submit(1, 1, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), "x")
	enq := &stubEnqueuer{}
	router := newTestRouter(newService(repo, &fakeImages{}, &clock{now: time.Now()}, nil), enq, admin)

	do := func(target string) *httptest.ResponseRecorder {
		res := httptest.NewRecorder()
		router.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, target, nil))
		return res
	}

	assert.Equal(t, http.StatusBadRequest, do("/admin/acknowledgments?month=June").Code)

	res := do("/admin/acknowledgments?month=2025-06&async=true")
	assert.Equal(t, http.StatusAccepted, res.Code)
	assert.Equal(t, []string{"2025-06"}, enq.months)
	assert.Len(t, repo.acks, 1)

	res = do("/admin/acknowledgments?month=2025-06")
	require.Equal(t, http.StatusOK, res.Code)
	var result nfc.PurgeResult
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &result))
	assert.Equal(t, int64(1), result.Deleted)
	assert.Empty(t, repo.acks)
}

func TestSubmitEndpoint(t *testing.T) {
	repo := newMemoryRepo(1)
	router := newTestRouter(newService(repo, &fakeImages{}, &clock{now: time.Now()}, nil), nil, shared.Identity{ID: 1, Role: shared.RoleUser})

	build := func(fields map[string]string, image []byte) *http.Request {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		for k, v := range fields {
			require.NoError(t, mw.WriteField(k, v))
		}
		if image != nil {
			part, err := mw.CreateFormFile("image", "proof.png")
			require.NoError(t, err)
			_, _ = part.Write(image)
		}
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/acknowledgments", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req
	}
	valid := map[string]string{
		"company_id":      "1",
		"cards_submitted": "3",
		"submission_type": "replacement",
		"delivery_method": "office_receival",
		"state_time":      "late",
	}
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	res := httptest.NewRecorder()
	router.ServeHTTP(res, build(valid, png))
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	assert.Len(t, repo.acks, 1)

	invalid := map[string]string{}
	for k, v := range valid {
		invalid[k] = v
	}
	invalid["delivery_method"] = "pigeon"
	res = httptest.NewRecorder()
	router.ServeHTTP(res, build(invalid, png))
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = httptest.NewRecorder()
	router.ServeHTTP(res, build(valid, nil))
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Len(t, repo.acks, 1)
}

func TestSubmitEndpointRejectsCardCountBeyondColumnRange(t *testing.T) {
	repo := newMemoryRepo(1)
	images := &fakeImages{}
	router := newTestRouter(newService(repo, images, &clock{now: time.Now()}, nil), nil, shared.Identity{ID: 1, Role: shared.RoleUser})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := map[string]string{
		"company_id":      "1",
		"cards_submitted": "3000000000",
		"submission_type": "replacement",
		"delivery_method": "office_receival",
		"state_time":      "late",
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("image", "proof.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/acknowledgments", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Empty(t, images.stored)
	assert.Empty(t, repo.acks)
}

type memoryKeys struct {
	claimed  map[string]bool
	released []string
}

func (m *memoryKeys) Claim(ctx context.Context, scope, key string) error {
	if m.claimed[scope+"|"+key] {
		return fmt.Errorf("%w: %w", httpx.ErrDuplicate, shared.ErrIdempotencyConflict)
	}
	m.claimed[scope+"|"+key] = true
	return nil
}

func (m *memoryKeys) Release(ctx context.Context, scope, key string) error {
	delete(m.claimed, scope+"|"+key)
	m.released = append(m.released, key)
	return nil
}

func TestSubmitEndpointIdempotencyKey(t *testing.T) {
	repo := newMemoryRepo(1)
	keys := &memoryKeys{claimed: map[string]bool{}}
	h := nfc.NewHandler(newService(repo, &fakeImages{}, &clock{now: time.Now()}, nil), nil, nil, 1<<20).WithIdempotency(keys)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithIdentity(req.Context(), shared.Identity{ID: 1, Role: shared.RoleUser})))
		})
	})
	h.MountRoutes(r)

	send := func(companyID, key string) int {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		for k, v := range map[string]string{
			"company_id":      companyID,
			"cards_submitted": "2",
			"submission_type": "new_customer",
			"delivery_method": "aramex",
			"state_time":      "on_time",
		} {
			require.NoError(t, mw.WriteField(k, v))
		}
		part, err := mw.CreateFormFile("image", "proof.png")
		require.NoError(t, err)
		_, _ = part.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/acknowledgments", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Idempotency-Key", key)
		res := httptest.NewRecorder()
		r.ServeHTTP(res, req)
		return res.Code
	}

	assert.Equal(t, http.StatusCreated, send("1", "retry-1"))
	assert.Equal(t, http.StatusConflict, send("1", "retry-1"))
	assert.Len(t, repo.acks, 1)

	assert.Equal(t, http.StatusNotFound, send("99", "retry-2"))
	assert.Equal(t, []string{"retry-2"}, keys.released)
	assert.Equal(t, http.StatusCreated, send("1", "retry-2"))
	assert.Len(t, repo.acks, 2)
}
