package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/octane-tech/nfc-tracker/internal/auth"
	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
	"github.com/octane-tech/nfc-tracker/internal/shared"
	_ "github.com/octane-tech/nfc-tracker/testing"
)

type memoryRepo struct {
	byID   map[int64]*auth.Account
	nextID int64
}

func newMemoryRepo(accounts ...*auth.Account) *memoryRepo {
	repo := &memoryRepo{byID: map[int64]*auth.Account{}, nextID: 1}
	for _, acc := range accounts {
		repo.byID[acc.ID] = acc
		if acc.ID >= repo.nextID {
			repo.nextID = acc.ID + 1
		}
	}
	return repo
}

func (m *memoryRepo) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	for _, acc := range m.byID {
		if acc.Email == email {
			return acc, nil
		}
	}
	return nil, httpx.ErrNotFound
}

func (m *memoryRepo) FindByID(ctx context.Context, id int64) (*auth.Account, error) {
	acc, ok := m.byID[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return acc, nil
}

func (m *memoryRepo) Create(ctx context.Context, in auth.NewAccount) (*auth.Account, error) {
	acc := &auth.Account{
		ID:           m.nextID,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Role:         shared.RoleUser,
		Status:       auth.StatusActive,
	}
	m.byID[acc.ID] = acc
	m.nextID++
	return acc, nil
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	out, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(out)
}

func newService(repo auth.Repository) (*auth.Service, *auth.Tokens) {
	tokens := auth.NewTokens("test-secret", time.Hour)
	return auth.NewService(repo, tokens, "octane-tech.io"), tokens
}

func TestSignupRules(t *testing.T) {
	existing := &auth.Account{ID: 7, Name: "Existing", Email: "taken@octane-tech.io", Role: shared.RoleUser, Status: auth.StatusActive}
	cases := []struct {
		name    string
		in      auth.SignupInput
		wantErr error
	}{
		{name: "short name", in: auth.SignupInput{Name: "Abe", Email: "abe@octane-tech.io", Password: "longenough"}, wantErr: httpx.ErrValidation},
		{name: "short password", in: auth.SignupInput{Name: "Abigail", Email: "abi@octane-tech.io", Password: "123456"}, wantErr: httpx.ErrValidation},
		{name: "foreign domain", in: auth.SignupInput{Name: "Abigail", Email: "abi@example.com", Password: "longenough"}, wantErr: httpx.ErrValidation},
		{name: "existing email", in: auth.SignupInput{Name: "Abigail", Email: "taken@octane-tech.io", Password: "longenough"}, wantErr: httpx.ErrDuplicate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newService(newMemoryRepo(existing))
			_, err := svc.Signup(context.Background(), tc.in)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestSignupIssuesVerifiableToken(t *testing.T) {
	repo := newMemoryRepo()
	svc, tokens := newService(repo)

	sess, err := svc.Signup(context.Background(), auth.SignupInput{Name: "Mariam", Email: " Mariam@Octane-Tech.io ", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.Equal(t, "mariam@octane-tech.io", sess.User.Email)
	assert.Equal(t, shared.RoleUser, sess.User.Role)

	id, err := tokens.Verify(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, id)

	stored, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cretpass")))
}

func TestLogin(t *testing.T) {
	active := &auth.Account{ID: 1, Name: "Active", Email: "active@octane-tech.io", PasswordHash: hashed(t, "correctpass"), Role: shared.RoleUser, Status: auth.StatusActive}
	suspended := &auth.Account{ID: 2, Name: "Suspended", Email: "gone@octane-tech.io", PasswordHash: hashed(t, "correctpass"), Role: shared.RoleUser, Status: auth.StatusSuspended}
	svc, _ := newService(newMemoryRepo(active, suspended))

	_, err := svc.Login(context.Background(), "active@octane-tech.io", "wrongpass")
	require.ErrorIs(t, err, httpx.ErrUnauthorized)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody@octane-tech.io", "correctpass")
	require.ErrorIs(t, err, httpx.ErrUnauthorized)

	_, err = svc.Login(context.Background(), "gone@octane-tech.io", "correctpass")
	require.ErrorIs(t, err, httpx.ErrForbidden)
	require.ErrorIs(t, err, shared.ErrAccountSuspended)

	sess, err := svc.Login(context.Background(), "ACTIVE@octane-tech.io", "correctpass")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, int64(1), sess.User.ID)
}

func TestTokensRejectExpiredAndForged(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tokens := auth.NewTokens("test-secret", time.Hour).WithClock(func() time.Time { return now })
	token, expiresAt, err := tokens.Issue(&auth.Account{ID: 42, Email: "a@octane-tech.io", Role: shared.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expiresAt)

	id, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	forged := auth.NewTokens("other-secret", time.Hour).WithClock(func() time.Time { return now })
	_, err = forged.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	later := auth.NewTokens("test-secret", time.Hour).WithClock(func() time.Time { return now.Add(2 * time.Hour) })
	_, err = later.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = tokens.Verify("not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestGate(t *testing.T) {
	active := &auth.Account{ID: 1, Email: "active@octane-tech.io", Role: shared.RoleAdmin, Status: auth.StatusActive}
	suspended := &auth.Account{ID: 2, Email: "gone@octane-tech.io", Role: shared.RoleUser, Status: auth.StatusSuspended}
	tokens := auth.NewTokens("test-secret", time.Hour)
	gate := auth.NewGate(tokens, newMemoryRepo(active, suspended), nil)

	var seen shared.Identity
	protected := gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = shared.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	issue := func(acc *auth.Account) string {
		token, _, err := tokens.Issue(acc)
		require.NoError(t, err)
		return token
	}

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + issue(active), want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer abc.def.ghi", want: http.StatusUnauthorized},
		{name: "unknown account", header: "Bearer " + issue(&auth.Account{ID: 99}), want: http.StatusUnauthorized},
		{name: "suspended account", header: "Bearer " + issue(suspended), want: http.StatusForbidden},
		{name: "active account", header: "Bearer " + issue(active), want: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/nfc/balance", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			res := httptest.NewRecorder()
			protected.ServeHTTP(res, req)
			assert.Equal(t, tc.want, res.Code)
		})
	}
	assert.Equal(t, shared.Identity{ID: 1, Email: "active@octane-tech.io", Role: shared.RoleAdmin}, seen)
}

func TestSignupAndLoginEndpoints(t *testing.T) {
	svc, _ := newService(newMemoryRepo())
	r := chi.NewRouter()
	r.Route("/api/auth", auth.NewHandler(nil, svc).MountRoutes)

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "10.0.0.1:1234"
		res := httptest.NewRecorder()
		r.ServeHTTP(res, req)
		return res
	}

	res := post("/api/auth/signup", `{"name":"Layla","email":"layla@octane-tech.io","password":"longpassword"}`)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	var created auth.Session
	require.NoError(t, json.NewDecoder(bytes.NewReader(res.Body.Bytes())).Decode(&created))
	assert.NotEmpty(t, created.Token)

	res = post("/api/auth/signup", `{"name":"Layla","email":"layla@octane-tech.io","password":"longpassword"}`)
	assert.Equal(t, http.StatusConflict, res.Code)

	res = post("/api/auth/signup", `{"name":"Layla","email":"not-an-email","password":"longpassword"}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))

	res = post("/api/auth/login", `{"email":"layla@octane-tech.io","password":"longpassword"}`)
	assert.Equal(t, http.StatusOK, res.Code)

	res = post("/api/auth/login", `{"email":"layla@octane-tech.io","password":"nope-nope"}`)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}
