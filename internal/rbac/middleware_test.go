package rbac_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/octane-tech/nfc-tracker/internal/rbac"
	"github.com/octane-tech/nfc-tracker/internal/shared"
)

func TestRequireRole(t *testing.T) {
	guarded := rbac.RequireRole(nil, " Admin ")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name     string
		identity *shared.Identity
		want     int
	}{
		{name: "no identity", want: http.StatusUnauthorized},
		{name: "user role", identity: &shared.Identity{ID: 2, Role: shared.RoleUser}, want: http.StatusForbidden},
		{name: "admin role", identity: &shared.Identity{ID: 1, Role: shared.RoleAdmin}, want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
			if tc.identity != nil {
				req = req.WithContext(shared.ContextWithIdentity(req.Context(), *tc.identity))
			}
			res := httptest.NewRecorder()
			guarded.ServeHTTP(res, req)
			assert.Equal(t, tc.want, res.Code)
		})
	}
}

func TestRequireRoleWithoutRolesAllowsAnyIdentity(t *testing.T) {
	guarded := rbac.RequireRole(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(shared.ContextWithIdentity(req.Context(), shared.Identity{ID: 3, Role: shared.RoleUser}))
	res := httptest.NewRecorder()
	guarded.ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code)
}
