// Package rbac guards routes by the caller's role.
package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
	"github.com/octane-tech/nfc-tracker/internal/shared"
)

// RequireRole ensures the current identity holds one of the given roles.
// It must run behind the auth gate.
func RequireRole(logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	allowed := normalizeRoles(roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				if logger != nil {
					logger.Error("rbac require role without identity", slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if !hasAnyRole(id.Role, allowed) {
				if logger != nil {
					logger.Warn("rbac denied", slog.Int64("user_id", id.ID), slog.String("role", id.Role), slog.String("path", r.URL.Path))
				}
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient privileges")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func normalizeRoles(roles []string) map[string]struct{} {
	set := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		role = strings.TrimSpace(strings.ToLower(role))
		if role == "" {
			continue
		}
		set[role] = struct{}{}
	}
	return set
}

func hasAnyRole(role string, allowed map[string]struct{}) bool {
	if len(allowed) == 0 {
		return true
	}
	_, ok := allowed[strings.ToLower(role)]
	return ok
}
