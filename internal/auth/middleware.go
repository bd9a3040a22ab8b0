package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
	"github.com/octane-tech/nfc-tracker/internal/shared"
)

// AccountLoader resolves the account behind a verified token.
type AccountLoader interface {
	FindByID(ctx context.Context, id int64) (*Account, error)
}

// Gate authenticates bearer tokens and attaches the caller identity.
type Gate struct {
	tokens   *Tokens
	accounts AccountLoader
	logger   *slog.Logger
}

// NewGate constructs the authentication gate.
func NewGate(tokens *Tokens, accounts AccountLoader, logger *slog.Logger) *Gate {
	return &Gate{tokens: tokens, accounts: accounts, logger: logger}
}

// Middleware rejects requests without a valid token for an active account.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			httpx.RespondError(w, fmt.Errorf("%w: no token provided", httpx.ErrUnauthorized))
			return
		}
		id, err := g.tokens.Verify(raw)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrUnauthorized, err))
			return
		}
		acc, err := g.accounts.FindByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, httpx.ErrNotFound) {
				httpx.RespondError(w, fmt.Errorf("%w: unknown account", httpx.ErrUnauthorized))
				return
			}
			if g.logger != nil {
				g.logger.Error("auth gate load account", slog.Int64("user_id", id), slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
		if acc.Suspended() {
			httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrForbidden, shared.ErrAccountSuspended))
			return
		}
		ctx := shared.ContextWithIdentity(r.Context(), shared.Identity{ID: acc.ID, Email: acc.Email, Role: acc.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
