package shared

import (
	"context"
	"fmt"

	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
)

// Account roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Identity is the authenticated caller attached by the auth gate.
type Identity struct {
	ID    int64
	Email string
	Role  string
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}

// Caller returns the identity attached by the auth gate or an unauthorized error.
func Caller(ctx context.Context) (Identity, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return Identity{}, fmt.Errorf("%w: missing identity", httpx.ErrUnauthorized)
	}
	return id, nil
}
