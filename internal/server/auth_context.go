package server

import (
	"context"

	"kudos/internal/access"
	"kudos/internal/store"
)

const (
	authTypeBasic  = "basic"
	authTypeBearer = "bearer"
	authTypeOpen   = "open"

	anonymousUserID = "anonymous"
	serviceUserID   = "service"
)

type authContextKey struct{}

// authPrincipal is the identity a request acts as. UserID is what the
// repository records as creator and what Like removal is scoped to.
type authPrincipal struct {
	AuthType string
	UserID   string
	User     *store.AuthUser
}

func (p authPrincipal) isAdmin() bool {
	return p.User != nil && p.User.Role == access.RoleAdmin
}

func contextWithAuthPrincipal(ctx context.Context, principal authPrincipal) context.Context {
	return context.WithValue(ctx, authContextKey{}, principal)
}

func authPrincipalFromContext(ctx context.Context) (authPrincipal, bool) {
	if ctx == nil {
		return authPrincipal{}, false
	}
	principal, ok := ctx.Value(authContextKey{}).(authPrincipal)
	return principal, ok
}

// requesterID returns the acting user id, or "" outside withAuth.
func requesterID(ctx context.Context) string {
	principal, ok := authPrincipalFromContext(ctx)
	if !ok {
		return ""
	}
	return principal.UserID
}
