package auth

import (
	"context"

	"github.com/raspay/raspay-server/pkg/user"
)

// Principal identifies the authenticated caller of a request.
type Principal struct {
	UserID int64
	Kind   user.Kind
}

// IsAdmin reports whether the principal may use the back-office surface.
func (p *Principal) IsAdmin() bool {
	return p.Kind == user.KindAdmin
}

type contextKey string

const contextKeyPrincipal contextKey = "principal"

// WithPrincipal adds the authenticated principal to the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKeyPrincipal, p)
}

// PrincipalFromContext retrieves the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextKeyPrincipal).(*Principal)
	return p, ok
}
