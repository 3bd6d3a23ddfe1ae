package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	apperrors "github.com/raspay/raspay-server/pkg/app/errors"
	apphttp "github.com/raspay/raspay-server/pkg/app/http"
	"github.com/raspay/raspay-server/pkg/user"
)

// Middleware resolves principals for incoming requests. It is mounted once
// per router group so individual handlers only read the principal from
// context.
type Middleware struct {
	issuer     *TokenIssuer
	cookieName string
	adminToken string
}

// NewMiddleware creates the auth middleware. adminToken may be empty, which
// disables the static back-office token path.
func NewMiddleware(issuer *TokenIssuer, cookieName, adminToken string) *Middleware {
	return &Middleware{
		issuer:     issuer,
		cookieName: cookieName,
		adminToken: adminToken,
	}
}

// tokenFromRequest extracts a session token from the Authorization header or
// the session cookie, in that order.
func (m *Middleware) tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(m.cookieName); err == nil {
		return c.Value
	}
	return ""
}

// RequireUser rejects unauthenticated requests and injects the principal
// into the request context.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.tokenFromRequest(r)
		if token == "" {
			apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(nil, "Não autenticado"))
			return
		}

		principal, err := m.issuer.Verify(token)
		if err != nil {
			apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(err, "Sessão inválida ou expirada"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// RequireAdmin accepts either an admin-kind session token or the static
// back-office token in the X-Admin-Token header.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok := r.Header.Get("X-Admin-Token"); tok != "" && m.adminToken != "" {
			if subtle.ConstantTimeCompare([]byte(tok), []byte(m.adminToken)) == 1 {
				p := &Principal{Kind: user.KindAdmin}
				next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
				return
			}
			apphttp.DefaultErrorHandler(w, apperrors.ForbiddenError(nil, "Token de administrador inválido"))
			return
		}

		token := m.tokenFromRequest(r)
		if token == "" {
			apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(nil, "Não autenticado"))
			return
		}

		principal, err := m.issuer.Verify(token)
		if err != nil {
			apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(err, "Sessão inválida ou expirada"))
			return
		}
		if !principal.IsAdmin() {
			apphttp.DefaultErrorHandler(w, apperrors.ForbiddenError(nil, "Acesso restrito a administradores"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// RequireKind rejects principals that are not one of the allowed kinds.
// RequireUser must run earlier in the chain.
func RequireKind(kinds ...user.Kind) func(http.Handler) http.Handler {
	allowed := make(map[user.Kind]struct{}, len(kinds))
	for _, k := range kinds {
		allowed[k] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(nil, "Não autenticado"))
				return
			}
			if _, ok := allowed[p.Kind]; !ok {
				apphttp.DefaultErrorHandler(w, apperrors.ForbiddenError(nil, "Acesso negado"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
