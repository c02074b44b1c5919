package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/steadmanrj/linkfolio/identity"
	"github.com/steadmanrj/linkfolio/sessions"
)

// identityContextKey is an unexported, collision-proof context key
type identityContextKey struct{}

// IdentityFromContext extracts the resolved identity from the request
// context. Only set by RequireIdentity.
func IdentityFromContext(ctx context.Context) (*identity.Identity, bool) {
	ident, ok := ctx.Value(identityContextKey{}).(*identity.Identity)
	return ident, ok
}

// credentialsFromRequest pulls the session cookie and bearer token out of a
// request. Either may be empty.
func credentialsFromRequest(r *http.Request) (sessionID, bearerToken string) {
	if cookie, err := r.Cookie(sessions.CookieName); err == nil {
		sessionID = cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			bearerToken = parts[1]
		}
	}
	return sessionID, bearerToken
}

// RequireIdentity resolves the request's credentials to a canonical, live
// identity and injects it into the context. Handlers behind it never see
// session payloads or token claims, only the freshly fetched record.
// All credential failures collapse to a generic 401.
func (s *Server) RequireIdentity() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sessionID, bearerToken := credentialsFromRequest(r)

			ident, err := s.auth.ResolveRequest(r.Context(), sessionID, bearerToken)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, ident)
			next(w, r.WithContext(ctx))
		}
	}
}
