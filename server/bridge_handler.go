package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// bridgeVerifyTimeout bounds the bridge's self-verification. The bridge
// must never hang: either the token proves usable within this window or
// the browser lands on a visible error state.
const bridgeVerifyTimeout = 5 * time.Second

// BridgeHandler is the redirect target that carries a freshly minted token
// into the client (GET /auth/bridge?token=&username=). It self-verifies the
// token against the live identity store before letting the browser into
// the protected area; a token that does not verify sends the browser back
// to the login page with a reason, never into a spinner.
func (s *Server) BridgeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawToken := r.URL.Query().Get("token")
		if rawToken == "" {
			s.redirectWithError(w, r, "missing credential")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), bridgeVerifyTimeout)
		defer cancel()

		ident, err := s.auth.ResolveRequest(ctx, "", rawToken)
		if err != nil {
			log.Warn().Err(err).Msg("bridge self-verification failed")
			s.redirectWithError(w, r, "sign-in could not be verified")
			return
		}

		target := RouteApp
		if username := r.URL.Query().Get("username"); username != "" && username == ident.Username {
			target = RouteApp + "?username=" + username
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}
