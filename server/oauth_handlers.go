package server

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/steadmanrj/linkfolio/auth"
)

// OAuthStartHandler issues the CSRF state and redirects the browser to the
// external provider (GET /auth/oauth/start?username=).
func (s *Server) OAuthStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pendingUsername := r.URL.Query().Get("username")

		authURL, err := s.auth.BeginOAuth(pendingUsername)
		if err != nil {
			log.Error().Err(err).Msg("failed to start oauth flow")
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// OAuthCallbackHandler receives the provider redirect, verifies state,
// resolves or creates the identity, mints a token and forwards the browser
// to the bridge (GET /auth/oauth/callback).
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := r.FormValue("state")
		code := r.FormValue("code")
		errorParam := r.FormValue("error")
		errorDesc := r.FormValue("error_description")

		// Provider-side denial (user cancelled, consent refused, ...)
		if errorParam != "" {
			log.Warn().Str("error", errorParam).Str("desc", errorDesc).Msg("provider returned error")
			s.redirectWithError(w, r, "authentication failed")
			return
		}

		if code == "" || state == "" {
			http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
			return
		}

		result, err := s.auth.CompleteOAuth(r.Context(), state, code)
		switch {
		case errors.Is(err, auth.ErrStateMismatch):
			// Fatal to the flow. The state was missing, replayed, stale,
			// or the nonce did not match - never continue past this.
			http.Error(w, "Invalid state parameter", http.StatusUnauthorized)
			return
		case errors.Is(err, auth.ErrProviderAuthFailed):
			s.redirectWithError(w, r, "authentication failed")
			return
		case errors.Is(err, auth.ErrIdentityCreationFailed):
			s.redirectWithError(w, r, "account creation failed")
			return
		case err != nil:
			log.Error().Err(err).Msg("oauth callback failed")
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		s.setSessionCookie(w, r, result.SessionID)

		bridgeURL := RouteBridge +
			"?token=" + url.QueryEscape(result.Token) +
			"&username=" + url.QueryEscape(result.Identity.Username)
		http.Redirect(w, r, bridgeURL, http.StatusSeeOther)
	}
}

func (s *Server) redirectWithError(w http.ResponseWriter, r *http.Request, errorMsg string) {
	http.Redirect(w, r, RouteLoginPage+"?error="+url.QueryEscape(errorMsg), http.StatusSeeOther)
}
