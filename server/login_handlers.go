package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/steadmanrj/linkfolio/identity"
	"github.com/steadmanrj/linkfolio/sessions"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type credentialResponse struct {
	Token    string             `json:"token"`
	Identity *identity.Identity `json:"identity"`
}

// LoginHandler authenticates an email/password pair, establishes a session
// and returns a bearer token (POST /auth/login).
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		result, err := s.auth.LoginWithPassword(r.Context(), req.Email, req.Password)
		if err != nil {
			// Deliberately the same response for unknown email and wrong
			// password.
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		s.setSessionCookie(w, r, result.SessionID)
		writeJSON(w, http.StatusOK, credentialResponse{
			Token:    result.Token,
			Identity: result.Identity,
		})
	}
}

// LogoutHandler invalidates the calling session only; bearer tokens remain
// stateless and are discarded client-side (POST /auth/logout, behind
// RequireIdentity).
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, _ := credentialsFromRequest(r)
		if err := s.auth.Logout(r.Context(), sessionID); err != nil {
			log.Warn().Err(err).Msg("logout failed to destroy session")
		}

		sessions.ClearCookie(w, getScheme(r) == "https")
		w.WriteHeader(http.StatusNoContent)
	}
}

type usernameRequest struct {
	Candidate string `json:"candidate"`
}

// UsernameHandler renames the caller's handle and remints the bearer token
// so its snapshot reflects the change (POST /auth/username, behind
// RequireIdentity).
func (s *Server) UsernameHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req usernameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := s.auth.Rename(r.Context(), ident, req.Candidate)
		switch {
		case errors.Is(err, identity.ErrInvalidUsername):
			writeError(w, http.StatusBadRequest, identity.ErrInvalidUsername.Error())
			return
		case errors.Is(err, identity.ErrUsernameTaken):
			writeError(w, http.StatusConflict, identity.ErrUsernameTaken.Error())
			return
		case err != nil:
			log.Error().Err(err).Str("user_id", ident.ID).Msg("rename failed")
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		writeJSON(w, http.StatusOK, credentialResponse{
			Token:    result.Token,
			Identity: result.Identity,
		})
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string) {
	if sessionID == "" {
		return
	}
	expiresAt := time.Now().Add(s.config.GetSessionTTL())
	sessions.SetCookie(w, sessionID, expiresAt, getScheme(r) == "https")
}
