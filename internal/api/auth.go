package api

import (
	"net/http"
	"time"

	"github.com/legacylink/legacylink/pkg/auth"
	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/session"
)

type loginRequest struct {
	Provider string `json:"provider" validate:"omitempty,oneof=google apple facebook email"`
	auth.Credentials
}

type loginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      *auth.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.authDisabled {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "authentication is disabled"))
		return
	}
	var req loginRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	name := req.Provider
	if name == "" {
		name = s.cfg.Auth.Provider
	}
	provider, ok := s.providers[name]
	if !ok {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "unknown provider %q", name))
		return
	}

	user, err := provider.Authenticate(r.Context(), req.Credentials)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := session.New("", user, time.Now().Add(s.tokens.TTL()))
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "create session"))
		return
	}
	token, expires, err := s.tokens.Issue(user, sess.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sess.Token = token
	sess.ExpiresAt = expires
	if err := s.sessions.Set(r.Context(), sess); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("login", "user", user.ID, "provider", user.Provider)
	s.writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id := sessionFrom(r.Context()); id != "" {
		if err := s.sessions.Delete(r.Context(), id); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	s.writeJSON(w, http.StatusOK, user)
}
