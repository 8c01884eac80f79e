package http

import (
	"errors"
	"log/slog"
	"net/http"

	"keshi/internal/core"
	"keshi/internal/services"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	clientIP := r.Header.Get("X-Forwarded-For")
	if clientIP == "" {
		clientIP = r.RemoteAddr
	}
	if !s.loginLimiter.allow(clientIP) {
		slog.WarnContext(r.Context(), "Login rate limit exceeded", "client_ip", clientIP)
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many login attempts"})
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}

	user, err := s.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		// Unknown user and wrong password must be indistinguishable.
		if errors.Is(err, core.ErrNotFound) || errors.Is(err, services.ErrWrongPassword) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
			return
		}
		writeError(w, r, err)
		return
	}

	session, _ := s.sessions.Get(r, sessionName)
	session.Values["user_id"] = user.ID
	session.Values["username"] = user.Username
	session.Values["is_admin"] = user.IsAdmin
	if err := session.Save(r, w); err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "User logged in", "username", user.Username)
	writeJSON(w, http.StatusOK, sessionUser{ID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessions.Get(r, sessionName)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := s.currentUser(r)
	writeJSON(w, http.StatusOK, user)
}

// currentUser reads the authenticated identity out of the session cookie.
func (s *Server) currentUser(r *http.Request) (sessionUser, bool) {
	session, err := s.sessions.Get(r, sessionName)
	if err != nil {
		return sessionUser{}, false
	}
	id, ok := session.Values["user_id"].(string)
	if !ok || id == "" {
		return sessionUser{}, false
	}
	username, _ := session.Values["username"].(string)
	isAdmin, _ := session.Values["is_admin"].(bool)
	return sessionUser{ID: id, Username: username, IsAdmin: isAdmin}, true
}

// requireAuth rejects requests without a valid session.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.currentUser(r); !ok {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
			return
		}
		next(w, r)
	}
}

// requireAdmin rejects sessions without the admin flag.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.currentUser(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
			return
		}
		if !user.IsAdmin {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "admin access required"})
			return
		}
		next(w, r)
	}
}
