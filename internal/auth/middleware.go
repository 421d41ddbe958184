package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// SessionHandler is a handler that receives the caller's session. With
// OptionalSession the session is nil for anonymous callers.
type SessionHandler func(w http.ResponseWriter, r *http.Request, session *Session)

// Middleware resolves bearer tokens into sessions
type Middleware struct {
	authService *Service
}

// NewMiddleware creates a new auth middleware; authService may be nil when
// sign-in is unavailable
func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{authService: authService}
}

// RequireSession rejects requests without a valid access token
func (m *Middleware) RequireSession(next SessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.authService == nil {
			writeAuthError(w, http.StatusServiceUnavailable, "auth_unavailable", "sign-in is not available")
			return
		}

		token := extractToken(r)
		if token == "" {
			writeAuthError(w, http.StatusUnauthorized, "unauthorized", "authorization required")
			return
		}

		session, err := m.authService.ValidateAccessToken(token)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
			return
		}

		next(w, r, session)
	}
}

// OptionalSession resolves a token when one is present. Invalid tokens are
// treated as anonymous.
func (m *Middleware) OptionalSession(next SessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var session *Session
		if m.authService != nil {
			if token := extractToken(r); token != "" {
				session, _ = m.authService.ValidateAccessToken(token)
			}
		}
		next(w, r, session)
	}
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": AuthError{Code: code, Message: message},
	})
}
