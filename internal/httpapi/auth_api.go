package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/johnrirwin/devicedeck/internal/auth"
	"github.com/johnrirwin/devicedeck/internal/logging"
	"github.com/johnrirwin/devicedeck/internal/models"
)

// AuthAPI handles authentication HTTP endpoints
type AuthAPI struct {
	authService    *auth.Service
	authMiddleware *auth.Middleware
	logger         *logging.Logger
	frontendURL    string
}

// NewAuthAPI creates a new auth API handler; authService may be nil
func NewAuthAPI(authService *auth.Service, authMiddleware *auth.Middleware, frontendURL string, logger *logging.Logger) *AuthAPI {
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}
	return &AuthAPI{
		authService:    authService,
		authMiddleware: authMiddleware,
		logger:         logger,
		frontendURL:    frontendURL,
	}
}

// RegisterRoutes registers auth routes on the given mux
func (api *AuthAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/auth/signup", corsMiddleware(api.available(api.handleSignup)))
	mux.HandleFunc("/api/auth/login", corsMiddleware(api.available(api.handleLogin)))
	mux.HandleFunc("/api/auth/google", corsMiddleware(api.available(api.handleGoogleLogin)))
	mux.HandleFunc("/api/auth/google/callback", api.available(api.handleGoogleCallback))
	mux.HandleFunc("/api/auth/refresh", corsMiddleware(api.available(api.handleRefresh)))
	mux.HandleFunc("/api/auth/logout", corsMiddleware(api.authMiddleware.RequireSession(api.handleLogout)))
}

func (api *AuthAPI) available(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if api.authService == nil {
			writeError(w, http.StatusServiceUnavailable, "auth_unavailable", "sign-in is not available")
			return
		}
		next(w, r)
	}
}

func (api *AuthAPI) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var params models.SignupParams
	if !decodeJSON(w, r, &params) {
		return
	}

	response, err := api.authService.SignupWithEmail(r.Context(), params)
	if err != nil {
		api.writeAuthError(w, "Signup failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, response)
}

func (api *AuthAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var params models.LoginParams
	if !decodeJSON(w, r, &params) {
		return
	}

	response, err := api.authService.LoginWithEmail(r.Context(), params)
	if err != nil {
		api.writeAuthError(w, "Login failed", err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (api *AuthAPI) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var params models.GoogleLoginParams
	if !decodeJSON(w, r, &params) {
		return
	}

	response, err := api.authService.LoginWithGoogle(r.Context(), params)
	if err != nil {
		api.writeAuthError(w, "Google login failed", err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (api *AuthAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var params struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeJSON(w, r, &params) {
		return
	}

	tokens, err := api.authService.RefreshTokens(r.Context(), params.RefreshToken)
	if err != nil {
		api.writeAuthError(w, "Token refresh failed", err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (api *AuthAPI) handleLogout(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	if err := api.authService.Logout(r.Context(), session); err != nil {
		api.logger.Error("Logout failed", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "logout failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// handleGoogleCallback finishes the redirect flow and hands tokens to the
// frontend in the URL fragment
func (api *AuthAPI) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	query := r.URL.Query()
	if errorParam := query.Get("error"); errorParam != "" {
		redirectURL := fmt.Sprintf("%s/login?error=%s&error_description=%s",
			api.frontendURL,
			url.QueryEscape(errorParam),
			url.QueryEscape(query.Get("error_description")))
		http.Redirect(w, r, redirectURL, http.StatusFound)
		return
	}

	code := query.Get("code")
	if code == "" {
		http.Redirect(w, r, api.frontendURL+"/login?error=missing_code", http.StatusFound)
		return
	}

	response, err := api.authService.LoginWithGoogle(r.Context(), models.GoogleLoginParams{Code: code})
	if err != nil {
		api.logger.Error("Google callback failed", logging.WithField("error", err.Error()))
		http.Redirect(w, r, api.frontendURL+"/login?error=auth_failed", http.StatusFound)
		return
	}

	redirectURL := fmt.Sprintf("%s/auth/callback#access_token=%s&refresh_token=%s",
		api.frontendURL,
		url.QueryEscape(response.Tokens.AccessToken),
		url.QueryEscape(response.Tokens.RefreshToken))
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

func (api *AuthAPI) writeAuthError(w http.ResponseWriter, msg string, err error) {
	var authErr *auth.AuthError
	if errors.As(err, &authErr) {
		writeError(w, authStatus(authErr.Code), authErr.Code, authErr.Message)
		return
	}
	api.logger.Error(msg, logging.WithField("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "internal_error", "authentication failed")
}

func authStatus(code string) int {
	switch code {
	case "invalid_input":
		return http.StatusBadRequest
	case "user_exists":
		return http.StatusConflict
	case "account_disabled", "unverified_email":
		return http.StatusForbidden
	case "user_not_found":
		return http.StatusNotFound
	case "provider_disabled":
		return http.StatusServiceUnavailable
	}
	return http.StatusUnauthorized
}
