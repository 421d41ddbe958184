package httpapi

import (
	"errors"
	"net/http"

	"github.com/johnrirwin/devicedeck/internal/auth"
	"github.com/johnrirwin/devicedeck/internal/crypto"
	"github.com/johnrirwin/devicedeck/internal/logging"
	"github.com/johnrirwin/devicedeck/internal/models"
)

// ProfileAPI handles the signed-in user's profile
type ProfileAPI struct {
	authService    *auth.Service
	authMiddleware *auth.Middleware
	logger         *logging.Logger
}

// NewProfileAPI creates a new profile API handler
func NewProfileAPI(authService *auth.Service, authMiddleware *auth.Middleware, logger *logging.Logger) *ProfileAPI {
	return &ProfileAPI{
		authService:    authService,
		authMiddleware: authMiddleware,
		logger:         logger,
	}
}

// RegisterRoutes registers profile routes on the given mux
func (api *ProfileAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/me", corsMiddleware(api.authMiddleware.RequireSession(api.handleProfile)))
}

type profileResponse struct {
	*models.User
	DisplayName string `json:"displayName"`
	MaskedPhone string `json:"maskedPhone,omitempty"`
}

// handleProfile handles GET and PUT /api/me
func (api *ProfileAPI) handleProfile(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	var (
		user *models.User
		err  error
	)

	switch r.Method {
	case http.MethodGet:
		user, err = api.authService.GetUser(r.Context(), session.UserID)
		if err == nil && user == nil {
			writeError(w, http.StatusNotFound, "user_not_found", "user not found")
			return
		}

	case http.MethodPut:
		var params models.UpdateProfileParams
		if !decodeJSON(w, r, &params) {
			return
		}
		user, err = api.authService.UpdateProfile(r.Context(), session.UserID, params)

	default:
		methodNotAllowed(w)
		return
	}

	if err != nil {
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			writeError(w, authStatus(authErr.Code), authErr.Code, authErr.Message)
			return
		}
		api.logger.Error("Profile request failed", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		User:        user,
		DisplayName: user.EffectiveDisplayName(),
		MaskedPhone: crypto.MaskPhone(user.Phone),
	})
}
