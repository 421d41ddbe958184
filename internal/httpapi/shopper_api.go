package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/johnrirwin/devicedeck/internal/auth"
	"github.com/johnrirwin/devicedeck/internal/history"
	"github.com/johnrirwin/devicedeck/internal/logging"
	"github.com/johnrirwin/devicedeck/internal/wishlist"
)

// ShopperAPI serves the signed-in shopper's wishlist and view history
type ShopperAPI struct {
	wishlist       *wishlist.Service
	history        *history.Service
	authMiddleware *auth.Middleware
	logger         *logging.Logger
}

// NewShopperAPI creates a new shopper API handler
func NewShopperAPI(wishlistSvc *wishlist.Service, historySvc *history.Service, authMiddleware *auth.Middleware, logger *logging.Logger) *ShopperAPI {
	return &ShopperAPI{
		wishlist:       wishlistSvc,
		history:        historySvc,
		authMiddleware: authMiddleware,
		logger:         logger,
	}
}

// RegisterRoutes registers wishlist and history routes on the given mux
func (api *ShopperAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/wishlist", corsMiddleware(api.authMiddleware.RequireSession(api.handleWishlist)))
	mux.HandleFunc("/api/wishlist/", corsMiddleware(api.authMiddleware.RequireSession(api.handleWishlistItem)))
	mux.HandleFunc("/api/recently-viewed", corsMiddleware(api.authMiddleware.RequireSession(api.handleRecentlyViewed)))
}

// handleWishlist handles GET and POST /api/wishlist
func (api *ShopperAPI) handleWishlist(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	switch r.Method {
	case http.MethodGet:
		list, err := api.wishlist.List(r.Context(), session.UserID)
		if err != nil {
			api.internalError(w, "Failed to list wishlist", err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		var params struct {
			ProductID string `json:"productId"`
		}
		if !decodeJSON(w, r, &params) {
			return
		}
		item, err := api.wishlist.Add(r.Context(), session.UserID, params.ProductID)
		if err != nil {
			api.writeWishlistError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)

	default:
		methodNotAllowed(w)
	}
}

// handleWishlistItem handles DELETE /api/wishlist/{productId}
func (api *ShopperAPI) handleWishlistItem(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}

	productID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/wishlist/"), "/")
	if err := api.wishlist.Remove(r.Context(), session.UserID, productID); err != nil {
		api.writeWishlistError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *ShopperAPI) handleRecentlyViewed(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := api.history.List(r.Context(), session.UserID, limit)
	if err != nil {
		api.internalError(w, "Failed to list recently viewed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

func (api *ShopperAPI) writeWishlistError(w http.ResponseWriter, err error) {
	var svcErr *wishlist.ServiceError
	if !errors.As(err, &svcErr) {
		api.internalError(w, "Wishlist update failed", err)
		return
	}
	status := http.StatusBadRequest
	if svcErr.Code == "product_not_found" || svcErr.Code == "not_found" {
		status = http.StatusNotFound
	}
	writeError(w, status, svcErr.Code, svcErr.Message)
}

func (api *ShopperAPI) internalError(w http.ResponseWriter, msg string, err error) {
	api.logger.Error(msg, logging.WithField("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
}
