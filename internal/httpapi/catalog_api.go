package httpapi

import (
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/johnrirwin/devicedeck/internal/auth"
	"github.com/johnrirwin/devicedeck/internal/catalog"
	"github.com/johnrirwin/devicedeck/internal/compare"
	"github.com/johnrirwin/devicedeck/internal/facets"
	"github.com/johnrirwin/devicedeck/internal/history"
	"github.com/johnrirwin/devicedeck/internal/logging"
	"github.com/johnrirwin/devicedeck/internal/models"
	"github.com/johnrirwin/devicedeck/internal/wishlist"
)

const specParamPrefix = "spec."

// CatalogAPI serves browsing, product details and comparison
type CatalogAPI struct {
	catalog        *catalog.Service
	facets         *facets.Catalog
	compare        *compare.Service
	history        *history.Service
	wishlist       *wishlist.Service
	authMiddleware *auth.Middleware
	logger         *logging.Logger
}

// NewCatalogAPI creates a new catalog API handler. history and wishlist may
// be nil.
func NewCatalogAPI(catalogSvc *catalog.Service, facetCatalog *facets.Catalog, compareSvc *compare.Service, historySvc *history.Service, wishlistSvc *wishlist.Service, authMiddleware *auth.Middleware, logger *logging.Logger) *CatalogAPI {
	return &CatalogAPI{
		catalog:        catalogSvc,
		facets:         facetCatalog,
		compare:        compareSvc,
		history:        historySvc,
		wishlist:       wishlistSvc,
		authMiddleware: authMiddleware,
		logger:         logger,
	}
}

// RegisterRoutes registers catalog routes on the given mux
func (api *CatalogAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/categories", corsMiddleware(api.handleCategories))
	mux.HandleFunc("/api/catalog/", corsMiddleware(api.handleCatalog))
	mux.HandleFunc("/api/products/", corsMiddleware(api.authMiddleware.OptionalSession(api.handleProduct)))
	mux.HandleFunc("/api/compare", corsMiddleware(api.handleCompare))
}

type browseResponse struct {
	models.CatalogViews
	Filters models.FilterConfig `json:"filters"`
}

type productResponse struct {
	*models.ProductDetail
	InWishlist bool `json:"inWishlist"`
}

func (api *CatalogAPI) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	categories := make([]facets.CategoryFacets, 0, len(models.AllCategories))
	for _, category := range models.AllCategories {
		if f, ok := api.facets.Facets(category); ok {
			categories = append(categories, f)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// handleCatalog routes /api/catalog/{category}, /api/catalog/{category}/facets
// and /api/catalog/{category}/brands
func (api *CatalogAPI) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/catalog/"), "/")
	parts := strings.Split(path, "/")

	category, ok := models.ParseCategory(parts[0])
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_category", "unknown category")
		return
	}

	switch {
	case len(parts) == 1:
		api.handleBrowse(w, r, category)
	case len(parts) == 2 && parts[1] == "facets":
		f, _ := api.facets.Facets(category)
		writeJSON(w, http.StatusOK, f)
	case len(parts) == 2 && parts[1] == "brands":
		brands := api.facets.FilterBrands(category, r.URL.Query().Get("q"))
		writeJSON(w, http.StatusOK, map[string]interface{}{"brands": brands})
	default:
		writeError(w, http.StatusNotFound, "not_found", "not found")
	}
}

func (api *CatalogAPI) handleBrowse(w http.ResponseWriter, r *http.Request, category models.Category) {
	cfg := ParseFilterConfig(r.URL.Query())

	views, err := api.catalog.Browse(r.Context(), category, cfg)
	if err != nil {
		api.logger.Error("Failed to load catalog", logging.WithFields(map[string]interface{}{
			"category": string(category),
			"error":    err.Error(),
		}))
		writeError(w, http.StatusBadGateway, "catalog_unavailable", "failed to load products")
		return
	}

	writeJSON(w, http.StatusOK, browseResponse{CatalogViews: views, Filters: cfg})
}

func (api *CatalogAPI) handleProduct(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/products/"), "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "product id is required")
		return
	}

	detail, err := api.catalog.Product(r.Context(), id)
	if errors.Is(err, catalog.ErrProductNotFound) {
		writeError(w, http.StatusNotFound, "product_not_found", "product not found")
		return
	}
	if err != nil {
		api.logger.Error("Failed to load product", logging.WithFields(map[string]interface{}{
			"productId": id,
			"error":     err.Error(),
		}))
		writeError(w, http.StatusBadGateway, "catalog_unavailable", "failed to load product")
		return
	}

	resp := productResponse{ProductDetail: detail}
	if session != nil {
		if api.history != nil {
			if err := api.history.Record(r.Context(), session.UserID, id); err != nil {
				api.logger.Warn("Failed to record product view", logging.WithField("error", err.Error()))
			}
		}
		if api.wishlist != nil {
			resp.InWishlist, _ = api.wishlist.Contains(r.Context(), session.UserID, id)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (api *CatalogAPI) handleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	comparison, err := api.compare.Compare(r.Context(), splitValues(r.URL.Query()["ids"]))
	if err != nil {
		var cmpErr *compare.Error
		if errors.As(err, &cmpErr) {
			status := http.StatusBadRequest
			if cmpErr.Code == "product_not_found" {
				status = http.StatusNotFound
			}
			writeError(w, status, cmpErr.Code, cmpErr.Message)
			return
		}
		api.logger.Error("Comparison failed", logging.WithField("error", err.Error()))
		writeError(w, http.StatusBadGateway, "catalog_unavailable", "failed to load products")
		return
	}

	writeJSON(w, http.StatusOK, comparison)
}

// ParseFilterConfig reads browse parameters: q, brand, minPrice, maxPrice,
// spec.<name>, feature and sort. List parameters may repeat or be
// comma-separated. Malformed prices are ignored.
func ParseFilterConfig(query url.Values) models.FilterConfig {
	cfg := models.DefaultFilterConfig()
	cfg.SearchText = query.Get("q")
	cfg.Brands = splitValues(query["brand"])
	cfg.Features = splitValues(query["feature"])
	cfg.SortKey = models.SortKey(query.Get("sort"))

	if v, ok := parsePrice(query.Get("minPrice")); ok {
		cfg.PriceRange.Min = v
	}
	if v, ok := parsePrice(query.Get("maxPrice")); ok {
		cfg.PriceRange.Max = v
	}

	for key, values := range query {
		if !strings.HasPrefix(key, specParamPrefix) {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(key, specParamPrefix)))
		if name == "" {
			continue
		}
		cfg.SpecFilters[name] = append(cfg.SpecFilters[name], splitValues(values)...)
	}

	return cfg.Normalize()
}

// parsePrice accepts finite numbers only; "NaN" and "Inf" parse as floats
// but are not prices
func parsePrice(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
