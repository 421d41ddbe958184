package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/johnrirwin/devicedeck/internal/catalog"
	"github.com/johnrirwin/devicedeck/internal/compare"
	"github.com/johnrirwin/devicedeck/internal/facets"
	"github.com/johnrirwin/devicedeck/internal/logging"
	"github.com/johnrirwin/devicedeck/internal/models"
)

const defaultSearchLimit = 20

type Handler struct {
	catalog *catalog.Service
	facets  *facets.Catalog
	compare *compare.Service
	logger  *logging.Logger
}

func NewHandler(catalogSvc *catalog.Service, facetCatalog *facets.Catalog, compareSvc *compare.Service, logger *logging.Logger) *Handler {
	return &Handler{
		catalog: catalogSvc,
		facets:  facetCatalog,
		compare: compareSvc,
		logger:  logger,
	}
}

type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// SearchDevicesParams mirrors the browse page's filter panel
type SearchDevicesParams struct {
	Category string              `json:"category"`
	Query    string              `json:"query"`
	Brands   []string            `json:"brands"`
	MinPrice *float64            `json:"min_price"`
	MaxPrice *float64            `json:"max_price"`
	Specs    map[string][]string `json:"specs"`
	Features []string            `json:"features"`
	Sort     string              `json:"sort"`
	Limit    int                 `json:"limit"`
}

type searchResult struct {
	Category          models.Category      `json:"category"`
	MatchCount        int                  `json:"matchCount"`
	ActiveFilterCount int                  `json:"activeFilterCount"`
	Items             []models.CatalogItem `json:"items"`
	Bestsellers       []string             `json:"bestsellers"`
	Recommended       []string             `json:"recommended"`
}

func (h *Handler) GetTools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "search_devices",
			Description: "Search the phone, laptop and tablet catalog with brand, price, spec and feature filters.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"category": {
						"type": "string",
						"enum": ["phone", "laptop", "tablet"],
						"description": "Device category"
					},
					"query": {
						"type": "string",
						"description": "Text matched against brand and model"
					},
					"brands": {
						"type": "array",
						"items": {"type": "string"},
						"description": "Only these brands"
					},
					"min_price": {
						"type": "number",
						"description": "Minimum price in rupees"
					},
					"max_price": {
						"type": "number",
						"description": "Maximum price in rupees"
					},
					"specs": {
						"type": "object",
						"additionalProperties": {"type": "array", "items": {"type": "string"}},
						"description": "Spec name to accepted values, e.g. {\"ram\": [\"8GB\"]}"
					},
					"features": {
						"type": "array",
						"items": {"type": "string"},
						"description": "Devices having any of these features"
					},
					"sort": {
						"type": "string",
						"enum": ["popularity", "price-low", "price-high", "rating", "newest"]
					},
					"limit": {
						"type": "integer",
						"description": "Maximum number of items to return (default: 20)"
					}
				},
				"required": ["category"]
			}`),
		},
		{
			Name:        "get_device",
			Description: "Get one device with its vendor offers and description.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"id": {"type": "string", "description": "Device id"}
				},
				"required": ["id"]
			}`),
		},
		{
			Name:        "compare_devices",
			Description: "Compare two or three devices side by side.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"ids": {"type": "array", "items": {"type": "string"}, "minItems": 2, "maxItems": 3}
				},
				"required": ["ids"]
			}`),
		},
		{
			Name:        "list_filters",
			Description: "List the brands, specs and features a category can be filtered by.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"category": {"type": "string", "enum": ["phone", "laptop", "tablet"]}
				},
				"required": ["category"]
			}`),
		},
	}
}

func (h *Handler) HandleToolCall(ctx context.Context, name string, arguments json.RawMessage) (interface{}, error) {
	switch name {
	case "search_devices":
		return h.handleSearch(ctx, arguments)
	case "get_device":
		return h.handleGetDevice(ctx, arguments)
	case "compare_devices":
		return h.handleCompare(ctx, arguments)
	case "list_filters":
		return h.handleListFilters(arguments)
	default:
		return nil, &ToolError{Message: "Unknown tool: " + name}
	}
}

func (h *Handler) handleSearch(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var params SearchDevicesParams
	if err := decodeArguments(arguments, &params); err != nil {
		return nil, err
	}

	category, ok := models.ParseCategory(params.Category)
	if !ok {
		return nil, &ToolError{Message: "Unknown category: " + params.Category}
	}

	cfg := models.DefaultFilterConfig()
	cfg.SearchText = params.Query
	cfg.Brands = params.Brands
	cfg.Features = params.Features
	cfg.SortKey = models.SortKey(params.Sort)
	if params.MinPrice != nil {
		cfg.PriceRange.Min = *params.MinPrice
	}
	if params.MaxPrice != nil {
		cfg.PriceRange.Max = *params.MaxPrice
	}
	for name, values := range params.Specs {
		cfg.SpecFilters[strings.ToLower(name)] = values
	}

	views, err := h.catalog.Browse(ctx, category, cfg)
	if err != nil {
		h.logger.Error("Catalog search failed", logging.WithField("error", err.Error()))
		return nil, &ToolError{Message: "Failed to load catalog: " + err.Error()}
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	items := views.All
	if len(items) > limit {
		items = items[:limit]
	}

	return searchResult{
		Category:          category,
		MatchCount:        views.MatchCount,
		ActiveFilterCount: views.ActiveFilterCount,
		Items:             items,
		Bestsellers:       ids(views.Bestsellers),
		Recommended:       ids(views.Recommended),
	}, nil
}

func (h *Handler) handleGetDevice(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var params struct {
		ID string `json:"id"`
	}
	if err := decodeArguments(arguments, &params); err != nil {
		return nil, err
	}

	detail, err := h.catalog.Product(ctx, params.ID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return nil, &ToolError{Message: "Device not found: " + params.ID}
	}
	if err != nil {
		return nil, &ToolError{Message: "Failed to load device: " + err.Error()}
	}
	return detail, nil
}

func (h *Handler) handleCompare(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var params struct {
		IDs []string `json:"ids"`
	}
	if err := decodeArguments(arguments, &params); err != nil {
		return nil, err
	}

	comparison, err := h.compare.Compare(ctx, params.IDs)
	if err != nil {
		return nil, &ToolError{Message: err.Error()}
	}
	return comparison, nil
}

func (h *Handler) handleListFilters(arguments json.RawMessage) (interface{}, error) {
	var params struct {
		Category string `json:"category"`
	}
	if err := decodeArguments(arguments, &params); err != nil {
		return nil, err
	}

	category, ok := models.ParseCategory(params.Category)
	if !ok {
		return nil, &ToolError{Message: "Unknown category: " + params.Category}
	}
	f, _ := h.facets.Facets(category)
	return f, nil
}

func decodeArguments(arguments json.RawMessage, out interface{}) error {
	if len(arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(arguments, out); err != nil {
		return &ToolError{Message: "Invalid arguments: " + err.Error()}
	}
	return nil
}

func ids(items []models.CatalogItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

type ToolError struct {
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}
