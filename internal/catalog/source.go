package catalog

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/johnrirwin/devicedeck/internal/logging"
	"github.com/johnrirwin/devicedeck/internal/models"
)

//go:embed data/*.json
var bundledData embed.FS

// ErrNoItems is returned by a source that has nothing for a category
var ErrNoItems = errors.New("no catalog items")

// Source loads the full item list for one category
type Source interface {
	Name() string
	Load(ctx context.Context, category models.Category) ([]models.CatalogItem, error)
}

// StaticSource serves the catalog files bundled into the binary
type StaticSource struct{}

// NewStaticSource creates a source over the bundled catalog
func NewStaticSource() *StaticSource {
	return &StaticSource{}
}

func (s *StaticSource) Name() string {
	return "static"
}

func (s *StaticSource) Load(ctx context.Context, category models.Category) ([]models.CatalogItem, error) {
	raws, err := LoadBundled(category)
	if err != nil {
		return nil, err
	}
	return Normalize(category, raws), nil
}

// LoadBundled returns the raw bundled records for a category
func LoadBundled(category models.Category) ([]RawDevice, error) {
	data, err := bundledData.ReadFile("data/" + string(category) + ".json")
	if err != nil {
		return nil, fmt.Errorf("no bundled catalog for %s: %w", category, ErrNoItems)
	}

	var raws []RawDevice
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("failed to parse bundled catalog %s: %w", category, err)
	}
	return raws, nil
}

// ProductReader is the persistence side of the catalog
type ProductReader interface {
	ListByCategory(ctx context.Context, category models.Category) ([]models.CatalogItem, error)
}

// StoreSource reads products and their vendor prices from the database
type StoreSource struct {
	store ProductReader
}

// NewStoreSource creates a database-backed source
func NewStoreSource(store ProductReader) *StoreSource {
	return &StoreSource{store: store}
}

func (s *StoreSource) Name() string {
	return "postgres"
}

func (s *StoreSource) Load(ctx context.Context, category models.Category) ([]models.CatalogItem, error) {
	items, err := s.store.ListByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	return items, nil
}

// ChainSource returns the first non-empty result from its sources in order
type ChainSource struct {
	sources []Source
	logger  *logging.Logger
}

// NewChainSource creates a fallback chain
func NewChainSource(logger *logging.Logger, sources ...Source) *ChainSource {
	return &ChainSource{sources: sources, logger: logger}
}

func (c *ChainSource) Name() string {
	names := make([]string, 0, len(c.sources))
	for _, s := range c.sources {
		names = append(names, s.Name())
	}
	return strings.Join(names, ">")
}

func (c *ChainSource) Load(ctx context.Context, category models.Category) ([]models.CatalogItem, error) {
	var lastErr error = ErrNoItems
	for _, s := range c.sources {
		items, err := s.Load(ctx, category)
		if err == nil && len(items) > 0 {
			return items, nil
		}
		if err == nil {
			err = ErrNoItems
		}
		if !errors.Is(err, ErrNoItems) {
			c.logger.Warn("Catalog source failed, trying next", logging.WithFields(map[string]interface{}{
				"source":   s.Name(),
				"category": string(category),
				"error":    err.Error(),
			}))
		}
		lastErr = err
	}
	return nil, lastErr
}
