// Package facets describes the filter options offered for each category
package facets

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/johnrirwin/devicedeck/internal/models"
)

//go:embed facets.yaml
var defaultConfig []byte

// SpecFacet is one spec attribute and the values a shopper can pick
type SpecFacet struct {
	Name   string   `yaml:"name" json:"name"`
	Values []string `yaml:"values" json:"values"`
}

// CategoryFacets are the filter panel options for one category
type CategoryFacets struct {
	Category models.Category `yaml:"-" json:"category"`
	Brands   []string        `yaml:"brands" json:"brands"`
	Specs    []SpecFacet     `yaml:"specs" json:"specs"`
	Features []string        `yaml:"features" json:"features"`
	MaxPrice float64         `yaml:"max_price,omitempty" json:"maxPrice"`
}

// Config is the parsed facets file
type Config struct {
	MaxPrice   float64                   `yaml:"max_price"`
	Categories map[string]CategoryFacets `yaml:"categories"`
}

// Catalog answers facet lookups by category
type Catalog struct {
	byCategory map[models.Category]CategoryFacets
}

// Parse decodes and validates a facets document
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse facets config: %w", err)
	}
	if config.MaxPrice <= 0 {
		config.MaxPrice = models.DefaultMaxPrice
	}

	canonical := make(map[string]CategoryFacets, len(config.Categories))
	for name, f := range config.Categories {
		category, ok := models.ParseCategory(name)
		if !ok {
			return nil, fmt.Errorf("unknown category %q in facets config", name)
		}
		canonical[string(category)] = f
	}
	config.Categories = canonical
	return &config, nil
}

// Load reads a facets file from disk
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read facets config: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in facets
func Default() *Config {
	config, err := Parse(defaultConfig)
	if err != nil {
		panic(err)
	}
	return config
}

// Find searches for a facets file in common locations, returning "" when
// none exists
func Find() string {
	locations := []string{
		"facets.yaml",
		"config/facets.yaml",
		"/app/facets.yaml",
	}
	if envPath := os.Getenv("CATALOG_CONFIG_PATH"); envPath != "" {
		locations = append([]string{envPath}, locations...)
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			absPath, _ := filepath.Abs(loc)
			return absPath
		}
	}
	return ""
}

// NewCatalog indexes config by category. Categories missing from config
// fall back to the built-in facets.
func NewCatalog(config *Config) *Catalog {
	c := &Catalog{byCategory: make(map[models.Category]CategoryFacets)}

	var fallback *Config
	for _, category := range models.AllCategories {
		f, ok := config.Categories[string(category)]
		if !ok {
			if fallback == nil {
				fallback = Default()
			}
			f = fallback.Categories[string(category)]
		}
		f.Category = category
		if f.MaxPrice <= 0 {
			f.MaxPrice = config.MaxPrice
		}
		c.byCategory[category] = f
	}
	return c
}

// Facets returns the options for category
func (c *Catalog) Facets(category models.Category) (CategoryFacets, bool) {
	f, ok := c.byCategory[category]
	return f, ok
}

// FilterBrands narrows a category's brand list by a case-insensitive
// substring, keeping the configured order
func (c *Catalog) FilterBrands(category models.Category, query string) []string {
	f, ok := c.byCategory[category]
	if !ok {
		return nil
	}

	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]string, 0, len(f.Brands))
	for _, b := range f.Brands {
		if strings.Contains(strings.ToLower(b), q) {
			out = append(out, b)
		}
	}
	return out
}
