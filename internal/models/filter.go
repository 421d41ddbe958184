package models

import (
	"math"
	"strings"
)

// DefaultMaxPrice is the upper bound of the default price range
const DefaultMaxPrice = 300000

// SortKey selects the catalog ordering
type SortKey string

const (
	SortPopularity SortKey = "popularity"
	SortPriceLow   SortKey = "price-low"
	SortPriceHigh  SortKey = "price-high"
	SortRating     SortKey = "rating"
	SortNewest     SortKey = "newest"
)

// ParseSortKey maps unknown or empty input to popularity
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortPriceLow, SortPriceHigh, SortRating, SortNewest, SortPopularity:
		return k
	}
	return SortPopularity
}

// PriceRange is an inclusive [Min, Max] bound on effective price
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DefaultPriceRange is the unrestricted range
func DefaultPriceRange() PriceRange {
	return PriceRange{Min: 0, Max: DefaultMaxPrice}
}

// Contains reports whether price lies in the range, bounds included
func (r PriceRange) Contains(price float64) bool {
	return price >= r.Min && price <= r.Max
}

// Narrowed reports whether the range is tighter than the default
func (r PriceRange) Narrowed() bool {
	return r.Min > 0 || r.Max < DefaultMaxPrice
}

// FilterConfig is the per-request browse configuration. It holds no item data.
type FilterConfig struct {
	Brands      []string            `json:"brands"`
	PriceRange  PriceRange          `json:"priceRange"`
	SpecFilters map[string][]string `json:"specFilters"`
	Features    []string            `json:"features"`
	SearchText  string              `json:"searchText"`
	SortKey     SortKey             `json:"sortKey"`
}

// DefaultFilterConfig has no restrictions and sorts by popularity
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		PriceRange:  DefaultPriceRange(),
		SpecFilters: map[string][]string{},
		SortKey:     SortPopularity,
	}
}

// Normalize enforces min <= max, a non-negative minimum, trims search text,
// drops empty values and resolves the sort key. Non-finite bounds fall back
// to the default range.
func (f FilterConfig) Normalize() FilterConfig {
	out := FilterConfig{
		Brands:     compactStrings(f.Brands),
		PriceRange: f.PriceRange,
		Features:   compactStrings(f.Features),
		SearchText: strings.TrimSpace(f.SearchText),
		SortKey:    ParseSortKey(string(f.SortKey)),
	}

	if !isFinite(out.PriceRange.Min) || out.PriceRange.Min < 0 {
		out.PriceRange.Min = 0
	}
	if !isFinite(out.PriceRange.Max) {
		out.PriceRange.Max = DefaultMaxPrice
	}
	if out.PriceRange.Max < out.PriceRange.Min {
		out.PriceRange.Min, out.PriceRange.Max = out.PriceRange.Max, out.PriceRange.Min
		if out.PriceRange.Min < 0 {
			out.PriceRange.Min = 0
		}
	}

	out.SpecFilters = make(map[string][]string, len(f.SpecFilters))
	for name, values := range f.SpecFilters {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out.SpecFilters[name] = compactStrings(values)
	}

	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func compactStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
