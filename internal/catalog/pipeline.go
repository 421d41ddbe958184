package catalog

import (
	"sort"
	"strings"

	"github.com/johnrirwin/devicedeck/internal/models"
)

// ViewLimit caps the bestseller and recommended rails
const ViewLimit = 6

// Derive runs the filter, sort and view stages over items. It is a pure
// function: items is never modified and the result shares no slice backing
// arrays with it.
func Derive(items []models.CatalogItem, cfg models.FilterConfig) models.CatalogViews {
	cfg = cfg.Normalize()
	m := newMatcher(cfg)

	filtered := make([]models.CatalogItem, 0, len(items))
	for i := range items {
		if m.matches(&items[i]) {
			filtered = append(filtered, items[i])
		}
	}

	sortItems(filtered, cfg.SortKey)

	active := ActiveFilterCount(cfg)
	return models.CatalogViews{
		All:               filtered,
		Bestsellers:       take(filtered, func(it *models.CatalogItem) bool { return it.Flags.IsBestseller }, ViewLimit),
		Recommended:       take(filtered, func(it *models.CatalogItem) bool { return it.Flags.IsRecommended }, ViewLimit),
		MatchCount:        len(filtered),
		ActiveFilterCount: active,
		ShowMatchCount:    active > 0 || cfg.SearchText != "",
	}
}

// ActiveFilterCount is |brands| + the number of selected spec values +
// |features| + 1 when the price range is narrower than the default.
// Search text does not count.
func ActiveFilterCount(cfg models.FilterConfig) int {
	n := len(cfg.Brands) + len(cfg.Features)
	for _, values := range cfg.SpecFilters {
		n += len(values)
	}
	if cfg.PriceRange.Narrowed() {
		n++
	}
	return n
}

type specClause struct {
	attribute string
	accepted  []string
}

// matcher holds the folded form of a FilterConfig so each item costs one pass
type matcher struct {
	search   string
	brands   map[string]struct{}
	price    models.PriceRange
	specs    []specClause
	features map[string]struct{}
}

func newMatcher(cfg models.FilterConfig) *matcher {
	m := &matcher{
		search: fold(cfg.SearchText),
		price:  cfg.PriceRange,
	}

	if len(cfg.Brands) > 0 {
		m.brands = make(map[string]struct{}, len(cfg.Brands))
		for _, b := range cfg.Brands {
			m.brands[b] = struct{}{}
		}
	}

	names := make([]string, 0, len(cfg.SpecFilters))
	for name, values := range cfg.SpecFilters {
		if len(values) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		m.specs = append(m.specs, specClause{
			attribute: strings.ToLower(name),
			accepted:  foldAll(cfg.SpecFilters[name]),
		})
	}

	if len(cfg.Features) > 0 {
		m.features = make(map[string]struct{}, len(cfg.Features))
		for _, f := range cfg.Features {
			m.features[fold(f)] = struct{}{}
		}
	}

	return m
}

func (m *matcher) matches(item *models.CatalogItem) bool {
	return m.matchText(item) &&
		m.matchBrand(item) &&
		m.price.Contains(item.Price) &&
		m.matchSpecs(item) &&
		m.matchFeatures(item)
}

func (m *matcher) matchText(item *models.CatalogItem) bool {
	if m.search == "" {
		return true
	}
	return strings.Contains(fold(item.Model), m.search) || strings.Contains(fold(item.Brand), m.search)
}

func (m *matcher) matchBrand(item *models.CatalogItem) bool {
	if m.brands == nil {
		return true
	}
	_, ok := m.brands[item.Brand]
	return ok
}

// matchSpecs requires every clause with selected values to hit. An item
// without the attribute fails such a clause.
func (m *matcher) matchSpecs(item *models.CatalogItem) bool {
	for _, clause := range m.specs {
		value, ok := item.Attributes[clause.attribute]
		if !ok || strings.TrimSpace(value) == "" {
			return false
		}
		folded := fold(value)
		hit := false
		for _, accepted := range clause.accepted {
			if strings.Contains(folded, accepted) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// matchFeatures is an OR over the selected features
func (m *matcher) matchFeatures(item *models.CatalogItem) bool {
	if m.features == nil {
		return true
	}
	for _, f := range item.Features {
		if _, ok := m.features[fold(f)]; ok {
			return true
		}
	}
	return false
}

func sortItems(items []models.CatalogItem, key models.SortKey) {
	var less func(a, b *models.CatalogItem) bool

	switch key {
	case models.SortPriceLow:
		less = func(a, b *models.CatalogItem) bool { return a.Price < b.Price }
	case models.SortPriceHigh:
		less = func(a, b *models.CatalogItem) bool { return a.Price > b.Price }
	case models.SortRating:
		less = func(a, b *models.CatalogItem) bool { return a.RatingOrZero() > b.RatingOrZero() }
	case models.SortNewest:
		// Catalog order is the recency order
		return
	default:
		less = func(a, b *models.CatalogItem) bool { return a.Flags.IsBestseller && !b.Flags.IsBestseller }
	}

	sort.SliceStable(items, func(i, j int) bool { return less(&items[i], &items[j]) })
}

func take(items []models.CatalogItem, keep func(*models.CatalogItem) bool, limit int) []models.CatalogItem {
	out := make([]models.CatalogItem, 0, limit)
	for i := range items {
		if len(out) == limit {
			break
		}
		if keep(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}
