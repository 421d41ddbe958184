package catalog

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrirwin/devicedeck/internal/models"
)

func rating(v float64) *float64 { return &v }

func appleSamsung() []models.CatalogItem {
	return []models.CatalogItem{
		{ID: "apple", Brand: "Apple", Model: "iPhone 15", Price: 80000, Rating: rating(4.5), Flags: models.CatalogFlags{IsBestseller: true}},
		{ID: "samsung", Brand: "Samsung", Model: "Galaxy S24", Price: 50000, Rating: rating(4.8)},
	}
}

func ids(items []models.CatalogItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func cfgWith(mut func(*models.FilterConfig)) models.FilterConfig {
	cfg := models.DefaultFilterConfig()
	mut(&cfg)
	return cfg
}

func TestDerive_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		cfg       models.FilterConfig
		wantAll   []string
		wantCount int
	}{
		{
			name:      "price-low with no filters",
			cfg:       cfgWith(func(c *models.FilterConfig) { c.SortKey = models.SortPriceLow }),
			wantAll:   []string{"samsung", "apple"},
			wantCount: 2,
		},
		{
			name:      "brand filter",
			cfg:       cfgWith(func(c *models.FilterConfig) { c.Brands = []string{"Samsung"} }),
			wantAll:   []string{"samsung"},
			wantCount: 1,
		},
		{
			name:      "price range excludes cheaper item",
			cfg:       cfgWith(func(c *models.FilterConfig) { c.PriceRange = models.PriceRange{Min: 60000, Max: 300000} }),
			wantAll:   []string{"apple"},
			wantCount: 1,
		},
		{
			name:      "popularity puts bestsellers first",
			cfg:       models.DefaultFilterConfig(),
			wantAll:   []string{"apple", "samsung"},
			wantCount: 2,
		},
		{
			name:      "rating descending",
			cfg:       cfgWith(func(c *models.FilterConfig) { c.SortKey = models.SortRating }),
			wantAll:   []string{"samsung", "apple"},
			wantCount: 2,
		},
		{
			name:      "price-high",
			cfg:       cfgWith(func(c *models.FilterConfig) { c.SortKey = models.SortPriceHigh }),
			wantAll:   []string{"apple", "samsung"},
			wantCount: 2,
		},
		{
			name:      "search is case-insensitive on brand",
			cfg:       cfgWith(func(c *models.FilterConfig) { c.SearchText = "SAMS" }),
			wantAll:   []string{"samsung"},
			wantCount: 1,
		},
		{
			name:      "search matches model",
			cfg:       cfgWith(func(c *models.FilterConfig) { c.SearchText = "iphone" }),
			wantAll:   []string{"apple"},
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views := Derive(appleSamsung(), tt.cfg)
			assert.Equal(t, tt.wantAll, ids(views.All))
			assert.Equal(t, tt.wantCount, views.MatchCount)
		})
	}
}

func TestDerive_EmptyItems(t *testing.T) {
	configs := []models.FilterConfig{
		models.DefaultFilterConfig(),
		cfgWith(func(c *models.FilterConfig) {
			c.Brands = []string{"Apple"}
			c.SpecFilters = map[string][]string{"RAM": {"8GB"}}
			c.Features = []string{"5G"}
			c.SortKey = models.SortRating
		}),
		{},
	}

	for i, cfg := range configs {
		t.Run(fmt.Sprintf("config %d", i), func(t *testing.T) {
			views := Derive(nil, cfg)
			assert.Empty(t, views.All)
			assert.NotNil(t, views.All)
			assert.Empty(t, views.Bestsellers)
			assert.Empty(t, views.Recommended)
			assert.Zero(t, views.MatchCount)
		})
	}
}

func TestDerive_SpecClauses(t *testing.T) {
	items := []models.CatalogItem{
		{ID: "with-8gb", Brand: "Google", Price: 1000, Attributes: map[string]string{"ram": "8GB", "processor": "Google Tensor G3"}},
		{ID: "with-12gb", Brand: "OnePlus", Price: 1000, Attributes: map[string]string{"ram": "12GB", "processor": "Snapdragon 8 Gen 3"}},
		{ID: "no-attrs", Brand: "Acme", Price: 1000},
	}

	t.Run("clause without values keeps items lacking the attribute", func(t *testing.T) {
		cfg := cfgWith(func(c *models.FilterConfig) { c.SpecFilters = map[string][]string{"RAM": {}} })
		assert.Equal(t, []string{"with-8gb", "with-12gb", "no-attrs"}, ids(Derive(items, cfg).All))
	})

	t.Run("selected value excludes items lacking the attribute", func(t *testing.T) {
		cfg := cfgWith(func(c *models.FilterConfig) { c.SpecFilters = map[string][]string{"RAM": {"8GB"}} })
		assert.Equal(t, []string{"with-8gb"}, ids(Derive(items, cfg).All))
	})

	t.Run("any accepted value satisfies the clause", func(t *testing.T) {
		cfg := cfgWith(func(c *models.FilterConfig) { c.SpecFilters = map[string][]string{"RAM": {"8GB", "12GB"}} })
		assert.Equal(t, []string{"with-8gb", "with-12gb"}, ids(Derive(items, cfg).All))
	})

	t.Run("matching is case-insensitive substring", func(t *testing.T) {
		cfg := cfgWith(func(c *models.FilterConfig) { c.SpecFilters = map[string][]string{"Processor": {"snapdragon"}} })
		assert.Equal(t, []string{"with-12gb"}, ids(Derive(items, cfg).All))

		cfg = cfgWith(func(c *models.FilterConfig) { c.SpecFilters = map[string][]string{"RAM": {"8gb"}} })
		assert.Equal(t, []string{"with-8gb"}, ids(Derive(items, cfg).All))
	})

	t.Run("clauses are conjunctive", func(t *testing.T) {
		cfg := cfgWith(func(c *models.FilterConfig) {
			c.SpecFilters = map[string][]string{"RAM": {"8GB"}, "Processor": {"Snapdragon"}}
		})
		assert.Empty(t, Derive(items, cfg).All)
	})
}

func TestDerive_Features(t *testing.T) {
	items := []models.CatalogItem{
		{ID: "5g", Price: 1, Brand: "A", Features: []string{"5G", "Fingerprint"}},
		{ID: "faceid", Price: 1, Brand: "B", Features: []string{"Face ID"}},
		{ID: "none", Price: 1, Brand: "C"},
	}

	t.Run("no selection keeps everything", func(t *testing.T) {
		assert.Len(t, Derive(items, models.DefaultFilterConfig()).All, 3)
	})

	t.Run("OR semantics", func(t *testing.T) {
		cfg := cfgWith(func(c *models.FilterConfig) { c.Features = []string{"5G", "Face ID"} })
		assert.Equal(t, []string{"5g", "faceid"}, ids(Derive(items, cfg).All))
	})

	t.Run("item without features is excluded once a feature is selected", func(t *testing.T) {
		cfg := cfgWith(func(c *models.FilterConfig) { c.Features = []string{"Fingerprint"} })
		assert.Equal(t, []string{"5g"}, ids(Derive(items, cfg).All))
	})
}

func TestDerive_PriceBoundsInclusive(t *testing.T) {
	items := []models.CatalogItem{
		{ID: "low", Price: 10000},
		{ID: "mid", Price: 20000},
		{ID: "high", Price: 30000},
	}
	cfg := cfgWith(func(c *models.FilterConfig) { c.PriceRange = models.PriceRange{Min: 10000, Max: 30000} })
	assert.Equal(t, []string{"low", "mid", "high"}, ids(Derive(items, cfg).All))
}

func TestDerive_StableSort(t *testing.T) {
	items := []models.CatalogItem{
		{ID: "a", Price: 100},
		{ID: "b", Price: 50},
		{ID: "c", Price: 100},
		{ID: "d", Price: 50},
		{ID: "e", Price: 100},
	}

	t.Run("price ties keep input order", func(t *testing.T) {
		cfg := cfgWith(func(c *models.FilterConfig) { c.SortKey = models.SortPriceLow })
		assert.Equal(t, []string{"b", "d", "a", "c", "e"}, ids(Derive(items, cfg).All))
	})

	t.Run("missing ratings sort as zero and keep input order", func(t *testing.T) {
		cfg := cfgWith(func(c *models.FilterConfig) { c.SortKey = models.SortRating })
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(Derive(items, cfg).All))
	})

	t.Run("newest keeps catalog order", func(t *testing.T) {
		cfg := cfgWith(func(c *models.FilterConfig) { c.SortKey = models.SortNewest })
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(Derive(items, cfg).All))
	})
}

func bigCatalog() []models.CatalogItem {
	raws, err := LoadBundled(models.CategoryPhone)
	if err != nil {
		panic(err)
	}
	items := Normalize(models.CategoryPhone, raws)
	// Pad with synthetic bestsellers so the rails overflow
	for i := 0; i < 20; i++ {
		items = append(items, models.CatalogItem{
			ID:    fmt.Sprintf("extra-%d", i),
			Brand: "Acme",
			Model: fmt.Sprintf("Model %d", i),
			Price: float64(10000 + i*1000),
			Flags: models.CatalogFlags{IsBestseller: true, IsRecommended: i%2 == 0},
		})
	}
	return items
}

func TestDerive_ViewLimitsAndSubsets(t *testing.T) {
	items := bigCatalog()

	for _, key := range []models.SortKey{models.SortPopularity, models.SortPriceLow, models.SortPriceHigh, models.SortRating, models.SortNewest} {
		t.Run(string(key), func(t *testing.T) {
			views := Derive(items, cfgWith(func(c *models.FilterConfig) { c.SortKey = key }))

			assert.LessOrEqual(t, len(views.Bestsellers), ViewLimit)
			assert.LessOrEqual(t, len(views.Recommended), ViewLimit)

			inAll := make(map[string]bool, len(views.All))
			for _, it := range views.All {
				inAll[it.ID] = true
			}
			for _, it := range views.Bestsellers {
				assert.True(t, it.Flags.IsBestseller)
				assert.True(t, inAll[it.ID], "bestseller %s not in all", it.ID)
			}
			for _, it := range views.Recommended {
				assert.True(t, it.Flags.IsRecommended)
				assert.True(t, inAll[it.ID], "recommended %s not in all", it.ID)
			}
		})
	}
}

func TestDerive_RailsFollowSortedOrder(t *testing.T) {
	items := bigCatalog()
	views := Derive(items, cfgWith(func(c *models.FilterConfig) { c.SortKey = models.SortPriceLow }))

	var expected []string
	for _, it := range views.All {
		if it.Flags.IsBestseller && len(expected) < ViewLimit {
			expected = append(expected, it.ID)
		}
	}
	assert.Equal(t, expected, ids(views.Bestsellers))
}

func TestDerive_Idempotent(t *testing.T) {
	items := bigCatalog()
	cfg := cfgWith(func(c *models.FilterConfig) {
		c.SpecFilters = map[string][]string{"RAM": {"8GB", "12GB"}}
		c.Features = []string{"5G"}
		c.SortKey = models.SortRating
	})

	first := Derive(items, cfg)
	second := Derive(items, cfg)
	assert.Equal(t, ids(first.All), ids(second.All))
	assert.Equal(t, ids(first.Bestsellers), ids(second.Bestsellers))
	assert.Equal(t, ids(first.Recommended), ids(second.Recommended))
}

func TestDerive_DoesNotMutateInput(t *testing.T) {
	items := bigCatalog()
	before := make([]models.CatalogItem, len(items))
	copy(before, items)

	Derive(items, cfgWith(func(c *models.FilterConfig) { c.SortKey = models.SortPriceHigh }))

	require.True(t, reflect.DeepEqual(before, items), "Derive reordered or modified its input")
}

func TestDerive_PriceLowReversedIsPriceHigh(t *testing.T) {
	items := bigCatalog()

	low := Derive(items, cfgWith(func(c *models.FilterConfig) { c.SortKey = models.SortPriceLow })).All
	high := Derive(items, cfgWith(func(c *models.FilterConfig) { c.SortKey = models.SortPriceHigh })).All
	require.Equal(t, len(low), len(high))

	// Compare prices rather than ids so ties may land in either order
	for i := range low {
		assert.Equal(t, low[i].Price, high[len(high)-1-i].Price)
	}
}

// violatedClause checks each filter clause straight from the item fields and
// names the first one the item fails, or returns "" when it passes them all.
// cfg must already be clean: no blank values and Min <= Max.
func violatedClause(it models.CatalogItem, cfg models.FilterConfig) string {
	if q := strings.ToLower(strings.TrimSpace(cfg.SearchText)); q != "" {
		if !strings.Contains(strings.ToLower(it.Brand), q) && !strings.Contains(strings.ToLower(it.Model), q) {
			return "search"
		}
	}

	if len(cfg.Brands) > 0 {
		found := false
		for _, b := range cfg.Brands {
			if b == it.Brand {
				found = true
			}
		}
		if !found {
			return "brand"
		}
	}

	if it.Price < cfg.PriceRange.Min || it.Price > cfg.PriceRange.Max {
		return "price"
	}

	for name, values := range cfg.SpecFilters {
		if len(values) == 0 {
			continue
		}
		have := strings.ToLower(it.Attributes[strings.ToLower(name)])
		hit := false
		for _, v := range values {
			if have != "" && strings.Contains(have, strings.ToLower(v)) {
				hit = true
			}
		}
		if !hit {
			return "spec:" + name
		}
	}

	if len(cfg.Features) > 0 {
		hit := false
		for _, want := range cfg.Features {
			for _, f := range it.Features {
				if strings.EqualFold(f, want) {
					hit = true
				}
			}
		}
		if !hit {
			return "feature"
		}
	}
	return ""
}

func assertClauseSound(t *testing.T, items []models.CatalogItem, cfg models.FilterConfig) (kept, excluded int) {
	t.Helper()
	views := Derive(items, cfg)

	inAll := make(map[string]bool, len(views.All))
	for _, it := range views.All {
		inAll[it.ID] = true
	}
	for _, it := range items {
		clause := violatedClause(it, cfg)
		if inAll[it.ID] {
			assert.Empty(t, clause, "%s kept but violates %s", it.ID, clause)
			kept++
		} else {
			assert.NotEmpty(t, clause, "%s excluded but satisfies every clause", it.ID)
			excluded++
		}
	}
	return kept, excluded
}

func TestDerive_ClauseSoundness(t *testing.T) {
	items := []models.CatalogItem{
		{ID: "keep", Brand: "Samsung", Model: "Galaxy S24", Price: 74999,
			Attributes: map[string]string{"storage": "256GB"}, Features: []string{"5G", "Wireless Charging"}},
		{ID: "keep-at-max", Brand: "Apple", Model: "iPhone 15 Pro", Price: 140000,
			Attributes: map[string]string{"storage": "128GB"}, Features: []string{"wireless charging"}},
		{ID: "keep-at-min", Brand: "Google", Model: "Pixel 8a", Price: 30000,
			Attributes: map[string]string{"storage": "128gb UFS"}, Features: []string{"Wireless Charging"}},
		{ID: "wrong-brand", Brand: "Xiaomi", Model: "14", Price: 69999,
			Attributes: map[string]string{"storage": "256GB"}, Features: []string{"Wireless Charging"}},
		{ID: "brand-case", Brand: "samsung", Model: "Galaxy A55", Price: 39999,
			Attributes: map[string]string{"storage": "128GB"}, Features: []string{"Wireless Charging"}},
		{ID: "too-cheap", Brand: "Samsung", Model: "Galaxy A15", Price: 29999,
			Attributes: map[string]string{"storage": "128GB"}, Features: []string{"Wireless Charging"}},
		{ID: "too-dear", Brand: "Apple", Model: "iPhone 15 Pro Max", Price: 140001,
			Attributes: map[string]string{"storage": "256GB"}, Features: []string{"Wireless Charging"}},
		{ID: "no-storage", Brand: "Samsung", Model: "Galaxy Z Flip", Price: 99999,
			Features: []string{"Wireless Charging"}},
		{ID: "wrong-storage", Brand: "Google", Model: "Pixel 8 Pro", Price: 106999,
			Attributes: map[string]string{"storage": "512GB"}, Features: []string{"Wireless Charging"}},
		{ID: "no-feature", Brand: "Google", Model: "Pixel 8", Price: 75999,
			Attributes: map[string]string{"storage": "128GB"}, Features: []string{"5G"}},
	}
	cfg := cfgWith(func(c *models.FilterConfig) {
		c.Brands = []string{"Apple", "Samsung", "Google"}
		c.PriceRange = models.PriceRange{Min: 30000, Max: 140000}
		c.SpecFilters = map[string][]string{"Storage": {"128GB", "256GB"}}
		c.Features = []string{"Wireless Charging"}
	})

	assert.Equal(t, []string{"keep", "keep-at-max", "keep-at-min"}, ids(Derive(items, cfg).All))
	kept, excluded := assertClauseSound(t, items, cfg)
	assert.Equal(t, 3, kept)
	assert.Equal(t, 7, excluded)

	cfg.SearchText = "galaxy"
	assert.Equal(t, []string{"keep"}, ids(Derive(items, cfg).All))
	assertClauseSound(t, items, cfg)
}

func TestDerive_ClauseSoundnessBundled(t *testing.T) {
	items := bigCatalog()
	configs := map[string]models.FilterConfig{
		"all clauses": cfgWith(func(c *models.FilterConfig) {
			c.Brands = []string{"Apple", "Samsung", "Google"}
			c.PriceRange = models.PriceRange{Min: 30000, Max: 140000}
			c.SpecFilters = map[string][]string{"Storage": {"128GB", "256GB"}}
			c.Features = []string{"Wireless Charging"}
		}),
		"spec only": cfgWith(func(c *models.FilterConfig) {
			c.SpecFilters = map[string][]string{"RAM": {"8GB"}, "Storage": {"256GB"}}
		}),
		"search and price": cfgWith(func(c *models.FilterConfig) {
			c.SearchText = "pro"
			c.PriceRange.Max = 100000
		}),
		"features": cfgWith(func(c *models.FilterConfig) { c.Features = []string{"5G", "Face ID"} }),
	}

	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			kept, excluded := assertClauseSound(t, items, cfg)
			assert.Equal(t, len(items), kept+excluded)
		})
	}

	kept, _ := assertClauseSound(t, items, configs["all clauses"])
	assert.NotZero(t, kept)
}

func TestActiveFilterCount(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.FilterConfig
		want int
	}{
		{"default", models.DefaultFilterConfig(), 0},
		{"search text does not count", cfgWith(func(c *models.FilterConfig) { c.SearchText = "pixel" }), 0},
		{"brands", cfgWith(func(c *models.FilterConfig) { c.Brands = []string{"Apple", "Google"} }), 2},
		{"spec values", cfgWith(func(c *models.FilterConfig) {
			c.SpecFilters = map[string][]string{"RAM": {"8GB", "12GB"}, "Storage": {"256GB"}, "Display": {}}
		}), 3},
		{"features", cfgWith(func(c *models.FilterConfig) { c.Features = []string{"5G"} }), 1},
		{"narrowed range", cfgWith(func(c *models.FilterConfig) { c.PriceRange.Max = 100000 }), 1},
		{"everything", cfgWith(func(c *models.FilterConfig) {
			c.Brands = []string{"Apple"}
			c.SpecFilters = map[string][]string{"RAM": {"8GB"}}
			c.Features = []string{"5G", "Face ID"}
			c.PriceRange.Min = 1000
		}), 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ActiveFilterCount(tt.cfg))
		})
	}
}

func TestDerive_ShowMatchCount(t *testing.T) {
	items := appleSamsung()

	assert.False(t, Derive(items, models.DefaultFilterConfig()).ShowMatchCount)
	assert.True(t, Derive(items, cfgWith(func(c *models.FilterConfig) { c.Brands = []string{"Apple"} })).ShowMatchCount)
	assert.True(t, Derive(items, cfgWith(func(c *models.FilterConfig) { c.SearchText = "gal" })).ShowMatchCount)
}
