package facets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrirwin/devicedeck/internal/models"
)

func TestDefault(t *testing.T) {
	config := Default()
	assert.Equal(t, 300000.0, config.MaxPrice)
	assert.Len(t, config.Categories, 3)

	phone := config.Categories["phone"]
	require.Len(t, phone.Specs, 3)
	assert.Equal(t, "RAM", phone.Specs[0].Name)
	assert.Equal(t, `6.1"`, phone.Specs[2].Values[0])
	assert.Contains(t, phone.Features, "Face ID")
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("categories: [not, a, map]"))
	assert.Error(t, err)

	_, err = Parse([]byte("categories:\n  watch:\n    brands: [Garmin]\n"))
	assert.ErrorContains(t, err, "watch")
}

func TestNewCatalog_FallsBackPerCategory(t *testing.T) {
	config, err := Parse([]byte(`
max_price: 150000
categories:
  laptop:
    brands: [Framework]
    max_price: 250000
`))
	require.NoError(t, err)

	c := NewCatalog(config)

	laptop, ok := c.Facets(models.CategoryLaptop)
	require.True(t, ok)
	assert.Equal(t, []string{"Framework"}, laptop.Brands)
	assert.Equal(t, 250000.0, laptop.MaxPrice)
	assert.Equal(t, models.CategoryLaptop, laptop.Category)

	phone, ok := c.Facets(models.CategoryPhone)
	require.True(t, ok)
	assert.Contains(t, phone.Brands, "OnePlus")
	assert.Equal(t, 150000.0, phone.MaxPrice)
}

func TestCatalog_FilterBrands(t *testing.T) {
	c := NewCatalog(Default())

	tests := []struct {
		name     string
		category models.Category
		query    string
		want     []string
	}{
		{"empty query keeps all", models.CategoryTablet, "", []string{"Apple", "Samsung", "Microsoft", "Lenovo", "Huawei", "Amazon"}},
		{"case insensitive", models.CategoryPhone, "PL", []string{"Apple", "OnePlus"}},
		{"no match", models.CategoryLaptop, "nokia", []string{}},
		{"unknown category", models.Category("watch"), "a", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.FilterBrands(tt.category, tt.query))
		})
	}
}

func TestLoadAndFind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_price: 99999\n"), 0o600))

	t.Setenv("CATALOG_CONFIG_PATH", path)
	assert.Equal(t, path, Find())

	config, err := Load(Find())
	require.NoError(t, err)
	assert.Equal(t, 99999.0, config.MaxPrice)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
