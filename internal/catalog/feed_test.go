package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrirwin/devicedeck/internal/models"
	"github.com/johnrirwin/devicedeck/internal/ratelimit"
)

const merchantFeed = `<?xml version="1.0"?>
<rss version="2.0" xmlns:g="http://base.google.com/ns/1.0">
  <channel>
    <title>Croma phones</title>
    <link>https://croma.example</link>
    <item>
      <title>Samsung Galaxy S24</title>
      <link>https://croma.example/galaxy-s24</link>
      <description>Flagship with *Galaxy AI*</description>
      <g:id>S24-256</g:id>
      <g:brand>Samsung</g:brand>
      <g:price>79999.00 INR</g:price>
      <g:sale_price>74999.00 INR</g:sale_price>
      <g:image_link>https://croma.example/img/s24.jpg</g:image_link>
      <g:product_highlight>5G</g:product_highlight>
      <g:product_highlight>Wireless Charging</g:product_highlight>
      <g:product_detail>
        <g:attribute_name>RAM</g:attribute_name>
        <g:attribute_value>8GB</g:attribute_value>
      </g:product_detail>
      <g:product_detail>
        <g:attribute_name>Chipset</g:attribute_name>
        <g:attribute_value>Exynos 2400</g:attribute_value>
      </g:product_detail>
    </item>
    <item>
      <title>Unbranded accessory</title>
      <link>https://croma.example/cable</link>
      <g:price>499 INR</g:price>
    </item>
  </channel>
</rss>`

func TestRawFromFeedItem(t *testing.T) {
	feed, err := gofeed.NewParser().ParseString(merchantFeed)
	require.NoError(t, err)
	require.Len(t, feed.Items, 2)

	raw, ok := rawFromFeedItem(feed.Items[0])
	require.True(t, ok)
	assert.Equal(t, "feed-S24-256", raw.ID)
	assert.Equal(t, "Samsung", raw.Brand)
	assert.Equal(t, "Galaxy S24", raw.Model)
	assert.Equal(t, 74999.0, float64(raw.Price))
	assert.Equal(t, "https://croma.example/img/s24.jpg", raw.Image)
	assert.Equal(t, []string{"5G", "Wireless Charging"}, raw.KeyFeatures)
	assert.Equal(t, "8GB", raw.RAM)
	assert.Equal(t, "Exynos 2400", raw.Processor)

	_, ok = rawFromFeedItem(feed.Items[1])
	assert.False(t, ok, "items without a brand are skipped")
}

func TestTrimBrandPrefix(t *testing.T) {
	tests := []struct {
		title, brand, want string
	}{
		{"Samsung Galaxy S24", "Samsung", "Galaxy S24"},
		{"SAMSUNG Galaxy S24", "samsung", "Galaxy S24"},
		{"Galaxy S24", "Samsung", "Galaxy S24"},
		{"Samsung", "Samsung", "Samsung"},
		{"Ökofon X1", "ökofon", "X1"},
		{"Öko X1", "Ökofon", "Öko X1"},
		{"Ö", "Öko", "Ö"},
		{"日本電気 N-01", "日本電気", "N-01"},
		{"日本 N-01", "日本電気", "日本 N-01"},
		{"Nokia G42", "", "Nokia G42"},
	}

	for _, tt := range tests {
		t.Run(tt.title+"/"+tt.brand, func(t *testing.T) {
			assert.Equal(t, tt.want, trimBrandPrefix(tt.title, tt.brand))
		})
	}
}

func TestFeedSource_Load(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(merchantFeed))
	}))
	defer srv.Close()

	src := NewFeedSource(FeedConfig{
		Merchant: "Croma",
		URLs:     map[models.Category]string{models.CategoryPhone: srv.URL},
		Timeout:  5 * time.Second,
	}, ratelimit.New(0))

	items, err := src.Load(context.Background(), models.CategoryPhone)
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, 74999.0, item.Price)
	assert.Equal(t, "Exynos 2400", item.Attributes["processor"])
	require.Len(t, item.VendorOffers, 1)
	assert.Equal(t, "croma", item.VendorOffers[0].VendorID)
	assert.Equal(t, "https://croma.example/galaxy-s24", item.VendorOffers[0].URL)

	_, err = src.Load(context.Background(), models.CategoryLaptop)
	assert.ErrorIs(t, err, ErrNoItems)
}
