package sellers

import (
	"context"

	"github.com/johnrirwin/devicedeck/internal/catalog"
	"github.com/johnrirwin/devicedeck/internal/ratelimit"
)

var amazonSelectors = Selectors{
	Price: []string{
		"#corePriceDisplay_desktop_feature_div .a-price-whole",
		"#corePrice_feature_div .a-offscreen",
		"#priceblock_ourprice",
		"#priceblock_dealprice",
	},
	Availability: "#availability",
	Delivery:     "#mir-layout-DELIVERY_BLOCK-slot-PRIMARY_DELIVERY_MESSAGE_LARGE",
	SoldOut:      []string{"currently unavailable", "out of stock"},
}

// Amazon reads prices from amazon.in product pages
type Amazon struct {
	scraper *pageScraper
}

// NewAmazon creates an Amazon India adapter
func NewAmazon(limiter *ratelimit.Limiter, config Config) *Amazon {
	return &Amazon{scraper: newPageScraper(limiter, config, amazonSelectors)}
}

func (a *Amazon) ID() string {
	return catalog.VendorAmazon
}

func (a *Amazon) Name() string {
	return "Amazon"
}

func (a *Amazon) BaseURL() string {
	return "https://www.amazon.in"
}

func (a *Amazon) FetchQuote(ctx context.Context, productURL string) (*Quote, error) {
	return a.scraper.quote(ctx, a.BaseURL(), productURL)
}
