package sellers

import (
	"context"

	"github.com/johnrirwin/devicedeck/internal/catalog"
	"github.com/johnrirwin/devicedeck/internal/ratelimit"
)

// Flipkart rotates its generated class names; the older ones stay listed
// while cached pages still carry them.
var flipkartSelectors = Selectors{
	Price: []string{
		"div.Nx9bqj.CxhGGd",
		"div.Nx9bqj",
		"div._30jeq3._16Jk6d",
		"div._30jeq3",
	},
	Availability: "div.Z8JjpR, div._16FRp0",
	Delivery:     "div.hVvnXm, div._3XINqE",
	SoldOut:      []string{"sold out", "currently unavailable", "coming soon"},
}

// Flipkart reads prices from flipkart.com product pages
type Flipkart struct {
	scraper *pageScraper
}

// NewFlipkart creates a Flipkart adapter
func NewFlipkart(limiter *ratelimit.Limiter, config Config) *Flipkart {
	return &Flipkart{scraper: newPageScraper(limiter, config, flipkartSelectors)}
}

func (f *Flipkart) ID() string {
	return catalog.VendorFlipkart
}

func (f *Flipkart) Name() string {
	return "Flipkart"
}

func (f *Flipkart) BaseURL() string {
	return "https://www.flipkart.com"
}

func (f *Flipkart) FetchQuote(ctx context.Context, productURL string) (*Quote, error) {
	return f.scraper.quote(ctx, f.BaseURL(), productURL)
}
