package sellers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/johnrirwin/devicedeck/internal/catalog"
	"github.com/johnrirwin/devicedeck/internal/ratelimit"
)

// Config controls how product pages are fetched
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// DefaultConfig returns the fetch settings used in production
func DefaultConfig() Config {
	return Config{
		Timeout:   20 * time.Second,
		UserAgent: "Mozilla/5.0 (compatible; DeviceDeckPriceBot/1.0)",
	}
}

// Selectors locate price and stock on a retailer's product page
type Selectors struct {
	// Price selectors are tried in order until one yields a number
	Price        []string
	Availability string
	Delivery     string
	// SoldOut phrases are matched against the availability text, lowercased
	SoldOut []string
}

type pageScraper struct {
	client    *http.Client
	limiter   *ratelimit.Limiter
	userAgent string
	selectors Selectors
}

func newPageScraper(limiter *ratelimit.Limiter, config Config, selectors Selectors) *pageScraper {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultConfig().UserAgent
	}
	return &pageScraper{
		client:    &http.Client{Timeout: config.Timeout},
		limiter:   limiter,
		userAgent: config.UserAgent,
		selectors: selectors,
	}
}

func (p *pageScraper) quote(ctx context.Context, host, productURL string) (*Quote, error) {
	p.limiter.Wait(host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, productURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-IN,en;q=0.9")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("product page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse product page: %w", err)
	}
	return quoteFromDocument(doc, p.selectors)
}

func quoteFromDocument(doc *goquery.Document, sel Selectors) (*Quote, error) {
	q := &Quote{InStock: true}

	for _, s := range sel.Price {
		doc.Find(s).EachWithBreak(func(_ int, node *goquery.Selection) bool {
			q.Price = catalog.ParseAmount(node.Text())
			return q.Price <= 0
		})
		if q.Price > 0 {
			break
		}
	}

	if sel.Availability != "" {
		availability := strings.ToLower(strings.TrimSpace(doc.Find(sel.Availability).First().Text()))
		for _, phrase := range sel.SoldOut {
			if strings.Contains(availability, phrase) {
				q.InStock = false
				break
			}
		}
	}

	if sel.Delivery != "" {
		q.Delivery = strings.Join(strings.Fields(doc.Find(sel.Delivery).First().Text()), " ")
	}

	if q.Price <= 0 && q.InStock {
		return nil, ErrNoPrice
	}
	return q, nil
}
