package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/johnrirwin/devicedeck/internal/models"
	"github.com/johnrirwin/devicedeck/internal/ratelimit"
)

// FeedConfig points each category at a merchant product feed
type FeedConfig struct {
	Merchant string
	URLs     map[models.Category]string
	Timeout  time.Duration
	MaxItems int
}

// FeedSource reads RSS/Atom merchant feeds carrying Google Merchant ("g:")
// product elements
type FeedSource struct {
	config  FeedConfig
	parser  *gofeed.Parser
	limiter *ratelimit.Limiter
}

// NewFeedSource creates a merchant feed source
func NewFeedSource(config FeedConfig, limiter *ratelimit.Limiter) *FeedSource {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxItems <= 0 {
		config.MaxItems = 500
	}
	if config.Merchant == "" {
		config.Merchant = "Merchant"
	}
	return &FeedSource{
		config:  config,
		parser:  gofeed.NewParser(),
		limiter: limiter,
	}
}

func (f *FeedSource) Name() string {
	return "feed"
}

func (f *FeedSource) Load(ctx context.Context, category models.Category) ([]models.CatalogItem, error) {
	url := f.config.URLs[category]
	if url == "" {
		return nil, ErrNoItems
	}

	f.limiter.Wait(url)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(url, ctxWithTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse product feed %s: %w", url, err)
	}

	items := f.itemsFromFeed(category, feed)
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	return items, nil
}

func (f *FeedSource) itemsFromFeed(category models.Category, feed *gofeed.Feed) []models.CatalogItem {
	raws := make([]RawDevice, 0, len(feed.Items))
	links := make([]string, 0, len(feed.Items))
	for i, item := range feed.Items {
		if i >= f.config.MaxItems {
			break
		}
		raw, ok := rawFromFeedItem(item)
		if !ok {
			continue
		}
		raws = append(raws, raw)
		links = append(links, item.Link)
	}

	items := Normalize(category, raws)

	// rawFromFeedItem guarantees brand and model, so items and links stay aligned
	vendorID := strings.ToLower(strings.ReplaceAll(f.config.Merchant, " ", "-"))
	for i := range items {
		items[i].VendorOffers = append(items[i].VendorOffers, models.VendorOffer{
			VendorID:   vendorID,
			VendorName: f.config.Merchant,
			Price:      items[i].Price,
			URL:        links[i],
			InStock:    true,
		})
	}
	return items
}

func rawFromFeedItem(item *gofeed.Item) (RawDevice, bool) {
	g := item.Extensions["g"]
	value := func(name string) string {
		if g == nil {
			return ""
		}
		if exts := g[name]; len(exts) > 0 {
			return strings.TrimSpace(exts[0].Value)
		}
		return ""
	}

	brand := value("brand")
	model := trimBrandPrefix(strings.TrimSpace(item.Title), brand)
	if brand == "" || model == "" {
		return RawDevice{}, false
	}

	raw := RawDevice{
		ID:          value("id"),
		Brand:       brand,
		Model:       model,
		Image:       value("image_link"),
		Price:       Amount(ParseAmount(value("sale_price"))),
		Description: strings.TrimSpace(item.Description),
	}
	if raw.Price == 0 {
		raw.Price = Amount(ParseAmount(value("price")))
	}
	if raw.Image == "" && item.Image != nil {
		raw.Image = item.Image.URL
	}
	if raw.ID != "" {
		raw.ID = "feed-" + raw.ID
	}

	if g != nil {
		for _, h := range g["product_highlight"] {
			raw.KeyFeatures = append(raw.KeyFeatures, h.Value)
		}
		for _, detail := range g["product_detail"] {
			name := firstChild(detail.Children, "attribute_name")
			val := firstChild(detail.Children, "attribute_value")
			raw.setAttribute(name, val)
		}
	}

	return raw, true
}

func firstChild(children map[string][]ext.Extension, name string) string {
	if exts := children[name]; len(exts) > 0 {
		return strings.TrimSpace(exts[0].Value)
	}
	return ""
}

func (r *RawDevice) setAttribute(name, value string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ram", "memory":
		r.RAM = value
	case "storage":
		r.Storage = value
	case "battery":
		r.Battery = value
	case "camera":
		r.Camera = value
	case "processor", "chipset":
		r.Processor = value
	case "graphics", "gpu":
		r.Graphics = value
	case "display", "screen":
		r.Display = value
	case "os", "operating system":
		r.OS = value
	}
}

// trimBrandPrefix drops a leading brand from a listing title, comparing rune
// by rune without case. A title that is only the brand is kept whole.
func trimBrandPrefix(title, brand string) string {
	if brand == "" {
		return title
	}
	rest := title
	for _, br := range brand {
		tr, size := utf8.DecodeRuneInString(rest)
		if size == 0 || !strings.EqualFold(string(tr), string(br)) {
			return title
		}
		rest = rest[size:]
	}
	if rest = strings.TrimSpace(rest); rest == "" {
		return title
	}
	return rest
}
