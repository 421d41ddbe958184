package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/johnrirwin/devicedeck/internal/models"
)

// Vendor identifiers used for offers built from raw records
const (
	VendorAmazon   = "amazon"
	VendorFlipkart = "flipkart"
)

// Flag cadence for records that do not carry explicit merchandising flags
const (
	bestsellerEvery  = 5
	recommendedEvery = 7
)

var catalogNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://devicedeck.app/catalog"))

// Amount is a price that tolerates JSON numbers, numeric strings and
// formatted strings such as "₹1,29,999". Anything unparseable is 0.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = 0
			return nil
		}
		*a = Amount(ParseAmount(s))
		return nil
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*a = 0
		return nil
	}
	*a = Amount(f)
	return nil
}

// ParseAmount reads the first number in a formatted price such as
// "₹1,29,999", "Rs. 64,999.00" or "79999.00 INR". Grouping commas are
// ignored; 0 means no price.
func ParseAmount(s string) float64 {
	var b strings.Builder
	started := false
scan:
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			started = true
			b.WriteRune(r)
		case started && r == ',':
		case started && r == '.':
			b.WriteRune(r)
		case started:
			break scan
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(b.String(), "."), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

// RawDevice is a device record as shipped in the bundled catalog files and
// merchant exports. Field names follow the export format.
type RawDevice struct {
	ID             string   `json:"id,omitempty"`
	Brand          string   `json:"brand"`
	Model          string   `json:"model"`
	Image          string   `json:"image"`
	RAM            string   `json:"ram,omitempty"`
	Storage        string   `json:"storage,omitempty"`
	Battery        string   `json:"battery,omitempty"`
	Camera         string   `json:"camera,omitempty"`
	Processor      string   `json:"processor,omitempty"`
	Graphics       string   `json:"graphics,omitempty"`
	Display        string   `json:"display,omitempty"`
	OS             string   `json:"os,omitempty"`
	Price          Amount   `json:"price"`
	Ratings        *float64 `json:"ratings,omitempty"`
	KeyFeatures    []string `json:"key_features,omitempty"`
	Description    string   `json:"description,omitempty"`
	AmazonURL      string   `json:"Amazon,omitempty"`
	FlipkartURL    string   `json:"Flipkart,omitempty"`
	AmazonPrice    Amount   `json:"Amazon Price,omitempty"`
	FlipkartPrice  Amount   `json:"Flipkart Price,omitempty"`
	FlipkartPrices Amount   `json:"Flipkart prices,omitempty"`
	Bestseller     *bool    `json:"bestseller,omitempty"`
	Recommended    *bool    `json:"recommended,omitempty"`
}

// EffectivePrice is the Amazon price, else the list price, else 0
func (r *RawDevice) EffectivePrice() float64 {
	if r.AmazonPrice > 0 {
		return float64(r.AmazonPrice)
	}
	if r.Price > 0 {
		return float64(r.Price)
	}
	return 0
}

// flipkartPrice falls back through both Flipkart spellings to the Amazon price
func (r *RawDevice) flipkartPrice() float64 {
	switch {
	case r.FlipkartPrice > 0:
		return float64(r.FlipkartPrice)
	case r.FlipkartPrices > 0:
		return float64(r.FlipkartPrices)
	case r.AmazonPrice > 0:
		return float64(r.AmazonPrice)
	}
	return 0
}

func (r *RawDevice) attributes() map[string]string {
	values := map[string]string{
		"ram":       r.RAM,
		"storage":   r.Storage,
		"battery":   r.Battery,
		"camera":    r.Camera,
		"processor": r.Processor,
		"graphics":  r.Graphics,
		"display":   r.Display,
		"os":        r.OS,
	}

	attrs := make(map[string]string, len(values))
	for key, value := range values {
		if v := strings.TrimSpace(value); v != "" {
			attrs[key] = v
		}
	}
	return attrs
}

func (r *RawDevice) offers() []models.VendorOffer {
	var offers []models.VendorOffer
	if url := strings.TrimSpace(r.AmazonURL); url != "" || r.AmazonPrice > 0 {
		offers = append(offers, models.VendorOffer{
			VendorID:   VendorAmazon,
			VendorName: "Amazon",
			Price:      float64(r.AmazonPrice),
			URL:        url,
			InStock:    true,
		})
	}
	if url := strings.TrimSpace(r.FlipkartURL); url != "" || r.FlipkartPrice > 0 || r.FlipkartPrices > 0 {
		offers = append(offers, models.VendorOffer{
			VendorID:   VendorFlipkart,
			VendorName: "Flipkart",
			Price:      r.flipkartPrice(),
			URL:        url,
			InStock:    true,
		})
	}
	return offers
}

// Normalize converts raw records into catalog items. Records without a brand
// or model are skipped. Merchandising flags not present on a record are
// assigned by position.
func Normalize(category models.Category, raws []RawDevice) []models.CatalogItem {
	items := make([]models.CatalogItem, 0, len(raws))
	for i := range raws {
		raw := &raws[i]
		brand := strings.TrimSpace(raw.Brand)
		model := strings.TrimSpace(raw.Model)
		if brand == "" || model == "" {
			continue
		}

		id := strings.TrimSpace(raw.ID)
		if id == "" {
			id = ItemID(category, i, brand, model)
		}

		flags := models.CatalogFlags{
			IsBestseller:  i%bestsellerEvery == 0,
			IsRecommended: i%recommendedEvery == 0,
		}
		if raw.Bestseller != nil {
			flags.IsBestseller = *raw.Bestseller
		}
		if raw.Recommended != nil {
			flags.IsRecommended = *raw.Recommended
		}

		var rating *float64
		if raw.Ratings != nil && *raw.Ratings > 0 {
			r := *raw.Ratings
			rating = &r
		}

		items = append(items, models.CatalogItem{
			ID:           id,
			Category:     category,
			Brand:        brand,
			Model:        model,
			ImageURL:     strings.TrimSpace(raw.Image),
			Price:        raw.EffectivePrice(),
			Attributes:   raw.attributes(),
			Features:     cleanFeatures(raw.KeyFeatures),
			Rating:       rating,
			Flags:        flags,
			VendorOffers: raw.offers(),
			Description:  strings.TrimSpace(raw.Description),
		})
	}
	return items
}

// ItemID derives a stable id from the record's position and identity
func ItemID(category models.Category, index int, brand, model string) string {
	name := fmt.Sprintf("%s/%d/%s/%s", category, index, strings.ToLower(brand), strings.ToLower(model))
	return uuid.NewSHA1(catalogNamespace, []byte(name)).String()
}

func cleanFeatures(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, f := range in {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		key := fold(f)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}
