package models

import (
	"strings"
	"time"
)

// Category identifies a browsable device family
type Category string

const (
	CategoryPhone  Category = "phone"
	CategoryLaptop Category = "laptop"
	CategoryTablet Category = "tablet"
)

// AllCategories lists categories in storefront order
var AllCategories = []Category{CategoryPhone, CategoryLaptop, CategoryTablet}

// ParseCategory accepts the canonical name and the storefront aliases
// ("mobile", "mobiles", "laptops", "tablets")
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "phone", "phones", "mobile", "mobiles":
		return CategoryPhone, true
	case "laptop", "laptops":
		return CategoryLaptop, true
	case "tablet", "tablets":
		return CategoryTablet, true
	}
	return "", false
}

// CatalogFlags are merchandising flags fixed at ingestion
type CatalogFlags struct {
	IsBestseller  bool `json:"isBestseller"`
	IsRecommended bool `json:"isRecommended"`
}

// VendorOffer is one retailer's listing for an item
type VendorOffer struct {
	VendorID   string     `json:"vendorId"`
	VendorName string     `json:"vendorName"`
	Price      float64    `json:"price"`
	URL        string     `json:"url"`
	InStock    bool       `json:"inStock"`
	Delivery   string     `json:"delivery,omitempty"`
	CheckedAt  *time.Time `json:"checkedAt,omitempty"`
}

// VendorInfo describes a retailer whose prices are tracked
type VendorInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// CatalogItem is a normalized device listing. Price is the effective price
// resolved at ingestion; filters and sorts read nothing else.
type CatalogItem struct {
	ID           string            `json:"id"`
	Category     Category          `json:"category"`
	Brand        string            `json:"brand"`
	Model        string            `json:"model"`
	ImageURL     string            `json:"image,omitempty"`
	Price        float64           `json:"price"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	Features     []string          `json:"features,omitempty"`
	Rating       *float64          `json:"rating,omitempty"`
	Flags        CatalogFlags      `json:"flags"`
	VendorOffers []VendorOffer     `json:"vendorOffers,omitempty"`
	Description  string            `json:"description,omitempty"`
}

// DisplayName is "Brand Model"
func (c *CatalogItem) DisplayName() string {
	return strings.TrimSpace(c.Brand + " " + c.Model)
}

// Attribute returns an attribute by case-insensitive name
func (c *CatalogItem) Attribute(name string) (string, bool) {
	v, ok := c.Attributes[strings.ToLower(name)]
	return v, ok
}

// RatingOrZero treats a missing rating as 0
func (c *CatalogItem) RatingOrZero() float64 {
	if c.Rating == nil {
		return 0
	}
	return *c.Rating
}

// CatalogViews is the output of one pipeline run
type CatalogViews struct {
	Category          Category      `json:"category,omitempty"`
	All               []CatalogItem `json:"all"`
	Bestsellers       []CatalogItem `json:"bestsellers"`
	Recommended       []CatalogItem `json:"recommended"`
	MatchCount        int           `json:"matchCount"`
	ActiveFilterCount int           `json:"activeFilterCount"`
	ShowMatchCount    bool          `json:"showMatchCount"`
}

// ProductDetail is the product page payload
type ProductDetail struct {
	Item            CatalogItem   `json:"item"`
	Offers          []VendorOffer `json:"offers"`
	BestOffer       *VendorOffer  `json:"bestOffer,omitempty"`
	DescriptionHTML string        `json:"descriptionHtml,omitempty"`
}
