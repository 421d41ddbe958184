// Package compare lines up the specs and offers of a few products side by side
package compare

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/johnrirwin/devicedeck/internal/catalog"
	"github.com/johnrirwin/devicedeck/internal/models"
)

const (
	MinProducts = 2
	MaxProducts = 3
)

// Error is a client-facing comparison failure
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// Finder looks up a single product
type Finder interface {
	Find(ctx context.Context, id string) (*models.CatalogItem, error)
}

// Service builds comparisons
type Service struct {
	catalog Finder
}

// NewService creates a compare service
func NewService(catalog Finder) *Service {
	return &Service{catalog: catalog}
}

// Compare builds a comparison of ids in the given order. Duplicate and
// blank ids are dropped before the count is checked.
func (s *Service) Compare(ctx context.Context, ids []string) (*models.Comparison, error) {
	ids = uniqueIDs(ids)
	if len(ids) < MinProducts {
		return nil, &Error{Code: "too_few_products", Message: fmt.Sprintf("select at least %d products to compare", MinProducts)}
	}
	if len(ids) > MaxProducts {
		return nil, &Error{Code: "too_many_products", Message: fmt.Sprintf("at most %d products can be compared", MaxProducts)}
	}

	items := make([]models.CatalogItem, 0, len(ids))
	for _, id := range ids {
		item, err := s.catalog.Find(ctx, id)
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, &Error{Code: "product_not_found", Message: fmt.Sprintf("product %q not found", id)}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load product %s: %w", id, err)
		}
		items = append(items, *item)
	}

	return Build(items), nil
}

// Build is the comparison of items: one column per item and one row per
// attribute name in first-seen order
func Build(items []models.CatalogItem) *models.Comparison {
	out := &models.Comparison{
		Products: make([]models.CompareProduct, 0, len(items)),
		Rows:     []models.CompareRow{},
	}

	for _, item := range items {
		out.Products = append(out.Products, product(item))
	}

	for _, name := range attributeNames(items) {
		row := models.CompareRow{Attribute: name, Values: make([]string, len(items))}
		for i := range items {
			row.Values[i], _ = items[i].Attribute(name)
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func product(item models.CatalogItem) models.CompareProduct {
	p := models.CompareProduct{
		Item:      item,
		Offers:    catalog.RankOffers(item.VendorOffers, 0),
		BestPrice: item.Price,
	}
	for _, o := range p.Offers {
		if o.Price > 0 {
			p.BestPrice = o.Price
			p.BestVendor = o.VendorName
			break
		}
	}
	return p
}

// attributeNames is the union of attribute names across items, first seen first
func attributeNames(items []models.CatalogItem) []string {
	seen := make(map[string]bool)
	var names []string
	for _, item := range items {
		for _, name := range catalog.AttributeNames(item.Attributes) {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
