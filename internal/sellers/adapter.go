package sellers

import (
	"context"
	"errors"
	"sort"

	"github.com/johnrirwin/devicedeck/internal/models"
)

// ErrNoPrice is returned when a product page shows neither a price nor a
// sold-out notice
var ErrNoPrice = errors.New("no price found on page")

// Quote is a retailer's current price and stock for one product page
type Quote struct {
	Price    float64
	InStock  bool
	Delivery string
}

// Adapter is the interface that all retailer integrations must implement
type Adapter interface {
	// ID matches models.VendorOffer.VendorID
	ID() string

	Name() string

	BaseURL() string

	// FetchQuote reads the live price from a product page
	FetchQuote(ctx context.Context, productURL string) (*Quote, error)
}

// Registry manages retailer adapters
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates a new retailer registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
	}
}

// Register adds an adapter, replacing any with the same ID
func (r *Registry) Register(adapter Adapter) {
	r.adapters[adapter.ID()] = adapter
}

// Get returns an adapter by ID, or nil
func (r *Registry) Get(id string) Adapter {
	return r.adapters[id]
}

// List returns all registered adapters ordered by ID
func (r *Registry) List() []Adapter {
	adapters := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		adapters = append(adapters, a)
	}
	sort.Slice(adapters, func(i, j int) bool { return adapters[i].ID() < adapters[j].ID() })
	return adapters
}

// GetVendorInfo describes every registered retailer
func (r *Registry) GetVendorInfo() []models.VendorInfo {
	adapters := r.List()
	vendors := make([]models.VendorInfo, 0, len(adapters))
	for _, a := range adapters {
		vendors = append(vendors, models.VendorInfo{
			ID:   a.ID(),
			Name: a.Name(),
			URL:  a.BaseURL(),
		})
	}
	return vendors
}
