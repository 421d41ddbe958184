package sellers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/johnrirwin/devicedeck/internal/logging"
	"github.com/johnrirwin/devicedeck/internal/models"
)

// CatalogIndex is the slice of the catalog service the refresher needs
type CatalogIndex interface {
	Items(ctx context.Context, category models.Category) ([]models.CatalogItem, error)
	Invalidate(category models.Category)
}

// OfferStore persists refreshed vendor offers
type OfferStore interface {
	UpsertOffers(ctx context.Context, productID string, offers []models.VendorOffer) error
}

// RefreshStats summarizes one refresh pass
type RefreshStats struct {
	Products int
	Checked  int
	Updated  int
	Failed   int
}

// Refresher re-reads vendor prices for catalog items and writes changes back
type Refresher struct {
	registry *Registry
	catalog  CatalogIndex
	store    OfferStore
	logger   *logging.Logger
	workers  int
	now      func() time.Time
}

// NewRefresher creates an offer refresher
func NewRefresher(registry *Registry, catalog CatalogIndex, store OfferStore, logger *logging.Logger) *Refresher {
	return &Refresher{
		registry: registry,
		catalog:  catalog,
		store:    store,
		logger:   logger,
		workers:  4,
		now:      time.Now,
	}
}

// RefreshCategory checks every offer in category against its retailer. The
// category is invalidated when any product changed so the next browse sees
// fresh prices.
func (r *Refresher) RefreshCategory(ctx context.Context, category models.Category) (RefreshStats, error) {
	items, err := r.catalog.Items(ctx, category)
	if err != nil {
		return RefreshStats{}, fmt.Errorf("failed to load %s catalog: %w", category, err)
	}

	var (
		mu    sync.Mutex
		stats = RefreshStats{Products: len(items)}
		wg    sync.WaitGroup
		jobs  = make(chan models.CatalogItem)
	)

	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				s := r.refreshItem(ctx, item)
				mu.Lock()
				stats.Checked += s.Checked
				stats.Updated += s.Updated
				stats.Failed += s.Failed
				mu.Unlock()
			}
		}()
	}

feed:
	for _, item := range items {
		select {
		case jobs <- item:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if stats.Updated > 0 {
		r.catalog.Invalidate(category)
	}

	r.logger.Info("Refreshed vendor offers", logging.WithFields(map[string]interface{}{
		"category": string(category),
		"products": stats.Products,
		"checked":  stats.Checked,
		"updated":  stats.Updated,
		"failed":   stats.Failed,
	}))

	return stats, ctx.Err()
}

func (r *Refresher) refreshItem(ctx context.Context, item models.CatalogItem) RefreshStats {
	var stats RefreshStats
	offers := make([]models.VendorOffer, len(item.VendorOffers))
	copy(offers, item.VendorOffers)

	changed := false
	for i := range offers {
		offer := &offers[i]
		adapter := r.registry.Get(offer.VendorID)
		if adapter == nil || offer.URL == "" {
			continue
		}

		stats.Checked++
		quote, err := adapter.FetchQuote(ctx, offer.URL)
		if err != nil {
			stats.Failed++
			r.logger.Debug("Offer check failed", logging.WithFields(map[string]interface{}{
				"product": item.ID,
				"vendor":  offer.VendorID,
				"error":   err.Error(),
			}))
			continue
		}

		checked := r.now().UTC()
		offer.CheckedAt = &checked
		if quote.Price > 0 {
			offer.Price = quote.Price
		}
		offer.InStock = quote.InStock
		if quote.Delivery != "" {
			offer.Delivery = quote.Delivery
		}
		changed = true
	}

	if !changed || r.store == nil {
		return stats
	}

	if err := r.store.UpsertOffers(ctx, item.ID, offers); err != nil {
		r.logger.Warn("Failed to save offers", logging.WithFields(map[string]interface{}{
			"product": item.ID,
			"error":   err.Error(),
		}))
		stats.Failed++
		return stats
	}
	stats.Updated++
	return stats
}

// RefreshAll refreshes every category, continuing past failures
func (r *Refresher) RefreshAll(ctx context.Context) RefreshStats {
	var total RefreshStats
	for _, category := range models.AllCategories {
		stats, err := r.RefreshCategory(ctx, category)
		if err != nil {
			r.logger.Warn("Offer refresh failed", logging.WithFields(map[string]interface{}{
				"category": string(category),
				"error":    err.Error(),
			}))
		}
		total.Products += stats.Products
		total.Checked += stats.Checked
		total.Updated += stats.Updated
		total.Failed += stats.Failed
	}
	return total
}

// Run refreshes on every tick until ctx is cancelled
func (r *Refresher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshAll(ctx)
		}
	}
}
