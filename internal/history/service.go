// Package history records the products a signed-in shopper opened
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/johnrirwin/devicedeck/internal/logging"
	"github.com/johnrirwin/devicedeck/internal/models"
)

const (
	// MaxEntries is how many views are kept per user
	MaxEntries   = 20
	defaultLimit = 10
)

// Store persists product views
type Store interface {
	Record(ctx context.Context, userID, productID string, at time.Time) error
	List(ctx context.Context, userID string, limit int) ([]models.RecentlyViewed, error)
	Trim(ctx context.Context, userID string, keep int) error
}

// Resolver maps product ids to catalog items
type Resolver interface {
	Resolve(ctx context.Context, ids []string) (map[string]models.CatalogItem, error)
}

// Service tracks recently viewed products
type Service struct {
	store   Store
	catalog Resolver
	logger  *logging.Logger
	now     func() time.Time
}

// NewService creates a new history service
func NewService(store Store, catalog Resolver, logger *logging.Logger) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
	}
}

// Record marks productID as viewed now. Viewing it again moves it to the front.
func (s *Service) Record(ctx context.Context, userID, productID string) error {
	if userID == "" || productID == "" {
		return nil
	}
	if err := s.store.Record(ctx, userID, productID, s.now().UTC()); err != nil {
		return fmt.Errorf("failed to record view: %w", err)
	}
	if err := s.store.Trim(ctx, userID, MaxEntries); err != nil {
		s.logger.Warn("Failed to trim view history", logging.WithFields(map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		}))
	}
	return nil
}

// List returns up to limit recent views, newest first. limit is clamped to
// [1, MaxEntries] with 10 as the default.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]models.RecentlyViewedItem, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > MaxEntries {
		limit = MaxEntries
	}

	views, err := s.store.List(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}

	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.ProductID
	}
	found, err := s.catalog.Resolve(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve viewed products: %w", err)
	}

	out := make([]models.RecentlyViewedItem, 0, len(views))
	for _, v := range views {
		if item, ok := found[v.ProductID]; ok {
			out = append(out, models.RecentlyViewedItem{Item: item, ViewedAt: v.ViewedAt})
		}
	}
	return out, nil
}
