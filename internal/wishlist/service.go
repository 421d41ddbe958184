// Package wishlist keeps the products a shopper has saved for later
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/johnrirwin/devicedeck/internal/catalog"
	"github.com/johnrirwin/devicedeck/internal/logging"
	"github.com/johnrirwin/devicedeck/internal/models"
)

// Store persists wishlist entries
type Store interface {
	Add(ctx context.Context, userID, productID string) (*models.WishlistEntry, error)
	Remove(ctx context.Context, userID, productID string) (bool, error)
	List(ctx context.Context, userID string) ([]models.WishlistEntry, error)
}

// Catalog resolves product ids
type Catalog interface {
	Find(ctx context.Context, id string) (*models.CatalogItem, error)
	Resolve(ctx context.Context, ids []string) (map[string]models.CatalogItem, error)
}

// ServiceError is a client-facing wishlist failure
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Service manages wishlists
type Service struct {
	store   Store
	catalog Catalog
	logger  *logging.Logger
}

// NewService creates a new wishlist service
func NewService(store Store, catalog Catalog, logger *logging.Logger) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		logger:  logger,
	}
}

// Add saves productID for userID. Saving a product twice is not an error.
func (s *Service) Add(ctx context.Context, userID, productID string) (*models.WishlistItem, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, &ServiceError{Code: "invalid_input", Message: "productId is required"}
	}

	item, err := s.catalog.Find(ctx, productID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return nil, &ServiceError{Code: "product_not_found", Message: "product not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up product: %w", err)
	}

	entry, err := s.store.Add(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Added to wishlist", logging.WithFields(map[string]interface{}{
		"userId":    userID,
		"productId": productID,
	}))

	return &models.WishlistItem{Item: *item, AddedAt: entry.AddedAt}, nil
}

// Remove deletes productID from the list
func (s *Service) Remove(ctx context.Context, userID, productID string) error {
	removed, err := s.store.Remove(ctx, userID, productID)
	if err != nil {
		return err
	}
	if !removed {
		return &ServiceError{Code: "not_found", Message: "product is not on the wishlist"}
	}
	return nil
}

// List returns saved products newest first. Entries whose product is no
// longer in the catalog are left out.
func (s *Service) List(ctx context.Context, userID string) (*models.WishlistResponse, error) {
	entries, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ProductID
	}
	found, err := s.catalog.Resolve(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve wishlist products: %w", err)
	}

	items := make([]models.WishlistItem, 0, len(entries))
	for _, e := range entries {
		if item, ok := found[e.ProductID]; ok {
			items = append(items, models.WishlistItem{Item: item, AddedAt: e.AddedAt})
		}
	}
	return &models.WishlistResponse{Items: items, Count: len(items)}, nil
}

// Contains reports whether productID is saved
func (s *Service) Contains(ctx context.Context, userID, productID string) (bool, error) {
	entries, err := s.store.List(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}
