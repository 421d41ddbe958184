package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/johnrirwin/devicedeck/internal/cache"
	"github.com/johnrirwin/devicedeck/internal/logging"
	"github.com/johnrirwin/devicedeck/internal/models"
)

const cacheKeyPrefix = "catalog:"

// ErrProductNotFound is returned when no category holds the requested id
var ErrProductNotFound = errors.New("product not found")

// Service loads category item lists once per TTL and derives views from them
type Service struct {
	source   Source
	cache    cache.Cache
	ttl      time.Duration
	renderer *DescriptionRenderer
	logger   *logging.Logger

	mu    sync.Mutex
	locks map[models.Category]*sync.Mutex
}

// NewService creates a catalog service
func NewService(source Source, c cache.Cache, ttl time.Duration, logger *logging.Logger) *Service {
	return &Service{
		source:   source,
		cache:    c,
		ttl:      ttl,
		renderer: NewDescriptionRenderer(),
		logger:   logger,
		locks:    make(map[models.Category]*sync.Mutex),
	}
}

// SourceName identifies where items come from
func (s *Service) SourceName() string {
	return s.source.Name()
}

// Items returns the read-only item list for a category. Concurrent callers
// for the same category share one source load.
func (s *Service) Items(ctx context.Context, category models.Category) ([]models.CatalogItem, error) {
	if items, ok := s.cached(category); ok {
		return items, nil
	}

	lock := s.categoryLock(category)
	lock.Lock()
	defer lock.Unlock()

	if items, ok := s.cached(category); ok {
		return items, nil
	}

	start := time.Now()
	items, err := s.source.Load(ctx, category)
	if err != nil && !errors.Is(err, ErrNoItems) {
		return nil, fmt.Errorf("failed to load %s catalog: %w", category, err)
	}
	if items == nil {
		items = []models.CatalogItem{}
	}

	s.cache.SetWithTTL(cacheKeyPrefix+string(category), items, s.ttl)
	s.logger.Info("Loaded catalog", logging.WithFields(map[string]interface{}{
		"category": string(category),
		"source":   s.source.Name(),
		"count":    len(items),
		"duration": time.Since(start).String(),
	}))

	return items, nil
}

// Browse derives the category page views for cfg
func (s *Service) Browse(ctx context.Context, category models.Category, cfg models.FilterConfig) (models.CatalogViews, error) {
	items, err := s.Items(ctx, category)
	if err != nil {
		return models.CatalogViews{}, err
	}

	views := Derive(items, cfg)
	views.Category = category
	return views, nil
}

// Find looks an item up by id across all categories
func (s *Service) Find(ctx context.Context, id string) (*models.CatalogItem, error) {
	for _, category := range models.AllCategories {
		items, err := s.Items(ctx, category)
		if err != nil {
			return nil, err
		}
		for i := range items {
			if items[i].ID == id {
				item := items[i]
				return &item, nil
			}
		}
	}
	return nil, ErrProductNotFound
}

// Resolve maps ids to items, silently dropping unknown ids
func (s *Service) Resolve(ctx context.Context, ids []string) (map[string]models.CatalogItem, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	found := make(map[string]models.CatalogItem, len(ids))
	for _, category := range models.AllCategories {
		if len(found) == len(want) {
			break
		}
		items, err := s.Items(ctx, category)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if _, ok := want[item.ID]; ok {
				found[item.ID] = item
			}
		}
	}
	return found, nil
}

// Product builds the product page: ranked offers and rendered description
func (s *Service) Product(ctx context.Context, id string) (*models.ProductDetail, error) {
	item, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.ProductDetail{
		Item:            *item,
		Offers:          RankOffers(item.VendorOffers, DetailOfferLimit),
		BestOffer:       BestOffer(item.VendorOffers),
		DescriptionHTML: s.renderer.Render(item.Description),
	}, nil
}

// Invalidate drops one category so the next request reloads it
func (s *Service) Invalidate(category models.Category) {
	s.cache.Delete(cacheKeyPrefix + string(category))
}

// InvalidateAll drops every cached category
func (s *Service) InvalidateAll() {
	s.cache.DeletePrefix(cacheKeyPrefix)
}

func (s *Service) cached(category models.Category) ([]models.CatalogItem, bool) {
	value, ok := s.cache.Get(cacheKeyPrefix + string(category))
	if !ok {
		return nil, false
	}
	if items, ok := value.([]models.CatalogItem); ok {
		return items, true
	}

	var items []models.CatalogItem
	if !cache.Decode(value, &items) {
		return nil, false
	}
	return items, true
}

func (s *Service) categoryLock(category models.Category) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[category]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[category] = lock
	}
	return lock
}
