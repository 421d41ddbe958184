package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrirwin/devicedeck/internal/cache"
	"github.com/johnrirwin/devicedeck/internal/models"
	"github.com/johnrirwin/devicedeck/internal/testutil"
)

type countingSource struct {
	items map[models.Category][]models.CatalogItem
	err   error
	loads int32
	delay time.Duration
}

func (s *countingSource) Name() string { return "counting" }

func (s *countingSource) Load(ctx context.Context, category models.Category) ([]models.CatalogItem, error) {
	atomic.AddInt32(&s.loads, 1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	items, ok := s.items[category]
	if !ok {
		return nil, ErrNoItems
	}
	return items, nil
}

func newTestService(t *testing.T, src Source) *Service {
	t.Helper()
	c := cache.NewMemory(time.Minute)
	t.Cleanup(c.Stop)
	return NewService(src, c, time.Minute, testutil.NullLogger())
}

func phoneSource() *countingSource {
	return &countingSource{items: map[models.Category][]models.CatalogItem{
		models.CategoryPhone: {
			{ID: "p1", Category: models.CategoryPhone, Brand: "Apple", Model: "iPhone 15", Price: 69900,
				Description: "A **bright** display<script>alert(1)</script>",
				VendorOffers: []models.VendorOffer{
					{VendorID: "flipkart", VendorName: "Flipkart", Price: 68999, InStock: true},
					{VendorID: "amazon", VendorName: "Amazon", Price: 69900, InStock: true},
					{VendorID: "croma", VendorName: "Croma", Price: 0, InStock: true},
					{VendorID: "reliance", VendorName: "Reliance Digital", Price: 70500, InStock: false},
				}},
			{ID: "p2", Category: models.CategoryPhone, Brand: "Samsung", Model: "Galaxy A35", Price: 30999},
		},
		models.CategoryTablet: {
			{ID: "t1", Category: models.CategoryTablet, Brand: "Apple", Model: "iPad", Price: 32900},
		},
	}}
}

func TestService_ItemsLoadsOncePerTTL(t *testing.T) {
	src := phoneSource()
	svc := newTestService(t, src)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		items, err := svc.Items(ctx, models.CategoryPhone)
		require.NoError(t, err)
		assert.Len(t, items, 2)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&src.loads))

	svc.Invalidate(models.CategoryPhone)
	_, err := svc.Items(ctx, models.CategoryPhone)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&src.loads))
}

func TestService_ConcurrentLoadsShareOneFetch(t *testing.T) {
	src := phoneSource()
	src.delay = 20 * time.Millisecond
	svc := newTestService(t, src)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Items(context.Background(), models.CategoryPhone)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&src.loads))
}

func TestService_EmptyCategoryIsNotAnError(t *testing.T) {
	svc := newTestService(t, phoneSource())

	views, err := svc.Browse(context.Background(), models.CategoryLaptop, models.DefaultFilterConfig())
	require.NoError(t, err)
	assert.Empty(t, views.All)
	assert.Equal(t, models.CategoryLaptop, views.Category)
}

func TestService_SourceErrorSurfaces(t *testing.T) {
	src := &countingSource{err: errors.New("connection refused")}
	svc := newTestService(t, src)

	_, err := svc.Browse(context.Background(), models.CategoryPhone, models.DefaultFilterConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestService_Browse(t *testing.T) {
	svc := newTestService(t, phoneSource())

	cfg := models.DefaultFilterConfig()
	cfg.SortKey = models.SortPriceLow
	views, err := svc.Browse(context.Background(), models.CategoryPhone, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p1"}, ids(views.All))
}

func TestService_Product(t *testing.T) {
	svc := newTestService(t, phoneSource())

	detail, err := svc.Product(context.Background(), "p1")
	require.NoError(t, err)

	require.Len(t, detail.Offers, DetailOfferLimit)
	assert.Equal(t, "flipkart", detail.Offers[0].VendorID)
	assert.Equal(t, "amazon", detail.Offers[1].VendorID)
	assert.Equal(t, "reliance", detail.Offers[2].VendorID)

	require.NotNil(t, detail.BestOffer)
	assert.Equal(t, "flipkart", detail.BestOffer.VendorID)

	assert.Contains(t, detail.DescriptionHTML, "<strong>bright</strong>")
	assert.NotContains(t, detail.DescriptionHTML, "<script>")
}

func TestService_ProductNotFound(t *testing.T) {
	svc := newTestService(t, phoneSource())

	_, err := svc.Product(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestService_Resolve(t *testing.T) {
	svc := newTestService(t, phoneSource())

	found, err := svc.Resolve(context.Background(), []string{"p2", "t1", "ghost"})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Equal(t, "Galaxy A35", found["p2"].Model)
	assert.Equal(t, "iPad", found["t1"].Model)
}

func TestService_InvalidateAll(t *testing.T) {
	src := phoneSource()
	svc := newTestService(t, src)
	ctx := context.Background()

	_, _ = svc.Items(ctx, models.CategoryPhone)
	_, _ = svc.Items(ctx, models.CategoryTablet)
	svc.InvalidateAll()
	_, _ = svc.Items(ctx, models.CategoryPhone)
	_, _ = svc.Items(ctx, models.CategoryTablet)

	assert.EqualValues(t, 4, atomic.LoadInt32(&src.loads))
}

func TestService_DecodesGenericCachedValue(t *testing.T) {
	c := cache.NewMemory(time.Minute)
	defer c.Stop()
	svc := NewService(phoneSource(), c, time.Minute, testutil.NullLogger())

	// Shape of a value read back from the Redis backend
	c.Set(cacheKeyPrefix+"phone", []interface{}{
		map[string]interface{}{"id": "redis-1", "brand": "Google", "model": "Pixel 8", "price": 58999.0},
	})

	items, err := svc.Items(context.Background(), models.CategoryPhone)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "redis-1", items[0].ID)
	assert.Equal(t, 58999.0, items[0].Price)
}

func TestChainSource(t *testing.T) {
	empty := &countingSource{items: map[models.Category][]models.CatalogItem{}}
	failing := &countingSource{err: errors.New("db down")}
	chain := NewChainSource(testutil.NullLogger(), failing, empty, NewStaticSource())

	items, err := chain.Load(context.Background(), models.CategoryTablet)
	require.NoError(t, err)
	assert.NotEmpty(t, items)
	assert.Equal(t, "counting>counting>static", chain.Name())

	_, err = NewChainSource(testutil.NullLogger(), empty).Load(context.Background(), models.CategoryPhone)
	assert.ErrorIs(t, err, ErrNoItems)
}
