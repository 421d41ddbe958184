package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrirwin/devicedeck/internal/models"
	"github.com/johnrirwin/devicedeck/internal/testutil"
)

type stubResolver struct {
	missing map[string]bool
}

func (s stubResolver) Resolve(ctx context.Context, ids []string) (map[string]models.CatalogItem, error) {
	out := make(map[string]models.CatalogItem)
	for _, id := range ids {
		if !s.missing[id] {
			out[id] = models.CatalogItem{ID: id}
		}
	}
	return out, nil
}

func newTestService(missing ...string) *Service {
	skip := make(map[string]bool)
	for _, id := range missing {
		skip[id] = true
	}
	svc := NewService(NewMemoryStore(), stubResolver{missing: skip}, testutil.NullLogger())
	clock := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc
}

func ids(items []models.RecentlyViewedItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Item.ID
	}
	return out
}

func TestService_RecordMovesToFront(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "a"} {
		require.NoError(t, svc.Record(ctx, "u1", id), "Record(%s)", id)
	}

	got, err := svc.List(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, ids(got))
}

func TestService_TrimsAndClamps(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for i := 0; i < MaxEntries+5; i++ {
		require.NoError(t, svc.Record(ctx, "u1", fmt.Sprintf("p%02d", i)))
	}

	all, err := svc.List(ctx, "u1", 100)
	require.NoError(t, err)
	require.Len(t, all, MaxEntries)
	assert.Equal(t, fmt.Sprintf("p%02d", MaxEntries+4), all[0].Item.ID)

	def, err := svc.List(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, def, defaultLimit)
}

func TestService_SkipsUnknownProducts(t *testing.T) {
	svc := newTestService("gone")
	ctx := context.Background()

	svc.Record(ctx, "u1", "kept")
	svc.Record(ctx, "u1", "gone")
	svc.Record(ctx, "", "ignored")

	got, err := svc.List(ctx, "u1", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, ids(got))
}
