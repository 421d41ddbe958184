package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/johnrirwin/devicedeck/internal/models"
)

// MemoryStore keeps view history in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	views map[string]map[string]time.Time
}

// NewMemoryStore creates an empty history store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{views: make(map[string]map[string]time.Time)}
}

func (m *MemoryStore) Record(ctx context.Context, userID, productID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.views[userID] == nil {
		m.views[userID] = make(map[string]time.Time)
	}
	m.views[userID][productID] = at
	return nil
}

func (m *MemoryStore) List(ctx context.Context, userID string, limit int) ([]models.RecentlyViewed, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sorted(userID, limit), nil
}

func (m *MemoryStore) Trim(ctx context.Context, userID string, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.sorted(userID, 0)
	for i := keep; i < len(all); i++ {
		delete(m.views[userID], all[i].ProductID)
	}
	return nil
}

// sorted returns views newest first; limit <= 0 means all. Callers hold mu.
func (m *MemoryStore) sorted(userID string, limit int) []models.RecentlyViewed {
	out := make([]models.RecentlyViewed, 0, len(m.views[userID]))
	for productID, at := range m.views[userID] {
		out = append(out, models.RecentlyViewed{UserID: userID, ProductID: productID, ViewedAt: at})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ViewedAt.Equal(out[j].ViewedAt) {
			return out[i].ViewedAt.After(out[j].ViewedAt)
		}
		return out[i].ProductID < out[j].ProductID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
