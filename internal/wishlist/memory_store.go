package wishlist

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/johnrirwin/devicedeck/internal/models"
)

// MemoryStore keeps wishlists in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]map[string]time.Time
	now     func() time.Time
}

// NewMemoryStore creates an empty wishlist store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]map[string]time.Time),
		now:     time.Now,
	}
}

func (m *MemoryStore) Add(ctx context.Context, userID, productID string) (*models.WishlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved, ok := m.entries[userID]
	if !ok {
		saved = make(map[string]time.Time)
		m.entries[userID] = saved
	}
	addedAt, ok := saved[productID]
	if !ok {
		addedAt = m.now().UTC()
		saved[productID] = addedAt
	}
	return &models.WishlistEntry{UserID: userID, ProductID: productID, AddedAt: addedAt}, nil
}

func (m *MemoryStore) Remove(ctx context.Context, userID, productID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[userID][productID]; !ok {
		return false, nil
	}
	delete(m.entries[userID], productID)
	return true, nil
}

// List orders entries newest first, ties by product id
func (m *MemoryStore) List(ctx context.Context, userID string) ([]models.WishlistEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.WishlistEntry, 0, len(m.entries[userID]))
	for productID, addedAt := range m.entries[userID] {
		out = append(out, models.WishlistEntry{UserID: userID, ProductID: productID, AddedAt: addedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].AddedAt.After(out[j].AddedAt)
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}
