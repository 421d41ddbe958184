package database

import (
	"context"
	"fmt"

	"github.com/johnrirwin/devicedeck/internal/models"
)

// WishlistStore persists saved products per user
type WishlistStore struct {
	db *DB
}

// NewWishlistStore creates a new wishlist store
func NewWishlistStore(db *DB) *WishlistStore {
	return &WishlistStore{db: db}
}

// Add saves a product; saving it again keeps the original timestamp
func (s *WishlistStore) Add(ctx context.Context, userID, productID string) (*models.WishlistEntry, error) {
	query := `
		INSERT INTO wishlist_items (user_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO UPDATE SET product_id = EXCLUDED.product_id
		RETURNING user_id, product_id, added_at
	`

	entry := &models.WishlistEntry{}
	if err := s.db.QueryRowContext(ctx, query, userID, productID).Scan(&entry.UserID, &entry.ProductID, &entry.AddedAt); err != nil {
		return nil, fmt.Errorf("failed to add wishlist item: %w", err)
	}
	return entry, nil
}

// Remove reports whether the product was on the list
func (s *WishlistStore) Remove(ctx context.Context, userID, productID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return false, fmt.Errorf("failed to remove wishlist item: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// List returns a user's saved products, newest first
func (s *WishlistStore) List(ctx context.Context, userID string) ([]models.WishlistEntry, error) {
	query := `
		SELECT user_id, product_id, added_at
		FROM wishlist_items
		WHERE user_id = $1
		ORDER BY added_at DESC, product_id
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist: %w", err)
	}
	defer rows.Close()

	entries := []models.WishlistEntry{}
	for rows.Next() {
		var e models.WishlistEntry
		if err := rows.Scan(&e.UserID, &e.ProductID, &e.AddedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
