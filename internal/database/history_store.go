package database

import (
	"context"
	"fmt"
	"time"

	"github.com/johnrirwin/devicedeck/internal/models"
)

// HistoryStore persists recently viewed products
type HistoryStore struct {
	db *DB
}

// NewHistoryStore creates a new history store
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Record stores a view, moving a repeat view to the front
func (s *HistoryStore) Record(ctx context.Context, userID, productID string, at time.Time) error {
	query := `
		INSERT INTO recently_viewed (user_id, product_id, viewed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id) DO UPDATE SET viewed_at = EXCLUDED.viewed_at
	`
	if _, err := s.db.ExecContext(ctx, query, userID, productID, at); err != nil {
		return fmt.Errorf("failed to record view: %w", err)
	}
	return nil
}

// List returns up to limit views, most recent first
func (s *HistoryStore) List(ctx context.Context, userID string, limit int) ([]models.RecentlyViewed, error) {
	query := `
		SELECT user_id, product_id, viewed_at
		FROM recently_viewed
		WHERE user_id = $1
		ORDER BY viewed_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recently viewed: %w", err)
	}
	defer rows.Close()

	views := []models.RecentlyViewed{}
	for rows.Next() {
		var v models.RecentlyViewed
		if err := rows.Scan(&v.UserID, &v.ProductID, &v.ViewedAt); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// Trim keeps only the keep most recent views for a user
func (s *HistoryStore) Trim(ctx context.Context, userID string, keep int) error {
	query := `
		DELETE FROM recently_viewed
		WHERE user_id = $1 AND product_id NOT IN (
			SELECT product_id FROM recently_viewed
			WHERE user_id = $1
			ORDER BY viewed_at DESC
			LIMIT $2
		)
	`
	if _, err := s.db.ExecContext(ctx, query, userID, keep); err != nil {
		return fmt.Errorf("failed to trim recently viewed: %w", err)
	}
	return nil
}
