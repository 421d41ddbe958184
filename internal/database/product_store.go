package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/johnrirwin/devicedeck/internal/models"
)

// ProductStore persists catalog items and their vendor prices
type ProductStore struct {
	db *DB
}

// NewProductStore creates a new product store
func NewProductStore(db *DB) *ProductStore {
	return &ProductStore{db: db}
}

// ListByCategory returns a category's items in ingestion order with offers attached
func (s *ProductStore) ListByCategory(ctx context.Context, category models.Category) ([]models.CatalogItem, error) {
	query := `
		SELECT id, category, brand, model, image_url, price, attributes, features,
		       rating, is_bestseller, is_recommended, description
		FROM products
		WHERE category = $1
		ORDER BY position, id
	`

	rows, err := s.db.QueryContext(ctx, query, string(category))
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var items []models.CatalogItem
	index := make(map[string]int)
	for rows.Next() {
		item, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		index[item.ID] = len(items)
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}

	offers, err := s.offersFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id, list := range offers {
		items[index[id]].VendorOffers = list
	}

	return items, nil
}

// Count returns how many products a category holds
func (s *ProductStore) Count(ctx context.Context, category models.Category) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE category = $1`, string(category)).Scan(&n)
	return n, err
}

// UpsertProducts writes items and their offers, keeping slice order as the
// category's ingestion order
func (s *ProductStore) UpsertProducts(ctx context.Context, items []models.CatalogItem) error {
	query := `
		INSERT INTO products (id, category, position, brand, model, image_url, price, attributes,
		                      features, rating, is_bestseller, is_recommended, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			category = EXCLUDED.category,
			position = EXCLUDED.position,
			brand = EXCLUDED.brand,
			model = EXCLUDED.model,
			image_url = EXCLUDED.image_url,
			price = EXCLUDED.price,
			attributes = EXCLUDED.attributes,
			features = EXCLUDED.features,
			rating = EXCLUDED.rating,
			is_bestseller = EXCLUDED.is_bestseller,
			is_recommended = EXCLUDED.is_recommended,
			description = EXCLUDED.description,
			updated_at = NOW()
	`

	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		for i, item := range items {
			attributes, err := json.Marshal(item.Attributes)
			if err != nil {
				return fmt.Errorf("failed to encode attributes for %s: %w", item.ID, err)
			}
			features := item.Features
			if features == nil {
				features = []string{}
			}
			var rating sql.NullFloat64
			if item.Rating != nil {
				rating = sql.NullFloat64{Float64: *item.Rating, Valid: true}
			}

			if _, err := tx.ExecContext(ctx, query,
				item.ID, string(item.Category), i, item.Brand, item.Model, nullString(item.ImageURL),
				item.Price, attributes, pq.Array(features), rating,
				item.Flags.IsBestseller, item.Flags.IsRecommended, nullString(item.Description),
			); err != nil {
				return fmt.Errorf("failed to upsert product %s: %w", item.ID, err)
			}

			if err := upsertOffers(ctx, tx, item.ID, item.VendorOffers); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertOffers replaces the stored price for each vendor in offers
func (s *ProductStore) UpsertOffers(ctx context.Context, productID string, offers []models.VendorOffer) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		return upsertOffers(ctx, tx, productID, offers)
	})
}

func upsertOffers(ctx context.Context, tx *sql.Tx, productID string, offers []models.VendorOffer) error {
	query := `
		INSERT INTO product_prices (product_id, vendor_id, vendor_name, price, url, in_stock, delivery, checked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product_id, vendor_id) DO UPDATE SET
			vendor_name = EXCLUDED.vendor_name,
			price = EXCLUDED.price,
			url = EXCLUDED.url,
			in_stock = EXCLUDED.in_stock,
			delivery = EXCLUDED.delivery,
			checked_at = EXCLUDED.checked_at
	`

	for _, o := range offers {
		var checkedAt sql.NullTime
		if o.CheckedAt != nil {
			checkedAt = sql.NullTime{Time: *o.CheckedAt, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, query,
			productID, o.VendorID, o.VendorName, o.Price, nullString(o.URL), o.InStock, nullString(o.Delivery), checkedAt,
		); err != nil {
			return fmt.Errorf("failed to upsert %s offer for %s: %w", o.VendorID, productID, err)
		}
	}
	return nil
}

func (s *ProductStore) offersFor(ctx context.Context, ids []string) (map[string][]models.VendorOffer, error) {
	query := `
		SELECT product_id, vendor_id, vendor_name, price, url, in_stock, delivery, checked_at
		FROM product_prices
		WHERE product_id = ANY($1)
		ORDER BY product_id, vendor_id
	`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query product prices: %w", err)
	}
	defer rows.Close()

	offers := make(map[string][]models.VendorOffer)
	for rows.Next() {
		var (
			productID     string
			o             models.VendorOffer
			url, delivery sql.NullString
			checkedAt     sql.NullTime
		)
		if err := rows.Scan(&productID, &o.VendorID, &o.VendorName, &o.Price, &url, &o.InStock, &delivery, &checkedAt); err != nil {
			return nil, err
		}
		o.URL = url.String
		o.Delivery = delivery.String
		if checkedAt.Valid {
			t := checkedAt.Time
			o.CheckedAt = &t
		}
		offers[productID] = append(offers[productID], o)
	}
	return offers, rows.Err()
}

func scanProduct(rows *sql.Rows) (*models.CatalogItem, error) {
	item := &models.CatalogItem{}
	var (
		category              string
		imageURL, description sql.NullString
		attributes            []byte
		features              []string
		rating                sql.NullFloat64
	)

	err := rows.Scan(
		&item.ID, &category, &item.Brand, &item.Model, &imageURL, &item.Price, &attributes,
		pq.Array(&features), &rating, &item.Flags.IsBestseller, &item.Flags.IsRecommended, &description,
	)
	if err != nil {
		return nil, err
	}

	item.Category = models.Category(category)
	item.ImageURL = imageURL.String
	item.Description = description.String
	item.Features = features
	if rating.Valid {
		r := rating.Float64
		item.Rating = &r
	}
	if len(attributes) > 0 {
		if err := json.Unmarshal(attributes, &item.Attributes); err != nil {
			return nil, fmt.Errorf("failed to decode attributes for %s: %w", item.ID, err)
		}
	}

	return item, nil
}
