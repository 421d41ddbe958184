package models

import "time"

// WishlistEntry is a stored (user, product) pair
type WishlistEntry struct {
	UserID    string    `json:"userId"`
	ProductID string    `json:"productId"`
	AddedAt   time.Time `json:"addedAt"`
}

// WishlistItem is an entry resolved against the catalog
type WishlistItem struct {
	Item    CatalogItem `json:"item"`
	AddedAt time.Time   `json:"addedAt"`
}

// WishlistResponse is the wishlist page payload
type WishlistResponse struct {
	Items []WishlistItem `json:"items"`
	Count int            `json:"count"`
}

// RecentlyViewed is one product view by a signed-in user
type RecentlyViewed struct {
	UserID    string    `json:"userId"`
	ProductID string    `json:"productId"`
	ViewedAt  time.Time `json:"viewedAt"`
}

// RecentlyViewedItem is a view resolved against the catalog
type RecentlyViewedItem struct {
	Item     CatalogItem `json:"item"`
	ViewedAt time.Time   `json:"viewedAt"`
}

// CompareRow is one attribute across the compared products
type CompareRow struct {
	Attribute string   `json:"attribute"`
	Values    []string `json:"values"`
}

// CompareProduct is one column of a comparison
type CompareProduct struct {
	Item       CatalogItem   `json:"item"`
	Offers     []VendorOffer `json:"offers"`
	BestPrice  float64       `json:"bestPrice"`
	BestVendor string        `json:"bestVendor,omitempty"`
}

// Comparison is the compare page payload
type Comparison struct {
	Products []CompareProduct `json:"products"`
	Rows     []CompareRow     `json:"rows"`
}

// ChatRole identifies the author of a chat message
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is a single chat turn
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      ChatRole  `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Conversation is a chat session with the shopping assistant
type Conversation struct {
	ID        string        `json:"id"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"createdAt"`
}
