package models

import "time"

// ItemStatus is the sale state of a catalog item.
type ItemStatus string

const (
	StatusOnSale   ItemStatus = "on_sale"
	StatusReserved ItemStatus = "reserved"
	StatusSold     ItemStatus = "sold"
)

// Item is a catalog item as served by the backend document store.
type Item struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Price       int64      `json:"price"`
	Currency    string     `json:"currency,omitempty"`
	Images      []string   `json:"images,omitempty"`
	SellerID    string     `json:"seller_id"`
	SellerName  string     `json:"seller_name,omitempty"`
	Status      ItemStatus `json:"status"`
	LikeCount   int        `json:"like_count"`
	ViewCount   int        `json:"view_count"`
	ChatCount   int        `json:"chat_count"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
