package models

// ViewedItem is one row of the local view history. The display fields are a
// snapshot taken when the item was opened and are never refreshed from the
// catalog afterwards.
type ViewedItem struct {
	ID       string `gorm:"primaryKey;type:TEXT NOT NULL" json:"id"`
	ViewedAt int64  `gorm:"not null;index" json:"viewed_at"` // epoch millis

	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Price       int64      `json:"price"`
	Currency    string     `json:"currency,omitempty"`
	Images      []string   `gorm:"serializer:json" json:"images,omitempty"`
	SellerID    string     `json:"seller_id"`
	SellerName  string     `json:"seller_name,omitempty"`
	Status      ItemStatus `gorm:"type:TEXT" json:"status"`
	LikeCount   int        `json:"like_count"`
	ViewCount   int        `json:"view_count"`
	ChatCount   int        `json:"chat_count"`
}

// TableName pins the table name used by the history store.
func (ViewedItem) TableName() string { return "viewed_items" }

// NewViewedItem captures a snapshot of item stamped with viewedAt.
func NewViewedItem(item Item, viewedAt int64) ViewedItem {
	var images []string
	if len(item.Images) > 0 {
		images = append(images, item.Images...)
	}
	return ViewedItem{
		ID:          item.ID,
		ViewedAt:    viewedAt,
		Title:       item.Title,
		Description: item.Description,
		Price:       item.Price,
		Currency:    item.Currency,
		Images:      images,
		SellerID:    item.SellerID,
		SellerName:  item.SellerName,
		Status:      item.Status,
		LikeCount:   item.LikeCount,
		ViewCount:   item.ViewCount,
		ChatCount:   item.ChatCount,
	}
}

// Item returns the snapshot as a catalog item for display.
func (v ViewedItem) Item() Item {
	return Item{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		Price:       v.Price,
		Currency:    v.Currency,
		Images:      append([]string(nil), v.Images...),
		SellerID:    v.SellerID,
		SellerName:  v.SellerName,
		Status:      v.Status,
		LikeCount:   v.LikeCount,
		ViewCount:   v.ViewCount,
		ChatCount:   v.ChatCount,
	}
}
