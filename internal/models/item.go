package models

import "time"

// ItemStatus represents where an item is in the claim lifecycle
type ItemStatus string

const (
	ItemStatusAvailable ItemStatus = "available"
	ItemStatusClaimed   ItemStatus = "claimed"
	ItemStatusPurchased ItemStatus = "purchased"
)

// Valid reports whether s is a known status
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusAvailable, ItemStatusClaimed, ItemStatusPurchased:
		return true
	}
	return false
}

// ItemPriority represents how much the item is wanted
type ItemPriority string

const (
	ItemPriorityLow    ItemPriority = "low"
	ItemPriorityMedium ItemPriority = "medium"
	ItemPriorityHigh   ItemPriority = "high"
)

// Valid reports whether p is a known priority
func (p ItemPriority) Valid() bool {
	switch p {
	case ItemPriorityLow, ItemPriorityMedium, ItemPriorityHigh:
		return true
	}
	return false
}

// DefaultCurrency is used when an item is created without a currency
const DefaultCurrency = "USD"

// Item is a single wanted thing on a wishlist
type Item struct {
	ID          int64        `json:"id" db:"id"`
	WishlistID  int64        `json:"wishlist_id" db:"wishlist_id"`
	Name        string       `json:"name" db:"name"`
	Description string       `json:"description" db:"description"`
	ImageURL    string       `json:"image_url" db:"image_url"`
	Price       *float64     `json:"price,omitempty" db:"price"`
	Currency    string       `json:"currency" db:"currency"`
	URL         string       `json:"url" db:"url"`
	Priority    ItemPriority `json:"priority" db:"priority"`
	Status      ItemStatus   `json:"status" db:"status"`
	AddedByID   int64        `json:"added_by_id" db:"added_by_id"`
	ClaimedByID *int64       `json:"claimed_by_id" db:"claimed_by_id"`
	EditedByID  *int64       `json:"edited_by_id" db:"edited_by_id"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
	Comments    []Comment    `json:"comments"`
	Reactions   []Reaction   `json:"reactions"`
	AddedBy     *UserRef     `json:"added_by,omitempty"`
	ClaimedBy   *UserRef     `json:"claimed_by,omitempty"`
	EditedBy    *UserRef     `json:"edited_by,omitempty"`
}

// IsClaimed returns true if the item is currently claimed
func (i *Item) IsClaimed() bool {
	return i.Status == ItemStatusClaimed
}

// Clone returns a copy of the item that shares no slices or pointers with i
func (i *Item) Clone() *Item {
	c := *i
	c.Comments = append([]Comment(nil), i.Comments...)
	c.Reactions = append([]Reaction(nil), i.Reactions...)
	if i.Price != nil {
		p := *i.Price
		c.Price = &p
	}
	if i.ClaimedByID != nil {
		id := *i.ClaimedByID
		c.ClaimedByID = &id
	}
	if i.EditedByID != nil {
		id := *i.EditedByID
		c.EditedByID = &id
	}
	return &c
}
