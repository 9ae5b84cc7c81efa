package models

import "time"

// MaxCommentLength is the longest comment text accepted, in characters
const MaxCommentLength = 500

// Comment represents a comment on a wishlist item
type Comment struct {
	ID        int64     `json:"id" db:"id"`
	ItemID    int64     `json:"item_id" db:"item_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Text      string    `json:"text" db:"text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	User      *UserRef  `json:"user,omitempty"`
}
