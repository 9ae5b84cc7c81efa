package models

import "time"

// AllowedEmoji is the fixed set of emoji a reaction may carry
var AllowedEmoji = []string{"👍", "❤️", "😍", "🔥", "👏", "😂", "😮", "😢", "🎉", "💯"}

// IsAllowedEmoji reports whether e is in AllowedEmoji
func IsAllowedEmoji(e string) bool {
	for _, a := range AllowedEmoji {
		if a == e {
			return true
		}
	}
	return false
}

// Reaction is a single user's emoji on an item. There is at most one per
// (item, user) pair.
type Reaction struct {
	ID        int64     `json:"id" db:"id"`
	ItemID    int64     `json:"item_id" db:"item_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Emoji     string    `json:"emoji" db:"emoji"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	User      *UserRef  `json:"user,omitempty"`
}
