package models

import "time"

// MemberRole is the role a member holds within a wishlist
type MemberRole string

const (
	MemberRoleMember MemberRole = "member"
	MemberRoleAdmin  MemberRole = "admin"
)

// Valid reports whether r is a known role
func (r MemberRole) Valid() bool {
	return r == MemberRoleMember || r == MemberRoleAdmin
}

// DefaultWishlistColor is used when a wishlist is created without a color
const DefaultWishlistColor = "#3B82F6"

// Wishlist is a named collection of wanted items shared with members.
// The owner is not part of Members.
type Wishlist struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	IsPublic    bool      `json:"is_public" db:"is_public"`
	Color       string    `json:"color" db:"color"`
	OwnerID     int64     `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
	Members     []Member  `json:"members"`
	ItemCount   *int      `json:"item_count,omitempty"`
	Owner       *UserRef  `json:"owner,omitempty"`
}

// Member links a user to a wishlist they do not own
type Member struct {
	UserID      int64      `json:"user_id" db:"user_id"`
	Role        MemberRole `json:"role" db:"role"`
	JoinedAt    time.Time  `json:"joined_at" db:"joined_at"`
	DisplayName string     `json:"display_name,omitempty"`
	Email       string     `json:"email,omitempty"`
}

// Member returns the membership entry for userID, if any
func (w *Wishlist) Member(userID int64) (Member, bool) {
	for _, m := range w.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Member{}, false
}

// Clone returns a copy of the wishlist that shares no slices with w
func (w *Wishlist) Clone() *Wishlist {
	c := *w
	c.Members = append([]Member(nil), w.Members...)
	if w.ItemCount != nil {
		n := *w.ItemCount
		c.ItemCount = &n
	}
	if w.Owner != nil {
		o := *w.Owner
		c.Owner = &o
	}
	return &c
}
