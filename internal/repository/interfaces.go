package repository

import (
	"context"
	"errors"

	"github.com/Kerhoff/WishShare/internal/models"
)

var (
	// ErrNotFound is returned by mutations that matched no row
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional update's guard did not hold
	ErrConflict = errors.New("record state conflict")
	// ErrDuplicate is returned when a unique constraint would be violated
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository defines the interface for user data operations.
// Lookups return nil, nil when no user matches.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
}

// WishlistRepository defines the interface for wishlist and membership operations
type WishlistRepository interface {
	Create(ctx context.Context, wishlist *models.Wishlist) (*models.Wishlist, error)
	GetByID(ctx context.Context, id int64) (*models.Wishlist, error)
	ListForUser(ctx context.Context, userID int64) ([]*models.Wishlist, error)
	Update(ctx context.Context, wishlist *models.Wishlist) (*models.Wishlist, error)
	// Delete removes the wishlist together with its items, comments and reactions
	Delete(ctx context.Context, id int64) error
	AddMember(ctx context.Context, wishlistID, userID int64, role models.MemberRole) error
	RemoveMember(ctx context.Context, wishlistID, userID int64) error
}

// ItemRepository defines the interface for wishlist item operations.
// Items are returned with their comments and reactions loaded.
type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) (*models.Item, error)
	GetByID(ctx context.Context, id int64) (*models.Item, error)
	ListByWishlist(ctx context.Context, wishlistID int64) ([]*models.Item, error)
	// Update writes the editable fields; status and claim fields are untouched
	Update(ctx context.Context, item *models.Item) (*models.Item, error)
	Delete(ctx context.Context, id int64) error
	// Claim atomically moves an item that is not claimed to claimed.
	// It returns ErrConflict when the item is already claimed.
	Claim(ctx context.Context, id, userID int64) (*models.Item, error)
	// Unclaim atomically moves a claimed item back to available.
	// When expectClaimer is set the item must still be claimed by that user.
	// It returns ErrConflict when either condition does not hold.
	Unclaim(ctx context.Context, id, userID int64, expectClaimer *int64) (*models.Item, error)
	// SetStatus unconditionally sets the status
	SetStatus(ctx context.Context, id int64, status models.ItemStatus, actorID int64) (*models.Item, error)
}

// CommentRepository defines the interface for item comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) (*models.Comment, error)
	GetByID(ctx context.Context, id int64) (*models.Comment, error)
	Delete(ctx context.Context, id int64) error
}

// ReactionRepository defines the interface for item reaction operations
type ReactionRepository interface {
	// Upsert inserts the reaction or replaces the emoji of the user's
	// existing reaction on the same item
	Upsert(ctx context.Context, reaction *models.Reaction) (*models.Reaction, error)
	Remove(ctx context.Context, itemID, userID int64) error
}
