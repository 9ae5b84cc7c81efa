// Package access holds the authorization predicates shared by every
// wishlist operation and by the realtime channel join.
package access

import "github.com/Kerhoff/WishShare/internal/models"

// IsOwner reports whether userID owns the wishlist.
func IsOwner(w *models.Wishlist, userID int64) bool {
	return w != nil && userID != 0 && w.OwnerID == userID
}

// CanRead reports whether userID is the owner or a member of the wishlist.
func CanRead(w *models.Wishlist, userID int64) bool {
	if IsOwner(w, userID) {
		return true
	}
	if w == nil || userID == 0 {
		return false
	}
	_, ok := w.Member(userID)
	return ok
}

// CanManage reports whether userID is the owner or an admin member.
func CanManage(w *models.Wishlist, userID int64) bool {
	if IsOwner(w, userID) {
		return true
	}
	if w == nil || userID == 0 {
		return false
	}
	m, ok := w.Member(userID)
	return ok && m.Role == models.MemberRoleAdmin
}

// CanEditItem reports whether userID may edit or delete item. Managers may
// edit any item; readers may edit the items they added themselves.
func CanEditItem(w *models.Wishlist, item *models.Item, userID int64) bool {
	if CanManage(w, userID) {
		return true
	}
	return item != nil && item.AddedByID == userID && CanRead(w, userID)
}

// CanDeleteComment reports whether userID may delete comment.
func CanDeleteComment(w *models.Wishlist, comment *models.Comment, userID int64) bool {
	if CanManage(w, userID) {
		return true
	}
	return comment != nil && comment.UserID == userID && CanRead(w, userID)
}
