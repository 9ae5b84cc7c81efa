// Package client talks to a WishShare server and keeps a local view of the
// wishlists it watches, reconciled from direct responses and live events.
package client

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Kerhoff/WishShare/internal/models"
	"github.com/Kerhoff/WishShare/internal/realtime"
)

type typingKey struct {
	itemID int64
	userID int64
}

// View is the local state of the watched wishlists. Every merge is keyed by
// entity id, so applying a result and then the event it caused, in either
// order, leaves a single copy.
type View struct {
	mu        sync.RWMutex
	wishlists map[int64]*models.Wishlist
	items     map[int64]*models.Item
	typing    map[typingKey]struct{}
}

// NewView creates an empty view
func NewView() *View {
	return &View{
		wishlists: make(map[int64]*models.Wishlist),
		items:     make(map[int64]*models.Item),
		typing:    make(map[typingKey]struct{}),
	}
}

// Apply merges a live event into the view
func (v *View) Apply(ev realtime.Event) error {
	switch ev.Type {
	case realtime.EventWishlistUpdated:
		var p realtime.WishlistPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		v.ApplyWishlist(p.Wishlist)

	case realtime.EventWishlistDeleted:
		v.RemoveWishlist(ev.WishlistID)

	case realtime.EventMemberInvited:
		var p realtime.MemberInvitedPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		v.ApplyWishlist(p.Wishlist)

	case realtime.EventMemberRemoved:
		var p realtime.MemberRemovedPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		v.ApplyWishlist(p.Wishlist)

	case realtime.EventItemAdded, realtime.EventItemUpdated, realtime.EventItemClaimed:
		var p realtime.ItemPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		v.ApplyItem(p.Item)

	case realtime.EventItemDeleted:
		var p realtime.ItemDeletedPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		v.RemoveItem(p.ItemID)

	case realtime.EventCommentAdded:
		var p realtime.CommentPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		v.ApplyComment(p.ItemID, p.Comment)

	case realtime.EventCommentDeleted:
		var p realtime.CommentDeletedPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		v.RemoveComment(p.ItemID, p.CommentID)

	case realtime.EventReactionUpdated:
		var p realtime.ReactionPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		v.ApplyReaction(p.ItemID, p.Reaction)

	case realtime.EventReactionRemoved:
		var p realtime.ReactionRemovedPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		v.RemoveReaction(p.ItemID, p.UserID)

	case realtime.EventUserTypingComment:
		var p realtime.TypingPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		v.SetTyping(p.ItemID, p.UserID, p.IsTyping)

	case realtime.EventConnected, realtime.EventError:
		// session frames carry no state

	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}

// ApplyWishlist inserts the wishlist or replaces the local copy
func (v *View) ApplyWishlist(w *models.Wishlist) {
	if w == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	c := w.Clone()
	if old, ok := v.wishlists[w.ID]; ok && c.ItemCount == nil {
		c.ItemCount = old.ItemCount
	}
	v.wishlists[w.ID] = c
}

// RemoveWishlist drops the wishlist and its items
func (v *View) RemoveWishlist(id int64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	delete(v.wishlists, id)
	for itemID, item := range v.items {
		if item.WishlistID == id {
			v.removeItemLocked(itemID)
		}
	}
}

// ApplyItem inserts the item or replaces the local copy
func (v *View) ApplyItem(item *models.Item) {
	if item == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	v.items[item.ID] = item.Clone()
}

// RemoveItem drops the item
func (v *View) RemoveItem(id int64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.removeItemLocked(id)
}

func (v *View) removeItemLocked(id int64) {
	delete(v.items, id)
	for k := range v.typing {
		if k.itemID == id {
			delete(v.typing, k)
		}
	}
}

// ApplyComment appends the comment unless its id is already present. It
// reports whether the comment was added.
func (v *View) ApplyComment(itemID int64, c *models.Comment) bool {
	if c == nil {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	item, ok := v.items[itemID]
	if !ok {
		return false
	}
	for _, existing := range item.Comments {
		if existing.ID == c.ID {
			return false
		}
	}
	item.Comments = append(item.Comments, *c)
	return true
}

// RemoveComment drops the comment from the item
func (v *View) RemoveComment(itemID, commentID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	item, ok := v.items[itemID]
	if !ok {
		return
	}
	kept := item.Comments[:0]
	for _, c := range item.Comments {
		if c.ID != commentID {
			kept = append(kept, c)
		}
	}
	item.Comments = kept
}

// ApplyReaction replaces the reaction of the reacting user
func (v *View) ApplyReaction(itemID int64, r *models.Reaction) {
	if r == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	item, ok := v.items[itemID]
	if !ok {
		return
	}
	for i := range item.Reactions {
		if item.Reactions[i].UserID == r.UserID {
			item.Reactions[i] = *r
			return
		}
	}
	item.Reactions = append(item.Reactions, *r)
}

// RemoveReaction drops the user's reaction from the item
func (v *View) RemoveReaction(itemID, userID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	item, ok := v.items[itemID]
	if !ok {
		return
	}
	kept := item.Reactions[:0]
	for _, r := range item.Reactions {
		if r.UserID != userID {
			kept = append(kept, r)
		}
	}
	item.Reactions = kept
}

// SetTyping records whether a user is typing a comment on an item
func (v *View) SetTyping(itemID, userID int64, typing bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	k := typingKey{itemID: itemID, userID: userID}
	if typing {
		v.typing[k] = struct{}{}
		return
	}
	delete(v.typing, k)
}

// Typing returns the users currently typing on an item
func (v *View) Typing(itemID int64) []int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var users []int64
	for k := range v.typing {
		if k.itemID == itemID {
			users = append(users, k.userID)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}

// Wishlist returns a copy of the wishlist, if known
func (v *View) Wishlist(id int64) (*models.Wishlist, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	w, ok := v.wishlists[id]
	if !ok {
		return nil, false
	}
	return w.Clone(), true
}

// Item returns a copy of the item, if known
func (v *View) Item(id int64) (*models.Item, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	item, ok := v.items[id]
	if !ok {
		return nil, false
	}
	return item.Clone(), true
}

// Items returns copies of the wishlist's items, newest first
func (v *View) Items(wishlistID int64) []*models.Item {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var items []*models.Item
	for _, item := range v.items {
		if item.WishlistID == wishlistID {
			items = append(items, item.Clone())
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items
}
