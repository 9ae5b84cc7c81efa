// Package realtime fans wishlist mutations out to live sessions. A Hub keeps
// the session/channel registry, a Dispatcher turns mutations into events and
// delivers them (optionally across instances through a Relay), and Server
// runs the WebSocket transport.
package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Kerhoff/WishShare/internal/models"
)

// EventType names a message sent to sessions
type EventType string

const (
	EventWishlistUpdated   EventType = "wishlist_updated"
	EventWishlistDeleted   EventType = "wishlist_deleted"
	EventItemAdded         EventType = "item_added"
	EventItemUpdated       EventType = "item_updated"
	EventItemDeleted       EventType = "item_deleted"
	EventItemClaimed       EventType = "item_claimed"
	EventMemberInvited     EventType = "member_invited"
	EventMemberRemoved     EventType = "member_removed"
	EventCommentAdded      EventType = "comment_added"
	EventCommentDeleted    EventType = "comment_deleted"
	EventReactionUpdated   EventType = "reaction_updated"
	EventReactionRemoved   EventType = "reaction_removed"
	EventUserTypingComment EventType = "user_typing_comment"

	// Session-level frames, never broadcast to a channel
	EventConnected EventType = "connected"
	EventError     EventType = "error"
)

// Event is the envelope written to sessions and carried by the relay
type Event struct {
	Type       EventType       `json:"type"`
	WishlistID int64           `json:"wishlist_id,omitempty"`
	ActorID    int64           `json:"actor_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	SentAt     time.Time       `json:"sent_at"`
	// Origin is the session that produced the event and must not receive it
	Origin string `json:"origin,omitempty"`
}

// NewEvent encodes payload into a new event envelope
func NewEvent(eventType EventType, wishlistID, actorID int64, payload any) (Event, error) {
	ev := Event{
		Type:       eventType,
		WishlistID: wishlistID,
		ActorID:    actorID,
		SentAt:     time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
		}
		ev.Payload = raw
	}
	return ev, nil
}

// Decode unmarshals the payload into dst
func (e Event) Decode(dst any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s event has no payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Type, err)
	}
	return nil
}

// WishlistPayload accompanies wishlist_updated
type WishlistPayload struct {
	Wishlist *models.Wishlist `json:"wishlist"`
}

// WishlistDeletedPayload accompanies wishlist_deleted
type WishlistDeletedPayload struct {
	WishlistID int64 `json:"wishlist_id"`
}

// ItemPayload accompanies item_added, item_updated and item_claimed
type ItemPayload struct {
	Item *models.Item `json:"item"`
}

// ItemDeletedPayload accompanies item_deleted
type ItemDeletedPayload struct {
	ItemID int64 `json:"item_id"`
}

// MemberInvitedPayload accompanies member_invited
type MemberInvitedPayload struct {
	Wishlist  *models.Wishlist `json:"wishlist"`
	NewMember *models.UserRef  `json:"new_member"`
}

// MemberRemovedPayload accompanies member_removed
type MemberRemovedPayload struct {
	Wishlist *models.Wishlist `json:"wishlist"`
	UserID   int64            `json:"user_id"`
}

// CommentPayload accompanies comment_added
type CommentPayload struct {
	ItemID  int64           `json:"item_id"`
	Comment *models.Comment `json:"comment"`
}

// CommentDeletedPayload accompanies comment_deleted
type CommentDeletedPayload struct {
	ItemID    int64 `json:"item_id"`
	CommentID int64 `json:"comment_id"`
}

// ReactionPayload accompanies reaction_updated
type ReactionPayload struct {
	ItemID   int64            `json:"item_id"`
	Reaction *models.Reaction `json:"reaction"`
}

// ReactionRemovedPayload accompanies reaction_removed
type ReactionRemovedPayload struct {
	ItemID int64 `json:"item_id"`
	UserID int64 `json:"user_id"`
}

// TypingPayload accompanies user_typing_comment
type TypingPayload struct {
	ItemID   int64 `json:"item_id"`
	UserID   int64 `json:"user_id"`
	IsTyping bool  `json:"is_typing"`
}

// ConnectedPayload is sent once when a session opens
type ConnectedPayload struct {
	SessionID string `json:"session_id"`
	UserID    int64  `json:"user_id"`
}

// ErrorPayload reports a rejected control message to its sender
type ErrorPayload struct {
	Message string `json:"message"`
}

// Control message types sent by clients
const (
	ControlJoinWishlist  = "join_wishlist"
	ControlLeaveWishlist = "leave_wishlist"
	ControlTypingComment = "typing_comment"
)

// ControlMessage is an inbound frame from a client
type ControlMessage struct {
	Type       string `json:"type"`
	WishlistID int64  `json:"wishlist_id"`
	ItemID     int64  `json:"item_id,omitempty"`
	IsTyping   bool   `json:"is_typing,omitempty"`
}
