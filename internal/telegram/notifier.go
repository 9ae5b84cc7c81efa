package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishShare/internal/models"
	"github.com/Kerhoff/WishShare/internal/realtime"
)

const notifyQueueSize = 128

// Sender delivers a Markdown message to a chat
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// WishlistLookup resolves a wishlist by id, returning nil when it is gone
type WishlistLookup interface {
	GetByID(ctx context.Context, id int64) (*models.Wishlist, error)
}

// Notifier posts wishlist activity to a Telegram chat. Events are queued
// and sent by Run so that publishing never waits on Telegram. With a lookup
// only events of public wishlists are posted.
type Notifier struct {
	sender Sender
	chatID int64
	lists  WishlistLookup
	logger *logrus.Logger
	queue  chan realtime.Event
}

// NewNotifier creates a notifier posting to chatID. lists may be nil, in
// which case every wishlist's activity is posted.
func NewNotifier(sender Sender, chatID int64, lists WishlistLookup, logger *logrus.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		chatID: chatID,
		lists:  lists,
		logger: logger,
		queue:  make(chan realtime.Event, notifyQueueSize),
	}
}

// Notify queues ev. Events without a message are ignored; when the queue is
// full the event is dropped.
func (n *Notifier) Notify(ev realtime.Event) {
	if FormatEvent(ev) == "" {
		return
	}
	select {
	case n.queue <- ev:
	default:
		n.logger.WithField("type", ev.Type).Warn("Telegram notification queue full, dropping message")
	}
}

// Run sends queued messages until ctx is done
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-n.queue:
			if !n.public(ctx, ev.WishlistID) {
				continue
			}
			if err := n.sender.SendMessage(n.chatID, FormatEvent(ev)); err != nil {
				n.logger.WithError(err).WithField("chat_id", n.chatID).Warn("Failed to send Telegram notification")
			}
		}
	}
}

// public reports whether activity on the wishlist may be posted. Deleted
// wishlists can no longer be checked and are skipped.
func (n *Notifier) public(ctx context.Context, wishlistID int64) bool {
	if n.lists == nil {
		return true
	}
	w, err := n.lists.GetByID(ctx, wishlistID)
	if err != nil {
		n.logger.WithError(err).WithField("wishlist_id", wishlistID).Warn("Failed to check wishlist visibility")
		return false
	}
	return w != nil && w.IsPublic
}

// FormatEvent renders the notification for ev, or "" for events that are
// not worth a message
func FormatEvent(ev realtime.Event) string {
	switch ev.Type {
	case realtime.EventItemAdded:
		var p realtime.ItemPayload
		if ev.Decode(&p) != nil || p.Item == nil {
			return ""
		}
		return fmt.Sprintf("🎁 %s added *%s*", actorName(p.Item.AddedBy), escapeMarkdown(p.Item.Name))

	case realtime.EventItemClaimed:
		var p realtime.ItemPayload
		if ev.Decode(&p) != nil || p.Item == nil {
			return ""
		}
		// claimer is not named
		return fmt.Sprintf("🔒 *%s* has been claimed", escapeMarkdown(p.Item.Name))

	case realtime.EventMemberInvited:
		var p realtime.MemberInvitedPayload
		if ev.Decode(&p) != nil || p.NewMember == nil || p.Wishlist == nil {
			return ""
		}
		return fmt.Sprintf("👋 %s joined *%s*", escapeMarkdown(p.NewMember.DisplayName), escapeMarkdown(p.Wishlist.Name))

	case realtime.EventCommentAdded:
		var p realtime.CommentPayload
		if ev.Decode(&p) != nil || p.Comment == nil {
			return ""
		}
		return fmt.Sprintf("💬 %s: %s", actorName(p.Comment.User), escapeMarkdown(p.Comment.Text))

	case realtime.EventWishlistDeleted:
		return fmt.Sprintf("🗑 Wishlist #%d was deleted", ev.WishlistID)
	}
	return ""
}

func actorName(ref *models.UserRef) string {
	if ref == nil || ref.DisplayName == "" {
		return "Someone"
	}
	return escapeMarkdown(ref.DisplayName)
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
