package service

import (
	"context"

	"github.com/Kerhoff/WishShare/internal/models"
	"github.com/Kerhoff/WishShare/internal/realtime"
)

// UpsertReaction sets the user's reaction on an item, replacing any emoji
// they reacted with before
func (s *Service) UpsertReaction(ctx context.Context, userID, wishlistID, itemID int64, emoji string) (*models.Reaction, error) {
	if !models.IsAllowedEmoji(emoji) {
		var v validator
		v.add("emoji", "is not an allowed reaction")
		return nil, v.err()
	}

	if _, err := s.readableWishlist(ctx, userID, wishlistID); err != nil {
		return nil, err
	}
	if _, err := s.loadItem(ctx, wishlistID, itemID); err != nil {
		return nil, err
	}

	reaction, err := s.Reactions.Upsert(ctx, &models.Reaction{ItemID: itemID, UserID: userID, Emoji: emoji})
	if err != nil {
		return nil, fromRepo(err, "failed to react to item %d", itemID)
	}
	reaction.User = s.userRefs(ctx, []int64{userID})[userID]

	s.events.Publish(ctx, wishlistID, realtime.EventReactionUpdated, userID, realtime.ReactionPayload{
		ItemID:   itemID,
		Reaction: reaction,
	})
	return reaction, nil
}

// RemoveReaction drops the user's reaction from an item
func (s *Service) RemoveReaction(ctx context.Context, userID, wishlistID, itemID int64) error {
	if _, err := s.readableWishlist(ctx, userID, wishlistID); err != nil {
		return err
	}
	if _, err := s.loadItem(ctx, wishlistID, itemID); err != nil {
		return err
	}

	if err := s.Reactions.Remove(ctx, itemID, userID); err != nil {
		return fromRepo(err, "failed to remove reaction of user %d on item %d", userID, itemID)
	}

	s.events.Publish(ctx, wishlistID, realtime.EventReactionRemoved, userID, realtime.ReactionRemovedPayload{
		ItemID: itemID,
		UserID: userID,
	})
	return nil
}
