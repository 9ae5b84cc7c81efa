package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Kerhoff/WishShare/internal/access"
	"github.com/Kerhoff/WishShare/internal/models"
	"github.com/Kerhoff/WishShare/internal/realtime"
)

// AddComment posts a comment on an item of a wishlist the user can read
func (s *Service) AddComment(ctx context.Context, userID, wishlistID, itemID int64, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)

	var v validator
	v.check(text != "", "text", "is required")
	v.check(utf8.RuneCountInString(text) <= models.MaxCommentLength, "text",
		fmt.Sprintf("must be at most %d characters", models.MaxCommentLength))
	if err := v.err(); err != nil {
		return nil, err
	}

	if _, err := s.readableWishlist(ctx, userID, wishlistID); err != nil {
		return nil, err
	}
	if _, err := s.loadItem(ctx, wishlistID, itemID); err != nil {
		return nil, err
	}

	comment, err := s.Comments.Create(ctx, &models.Comment{ItemID: itemID, UserID: userID, Text: text})
	if err != nil {
		return nil, fromRepo(err, "failed to add comment to item %d", itemID)
	}
	comment.User = s.userRefs(ctx, []int64{userID})[userID]

	s.events.Publish(ctx, wishlistID, realtime.EventCommentAdded, userID, realtime.CommentPayload{
		ItemID:  itemID,
		Comment: comment,
	})
	return comment, nil
}

// DeleteComment removes a comment. Its author and the wishlist managers may
// delete it.
func (s *Service) DeleteComment(ctx context.Context, userID, wishlistID, itemID, commentID int64) error {
	w, err := s.readableWishlist(ctx, userID, wishlistID)
	if err != nil {
		return err
	}
	if _, err := s.loadItem(ctx, wishlistID, itemID); err != nil {
		return err
	}

	comment, err := s.Comments.GetByID(ctx, commentID)
	if err != nil {
		return fmt.Errorf("failed to get comment %d: %w", commentID, err)
	}
	if comment == nil || comment.ItemID != itemID {
		return fmt.Errorf("comment %d on item %d: %w", commentID, itemID, ErrNotFound)
	}
	if !access.CanDeleteComment(w, comment, userID) {
		return fmt.Errorf("user %d cannot delete comment %d: %w", userID, commentID, ErrAccessDenied)
	}

	if err := s.Comments.Delete(ctx, commentID); err != nil {
		return fromRepo(err, "failed to delete comment %d", commentID)
	}

	s.events.Publish(ctx, wishlistID, realtime.EventCommentDeleted, userID, realtime.CommentDeletedPayload{
		ItemID:    itemID,
		CommentID: commentID,
	})
	return nil
}
