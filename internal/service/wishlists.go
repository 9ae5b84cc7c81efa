package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishShare/internal/access"
	"github.com/Kerhoff/WishShare/internal/models"
	"github.com/Kerhoff/WishShare/internal/realtime"
)

// WishlistInput holds wishlist fields. On create, nil fields take their
// defaults; on update, nil fields are kept.
type WishlistInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
	Color       *string `json:"color"`
}

// InviteInput names the user to add to a wishlist
type InviteInput struct {
	Email string            `json:"email"`
	Role  models.MemberRole `json:"role"`
}

// apply copies the set fields onto w and validates the result
func (in WishlistInput) apply(w *models.Wishlist) error {
	if in.Name != nil {
		w.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		w.Description = strings.TrimSpace(*in.Description)
	}
	if in.IsPublic != nil {
		w.IsPublic = *in.IsPublic
	}
	if in.Color != nil {
		w.Color = strings.TrimSpace(*in.Color)
	}
	if w.Color == "" {
		w.Color = models.DefaultWishlistColor
	}

	var v validator
	v.check(w.Name != "", "name", "is required")
	v.check(utf8.RuneCountInString(w.Name) <= maxWishlistNameLength, "name",
		fmt.Sprintf("must be at most %d characters", maxWishlistNameLength))
	v.check(utf8.RuneCountInString(w.Description) <= maxWishlistDescriptionLength, "description",
		fmt.Sprintf("must be at most %d characters", maxWishlistDescriptionLength))
	v.check(colorPattern.MatchString(w.Color), "color", "must be a hex color like #3B82F6")
	return v.err()
}

// loadWishlist returns the wishlist or ErrNotFound
func (s *Service) loadWishlist(ctx context.Context, id int64) (*models.Wishlist, error) {
	w, err := s.Wishlists.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get wishlist %d: %w", id, err)
	}
	if w == nil {
		return nil, fmt.Errorf("wishlist %d: %w", id, ErrNotFound)
	}
	return w, nil
}

// readableWishlist loads the wishlist and requires read access
func (s *Service) readableWishlist(ctx context.Context, userID, id int64) (*models.Wishlist, error) {
	w, err := s.loadWishlist(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanRead(w, userID) {
		return nil, fmt.Errorf("user %d cannot read wishlist %d: %w", userID, id, ErrAccessDenied)
	}
	return w, nil
}

// managedWishlist loads the wishlist and requires manage access
func (s *Service) managedWishlist(ctx context.Context, userID, id int64) (*models.Wishlist, error) {
	w, err := s.loadWishlist(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanManage(w, userID) {
		return nil, fmt.Errorf("user %d cannot manage wishlist %d: %w", userID, id, ErrAccessDenied)
	}
	return w, nil
}

// AuthorizeChannel allows a realtime session to join the wishlist channel
// only when the user can read the wishlist.
func (s *Service) AuthorizeChannel(ctx context.Context, userID, wishlistID int64) error {
	_, err := s.readableWishlist(ctx, userID, wishlistID)
	return err
}

// ListWishlists returns the wishlists userID owns or is a member of, most
// recently updated first
func (s *Service) ListWishlists(ctx context.Context, userID int64) ([]*models.Wishlist, error) {
	lists, err := s.Wishlists.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlists for user %d: %w", userID, err)
	}
	if lists == nil {
		lists = []*models.Wishlist{}
	}
	s.decorateWishlists(ctx, lists...)
	return lists, nil
}

// CreateWishlist creates a wishlist owned by userID
func (s *Service) CreateWishlist(ctx context.Context, userID int64, in WishlistInput) (*models.Wishlist, error) {
	w := &models.Wishlist{OwnerID: userID}
	if err := in.apply(w); err != nil {
		return nil, err
	}

	created, err := s.Wishlists.Create(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("failed to create wishlist: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"wishlist_id": created.ID, "user_id": userID}).Info("Created wishlist")
	s.decorateWishlists(ctx, created)
	return created, nil
}

// GetWishlist returns a wishlist the user can read
func (s *Service) GetWishlist(ctx context.Context, userID, id int64) (*models.Wishlist, error) {
	w, err := s.readableWishlist(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.decorateWishlists(ctx, w)
	return w, nil
}

// UpdateWishlist changes the wishlist fields. Requires manage access.
func (s *Service) UpdateWishlist(ctx context.Context, userID, id int64, in WishlistInput) (*models.Wishlist, error) {
	w, err := s.managedWishlist(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(w); err != nil {
		return nil, err
	}

	updated, err := s.Wishlists.Update(ctx, w)
	if err != nil {
		return nil, fromRepo(err, "failed to update wishlist %d", id)
	}
	s.decorateWishlists(ctx, updated)

	s.events.Publish(ctx, id, realtime.EventWishlistUpdated, userID, realtime.WishlistPayload{Wishlist: updated})
	return updated, nil
}

// DeleteWishlist removes the wishlist with all of its items. Only the owner
// may delete it.
func (s *Service) DeleteWishlist(ctx context.Context, userID, id int64) error {
	w, err := s.loadWishlist(ctx, id)
	if err != nil {
		return err
	}
	if !access.IsOwner(w, userID) {
		return fmt.Errorf("user %d does not own wishlist %d: %w", userID, id, ErrAccessDenied)
	}

	if err := s.Wishlists.Delete(ctx, id); err != nil {
		return fromRepo(err, "failed to delete wishlist %d", id)
	}

	s.logger.WithFields(logrus.Fields{"wishlist_id": id, "user_id": userID}).Info("Deleted wishlist")
	s.events.Publish(ctx, id, realtime.EventWishlistDeleted, userID, realtime.WishlistDeletedPayload{WishlistID: id})
	return nil
}

// InviteMember adds the registered user with the given email to the
// wishlist. Requires manage access.
func (s *Service) InviteMember(ctx context.Context, userID, id int64, in InviteInput) (*models.Wishlist, error) {
	email := models.NormalizeEmail(in.Email)
	role := in.Role
	if role == "" {
		role = models.MemberRoleMember
	}

	var v validator
	v.check(validEmail(email), "email", "must be a valid email address")
	v.check(role.Valid(), "role", "must be member or admin")
	if err := v.err(); err != nil {
		return nil, err
	}

	w, err := s.managedWishlist(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	invitee, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup user: %w", err)
	}
	if invitee == nil {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if access.CanRead(w, invitee.ID) {
		return nil, fmt.Errorf("user %d already belongs to wishlist %d: %w", invitee.ID, id, ErrConflict)
	}

	if err := s.Wishlists.AddMember(ctx, id, invitee.ID, role); err != nil {
		return nil, fromRepo(err, "failed to add user %d to wishlist %d", invitee.ID, id)
	}

	updated, err := s.loadWishlist(ctx, id)
	if err != nil {
		return nil, err
	}
	s.decorateWishlists(ctx, updated)

	s.logger.WithFields(logrus.Fields{
		"wishlist_id": id,
		"user_id":     userID,
		"invitee_id":  invitee.ID,
	}).Info("Invited member")
	s.events.Publish(ctx, id, realtime.EventMemberInvited, userID, realtime.MemberInvitedPayload{
		Wishlist:  updated,
		NewMember: invitee.Ref(),
	})
	return updated, nil
}

// RemoveMember takes memberID out of the wishlist. Managers may remove
// anyone; members may remove themselves.
func (s *Service) RemoveMember(ctx context.Context, userID, id, memberID int64) error {
	w, err := s.readableWishlist(ctx, userID, id)
	if err != nil {
		return err
	}
	if memberID != userID && !access.CanManage(w, userID) {
		return fmt.Errorf("user %d cannot remove members of wishlist %d: %w", userID, id, ErrAccessDenied)
	}
	if _, ok := w.Member(memberID); !ok {
		return fmt.Errorf("user %d is not a member of wishlist %d: %w", memberID, id, ErrNotFound)
	}

	if err := s.Wishlists.RemoveMember(ctx, id, memberID); err != nil {
		return fromRepo(err, "failed to remove user %d from wishlist %d", memberID, id)
	}

	updated, err := s.loadWishlist(ctx, id)
	if err != nil {
		return err
	}
	s.decorateWishlists(ctx, updated)

	s.events.Publish(ctx, id, realtime.EventMemberRemoved, userID, realtime.MemberRemovedPayload{
		Wishlist: updated,
		UserID:   memberID,
	})
	return nil
}
