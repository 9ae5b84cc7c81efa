package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishShare/internal/access"
	"github.com/Kerhoff/WishShare/internal/models"
	"github.com/Kerhoff/WishShare/internal/realtime"
	"github.com/Kerhoff/WishShare/internal/repository"
)

// ItemInput holds the editable item fields. On create, nil fields take
// their defaults; on update, nil fields are kept. Status is never part of
// it; see ClaimItem, UnclaimItem and SetItemStatus.
type ItemInput struct {
	Name        *string              `json:"name"`
	Description *string              `json:"description"`
	ImageURL    *string              `json:"image_url"`
	Price       *float64             `json:"price"`
	Currency    *string              `json:"currency"`
	URL         *string              `json:"url"`
	Priority    *models.ItemPriority `json:"priority"`
}

func (in ItemInput) apply(item *models.Item) error {
	if in.Name != nil {
		item.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		item.Description = strings.TrimSpace(*in.Description)
	}
	if in.ImageURL != nil {
		item.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	if in.Price != nil {
		p := *in.Price
		item.Price = &p
	}
	if in.Currency != nil {
		item.Currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
	}
	if in.URL != nil {
		item.URL = strings.TrimSpace(*in.URL)
	}
	if in.Priority != nil {
		item.Priority = *in.Priority
	}
	if item.Currency == "" {
		item.Currency = models.DefaultCurrency
	}
	if item.Priority == "" {
		item.Priority = models.ItemPriorityMedium
	}

	var v validator
	v.check(item.Name != "", "name", "is required")
	v.check(utf8.RuneCountInString(item.Name) <= maxItemNameLength, "name",
		fmt.Sprintf("must be at most %d characters", maxItemNameLength))
	v.check(utf8.RuneCountInString(item.Description) <= maxItemDescriptionLength, "description",
		fmt.Sprintf("must be at most %d characters", maxItemDescriptionLength))
	v.check(item.Price == nil || *item.Price >= 0, "price", "must not be negative")
	v.check(item.Price == nil || *item.Price <= maxItemPrice, "price",
		fmt.Sprintf("must be at most %.2f", maxItemPrice))
	v.check(currencyPattern.MatchString(item.Currency), "currency", "must be a 3-letter currency code")
	v.check(item.URL == "" || validURL(item.URL), "url", "must be an http or https URL")
	v.check(item.ImageURL == "" || validURL(item.ImageURL), "image_url", "must be an http or https URL")
	v.check(item.Priority.Valid(), "priority", "must be low, medium or high")
	return v.err()
}

// loadItem returns the item if it belongs to the wishlist, or ErrNotFound
func (s *Service) loadItem(ctx context.Context, wishlistID, itemID int64) (*models.Item, error) {
	item, err := s.Items.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get item %d: %w", itemID, err)
	}
	if item == nil || item.WishlistID != wishlistID {
		return nil, fmt.Errorf("item %d in wishlist %d: %w", itemID, wishlistID, ErrNotFound)
	}
	return item, nil
}

// ListItems returns the items of a wishlist the user can read, newest first
func (s *Service) ListItems(ctx context.Context, userID, wishlistID int64) ([]*models.Item, error) {
	if _, err := s.readableWishlist(ctx, userID, wishlistID); err != nil {
		return nil, err
	}

	items, err := s.Items.ListByWishlist(ctx, wishlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items of wishlist %d: %w", wishlistID, err)
	}
	if items == nil {
		items = []*models.Item{}
	}
	s.decorateItems(ctx, items...)
	return items, nil
}

// GetItem returns one item of a wishlist the user can read
func (s *Service) GetItem(ctx context.Context, userID, wishlistID, itemID int64) (*models.Item, error) {
	if _, err := s.readableWishlist(ctx, userID, wishlistID); err != nil {
		return nil, err
	}
	item, err := s.loadItem(ctx, wishlistID, itemID)
	if err != nil {
		return nil, err
	}
	s.decorateItems(ctx, item)
	return item, nil
}

// CreateItem adds an item to the wishlist. Any reader may add items.
func (s *Service) CreateItem(ctx context.Context, userID, wishlistID int64, in ItemInput) (*models.Item, error) {
	item := &models.Item{WishlistID: wishlistID, AddedByID: userID}
	if err := in.apply(item); err != nil {
		return nil, err
	}
	if _, err := s.readableWishlist(ctx, userID, wishlistID); err != nil {
		return nil, err
	}

	created, err := s.Items.Create(ctx, item)
	if err != nil {
		return nil, fromRepo(err, "failed to create item in wishlist %d", wishlistID)
	}
	s.decorateItems(ctx, created)

	s.logger.WithFields(logrus.Fields{
		"wishlist_id": wishlistID,
		"item_id":     created.ID,
		"user_id":     userID,
	}).Info("Added item")
	s.events.Publish(ctx, wishlistID, realtime.EventItemAdded, userID, realtime.ItemPayload{Item: created})
	return created, nil
}

// UpdateItem changes the editable fields of an item. Managers may edit any
// item; other readers only the items they added.
func (s *Service) UpdateItem(ctx context.Context, userID, wishlistID, itemID int64, in ItemInput) (*models.Item, error) {
	w, err := s.readableWishlist(ctx, userID, wishlistID)
	if err != nil {
		return nil, err
	}
	item, err := s.loadItem(ctx, wishlistID, itemID)
	if err != nil {
		return nil, err
	}
	if !access.CanEditItem(w, item, userID) {
		return nil, fmt.Errorf("user %d cannot edit item %d: %w", userID, itemID, ErrAccessDenied)
	}
	if err := in.apply(item); err != nil {
		return nil, err
	}
	editor := userID
	item.EditedByID = &editor

	updated, err := s.Items.Update(ctx, item)
	if err != nil {
		return nil, fromRepo(err, "failed to update item %d", itemID)
	}
	s.decorateItems(ctx, updated)

	s.events.Publish(ctx, wishlistID, realtime.EventItemUpdated, userID, realtime.ItemPayload{Item: updated})
	return updated, nil
}

// DeleteItem removes an item with its comments and reactions
func (s *Service) DeleteItem(ctx context.Context, userID, wishlistID, itemID int64) error {
	w, err := s.readableWishlist(ctx, userID, wishlistID)
	if err != nil {
		return err
	}
	item, err := s.loadItem(ctx, wishlistID, itemID)
	if err != nil {
		return err
	}
	if !access.CanEditItem(w, item, userID) {
		return fmt.Errorf("user %d cannot delete item %d: %w", userID, itemID, ErrAccessDenied)
	}

	if err := s.Items.Delete(ctx, itemID); err != nil {
		return fromRepo(err, "failed to delete item %d", itemID)
	}

	s.events.Publish(ctx, wishlistID, realtime.EventItemDeleted, userID, realtime.ItemDeletedPayload{ItemID: itemID})
	return nil
}

// ClaimItem marks an item as claimed by userID. Exactly one of any number of
// concurrent claims succeeds; the rest get ErrConflict.
func (s *Service) ClaimItem(ctx context.Context, userID, wishlistID, itemID int64) (*models.Item, error) {
	if _, err := s.readableWishlist(ctx, userID, wishlistID); err != nil {
		return nil, err
	}
	if _, err := s.loadItem(ctx, wishlistID, itemID); err != nil {
		return nil, err
	}

	claimed, err := s.Items.Claim(ctx, itemID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.metrics.ClaimConflict()
			return nil, fmt.Errorf("item %d is already claimed: %w", itemID, ErrConflict)
		}
		return nil, fromRepo(err, "failed to claim item %d", itemID)
	}
	s.decorateItems(ctx, claimed)

	s.logger.WithFields(logrus.Fields{
		"wishlist_id": wishlistID,
		"item_id":     itemID,
		"user_id":     userID,
	}).Info("Claimed item")
	s.events.Publish(ctx, wishlistID, realtime.EventItemClaimed, userID, realtime.ItemPayload{Item: claimed})
	return claimed, nil
}

// UnclaimItem returns a claimed item to available. Only the claimer or a
// manager may release a claim.
func (s *Service) UnclaimItem(ctx context.Context, userID, wishlistID, itemID int64) (*models.Item, error) {
	w, err := s.readableWishlist(ctx, userID, wishlistID)
	if err != nil {
		return nil, err
	}
	item, err := s.loadItem(ctx, wishlistID, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsClaimed() {
		return nil, fmt.Errorf("item %d is %s: %w", itemID, item.Status, ErrConflict)
	}
	// Non-managers may only release their own claim, checked again by the
	// conditional update.
	var expectClaimer *int64
	if !access.CanManage(w, userID) {
		if item.ClaimedByID == nil || *item.ClaimedByID != userID {
			return nil, fmt.Errorf("user %d cannot release the claim on item %d: %w", userID, itemID, ErrAccessDenied)
		}
		expectClaimer = &userID
	}

	released, err := s.Items.Unclaim(ctx, itemID, userID, expectClaimer)
	if err != nil {
		return nil, fromRepo(err, "failed to unclaim item %d", itemID)
	}
	s.decorateItems(ctx, released)

	s.events.Publish(ctx, wishlistID, realtime.EventItemUpdated, userID, realtime.ItemPayload{Item: released})
	return released, nil
}

// SetItemStatus forces an item into any status. Requires manage access.
func (s *Service) SetItemStatus(ctx context.Context, userID, wishlistID, itemID int64, status models.ItemStatus) (*models.Item, error) {
	if !status.Valid() {
		var v validator
		v.add("status", "must be available, claimed or purchased")
		return nil, v.err()
	}
	if _, err := s.managedWishlist(ctx, userID, wishlistID); err != nil {
		return nil, err
	}
	if _, err := s.loadItem(ctx, wishlistID, itemID); err != nil {
		return nil, err
	}

	updated, err := s.Items.SetStatus(ctx, itemID, status, userID)
	if err != nil {
		return nil, fromRepo(err, "failed to set status of item %d", itemID)
	}
	s.decorateItems(ctx, updated)

	s.events.Publish(ctx, wishlistID, realtime.EventItemUpdated, userID, realtime.ItemPayload{Item: updated})
	return updated, nil
}
