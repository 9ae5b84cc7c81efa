// Package service holds the mutation handlers: every operation validates its
// input, checks access, persists and then publishes a realtime event.
package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishShare/internal/auth"
	"github.com/Kerhoff/WishShare/internal/metrics"
	"github.com/Kerhoff/WishShare/internal/models"
	"github.com/Kerhoff/WishShare/internal/realtime"
	"github.com/Kerhoff/WishShare/internal/repository"
)

// Publisher delivers events to the sessions joined to a wishlist channel.
// Publishing must not block on delivery and cannot fail the caller.
type Publisher interface {
	Publish(ctx context.Context, wishlistID int64, eventType realtime.EventType, actorID int64, payload any)
}

// Repositories groups the persistence dependencies of the service
type Repositories struct {
	Users     repository.UserRepository
	Wishlists repository.WishlistRepository
	Items     repository.ItemRepository
	Comments  repository.CommentRepository
	Reactions repository.ReactionRepository
}

// Service is the central business logic layer that holds all repositories
// and provides high-level methods for the application.
type Service struct {
	logger  *logrus.Logger
	tokens  *auth.Tokens
	events  Publisher
	metrics *metrics.Metrics

	Users     repository.UserRepository
	Wishlists repository.WishlistRepository
	Items     repository.ItemRepository
	Comments  repository.CommentRepository
	Reactions repository.ReactionRepository
}

// New creates a new Service with all required dependencies. events may be
// nil, in which case mutations are not broadcast.
func New(repos Repositories, tokens *auth.Tokens, events Publisher, logger *logrus.Logger, m *metrics.Metrics) *Service {
	if events == nil {
		events = discard{}
	}
	return &Service{
		logger:    logger,
		tokens:    tokens,
		events:    events,
		metrics:   m,
		Users:     repos.Users,
		Wishlists: repos.Wishlists,
		Items:     repos.Items,
		Comments:  repos.Comments,
		Reactions: repos.Reactions,
	}
}

type discard struct{}

func (discard) Publish(context.Context, int64, realtime.EventType, int64, any) {}

// ---------------------------------------------------------------------------
// User references
// ---------------------------------------------------------------------------

// userRefs loads the public projections of the given users. Lookup failures
// are logged and leave references empty; they never fail the operation.
func (s *Service) userRefs(ctx context.Context, ids []int64) map[int64]*models.UserRef {
	refs := make(map[int64]*models.UserRef, len(ids))
	if len(ids) == 0 {
		return refs
	}

	users, err := s.Users.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load user references")
		return refs
	}
	for id, u := range users {
		refs[id] = u.Ref()
	}
	return refs
}

func (s *Service) decorateWishlists(ctx context.Context, lists ...*models.Wishlist) {
	ids := make([]int64, 0, len(lists))
	for _, w := range lists {
		ids = append(ids, w.OwnerID)
	}
	refs := s.userRefs(ctx, ids)
	for _, w := range lists {
		w.Owner = refs[w.OwnerID]
	}
}

func (s *Service) decorateItems(ctx context.Context, items ...*models.Item) {
	var ids []int64
	for _, item := range items {
		ids = append(ids, item.AddedByID)
		if item.ClaimedByID != nil {
			ids = append(ids, *item.ClaimedByID)
		}
		if item.EditedByID != nil {
			ids = append(ids, *item.EditedByID)
		}
		for _, c := range item.Comments {
			ids = append(ids, c.UserID)
		}
		for _, r := range item.Reactions {
			ids = append(ids, r.UserID)
		}
	}

	refs := s.userRefs(ctx, ids)
	for _, item := range items {
		item.AddedBy = refs[item.AddedByID]
		item.ClaimedBy, item.EditedBy = nil, nil
		if item.ClaimedByID != nil {
			item.ClaimedBy = refs[*item.ClaimedByID]
		}
		if item.EditedByID != nil {
			item.EditedBy = refs[*item.EditedByID]
		}
		for i := range item.Comments {
			item.Comments[i].User = refs[item.Comments[i].UserID]
		}
		for i := range item.Reactions {
			item.Reactions[i].User = refs[item.Reactions[i].UserID]
		}
	}
}
